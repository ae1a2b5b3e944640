// Package resource defines the data resources a pipeline moves between steps.
//
// A Resource is an opaque handle: the engine compares keys, counts handles
// and reads the schema column count, nothing more. Tables live in a Catalog
// held in memory; Objects are files in a named storage.Storage.
package resource
