// Package steps provides the built-in operations that pipeline definitions
// refer to by name, and the Registry that creates them.
//
// Operations are grouped by kind:
//
//	batch suppliers   define, tables, list
//	stream suppliers  watch, consume
//	maps              select, create, truncate, transfer
//	filter maps       match, drop
//	splits            split
//	collectors        union, diff
//
// Arguments are decoded from the step's args map with mapstructure and
// checked with struct tags, so malformed declarations fail when the
// pipeline is built rather than when it runs.
package steps
