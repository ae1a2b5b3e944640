// Package report writes execution reports to their destinations.
//
// A Sink receives the immutable result.Report produced when an execution
// finishes. Sinks exist for JSON streams, storage objects, SQL databases and
// Kafka topics; MultiSink fans a report out to several of them.
package report
