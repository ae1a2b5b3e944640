// Package component defines the lifecycle interface shared by the
// long-lived parts of a datapipe process: storage, Kafka, the report
// database and stream runners.
//
// A Registry starts components in registration order and stops them in
// reverse. Lazy defers expensive setup until first use.
package component
