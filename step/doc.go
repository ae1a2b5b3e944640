// Package step defines the closed set of step kinds a pipeline is built from.
//
// Every step embeds Base, which carries its kind, operation name, user name
// and arguments; the Step interface can only be satisfied through Base, so
// the set of kinds stays closed. Behavior is attached through one interface
// per kind:
//
//	KindBatchSupplier   Supplier                 root, runs to exhaustion
//	KindStreamSupplier  Supplier + Poller        root, runs until stopped
//	KindMap             Mapper                   1 -> 1
//	KindFilterMap       Mapper                   1 -> 0..1
//	KindSplit           Splitter                 1 -> sub-supplier
//	KindCollect         Collector                N -> sub-supplier
//
// Optional hooks (Starter, Completer, Rebuilder, Windowed, Configurable)
// are discovered with type assertions.
package step
