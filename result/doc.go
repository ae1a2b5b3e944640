// Package result accumulates the metrics of one pipeline execution.
//
// A PipelineResult is created per run. It holds a total timer, an execution
// timer, per-step counters and the stream pacing waits. Counters are safe
// for concurrent use by the main loop and windowed collector tasks. Once the
// result is stopped every mutation fails with RESULT_CLOSED. Report returns
// the immutable document handed to sinks.
package result
