// Package pipeline runs a declared chain of steps over data resources.
//
// A Pipeline is built from an immutable list of steps. The first step is a
// root supplier; map and filter steps attach to the current cascade node,
// while split and collect steps open a child node fed by an intermediate
// supplier. Batch pipelines run until the root supplier is exhausted and
// then force-drain their collectors. Stream pipelines poll the root
// supplier at a bounded rate and drain collectors on background windows.
//
// Step failures go through the configured error policy:
//
//   - stop: the execution fails with STEP_FAILED
//   - discard: the resource is dropped and the run continues
//   - park: the resource is copied to a parking target and dropped
//
// Invariant violations, timeouts and cancellations never go through the
// policy. Each call to Execute rebuilds the cascade and returns a fresh
// result.PipelineResult.
package pipeline
