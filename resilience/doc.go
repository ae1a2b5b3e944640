// Package resilience retries transient failures with exponential backoff.
//
// Transfers between stores use it so that a flaky backend does not turn a
// parking request into a fatal pipeline error on the first attempt.
package resilience
