// Package worker runs evaluation runs in the background.
//
// A Pool is a bounded FIFO queue served by a fixed number of goroutines. It
// implements evaluation.Dispatcher: Dispatch enqueues a run ID and returns
// immediately, failing with ErrQueueFull when the queue is saturated
// instead of blocking the HTTP handler.
//
// A run ID is accepted at most once while it is queued or executing, so two
// workers never execute the same run concurrently. Drain stops accepting
// work and waits for queued runs to finish.
package worker
