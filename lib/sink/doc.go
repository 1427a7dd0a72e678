// Package sink implements the asynchronous update sink of dStream: a
// bounded, concurrent queue of update batches with background application
// and a quiescence barrier.
//
// Any number of writers enqueue opaque UpdateBatch values. The sink queues
// them under a configurable capacity bound - a full queue either blocks the
// writer or rejects the batch, depending on the admission policy chosen at
// construction - and a background worker (running on an injected scheduler)
// applies them in FIFO order.
//
// A failure while applying one batch never blocks batches accepted from
// other writers. Instead it is recorded and surfaced as an aggregate error
// by the next AwaitUpdateApplication call. The barrier has watermark
// semantics: it covers exactly the batches accepted before the call, so
// sustained enqueueing by other writers cannot delay its return. This is
// implemented by pushing a latch entry through the same FIFO queue - once
// the worker reaches the latch, everything accepted before it has been
// applied or has recorded its failure.
//
// Shutdown stops admission, drains the queue (applying or discarding the
// remaining batches per configuration) and releases the background worker.
// It is idempotent and is the only supported cancellation path - individual
// batches are not cancellable once accepted.
package sink
