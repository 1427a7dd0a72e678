// Package util provides the concurrency primitives shared by the delivery
// and sink layers of dStream.
//
// Key components:
//
//   - BoundedMPSC: a Multi-Producer Single-Consumer queue with an optional
//     capacity bound and a configurable admission policy (block vs reject).
//     Producers push lock-free via atomic operations; a consumer goroutine
//     delivers items through a channel. With a capacity bound, a slot is
//     held from acceptance until the consumer explicitly releases it, which
//     makes the queue usable as a combined queue + admission semaphore.
//   - Barrier: a quiescence coordinator (counter + condition variable +
//     failure set) that lets any number of producers register in-flight
//     units of work and lets callers block until all registered units have
//     completed, collecting the failures recorded along the way.
//
// Both primitives are self-contained and carry no dependencies on the rest
// of the library.
package util
