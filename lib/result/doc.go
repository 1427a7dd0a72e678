// Package result implements the demand-regulated result delivery protocol
// of dStream: a producer of records is connected to a subscriber that pulls
// records in batch sizes of its own choosing.
//
// The central type is the delivery session created by NewSession. A session
// mediates between exactly one Producer and one Subscriber:
//
//   - If the very first Request asks for everything at once (DemandAll), the
//     session streams records straight from the producer to the subscriber
//     without buffering ("direct streaming").
//   - Otherwise the session drains the producer exactly once into a
//     RecordBuffer ("materialization") and serves all demand, present and
//     future, by replaying from the buffer. The producer is never driven a
//     second time.
//
// Error semantics follow the deferred-error pattern: a producer failure
// mid-stream is captured, all records produced before the failure are
// delivered, and only then is the subscriber told about the error via
// OnError. Partial success is a first-class outcome - the subscriber never
// sees a truncated result without an accompanying error.
//
// A session is single-threaded: Request calls must not run concurrently and
// callers must serialize access externally if the session is shared.
//
// Related Packages:
//
// The codec package (github.com/ValentinKolb/dStream/lib/result/codec)
// provides pluggable record serializers and a Subscriber implementation that
// streams delivered records onto an io.Writer.
package result
