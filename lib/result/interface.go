package result

import (
	"fmt"
	"math"
)

// DemandAll is the sentinel demand value meaning "all remaining records".
const DemandAll int64 = math.MaxInt64

// --------------------------------------------------------------------------
// Producer Side Interfaces
// --------------------------------------------------------------------------

// Record is one row of output: an ordered, fixed-arity tuple of values.
// A record is owned by the session until it has been delivered or buffered;
// Release must be invoked exactly once to free any scoped resources.
type Record interface {
	// Fields returns the values of the record in column order. The returned
	// slice is only valid until Release is called.
	Fields() []any

	// Release frees the scoped resources of the record. Must be called
	// exactly once; the record must not be used afterwards.
	Release()
}

// Producer is a lazy, finite, non-restartable source of records. Accept
// drives the producer to completion, calling visit once per record in
// order. Driving a producer a second time is undefined - the session
// enforces "drive exactly once".
//
// A producer failure is returned from Accept after any successfully
// produced records were visited. If visit returns an error, production is
// aborted and that error is returned unchanged.
//
// Producers holding external resources may additionally implement io.Closer;
// the session closes them when it is discarded before the drive happened.
type Producer interface {
	// FieldNames returns the ordered column names shared by all records.
	FieldNames() []string

	// Accept drives the producer, visiting every record exactly once.
	Accept(visit func(rec Record) error) error
}

// --------------------------------------------------------------------------
// Subscriber Interface
// --------------------------------------------------------------------------

// Subscriber receives the output of a delivery session. The session calls
// OnResult exactly once before the first record, then per record OnRecord,
// OnField for every column in order, and OnRecordCompleted. Delivery ends
// with either OnResultCompleted or OnError, never both for the same pass.
//
// Errors returned from the callbacks abort the current Request call and are
// propagated to the caller (they are subscriber failures, not producer
// failures, and are therefore not deferred).
type Subscriber interface {
	// OnResult announces the number of fields per record. Called exactly once.
	OnResult(fieldCount int) error

	// OnRecord announces the start of one record.
	OnRecord() error

	// OnField delivers the value of one column of the current record.
	OnField(index int, value any) error

	// OnRecordCompleted marks the current record as fully delivered.
	OnRecordCompleted() error

	// OnError reports a deferred producer failure, after all records that
	// were validly produced before the failure have been delivered.
	OnError(err error)

	// OnResultCompleted signals that all records were delivered without error.
	OnResultCompleted()
}

// --------------------------------------------------------------------------
// Session Interface
// --------------------------------------------------------------------------

// ISubscription is the consumer-facing handle of a delivery session.
type ISubscription interface {
	// Request asks for up to demand additional records. Demand accumulates
	// across calls; the session never delivers fewer than the accumulated
	// outstanding demand while records remain. demand must be positive or
	// the sentinel DemandAll; Request(0) fails with RetCInvalidDemand and
	// leaves the session state unchanged.
	//
	// Thread-safety: Request calls for one session must not run concurrently.
	Request(demand int64) error

	// Size returns the total number of records, or -1 while it is unknown
	// (i.e. before materialization started).
	Size() int

	// Close discards the session: the record buffer is released and, if the
	// producer was never driven and implements io.Closer, it is closed.
	// Subsequent Request calls fail with RetCSessionClosed. Idempotent.
	Close()
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by delivery sessions. It wraps a return
// code (of type RetCode), a message and optionally an underlying error.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // Underlying error (may be nil)
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInvalidDemand:
		errorCode = "InvalidDemand"
	case RetCProducerFailure:
		errorCode = "ProducerFailure"
	case RetCSessionClosed:
		errorCode = "SessionClosed"
	default:
		errorCode = "Unknown"
	}

	if e.Err != nil {
		return fmt.Sprintf("ResultError (code %s): %s: %v", errorCode, e.Msg, e.Err)
	}
	return fmt.Sprintf("ResultError (code %s): %s", errorCode, e.Msg)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess         RetCode = iota // 0: Call executed successfully.
	RetCInvalidDemand                  // 1: Demand was zero or negative - fatal to the call, not the session.
	RetCProducerFailure                // 2: The producer failed mid-stream (surfaced deferred).
	RetCSessionClosed                  // 3: The session was closed.
)
