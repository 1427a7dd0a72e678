package sink

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dStream/lib/util"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// UpdateBatch is one opaque unit of index mutation work. The enqueuing
// writer owns the batch until the sink accepts it; afterwards the sink owns
// it until it was applied or discarded. Each batch counts as one unit
// against the capacity bound.
type UpdateBatch interface {
	// Apply performs the mutation. Called exactly once, from a background
	// worker. A returned error is recorded against the batch and surfaced
	// at the next barrier call.
	Apply() error
}

// IUpdateSink is the writer-facing interface of the update sink.
type IUpdateSink interface {
	// Enqueue accepts one batch for asynchronous application. On a full
	// queue the call blocks until space frees (AdmitBlock) or fails with
	// RetCSaturated (AdmitReject). Accepted batches are applied in FIFO
	// order.
	//
	// Thread-safety: This method is thread-safe and can be called concurrently.
	Enqueue(batch UpdateBatch) error

	// AwaitUpdateApplication blocks until every batch accepted before the
	// call has been applied or recorded its failure. If any awaited batch
	// failed, an aggregate error of code RetCApplicationFailure is
	// returned; already-reported failures are not re-reported. timeout == 0
	// uses the configured default; a wait bound expiry returns
	// RetCBarrierTimeout and does not cancel the outstanding batches.
	//
	// Thread-safety: This method is thread-safe and can be called concurrently.
	AwaitUpdateApplication(timeout time.Duration) error

	// Shutdown stops accepting new batches, drains the queue (applying or
	// discarding per configuration) and releases the background worker.
	// Idempotent.
	Shutdown()
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

const (
	// DefaultMaxQueueLength is the default capacity bound of the sink queue.
	DefaultMaxQueueLength = 10000
)

// Config holds the construction-time knobs of an update sink.
type Config struct {
	// MaxQueueLength is the capacity bound (<= 0 uses DefaultMaxQueueLength).
	MaxQueueLength int
	// Policy decides between blocking and rejecting admission on a full queue.
	Policy util.AdmissionPolicy
	// BarrierTimeout is the default wait bound for AwaitUpdateApplication
	// (0 = wait indefinitely).
	BarrierTimeout time.Duration
	// DiscardOnShutdown discards still-queued batches on Shutdown instead of
	// applying them. This is a deployment policy for abrupt termination.
	DiscardOnShutdown bool
}

// DefaultConfig returns the default sink configuration: a blocking queue of
// DefaultMaxQueueLength batches and unbounded barrier waits.
func DefaultConfig() Config {
	return Config{
		MaxQueueLength: DefaultMaxQueueLength,
		Policy:         util.AdmitBlock,
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by the update sink. For aggregate
// application failures the Failures field carries the per-batch errors.
type Error struct {
	Code     RetCode // The return code
	Msg      string  // The error message
	Failures []error // Per-batch failures (only for RetCApplicationFailure)
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCSaturated:
		errorCode = "SinkSaturated"
	case RetCApplicationFailure:
		errorCode = "ApplicationFailure"
	case RetCBarrierTimeout:
		errorCode = "BarrierTimeout"
	case RetCSinkClosed:
		errorCode = "SinkClosed"
	case RetCInvalidBatch:
		errorCode = "InvalidBatch"
	default:
		errorCode = "Unknown"
	}

	if len(e.Failures) > 0 {
		parts := make([]string, len(e.Failures))
		for i, f := range e.Failures {
			parts[i] = f.Error()
		}
		return fmt.Sprintf("SinkError (code %s): %s: [%s]", errorCode, e.Msg, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("SinkError (code %s): %s", errorCode, e.Msg)
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
	RetCSuccess            RetCode = iota // 0: Call executed successfully.
	RetCSaturated                         // 1: Queue at capacity (reject policy) - recoverable, retry later.
	RetCApplicationFailure                // 2: One or more awaited batches failed to apply.
	RetCBarrierTimeout                    // 3: Barrier wait bound expired - distinct from failure, retryable.
	RetCSinkClosed                        // 4: The sink was shut down.
	RetCInvalidBatch                      // 5: The batch was nil or otherwise unusable.
)
