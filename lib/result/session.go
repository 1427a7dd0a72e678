package result

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics exposed by all delivery sessions
var (
	metricRecords  = metrics.GetOrCreateCounter("dstream_result_records_delivered_total")
	metricDirect   = metrics.GetOrCreateCounter("dstream_result_sessions_direct_total")
	metricBuffered = metrics.GetOrCreateCounter("dstream_result_sessions_materialized_total")
)

// --------------------------------------------------------------------------
// Session State
// --------------------------------------------------------------------------

// sessionState tracks the delivery mode of a session.
type sessionState int

const (
	stateUnstarted     sessionState = iota // no demand received yet
	stateDirect                            // zero-copy pass through to the subscriber
	stateMaterializing                     // serving replayed records from the buffer
	stateExhausted                         // all records served, terminal signal sent
)

func (s sessionState) String() string {
	switch s {
	case stateUnstarted:
		return "Unstarted"
	case stateDirect:
		return "Streaming-Direct"
	case stateMaterializing:
		return "Materializing"
	case stateExhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Session Implementation
// --------------------------------------------------------------------------

// sessionImpl implements ISubscription. See the package documentation for
// the protocol it follows.
type sessionImpl struct {
	producer Producer
	sub      Subscriber

	state     sessionState
	buf       *RecordBuffer
	served    int   // records delivered from the buffer so far
	requested int64 // accumulated demand (saturating)
	err       error // deferred producer failure
	closed    bool
}

// NewSession creates a delivery session connecting one producer to one
// subscriber. The producer must not have been driven before and will be
// driven at most once by the session.
func NewSession(producer Producer, sub Subscriber) ISubscription {
	return &sessionImpl{
		producer: producer,
		sub:      sub,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see result/interface.go)
// --------------------------------------------------------------------------

func (s *sessionImpl) Request(demand int64) error {
	if s.closed {
		return NewError(RetCSessionClosed, "Request on closed session")
	}

	// Request(0) (or negative demand) is invalid and leaves the state unchanged
	if demand <= 0 {
		return NewError(RetCInvalidDemand, "demand must be positive")
	}

	// A session that already served everything only repeats its terminal
	// signal - the producer is never driven again.
	if s.state == stateExhausted {
		s.signalTerminal()
		return nil
	}

	// The client asked for all the results and buffering has not started:
	// no need to materialize in an intermediate collection, just stream the
	// producer output directly back.
	if demand == DemandAll && s.state == stateUnstarted {
		return s.streamDirectly()
	}

	if err := s.materializeIfNecessary(); err != nil {
		return err
	}

	s.addDemand(demand)
	return s.serveFromBuffer()
}

func (s *sessionImpl) Size() int {
	if s.buf == nil {
		return -1
	}
	return s.buf.Size()
}

func (s *sessionImpl) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if s.buf != nil {
		s.buf.Release()
		s.buf = nil
	}

	// If the producer was never consumed it may still hold open resources
	if s.state == stateUnstarted {
		if c, ok := s.producer.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

// --------------------------------------------------------------------------
// Direct Streaming
// --------------------------------------------------------------------------

// streamDirectly drives the producer to completion, forwarding every record
// field by field to the subscriber without a buffer allocation.
func (s *sessionImpl) streamDirectly() error {
	if err := s.sub.OnResult(len(s.producer.FieldNames())); err != nil {
		// The producer was not driven yet, so Close releases its resources
		s.Close()
		return err
	}

	s.state = stateDirect
	metricDirect.Inc()

	var subErr error
	err := s.producer.Accept(func(rec Record) error {
		e := s.deliver(rec.Fields())
		rec.Release()
		if e != nil {
			subErr = e
			return e
		}
		return nil
	})

	if subErr != nil {
		// A subscriber failure aborts the whole session, not just the call:
		// the producer is spent and there is no buffer to replay from. Later
		// Request calls fail with RetCSessionClosed.
		s.Close()
		return subErr
	}
	if err != nil {
		// A producer failure mid-stream: the records forwarded so far are
		// valid partial output, so the error surfaces only now.
		s.err = &Error{Code: RetCProducerFailure, Msg: "producer failed during direct streaming", Err: err}
	}

	s.state = stateExhausted
	s.signalTerminal()
	return nil
}

// --------------------------------------------------------------------------
// Materialized Delivery
// --------------------------------------------------------------------------

// materializeIfNecessary drives the producer to completion exactly once,
// buffering every record. This happens on the first Request call regardless
// of how small that call's demand is, because the producer can only be
// consumed once.
func (s *sessionImpl) materializeIfNecessary() error {
	if s.state != stateUnstarted {
		return nil
	}
	s.state = stateMaterializing
	metricBuffered.Inc()
	s.buf = NewRecordBuffer()

	err := s.producer.Accept(func(rec Record) error {
		s.buf.Append(rec)
		return nil
	})
	if err != nil {
		// there might still be buffered records to feed to the subscriber
		// before failing
		s.err = &Error{Code: RetCProducerFailure, Msg: "producer failed during materialization", Err: err}
	}

	// only call OnResult the first time
	return s.sub.OnResult(len(s.producer.FieldNames()))
}

// serveFromBuffer replays buffered records starting at the next unserved
// index, up to min(accumulated demand, remaining).
func (s *sessionImpl) serveFromBuffer() error {
	size := s.buf.Size()

	for s.served < size && int64(s.served) < s.requested {
		if err := s.deliver(s.buf.Get(s.served)); err != nil {
			return err
		}
		s.served++
	}

	if s.served == size {
		s.state = stateExhausted
		s.signalTerminal()
	}
	return nil
}

// addDemand accumulates demand with overflow saturation.
func (s *sessionImpl) addDemand(demand int64) {
	if demand == DemandAll || s.requested > DemandAll-demand {
		s.requested = DemandAll
		return
	}
	s.requested += demand
}

// --------------------------------------------------------------------------
// Shared Delivery Helpers
// --------------------------------------------------------------------------

// deliver performs the per-record callback sequence on the subscriber.
func (s *sessionImpl) deliver(fields []any) error {
	if err := s.sub.OnRecord(); err != nil {
		return err
	}
	for i, v := range fields {
		if err := s.sub.OnField(i, v); err != nil {
			return err
		}
	}
	if err := s.sub.OnRecordCompleted(); err != nil {
		return err
	}
	metricRecords.Inc()
	return nil
}

// signalTerminal emits the terminal signal of the session: the deferred
// producer failure if one was captured, completion otherwise.
func (s *sessionImpl) signalTerminal() {
	if s.err != nil {
		s.sub.OnError(s.err)
		return
	}
	s.sub.OnResultCompleted()
}
