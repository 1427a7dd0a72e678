package sink

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dStream/lib/sched"
	"github.com/ValentinKolb/dStream/lib/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("sink")

// Metrics exposed by all update sinks
var (
	metricEnqueued = metrics.GetOrCreateCounter("dstream_sink_batches_enqueued_total")
	metricApplied  = metrics.GetOrCreateCounter("dstream_sink_batches_applied_total")
	metricFailed   = metrics.GetOrCreateCounter("dstream_sink_batches_failed_total")
	metricRejected = metrics.GetOrCreateCounter("dstream_sink_batches_rejected_total")
	metricApplyDur = metrics.GetOrCreateHistogram("dstream_sink_apply_duration_seconds")
)

// --------------------------------------------------------------------------
// Queue Entries
// --------------------------------------------------------------------------

// queueEntry is one element of the sink queue: either a real batch or a
// barrier latch travelling through the FIFO order.
type queueEntry struct {
	batch UpdateBatch
	latch *util.Barrier

	// abandoned marks a latch whose waiter stopped listening (barrier
	// timeout). Guarded by the sink mutex.
	abandoned bool
}

// --------------------------------------------------------------------------
// Sink Implementation
// --------------------------------------------------------------------------

// updateSinkImpl implements IUpdateSink on top of a BoundedMPSC queue and a
// single background worker obtained from the injected scheduler. The single
// worker guarantees FIFO application across all writers of this sink.
type updateSinkImpl struct {
	cfg   Config
	queue *util.BoundedMPSC[queueEntry]

	mu       sync.Mutex
	failures []error // recorded since the last barrier drain

	closed     atomic.Bool
	discard    atomic.Bool
	shutdown   sync.Once
	workerDone chan struct{}
}

// NewUpdateSink creates an update sink applying batches on the given
// scheduler. The sink's apply worker occupies one scheduler worker for the
// whole lifetime of the sink, so the pool must be sized for the number of
// sinks sharing it. The scheduler must outlive the sink: call
// sink.Shutdown() before scheduler.Shutdown().
func NewUpdateSink(scheduler sched.IScheduler, cfg Config) (IUpdateSink, error) {
	if cfg.MaxQueueLength <= 0 {
		cfg.MaxQueueLength = DefaultMaxQueueLength
	}

	s := &updateSinkImpl{
		cfg:        cfg,
		queue:      util.NewBoundedMPSC[queueEntry](cfg.MaxQueueLength, cfg.Policy),
		workerDone: make(chan struct{}),
	}

	if err := scheduler.Schedule(s.applyLoop); err != nil {
		s.queue.Close()
		return nil, NewError(RetCSinkClosed, "scheduler rejected the sink worker")
	}

	return s, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see sink/interface.go)
// --------------------------------------------------------------------------

func (s *updateSinkImpl) Enqueue(batch UpdateBatch) error {
	if batch == nil {
		return NewError(RetCInvalidBatch, "cannot enqueue nil batch")
	}
	if s.closed.Load() {
		return NewError(RetCSinkClosed, "Enqueue on shut down sink")
	}

	err := s.queue.Push(&queueEntry{batch: batch})
	switch err {
	case nil:
		metricEnqueued.Inc()
		return nil
	case util.ErrQueueSaturated:
		metricRejected.Inc()
		return NewError(RetCSaturated, "update queue is at capacity")
	default:
		return NewError(RetCSinkClosed, "Enqueue on shut down sink")
	}
}

func (s *updateSinkImpl) AwaitUpdateApplication(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.cfg.BarrierTimeout
	}

	latch := util.NewBarrier()
	latch.Increment()
	entry := &queueEntry{latch: latch}

	// The latch travels through the FIFO queue, so it is reached exactly
	// when every batch accepted before this call has been processed.
	// Batches enqueued afterwards are behind the latch and cannot delay it.
	if err := s.queue.PushUncounted(entry); err != nil {
		// The sink is shut down - once the worker has drained the queue,
		// everything ever accepted has been processed.
		<-s.workerDone
		return s.aggregate(s.drainFailures())
	}

	failures, timedOut := latch.Await(timeout)
	if timedOut {
		// The worker must not hand failures to a latch nobody reads. The
		// flag and the hand-off share the sink mutex, so either the worker
		// has not touched the latch yet or all failures it handed over are
		// reclaimed here for the next barrier.
		s.mu.Lock()
		entry.abandoned = true
		s.mu.Unlock()
		if reclaimed := latch.TakeFailures(); len(reclaimed) > 0 {
			s.mu.Lock()
			s.failures = append(s.failures, reclaimed...)
			s.mu.Unlock()
		}
		return NewError(RetCBarrierTimeout, "barrier wait bound expired")
	}
	return s.aggregate(failures)
}

func (s *updateSinkImpl) Shutdown() {
	s.shutdown.Do(func() {
		// The discard flag must be visible before Enqueue starts failing:
		// once a writer observes SinkClosed, the policy is in effect.
		if s.cfg.DiscardOnShutdown {
			s.discard.Store(true)
		}
		s.closed.Store(true)

		// Close stops admission; already-accepted entries are still
		// delivered to the worker, which exits once the queue is drained.
		s.queue.Close()
		<-s.workerDone
	})
}

// --------------------------------------------------------------------------
// Background Application
// --------------------------------------------------------------------------

// applyLoop is the single worker of this sink. It runs on the injected
// scheduler until the queue is closed and drained.
func (s *updateSinkImpl) applyLoop() {
	defer close(s.workerDone)

	for entry := range s.queue.Recv() {
		if entry.latch != nil {
			// Hand the failures recorded so far to exactly this waiter.
			// Skipped for abandoned latches: their failures stay recorded
			// until a barrier with a live waiter picks them up.
			s.mu.Lock()
			if !entry.abandoned {
				failures := s.failures
				s.failures = nil
				for _, f := range failures {
					entry.latch.Fail(f)
				}
				entry.latch.Done(nil)
			}
			s.mu.Unlock()
			continue
		}

		if s.discard.Load() {
			s.queue.Release()
			continue
		}

		start := time.Now()
		if err := entry.batch.Apply(); err != nil {
			// The failure is retained for the next barrier call; later
			// batches are not affected.
			log.Errorf("batch application failed: %v", err)
			s.mu.Lock()
			s.failures = append(s.failures, err)
			s.mu.Unlock()
			metricFailed.Inc()
		} else {
			metricApplied.Inc()
		}
		metricApplyDur.UpdateDuration(start)

		// Free the capacity slot only now - admission control is tied to
		// application, not to the moment the worker picks the batch up
		s.queue.Release()
	}
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// drainFailures removes and returns the failures recorded since the last drain.
func (s *updateSinkImpl) drainFailures() []error {
	s.mu.Lock()
	failures := s.failures
	s.failures = nil
	s.mu.Unlock()
	return failures
}

// aggregate converts a failure set into the barrier return value.
func (s *updateSinkImpl) aggregate(failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	return &Error{
		Code:     RetCApplicationFailure,
		Msg:      "batches failed to apply",
		Failures: failures,
	}
}
