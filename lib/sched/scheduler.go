package sched

import (
	"errors"
	"runtime"
	"sync"

	"github.com/ValentinKolb/dStream/lib/util"
)

// ErrSchedulerClosed is returned by Schedule after Shutdown.
var ErrSchedulerClosed = errors.New("scheduler is shut down")

// IScheduler accepts background work units and runs them off the caller's
// goroutine. Components that need asynchronous application (e.g. the update
// sink) consume this interface instead of spawning their own goroutines.
type IScheduler interface {
	// Schedule submits a task for background execution. Tasks may be long
	// running; a task occupies one pool worker until it returns.
	Schedule(task func()) error

	// Shutdown stops accepting tasks, runs all already-submitted tasks to
	// completion and waits for the workers to exit. Idempotent.
	Shutdown()

	// Workers returns the size of the worker pool. A long-running task
	// occupies one worker permanently; callers submitting such tasks must
	// stay below this bound or later submissions will never run.
	Workers() int
}

// --------------------------------------------------------------------------
// Worker Pool Implementation
// --------------------------------------------------------------------------

// poolSchedulerImpl implements IScheduler with a fixed worker pool fed by an
// unbounded MPSC queue.
type poolSchedulerImpl struct {
	queue      *util.BoundedMPSC[func()]
	numWorkers int
	workers    sync.WaitGroup
	shutdown   sync.Once
}

// NewPoolScheduler creates a scheduler with the given number of workers
// (numWorkers <= 0 means one worker per CPU).
func NewPoolScheduler(numWorkers int) IScheduler {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	s := &poolSchedulerImpl{
		queue:      util.NewBoundedMPSC[func()](0, util.AdmitBlock),
		numWorkers: numWorkers,
	}

	s.workers.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go s.work()
	}

	return s
}

// work runs tasks until the queue is closed and drained. The queue's output
// channel is shared by all workers, so tasks are distributed to whichever
// worker is free.
func (s *poolSchedulerImpl) work() {
	defer s.workers.Done()
	for task := range s.queue.Recv() {
		(*task)()
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see sched.IScheduler)
// --------------------------------------------------------------------------

func (s *poolSchedulerImpl) Schedule(task func()) error {
	if task == nil {
		return errors.New("cannot schedule nil task")
	}
	if err := s.queue.Push(&task); err != nil {
		return ErrSchedulerClosed
	}
	return nil
}

func (s *poolSchedulerImpl) Shutdown() {
	s.shutdown.Do(func() {
		s.queue.Close()
		s.workers.Wait()
	})
}

func (s *poolSchedulerImpl) Workers() int {
	return s.numWorkers
}
