package util

import (
	"sync"
	"time"
)

// Barrier is a quiescence coordinator: it counts in-flight units of work and
// collects the failures recorded while they ran. Await blocks until the
// count reaches zero and then hands over the accumulated failure set.
//
// Typical usage: every producer calls Increment() when it hands off a unit
// of work, the worker calls Done(err) when the unit has been processed, and
// interested callers block in Await().
type Barrier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	inFlight int
	failures []error
}

// NewBarrier creates a new Barrier with an in-flight count of zero.
func NewBarrier() *Barrier {
	b := &Barrier{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Increment registers one in-flight unit of work.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *Barrier) Increment() {
	b.mu.Lock()
	b.inFlight++
	b.mu.Unlock()
}

// Done marks one unit of work as completed and wakes waiters if the
// in-flight count reached zero. A non-nil err is added to the failure set.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *Barrier) Done(err error) {
	b.mu.Lock()
	if err != nil {
		b.failures = append(b.failures, err)
	}
	b.inFlight--
	if b.inFlight <= 0 {
		b.cond.Broadcast()
	}
	b.mu.Unlock()
}

// Fail records a failure without completing a unit of work. Used when a
// single unit wants to report multiple failures before calling Done.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *Barrier) Fail(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	b.failures = append(b.failures, err)
	b.mu.Unlock()
}

// Await blocks until the in-flight count reaches zero, then returns the
// accumulated failure set (possibly empty) and resets it so failures are
// reported at most once. It returns immediately if the count is already
// zero.
//
// timeout == 0 means wait indefinitely. On expiry Await returns timedOut ==
// true and leaves the in-flight count and failure set untouched - the
// outstanding work is not cancelled and the caller may retry the wait.
//
// Thread-safety: Await may be called concurrently by multiple callers; all
// of them are woken once the count reaches zero.
func (b *Barrier) Await(timeout time.Duration) (failures []error, timedOut bool) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
		// cond.Wait has no deadline support, so a timer broadcast wakes the
		// waiters and the loop below re-checks the clock
		timer := time.AfterFunc(timeout, func() {
			b.mu.Lock()
			b.cond.Broadcast()
			b.mu.Unlock()
		})
		defer timer.Stop()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for b.inFlight > 0 {
		if timeout > 0 && !time.Now().Before(deadline) {
			return nil, true
		}
		b.cond.Wait()
	}

	failures = b.failures
	b.failures = nil
	return failures, false
}

// TakeFailures removes and returns the failures recorded so far without
// waiting for the in-flight count. Used by callers that stop waiting (e.g.
// after a timeout) and need to re-home failures already handed to them.
//
// Thread-safety: This method is thread-safe.
func (b *Barrier) TakeFailures() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	failures := b.failures
	b.failures = nil
	return failures
}

// InFlight returns the current number of registered, uncompleted units.
func (b *Barrier) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}
