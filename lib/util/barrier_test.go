package util

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// TestAwaitZeroImmediate verifies that Await returns immediately when no
// work is in flight
func TestAwaitZeroImmediate(t *testing.T) {
	b := NewBarrier()

	done := make(chan struct{})
	go func() {
		failures, timedOut := b.Await(0)
		if timedOut {
			t.Errorf("Await timed out although no timeout was set")
		}
		if len(failures) != 0 {
			t.Errorf("Expected no failures, got %v", failures)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Await did not return immediately on an idle barrier")
	}
}

// TestAwaitBlocksUntilDone verifies that Await suspends the caller until all
// registered units completed
func TestAwaitBlocksUntilDone(t *testing.T) {
	b := NewBarrier()
	b.Increment()
	b.Increment()

	released := make(chan struct{})
	go func() {
		b.Await(0)
		close(released)
	}()

	b.Done(nil)

	select {
	case <-released:
		t.Fatalf("Await returned although one unit is still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	b.Done(nil)

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatalf("Await did not return after the last unit completed")
	}
}

// TestFailureCollection verifies that failures are reported exactly once
func TestFailureCollection(t *testing.T) {
	b := NewBarrier()

	errA := errors.New("a failed")
	errB := errors.New("b failed")

	b.Increment()
	b.Increment()
	b.Increment()
	b.Done(errA)
	b.Done(nil)
	b.Done(errB)

	failures, timedOut := b.Await(0)
	if timedOut {
		t.Fatalf("Unexpected timeout")
	}
	if len(failures) != 2 {
		t.Fatalf("Expected 2 failures, got %d: %v", len(failures), failures)
	}

	// A second Await must not re-report the failures
	failures, _ = b.Await(0)
	if len(failures) != 0 {
		t.Errorf("Failures were reported twice: %v", failures)
	}
}

// TestAwaitTimeout verifies the timeout indication is distinct from failure
func TestAwaitTimeout(t *testing.T) {
	b := NewBarrier()
	b.Increment()

	start := time.Now()
	failures, timedOut := b.Await(50 * time.Millisecond)
	if !timedOut {
		t.Fatalf("Expected a timeout")
	}
	if failures != nil {
		t.Errorf("Timeout must not report failures, got %v", failures)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Errorf("Await returned before the timeout expired")
	}

	// The outstanding unit is untouched, a retry succeeds after Done
	b.Done(nil)
	if _, timedOut := b.Await(time.Second); timedOut {
		t.Errorf("Retry after timeout failed")
	}
}

// TestConcurrentIncrements verifies the barrier under many producers and
// multiple decrementers
func TestConcurrentIncrements(t *testing.T) {
	b := NewBarrier()

	const numProducers = 16
	const unitsPerProducer = 500

	var wg sync.WaitGroup
	wg.Add(numProducers * 2)

	for p := 0; p < numProducers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < unitsPerProducer; i++ {
				b.Increment()
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < unitsPerProducer; i++ {
				b.Done(nil)
			}
		}()
	}

	wg.Wait()

	if _, timedOut := b.Await(time.Second); timedOut {
		t.Fatalf("Barrier did not settle at zero, %d units in flight", b.InFlight())
	}
}

// TestTakeFailures verifies failures can be reclaimed without waiting and
// are handed out only once
func TestTakeFailures(t *testing.T) {
	b := NewBarrier()
	b.Increment()

	errBoom := errors.New("boom")
	b.Fail(errBoom)

	failures := b.TakeFailures()
	if len(failures) != 1 || !errors.Is(failures[0], errBoom) {
		t.Fatalf("Expected the recorded failure, got %v", failures)
	}

	// The failure set was drained and the in-flight count is untouched
	if failures := b.TakeFailures(); len(failures) != 0 {
		t.Errorf("Expected an empty second take, got %v", failures)
	}
	if b.InFlight() != 1 {
		t.Errorf("Expected the in-flight count to be untouched, got %d", b.InFlight())
	}
}
