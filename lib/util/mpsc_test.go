package util

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestBasicOperations tests basic push and consume functionality
func TestBasicOperations(t *testing.T) {
	q := NewBoundedMPSC[int](0, AdmitBlock)
	defer q.Close()

	// Push 10 items
	for i := 0; i < 10; i++ {
		v := i
		if err := q.Push(&v); err != nil {
			t.Fatalf("Failed to push item %d: %v", i, err)
		}
	}

	// Consume 10 items
	for i := 0; i < 10; i++ {
		select {
		case val := <-q.Recv():
			if *val != i {
				t.Errorf("Expected %d, got %v", i, *val)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	// Make sure queue is empty
	select {
	case val := <-q.Recv():
		t.Errorf("Queue should be empty, but got %v", val)
	case <-time.After(10 * time.Millisecond):
		// Expected timeout, queue is empty
	}
}

// TestConcurrentProducers verifies the queue works correctly with multiple producers
func TestConcurrentProducers(t *testing.T) {
	q := NewBoundedMPSC[int](0, AdmitBlock)
	defer q.Close()

	const numProducers = 10
	const itemsPerProducer = 1000
	totalItems := numProducers * itemsPerProducer

	// Use a map to track received items
	var mu sync.Mutex
	received := make(map[string]bool)

	// Start a consumer goroutine
	done := make(chan struct{})
	receivedCount := 0

	go func() {
		defer close(done)

		for receivedCount < totalItems {
			select {
			case val := <-q.Recv():
				if val == nil {
					t.Errorf("Received nil item")
					return
				}

				mu.Lock()
				key := fmt.Sprintf("%d", *val)
				if received[key] {
					t.Errorf("Duplicate item received: %v", *val)
				}
				received[key] = true
				receivedCount++
				mu.Unlock()
			case <-time.After(2 * time.Second):
				t.Errorf("Timeout waiting for items, received %d of %d", receivedCount, totalItems)
				return
			}
		}
	}()

	// Start producers
	var wg sync.WaitGroup
	wg.Add(numProducers)

	for p := 0; p < numProducers; p++ {
		go func(producerID int) {
			defer wg.Done()

			base := producerID * itemsPerProducer
			for i := 0; i < itemsPerProducer; i++ {
				val := base + i
				if err := q.Push(&val); err != nil {
					t.Errorf("Producer %d failed to push item %d: %v", producerID, i, err)
				}

				// Add some randomness to producer timing
				if i%100 == 0 {
					runtime.Gosched()
				}
			}
		}(p)
	}

	// Wait for all producers to finish
	wg.Wait()

	// Wait for consumer to process all items
	select {
	case <-done:
		// Consumer finished
	case <-time.After(5 * time.Second):
		t.Fatalf("Timeout waiting for consumer to finish")
	}
}

// TestRejectPolicy verifies that a full queue rejects pushes immediately
func TestRejectPolicy(t *testing.T) {
	q := NewBoundedMPSC[int](2, AdmitReject)
	defer q.Close()

	for i := 0; i < 2; i++ {
		v := i
		if err := q.Push(&v); err != nil {
			t.Fatalf("Push %d within capacity failed: %v", i, err)
		}
	}

	v := 2
	if err := q.Push(&v); err != ErrQueueSaturated {
		t.Fatalf("Expected ErrQueueSaturated, got %v", err)
	}

	// Consume one item and release its slot - push must succeed again
	<-q.Recv()
	q.Release()

	if err := q.Push(&v); err != nil {
		t.Fatalf("Push after Release failed: %v", err)
	}
}

// TestBlockPolicy verifies that a push on a full queue blocks until Release
func TestBlockPolicy(t *testing.T) {
	q := NewBoundedMPSC[int](1, AdmitBlock)
	defer q.Close()

	v := 0
	if err := q.Push(&v); err != nil {
		t.Fatalf("First push failed: %v", err)
	}

	var pushed atomic.Bool
	done := make(chan error, 1)
	go func() {
		w := 1
		err := q.Push(&w)
		pushed.Store(true)
		done <- err
	}()

	// The second push must still be blocked
	time.Sleep(50 * time.Millisecond)
	if pushed.Load() {
		t.Fatalf("Push succeeded although the queue was full")
	}

	// Consume the first item and free its slot
	<-q.Recv()
	q.Release()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Blocked push failed after Release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Push did not unblock after Release")
	}
}

// TestCloseUnblocksProducers verifies that blocked producers fail with
// ErrQueueClosed when the queue is closed under them
func TestCloseUnblocksProducers(t *testing.T) {
	q := NewBoundedMPSC[int](1, AdmitBlock)

	v := 0
	if err := q.Push(&v); err != nil {
		t.Fatalf("First push failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		w := 1
		done <- q.Push(&w)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-done:
		if err != ErrQueueClosed {
			t.Fatalf("Expected ErrQueueClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Blocked producer was not woken by Close")
	}

	// Items accepted before Close are still delivered
	select {
	case val := <-q.Recv():
		if *val != 0 {
			t.Errorf("Expected 0, got %d", *val)
		}
	case <-time.After(time.Second):
		t.Fatalf("Pending item was not delivered after Close")
	}
}

// TestPushUncounted verifies that control entries bypass the capacity bound
func TestPushUncounted(t *testing.T) {
	q := NewBoundedMPSC[int](1, AdmitReject)
	defer q.Close()

	v := 0
	if err := q.Push(&v); err != nil {
		t.Fatalf("First push failed: %v", err)
	}

	// A counted push must be rejected, an uncounted one must pass
	w := 1
	if err := q.Push(&w); err != ErrQueueSaturated {
		t.Fatalf("Expected ErrQueueSaturated, got %v", err)
	}
	if err := q.PushUncounted(&w); err != nil {
		t.Fatalf("Uncounted push failed: %v", err)
	}

	// FIFO order is preserved across counted and uncounted entries
	if got := <-q.Recv(); *got != 0 {
		t.Errorf("Expected 0, got %d", *got)
	}
	if got := <-q.Recv(); *got != 1 {
		t.Errorf("Expected 1, got %d", *got)
	}
}
