package util

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Admission Policy
// --------------------------------------------------------------------------

// AdmissionPolicy determines what happens when a bounded queue is at
// capacity and another producer tries to push.
type AdmissionPolicy int

const (
	// AdmitBlock blocks the producer until a slot frees up (or the queue is closed).
	AdmitBlock AdmissionPolicy = iota
	// AdmitReject fails the push immediately with ErrQueueSaturated.
	AdmitReject
)

func (p AdmissionPolicy) String() string {
	switch p {
	case AdmitBlock:
		return "Block"
	case AdmitReject:
		return "Reject"
	default:
		return "Unknown"
	}
}

// Errors returned by Push. Callers that need richer error types wrap these.
var (
	ErrQueueClosed    = errors.New("queue is closed")
	ErrQueueSaturated = errors.New("queue is at capacity")
)

// --------------------------------------------------------------------------
// Queue Types
// --------------------------------------------------------------------------

// node represents a single element in the queue
type node[T any] struct {
	value *T
	next  atomic.Pointer[node[T]]
}

// BoundedMPSC is a multi-producer single-consumer queue with an optional
// capacity bound. Producers append lock-free via atomic operations; a
// consumer goroutine delivers items through the Recv() channel.
//
// With capacity > 0 each accepted item occupies a slot until the consumer
// calls Release(). This gives semaphore semantics: admission control is
// tied to the completion of the work behind an item, not to the moment the
// item is handed to the consumer. With capacity 0 the queue is unbounded
// and Release must not be called.
type BoundedMPSC[T any] struct {
	head     atomic.Pointer[node[T]]
	tail     atomic.Pointer[node[T]]
	out      chan *T
	consumer sync.WaitGroup
	closed   atomic.Bool

	capacity int
	policy   AdmissionPolicy
	slots    atomic.Int64 // occupied slots (only maintained for capacity > 0)

	// Condition variables for efficient waiting
	mu    sync.Mutex
	cond  *sync.Cond // wakes the consumer
	space *sync.Cond // wakes producers blocked on a full queue
}

// NewBoundedMPSC creates a new queue. capacity == 0 means unbounded (the
// policy is ignored in that case).
func NewBoundedMPSC[T any](capacity int, policy AdmissionPolicy) *BoundedMPSC[T] {
	// Create a sentinel node (dummy node at the beginning)
	sentinel := &node[T]{}

	q := &BoundedMPSC[T]{
		out:      make(chan *T),
		capacity: capacity,
		policy:   policy,
	}

	q.cond = sync.NewCond(&q.mu)
	q.space = sync.NewCond(&q.mu)

	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// --------------------------------------------------------------------------
// Producer Side
// --------------------------------------------------------------------------

// Push adds an item to the queue, honoring the capacity bound and the
// configured admission policy. Returns ErrQueueSaturated (reject policy) or
// ErrQueueClosed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *BoundedMPSC[T]) Push(value *T) error {
	if value == nil {
		return errors.New("cannot push nil value")
	}

	if q.closed.Load() {
		return ErrQueueClosed
	}

	if err := q.acquireSlot(); err != nil {
		return err
	}

	// A concurrent Close may have won between the checks above and here.
	// The slot is given back so blocked producers are not stranded.
	if q.closed.Load() {
		q.releaseSlot()
		return ErrQueueClosed
	}

	q.append(value)
	return nil
}

// PushUncounted adds an item without consuming a capacity slot. It is
// intended for control entries (e.g. barrier latches) that must travel
// through the FIFO order but are not units of queued work.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *BoundedMPSC[T]) PushUncounted(value *T) error {
	if value == nil {
		return errors.New("cannot push nil value")
	}
	if q.closed.Load() {
		return ErrQueueClosed
	}
	q.append(value)
	return nil
}

// acquireSlot claims one capacity slot, blocking or rejecting per policy.
func (q *BoundedMPSC[T]) acquireSlot() error {
	if q.capacity <= 0 {
		return nil
	}

	for {
		n := q.slots.Load()
		if n < int64(q.capacity) {
			if q.slots.CompareAndSwap(n, n+1) {
				return nil
			}
			continue // lost the race, retry
		}

		if q.policy == AdmitReject {
			return ErrQueueSaturated
		}

		// Block until Release frees a slot
		q.mu.Lock()
		if q.closed.Load() {
			q.mu.Unlock()
			return ErrQueueClosed
		}
		if q.slots.Load() >= int64(q.capacity) {
			q.space.Wait()
		}
		q.mu.Unlock()
	}
}

func (q *BoundedMPSC[T]) releaseSlot() {
	if q.capacity <= 0 {
		return
	}
	q.mu.Lock()
	q.slots.Add(-1)
	q.space.Signal()
	q.mu.Unlock()
}

// Release frees one capacity slot. The consumer must call it exactly once
// per counted item after the work behind the item has been processed.
//
// Thread-safety: This method is thread-safe.
func (q *BoundedMPSC[T]) Release() {
	q.releaseSlot()
}

// append performs the actual lock-free insertion into the linked list.
func (q *BoundedMPSC[T]) append(value *T) {
	newNode := &node[T]{value: value}

	var tailNode *node[T]
	var backoff uint8 = 0

	for {
		tailNode = q.tail.Load()

		// try to atomically append our node to the current tail
		next := tailNode.next.Load()
		if next == nil {
			// the tail has no next node yet, try to append our node
			if tailNode.next.CompareAndSwap(nil, newNode) {
				/*
				 Successfully appended, now try to update tail
				 Note: CAS may fail if another producer helps update tail,
				 but that's okay - tail will still be updated eventually
				*/
				q.tail.CompareAndSwap(tailNode, newNode)

				// Signal the consumer that new data is available
				q.cond.Signal()

				return
			}
		} else {
			// help update the tail pointer if another producer has already appended a node but hasn't updated the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		/*
		 Exponential backoff strategy to handle contention:
		  - At low contention (<10 retries): CPU spinning to avoid thread scheduling overhead
		  - At higher contention: yield the processor so other goroutines make progress
		  - Backoff increases exponentially with each retry, reducing the "thundering herd"
		    problem where all goroutines retry simultaneously after failure
		*/

		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// --------------------------------------------------------------------------
// Consumer Side
// --------------------------------------------------------------------------

// consume continuously sends items from the linked list to the output channel and frees memory
func (q *BoundedMPSC[T]) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	for {
		// Process all available items in the queue
		hasItems := false

		// Try to process items
		for {
			head := q.head.Load()
			next := head.next.Load()

			if next == nil {
				break // No more items available
			}

			hasItems = true

			// Capture value before updating pointers
			value := next.value

			// move head pointer (free up memory)
			q.head.Store(next)

			// Send the value to the consumer
			q.out <- value

			// help go gc - safe to clear after sending
			next.value = nil
		}

		// Exit if closed and no more items
		if !hasItems && q.closed.Load() {
			return
		}

		// If no items were processed, wait for signal
		if !hasItems {
			q.mu.Lock()
			// Double-check condition after acquiring lock
			head := q.head.Load()
			if head.next.Load() == nil && !q.closed.Load() {
				// Wait for signal (releases lock while waiting)
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// Recv returns a receive-only channel for consuming from the queue.
// This allows the queue to be used with the '<-' operator in select statements.
// The channel is closed after Close() once all pending items were delivered.
func (q *BoundedMPSC[T]) Recv() <-chan *T {
	return q.out
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Close closes the queue, preventing further writes. Any items already in
// the queue will still be delivered to the consumer. Producers blocked on a
// full queue are woken and fail with ErrQueueClosed.
func (q *BoundedMPSC[T]) Close() {
	q.closed.Store(true)

	// Wake up the consumer and any blocked producers
	q.mu.Lock()
	q.cond.Signal()
	q.space.Broadcast()
	q.mu.Unlock()
}

// IsClosed returns true if the queue is closed.
func (q *BoundedMPSC[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns the number of occupied capacity slots for bounded queues. For
// unbounded queues it walks the list and is O(n) - debugging only.
func (q *BoundedMPSC[T]) Len() int {
	if q.capacity > 0 {
		return int(q.slots.Load())
	}

	count := 0
	current := q.head.Load()

	for {
		next := current.next.Load()
		if next == nil {
			break
		}
		count++
		current = next
	}

	return count
}
