package index_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/ValentinKolb/dStream/lib/index"
	"github.com/ValentinKolb/dStream/lib/index/engines/memidx"
	"github.com/ValentinKolb/dStream/lib/sched"
	"github.com/ValentinKolb/dStream/lib/sink"
	"github.com/ValentinKolb/dStream/lib/util"
)

func newProviderForTest(t *testing.T) index.IProvider {
	t.Helper()
	scheduler := sched.NewPoolScheduler(2)
	provider := index.NewProvider(scheduler, index.Config{
		Sink: sink.Config{MaxQueueLength: 100, Policy: util.AdmitBlock},
	})
	t.Cleanup(func() {
		provider.Shutdown()
		scheduler.Shutdown()
	})
	return provider
}

// TestBatchApplyOrder verifies batches replay their mutations in order
func TestBatchApplyOrder(t *testing.T) {
	idx := memidx.NewMemIndex()
	defer idx.Close()

	batch := index.NewBatch(idx).
		Insert("doc1", "a").
		Insert("doc2", "a").
		Delete("doc1")

	if batch.Len() != 3 {
		t.Fatalf("Expected 3 recorded mutations, got %d", batch.Len())
	}
	if err := batch.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	docs, _ := idx.Query("a")
	if !reflect.DeepEqual(docs, []string{"doc2"}) {
		t.Errorf("Expected [doc2], got %v", docs)
	}
}

// TestEventuallyConsistentRoute verifies the sink route: enqueue, refresh
// barrier, then visible
func TestEventuallyConsistentRoute(t *testing.T) {
	provider := newProviderForTest(t)

	idx := memidx.NewMemIndex()
	if err := provider.Register("fulltext", idx, true); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		batch := index.NewBatch(idx).Insert("doc"+string(rune('1'+i)), "term")
		if err := provider.EnqueueUpdates("fulltext", batch); err != nil {
			t.Fatalf("EnqueueUpdates failed: %v", err)
		}
	}

	// The barrier covers everything accepted above
	if err := provider.RefreshAndAwait("fulltext", 2*time.Second); err != nil {
		t.Fatalf("RefreshAndAwait failed: %v", err)
	}

	docs, _ := idx.Query("term")
	if !reflect.DeepEqual(docs, []string{"doc1", "doc2", "doc3"}) {
		t.Errorf("Expected all three documents, got %v", docs)
	}
}

// TestInlineRoute verifies immediately consistent indexes apply on the caller
func TestInlineRoute(t *testing.T) {
	provider := newProviderForTest(t)

	idx := memidx.NewMemIndex()
	if err := provider.Register("exact", idx, false); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	batch := index.NewBatch(idx).Insert("doc1", "term")
	if err := provider.EnqueueUpdates("exact", batch); err != nil {
		t.Fatalf("EnqueueUpdates failed: %v", err)
	}

	// No barrier needed, the write is already visible
	docs, _ := idx.Query("term")
	if !reflect.DeepEqual(docs, []string{"doc1"}) {
		t.Errorf("Expected [doc1] without a barrier, got %v", docs)
	}

	if err := provider.RefreshAndAwait("exact", time.Second); err != nil {
		t.Errorf("RefreshAndAwait on an inline index failed: %v", err)
	}
}

// TestRegisterTwice verifies duplicate names are rejected
func TestRegisterTwice(t *testing.T) {
	provider := newProviderForTest(t)

	if err := provider.Register("idx", memidx.NewMemIndex(), false); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := provider.Register("idx", memidx.NewMemIndex(), true); err == nil {
		t.Errorf("Expected an error for a duplicate registration")
	}
}

// TestRegisterBeyondWorkerCapacity verifies a sink is never created without
// a free scheduler worker to run it
func TestRegisterBeyondWorkerCapacity(t *testing.T) {
	scheduler := sched.NewPoolScheduler(2)
	provider := index.NewProvider(scheduler, index.Config{
		Sink: sink.Config{MaxQueueLength: 100, Policy: util.AdmitBlock},
	})
	t.Cleanup(func() {
		provider.Shutdown()
		scheduler.Shutdown()
	})

	if err := provider.Register("a", memidx.NewMemIndex(), true); err != nil {
		t.Fatalf("Register within capacity failed: %v", err)
	}
	if err := provider.Register("b", memidx.NewMemIndex(), true); err != nil {
		t.Fatalf("Register within capacity failed: %v", err)
	}

	// The pool has 2 workers and both are taken by the sinks above
	if err := provider.Register("c", memidx.NewMemIndex(), true); err == nil {
		t.Errorf("Expected an error for a sink beyond the worker pool")
	}

	// Immediately consistent indexes apply inline and take no worker
	if err := provider.Register("d", memidx.NewMemIndex(), false); err != nil {
		t.Errorf("Register of an inline index failed: %v", err)
	}
}

// TestUnknownIndex verifies lookups of unregistered names fail
func TestUnknownIndex(t *testing.T) {
	provider := newProviderForTest(t)

	if _, err := provider.Index("nope"); err == nil {
		t.Errorf("Expected an error for an unknown index")
	}
	if err := provider.EnqueueUpdates("nope", nil); err == nil {
		t.Errorf("Expected an error for an unknown index")
	}
	if err := provider.RefreshAndAwait("nope", time.Second); err == nil {
		t.Errorf("Expected an error for an unknown index")
	}
}
