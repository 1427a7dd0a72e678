package memidx

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/ValentinKolb/dStream/lib/index"
)

// TestInsertAndQuery tests basic indexing and term lookup
func TestInsertAndQuery(t *testing.T) {
	idx := NewMemIndex()
	defer idx.Close()

	if err := idx.Insert("doc1", []string{"go", "database"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := idx.Insert("doc2", []string{"go"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	docs, err := idx.Query("go")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !reflect.DeepEqual(docs, []string{"doc1", "doc2"}) {
		t.Errorf("Expected [doc1 doc2], got %v", docs)
	}

	docs, _ = idx.Query("database")
	if !reflect.DeepEqual(docs, []string{"doc1"}) {
		t.Errorf("Expected [doc1], got %v", docs)
	}

	// Unknown terms yield empty results
	if docs, _ := idx.Query("missing"); len(docs) != 0 {
		t.Errorf("Expected no results, got %v", docs)
	}
}

// TestReplaceSemantics verifies that re-inserting a document drops its old terms
func TestReplaceSemantics(t *testing.T) {
	idx := NewMemIndex()
	defer idx.Close()

	if err := idx.Insert("doc1", []string{"old"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := idx.Insert("doc1", []string{"new"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if docs, _ := idx.Query("old"); len(docs) != 0 {
		t.Errorf("Old term still indexed: %v", docs)
	}
	if docs, _ := idx.Query("new"); !reflect.DeepEqual(docs, []string{"doc1"}) {
		t.Errorf("Expected [doc1], got %v", docs)
	}
}

// TestDelete verifies document removal (including unknown documents)
func TestDelete(t *testing.T) {
	idx := NewMemIndex()
	defer idx.Close()

	if err := idx.Insert("doc1", []string{"a", "b"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := idx.Delete("doc1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := idx.Delete("unknown"); err != nil {
		t.Fatalf("Delete of unknown document failed: %v", err)
	}

	for _, term := range []string{"a", "b"} {
		if docs, _ := idx.Query(term); len(docs) != 0 {
			t.Errorf("Term %q still indexed after delete: %v", term, docs)
		}
	}
}

// TestConcurrentWrites verifies the engine under many concurrent writers
func TestConcurrentWrites(t *testing.T) {
	idx := NewMemIndex()
	defer idx.Close()

	const numWriters = 8
	const docsPerWriter = 200

	var wg sync.WaitGroup
	wg.Add(numWriters)

	for w := 0; w < numWriters; w++ {
		go func(writerID int) {
			defer wg.Done()
			for i := 0; i < docsPerWriter; i++ {
				docID := fmt.Sprintf("w%d-doc%d", writerID, i)
				if err := idx.Insert(docID, []string{"shared", fmt.Sprintf("w%d", writerID)}); err != nil {
					t.Errorf("Insert failed: %v", err)
				}
			}
		}(w)
	}

	wg.Wait()

	docs, err := idx.Query("shared")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(docs) != numWriters*docsPerWriter {
		t.Errorf("Expected %d documents, got %d", numWriters*docsPerWriter, len(docs))
	}
}

// TestFeaturesAndInfo verifies capability flags and metadata
func TestFeaturesAndInfo(t *testing.T) {
	idx := NewMemIndex()
	defer idx.Close()

	if !idx.SupportsFeature(index.FeatureInsert | index.FeatureDelete | index.FeatureQuery) {
		t.Errorf("Expected Insert|Delete|Query support")
	}
	if idx.SupportsFeature(index.FeaturePersist) {
		t.Errorf("A volatile engine must not advertise Persist")
	}

	idx.Insert("doc1", []string{"a"})
	idx.Insert("doc2", []string{"a"})

	info := idx.GetInfo()
	if info.Documents != 2 {
		t.Errorf("Expected 2 documents, got %d", info.Documents)
	}
	if info.IndexType != index.ImplMemory {
		t.Errorf("Unexpected index type %q", info.IndexType)
	}
}
