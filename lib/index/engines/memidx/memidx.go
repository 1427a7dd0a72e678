package memidx

import (
	"sort"
	"sync/atomic"

	"github.com/ValentinKolb/dStream/lib/index"
	"github.com/puzpuzpuz/xsync/v3"
)

// supported features of this engine
const features = index.FeatureInsert | index.FeatureDelete | index.FeatureQuery

// --------------------------------------------------------------------------
// Core Engine Structure
// --------------------------------------------------------------------------

// memIdxImpl implements a concurrent in-memory inverted index
type memIdxImpl struct {
	postings  *xsync.MapOf[string, *xsync.MapOf[string, struct{}]] // term -> set of doc IDs
	docs      *xsync.MapOf[string, []string]                       // doc ID -> indexed terms
	sizeBytes atomic.Int64                                         // rough payload size estimate
}

// NewMemIndex creates a new empty in-memory index engine.
//
// Thread-safety: the returned engine is safe for concurrent use.
func NewMemIndex() index.IIndex {
	return &memIdxImpl{
		postings: xsync.NewMapOf[string, *xsync.MapOf[string, struct{}]](),
		docs:     xsync.NewMapOf[string, []string](),
	}
}

// --------------------------------------------------------------------------
// Core IIndex Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Insert indexes the document under the given terms. A previous version of
// the document is replaced.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memIdxImpl) Insert(docID string, terms []string) error {
	// Replace semantics: drop the previous version first
	if err := m.Delete(docID); err != nil {
		return err
	}

	// Copy the terms to decouple the engine from the caller's slice
	termsCopy := make([]string, len(terms))
	copy(termsCopy, terms)

	m.docs.Store(docID, termsCopy)
	for _, term := range termsCopy {
		set, _ := m.postings.LoadOrCompute(term, func() *xsync.MapOf[string, struct{}] {
			return xsync.NewMapOf[string, struct{}]()
		})
		set.Store(docID, struct{}{})
		m.sizeBytes.Add(int64(len(term) + len(docID)))
	}

	return nil
}

// Delete removes the document from the index. Unknown documents are ignored.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memIdxImpl) Delete(docID string) error {
	terms, loaded := m.docs.LoadAndDelete(docID)
	if !loaded {
		return nil
	}

	for _, term := range terms {
		if set, ok := m.postings.Load(term); ok {
			set.Delete(docID)
			m.sizeBytes.Add(-int64(len(term) + len(docID)))
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Core IIndex Interface Methods - Query Operations
// --------------------------------------------------------------------------

// Query returns all document IDs indexed under the term, sorted for
// deterministic results.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memIdxImpl) Query(term string) ([]string, error) {
	set, ok := m.postings.Load(term)
	if !ok {
		return nil, nil
	}

	var docIDs []string
	set.Range(func(docID string, _ struct{}) bool {
		docIDs = append(docIDs, docID)
		return true
	})

	sort.Strings(docIDs)
	return docIDs, nil
}

// --------------------------------------------------------------------------
// Feature Support
// --------------------------------------------------------------------------

func (m *memIdxImpl) SupportsFeature(feature index.Feature) bool {
	return features&feature == feature
}

func (m *memIdxImpl) GetInfo() index.IndexInfo {
	return index.IndexInfo{
		SizeBytes: int(m.sizeBytes.Load()),
		Documents: m.docs.Size(),
		IndexType: index.ImplMemory,
		SupportedFeatures: []index.Feature{
			index.FeatureInsert, index.FeatureDelete, index.FeatureQuery,
		},
	}
}

func (m *memIdxImpl) Close() error {
	return nil
}
