package pebbleidx

import (
	"bytes"
	"fmt"

	"github.com/ValentinKolb/dStream/lib/index"
	"github.com/cockroachdb/pebble"
)

// supported features of this engine
const features = index.FeatureInsert | index.FeatureDelete | index.FeatureQuery | index.FeaturePersist

// key space prefixes and the segment separator
const (
	prefixTerm = 't'
	prefixDoc  = 'd'
	sep        = 0x00
)

// --------------------------------------------------------------------------
// Core Engine Structure
// --------------------------------------------------------------------------

// pebbleIdxImpl implements a persistent inverted index backed by pebble
type pebbleIdxImpl struct {
	db *pebble.DB
}

// Options configures the pebbleIdxImpl behavior during initialization
type Options struct {
	Path string // Directory holding the pebble store
}

// NewPebbleIndex opens (or creates) a persistent index at opts.Path.
//
// Thread-safety: the returned engine is safe for concurrent use; pebble
// provides the necessary synchronization internally.
func NewPebbleIndex(opts Options) (index.IIndex, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("pebbleidx: path must not be empty")
	}

	db, err := pebble.Open(opts.Path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebbleidx: open failed: %w", err)
	}

	return &pebbleIdxImpl{db: db}, nil
}

// --------------------------------------------------------------------------
// Key Encoding
// --------------------------------------------------------------------------

// termKey builds `t <term> <doc>`
func termKey(term, docID string) []byte {
	key := make([]byte, 0, 2+len(term)+1+len(docID))
	key = append(key, prefixTerm, sep)
	key = append(key, term...)
	key = append(key, sep)
	key = append(key, docID...)
	return key
}

// docKey builds `d <doc> <term>`
func docKey(docID, term string) []byte {
	key := make([]byte, 0, 2+len(docID)+1+len(term))
	key = append(key, prefixDoc, sep)
	key = append(key, docID...)
	key = append(key, sep)
	key = append(key, term...)
	return key
}

// keyPrefix builds the iteration prefix `<kind> <segment> <sep>`
func keyPrefix(kind byte, segment string) []byte {
	prefix := make([]byte, 0, 2+len(segment)+1)
	prefix = append(prefix, kind, sep)
	prefix = append(prefix, segment...)
	prefix = append(prefix, sep)
	return prefix
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}
	return nil // prefix was all 0xff, no upper bound
}

// validateSegment rejects segments containing the separator byte
func validateSegment(name, segment string) error {
	if bytes.IndexByte([]byte(segment), sep) >= 0 {
		return fmt.Errorf("pebbleidx: %s must not contain NUL: %q", name, segment)
	}
	return nil
}

// --------------------------------------------------------------------------
// Core IIndex Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Insert indexes the document under the given terms. A previous version of
// the document is replaced. All keys are written in one synced batch.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (p *pebbleIdxImpl) Insert(docID string, terms []string) error {
	if err := validateSegment("docID", docID); err != nil {
		return err
	}
	for _, term := range terms {
		if err := validateSegment("term", term); err != nil {
			return err
		}
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	// Replace semantics: drop the previous version within the same batch
	if err := p.deleteInto(batch, docID); err != nil {
		return err
	}

	for _, term := range terms {
		if err := batch.Set(termKey(term, docID), nil, nil); err != nil {
			return err
		}
		if err := batch.Set(docKey(docID, term), nil, nil); err != nil {
			return err
		}
	}

	return p.db.Apply(batch, pebble.Sync)
}

// Delete removes the document from the index. Unknown documents are ignored.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (p *pebbleIdxImpl) Delete(docID string) error {
	if err := validateSegment("docID", docID); err != nil {
		return err
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	if err := p.deleteInto(batch, docID); err != nil {
		return err
	}

	return p.db.Apply(batch, pebble.Sync)
}

// deleteInto records the deletion of all keys of docID into batch
func (p *pebbleIdxImpl) deleteInto(batch *pebble.Batch, docID string) error {
	prefix := keyPrefix(prefixDoc, docID)
	iter := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		term := string(iter.Key()[len(prefix):])

		if err := batch.Delete(termKey(term, docID), nil); err != nil {
			return err
		}
		if err := batch.Delete(docKey(docID, term), nil); err != nil {
			return err
		}
	}

	return iter.Error()
}

// --------------------------------------------------------------------------
// Core IIndex Interface Methods - Query Operations
// --------------------------------------------------------------------------

// Query returns all document IDs indexed under the term. Prefix iteration
// over the forward keys yields them in lexicographic order already.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (p *pebbleIdxImpl) Query(term string) ([]string, error) {
	if err := validateSegment("term", term); err != nil {
		return nil, err
	}

	prefix := keyPrefix(prefixTerm, term)
	iter := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	defer iter.Close()

	var docIDs []string
	for iter.First(); iter.Valid(); iter.Next() {
		docIDs = append(docIDs, string(iter.Key()[len(prefix):]))
	}

	return docIDs, iter.Error()
}

// --------------------------------------------------------------------------
// Feature Support
// --------------------------------------------------------------------------

func (p *pebbleIdxImpl) SupportsFeature(feature index.Feature) bool {
	return features&feature == feature
}

func (p *pebbleIdxImpl) GetInfo() index.IndexInfo {
	info := index.IndexInfo{
		IndexType: index.ImplPebble,
		SupportedFeatures: []index.Feature{
			index.FeatureInsert, index.FeatureDelete, index.FeatureQuery, index.FeaturePersist,
		},
	}

	// Disk usage is an estimate, precise accounting would require a scan
	if size, err := p.db.EstimateDiskUsage([]byte{0x00}, []byte{0xff}); err == nil {
		info.SizeBytes = int(size)
	}

	// Document count: one reverse-key prefix per document
	iter := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{prefixDoc, sep},
		UpperBound: []byte{prefixDoc, sep + 1},
	})
	defer iter.Close()

	lastDoc := ""
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()[2:]
		if i := bytes.IndexByte(key, sep); i >= 0 {
			if doc := string(key[:i]); doc != lastDoc {
				info.Documents++
				lastDoc = doc
			}
		}
	}

	return info
}

func (p *pebbleIdxImpl) Close() error {
	return p.db.Close()
}
