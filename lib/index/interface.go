package index

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMemory Implementation = "memidx"
	ImplPebble Implementation = "pebbleidx"
)

// Feature represents index engine features as bit flags
type Feature uint64

const (
	FeatureInsert  Feature = 1 << iota // Support for Insert operations
	FeatureDelete                      // Support for Delete operations
	FeatureQuery                       // Support for Query operations
	FeaturePersist                     // Support for durable storage
)

func (f Feature) String() string {
	switch f {
	case FeatureInsert:
		return "Insert"
	case FeatureDelete:
		return "Delete"
	case FeatureQuery:
		return "Query"
	case FeaturePersist:
		return "Persist"
	default:
		return "Unknown"
	}
}

type IndexInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	Documents         int            `json:"documents"`
	IndexType         Implementation `json:"index_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
}

// --------------------------------------------------------------------------
// Index Interface
// --------------------------------------------------------------------------

// IIndex defines an interface for inverted index implementations: documents
// identified by an ID are indexed under a set of terms, and Query returns
// the IDs of all documents indexed under a term.
//
// Implementations can vary in their feature support, which can be queried
// with SupportsFeature.
type IIndex interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Insert indexes the document with the given ID under the given terms.
	// If the document already exists, its previous terms are replaced.
	Insert(docID string, terms []string) error

	// Delete removes the document with the given ID from the index.
	// Deleting an unknown document is not an error.
	Delete(docID string) error

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Query returns the IDs of all documents indexed under the given term,
	// in lexicographic order. An unknown term yields an empty result.
	Query(term string) (docIDs []string, err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the engine supports the specified feature.
	// Multiple features can be checked at once using the bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the index.
	GetInfo() (info IndexInfo)

	// Close closes the index.
	Close() error
}
