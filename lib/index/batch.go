package index

// --------------------------------------------------------------------------
// Batch Operations
// --------------------------------------------------------------------------

type opType int

const (
	opInsert opType = iota
	opDelete
)

// op is one recorded mutation
type op struct {
	typ   opType
	docID string
	terms []string
}

// --------------------------------------------------------------------------
// Batch Type
// --------------------------------------------------------------------------

// Batch is an ordered list of mutations against one index engine. It is the
// unit of work handed to the update sink: the sink treats it as opaque and
// calls Apply exactly once from a background worker.
//
// The recording methods return the batch for chaining:
//
//	b := index.NewBatch(idx).Insert("doc1", "a", "b").Delete("doc0")
//
// Thread-safety: a Batch is owned by a single writer while it is recorded;
// after it was enqueued the sink owns it and the writer must not touch it.
type Batch struct {
	idx IIndex
	ops []op
}

// NewBatch creates an empty mutation batch bound to the given engine.
func NewBatch(idx IIndex) *Batch {
	return &Batch{idx: idx}
}

// Insert records an insert of docID under the given terms.
func (b *Batch) Insert(docID string, terms ...string) *Batch {
	b.ops = append(b.ops, op{typ: opInsert, docID: docID, terms: terms})
	return b
}

// Delete records a delete of docID.
func (b *Batch) Delete(docID string) *Batch {
	b.ops = append(b.ops, op{typ: opDelete, docID: docID})
	return b
}

// Len returns the number of recorded mutations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Apply replays the recorded mutations in order. It satisfies
// sink.UpdateBatch. The first failing mutation aborts the batch.
func (b *Batch) Apply() error {
	for _, o := range b.ops {
		var err error
		switch o.typ {
		case opInsert:
			err = b.idx.Insert(o.docID, o.terms)
		case opDelete:
			err = b.idx.Delete(o.docID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
