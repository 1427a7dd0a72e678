package result

// RecordBuffer is an append-only, indexable sequence of record snapshots.
// It is built lazily once during materialization and replayed any number of
// times to satisfy partial demand.
//
// Append is the only place record resources are released during buffered
// delivery; Get is idempotent and side-effect-free.
//
// Thread-safety: a RecordBuffer belongs to a single session and is not safe
// for concurrent use.
type RecordBuffer struct {
	rows [][]any
}

// NewRecordBuffer creates an empty RecordBuffer.
func NewRecordBuffer() *RecordBuffer {
	return &RecordBuffer{}
}

// Append copies the field values of rec into the buffer and immediately
// releases the record's scoped resources.
func (b *RecordBuffer) Append(rec Record) {
	fields := rec.Fields()
	row := make([]any, len(fields))
	copy(row, fields)
	b.rows = append(b.rows, row)
	rec.Release()
}

// Get returns the stored snapshot at the given position.
func (b *RecordBuffer) Get(index int) []any {
	return b.rows[index]
}

// Size returns the number of buffered records.
func (b *RecordBuffer) Size() int {
	return len(b.rows)
}

// Release drops all buffered rows.
func (b *RecordBuffer) Release() {
	b.rows = nil
}
