package result

import "errors"

// --------------------------------------------------------------------------
// Static Producer
// --------------------------------------------------------------------------

// staticRecord is the Record implementation used by the static producer.
type staticRecord struct {
	fields   []any
	released bool
}

func (r *staticRecord) Fields() []any {
	return r.fields
}

func (r *staticRecord) Release() {
	r.released = true
	r.fields = nil
}

// staticProducerImpl yields a fixed set of rows. It honors the
// non-restartable contract: a second drive fails.
type staticProducerImpl struct {
	fieldNames []string
	rows       [][]any
	failWith   error
	driven     bool
}

// NewStaticProducer creates a Producer over in-memory rows. Useful for
// embedders that already hold their full result, for benchmarks and for
// tests.
func NewStaticProducer(fieldNames []string, rows [][]any) Producer {
	return &staticProducerImpl{fieldNames: fieldNames, rows: rows}
}

// NewFailingProducer creates a Producer that yields all given rows and then
// raises failWith, simulating a producer failure after valid partial output.
func NewFailingProducer(fieldNames []string, rows [][]any, failWith error) Producer {
	return &staticProducerImpl{fieldNames: fieldNames, rows: rows, failWith: failWith}
}

func (p *staticProducerImpl) FieldNames() []string {
	return p.fieldNames
}

func (p *staticProducerImpl) Accept(visit func(rec Record) error) error {
	if p.driven {
		return errors.New("producer was already driven")
	}
	p.driven = true

	for _, row := range p.rows {
		if err := visit(&staticRecord{fields: row}); err != nil {
			return err
		}
	}
	return p.failWith
}
