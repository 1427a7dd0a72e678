package codec

import (
	"encoding/binary"
	"io"

	"github.com/ValentinKolb/dStream/lib/result"
)

// IWriterSubscriber is a result.Subscriber that encodes every delivered
// record and writes it as a length-prefixed frame onto an io.Writer.
type IWriterSubscriber interface {
	result.Subscriber

	// Err returns the deferred error surfaced by the session (if any).
	Err() error

	// Records returns the number of records written so far.
	Records() int
}

// writerSubscriberImpl implements IWriterSubscriber
type writerSubscriberImpl struct {
	w     io.Writer
	codec IRecordCodec

	row     []any
	written int
	err     error
}

// NewWriterSubscriber creates a subscriber that streams records onto w using
// the given codec. Frame format: uint32 big-endian length, then the encoded
// record.
func NewWriterSubscriber(w io.Writer, codec IRecordCodec) IWriterSubscriber {
	return &writerSubscriberImpl{w: w, codec: codec}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see result.Subscriber)
// --------------------------------------------------------------------------

func (s *writerSubscriberImpl) OnResult(fieldCount int) error {
	s.row = make([]any, fieldCount)
	return nil
}

func (s *writerSubscriberImpl) OnRecord() error {
	return nil
}

func (s *writerSubscriberImpl) OnField(index int, value any) error {
	s.row[index] = value
	return nil
}

func (s *writerSubscriberImpl) OnRecordCompleted() error {
	encoded, err := s.codec.Encode(s.row)
	if err != nil {
		return err
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(encoded)))

	if _, err := s.w.Write(prefix[:]); err != nil {
		return err
	}
	if _, err := s.w.Write(encoded); err != nil {
		return err
	}

	s.written++
	return nil
}

func (s *writerSubscriberImpl) OnError(err error) {
	s.err = err
}

func (s *writerSubscriberImpl) OnResultCompleted() {
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

func (s *writerSubscriberImpl) Err() error {
	return s.err
}

func (s *writerSubscriberImpl) Records() int {
	return s.written
}
