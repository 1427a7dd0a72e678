package codec

// IRecordCodec is the interface for all record serializers.
type IRecordCodec interface {
	// Encode serializes one record (the ordered field values) into a byte array.
	// It returns the serialized byte array and an error if any.
	Encode(fields []any) ([]byte, error)
	// Decode deserializes a byte array into a record.
	// It takes a byte array and a pointer to a field slice as parameters.
	// It returns an error if any.
	Decode(b []byte, fields *[]any) error
}
