package codec

import "encoding/json"

// NewJSONCodec creates a new codec using the standard library JSON encoding.
// All numeric values decode as float64, which is the usual JSON trade-off.
func NewJSONCodec() IRecordCodec {
	return &jsonCodecImpl{}
}

// jsonCodecImpl implements IRecordCodec using encoding/json
type jsonCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IRecordCodec)
// --------------------------------------------------------------------------

func (c jsonCodecImpl) Encode(fields []any) ([]byte, error) {
	return json.Marshal(fields)
}

func (c jsonCodecImpl) Decode(b []byte, fields *[]any) error {
	return json.Unmarshal(b, fields)
}
