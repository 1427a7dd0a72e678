package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// NewBinaryCodec creates a new codec using a custom binary format
// optimized for speed and efficiency
func NewBinaryCodec() IRecordCodec {
	return &binaryCodecImpl{}
}

// binaryCodecImpl implements IRecordCodec using a custom binary format
type binaryCodecImpl struct {
}

// Type tags identifying the encoded field types
const (
	tagNil byte = iota
	tagBool
	tagInt64
	tagFloat64
	tagString
	tagBytes
)

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IRecordCodec)
// --------------------------------------------------------------------------

func (c binaryCodecImpl) Encode(fields []any) ([]byte, error) {
	// Calculate total size needed
	totalSize, err := c.sizeBytes(fields)
	if err != nil {
		return nil, err
	}
	result := make([]byte, totalSize)

	// Write field count
	binary.BigEndian.PutUint16(result[0:2], uint16(len(fields)))
	pos := 2

	for _, f := range fields {
		switch v := f.(type) {
		case nil:
			result[pos] = tagNil
			pos++
		case bool:
			result[pos] = tagBool
			pos++
			if v {
				result[pos] = 1
			}
			pos++
		case int64:
			result[pos] = tagInt64
			pos++
			binary.BigEndian.PutUint64(result[pos:pos+8], uint64(v))
			pos += 8
		case float64:
			result[pos] = tagFloat64
			pos++
			binary.BigEndian.PutUint64(result[pos:pos+8], math.Float64bits(v))
			pos += 8
		case string:
			result[pos] = tagString
			pos++
			binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(v)))
			pos += 4
			copy(result[pos:pos+len(v)], v)
			pos += len(v)
		case []byte:
			result[pos] = tagBytes
			pos++
			binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(v)))
			pos += 4
			copy(result[pos:pos+len(v)], v)
			pos += len(v)
		}
	}

	return result, nil
}

func (c binaryCodecImpl) Decode(b []byte, fields *[]any) error {
	if len(b) < 2 {
		return fmt.Errorf("record too short: %d bytes", len(b))
	}

	count := int(binary.BigEndian.Uint16(b[0:2]))
	pos := 2

	decoded := make([]any, 0, count)

	for i := 0; i < count; i++ {
		if pos >= len(b) {
			return fmt.Errorf("truncated record: field %d of %d missing", i, count)
		}
		tag := b[pos]
		pos++

		switch tag {
		case tagNil:
			decoded = append(decoded, nil)
		case tagBool:
			if pos+1 > len(b) {
				return fmt.Errorf("truncated bool field %d", i)
			}
			decoded = append(decoded, b[pos] == 1)
			pos++
		case tagInt64:
			if pos+8 > len(b) {
				return fmt.Errorf("truncated int64 field %d", i)
			}
			decoded = append(decoded, int64(binary.BigEndian.Uint64(b[pos:pos+8])))
			pos += 8
		case tagFloat64:
			if pos+8 > len(b) {
				return fmt.Errorf("truncated float64 field %d", i)
			}
			decoded = append(decoded, math.Float64frombits(binary.BigEndian.Uint64(b[pos:pos+8])))
			pos += 8
		case tagString:
			length, err := c.readLength(b, pos, i)
			if err != nil {
				return err
			}
			pos += 4
			decoded = append(decoded, string(b[pos:pos+length]))
			pos += length
		case tagBytes:
			length, err := c.readLength(b, pos, i)
			if err != nil {
				return err
			}
			pos += 4
			value := make([]byte, length)
			copy(value, b[pos:pos+length])
			decoded = append(decoded, value)
			pos += length
		default:
			return fmt.Errorf("unknown type tag %d in field %d", tag, i)
		}
	}

	*fields = decoded
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// readLength reads and bounds-checks a uint32 length prefix at pos
func (c binaryCodecImpl) readLength(b []byte, pos, field int) (int, error) {
	if pos+4 > len(b) {
		return 0, fmt.Errorf("truncated length prefix in field %d", field)
	}
	length := int(binary.BigEndian.Uint32(b[pos : pos+4]))
	if pos+4+length > len(b) {
		return 0, fmt.Errorf("field %d length %d exceeds record", field, length)
	}
	return length, nil
}

// sizeBytes calculates the exact encoded size and validates the field types
func (c binaryCodecImpl) sizeBytes(fields []any) (int, error) {
	size := 2 // field count

	for i, f := range fields {
		switch v := f.(type) {
		case nil:
			size += 1
		case bool:
			size += 2
		case int64, float64:
			size += 9
		case string:
			size += 5 + len(v)
		case []byte:
			size += 5 + len(v)
		default:
			return 0, fmt.Errorf("unsupported field type %T at index %d", f, i)
		}
	}

	return size, nil
}
