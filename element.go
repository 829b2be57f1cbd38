package bspc

import (
	"encoding/binary"
	"math"

	"github.com/drbh/bspc/format"
)

// Element is the set of value types a BSPC file can store.
type Element interface {
	float32 | float64 | int32 | int64 | uint32 | uint64
}

// Triple is one non-zero entry of a sparse matrix in coordinate form.
type Triple[T Element] struct {
	Row   uint32
	Col   uint32
	Value T
}

// dataTypeOf maps the element type parameter to its header tag.
func dataTypeOf[T Element]() format.DataType {
	var zero T

	switch any(zero).(type) {
	case float32:
		return format.F32
	case float64:
		return format.F64
	case int32:
		return format.I32
	case int64:
		return format.I64
	case uint32:
		return format.U32
	default:
		return format.U64
	}
}

// elementSize returns the byte size (and natural alignment) of T.
func elementSize[T Element]() uint64 {
	return dataTypeOf[T]().Size()
}

// appendElement serializes v in little-endian byte order.
func appendElement[T Element](buf []byte, v T) []byte {
	switch v := any(v).(type) {
	case float32:
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	case float64:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	case int32:
		return binary.LittleEndian.AppendUint32(buf, uint32(v))
	case int64:
		return binary.LittleEndian.AppendUint64(buf, uint64(v))
	case uint32:
		return binary.LittleEndian.AppendUint32(buf, v)
	default:
		return binary.LittleEndian.AppendUint64(buf, v.(uint64))
	}
}
