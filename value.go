package bspc

import (
	"fmt"
	"math"

	"github.com/drbh/bspc/format"
)

// Value is a matrix element whose type is only known at runtime. It is
// what [DynamicMatrix] queries yield: the element's [format.DataType]
// tag plus its bit pattern.
type Value struct {
	kind format.DataType
	bits uint64
}

// valueOf boxes a typed element.
func valueOf[T Element](v T) Value {
	switch v := any(v).(type) {
	case float32:
		return Value{kind: format.F32, bits: uint64(math.Float32bits(v))}
	case float64:
		return Value{kind: format.F64, bits: math.Float64bits(v)}
	case int32:
		return Value{kind: format.I32, bits: uint64(uint32(v))}
	case int64:
		return Value{kind: format.I64, bits: uint64(v)}
	case uint32:
		return Value{kind: format.U32, bits: uint64(v)}
	default:
		return Value{kind: format.U64, bits: v.(uint64)}
	}
}

// Kind returns the element type tag.
func (v Value) Kind() format.DataType { return v.kind }

// Float64 returns the value when it is f32 or f64.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case format.F32:
		return float64(math.Float32frombits(uint32(v.bits))), true
	case format.F64:
		return math.Float64frombits(v.bits), true
	default:
		return 0, false
	}
}

// Int64 returns the value when it is i32 or i64.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case format.I32:
		return int64(int32(uint32(v.bits))), true
	case format.I64:
		return int64(v.bits), true
	default:
		return 0, false
	}
}

// Uint64 returns the value when it is u32 or u64.
func (v Value) Uint64() (uint64, bool) {
	switch v.kind {
	case format.U32, format.U64:
		return v.bits, true
	default:
		return 0, false
	}
}

// AsFloat64 converts any kind to float64, losing precision for large
// 64-bit integers.
func (v Value) AsFloat64() float64 {
	if f, ok := v.Float64(); ok {
		return f
	}

	if i, ok := v.Int64(); ok {
		return float64(i)
	}

	return float64(v.bits)
}

func (v Value) String() string {
	switch v.kind {
	case format.F32, format.F64:
		f, _ := v.Float64()
		return fmt.Sprintf("%g", f)
	case format.I32, format.I64:
		i, _ := v.Int64()
		return fmt.Sprintf("%d", i)
	default:
		return fmt.Sprintf("%d", v.bits)
	}
}
