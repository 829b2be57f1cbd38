package format

import "fmt"

// MatrixFormat is the on-disk storage layout tag.
type MatrixFormat uint8

const (
	// Coo stores row ids, col ids, and values as three parallel streams.
	Coo MatrixFormat = 0
	// Csr is reserved; the pointers region exists but has no read path.
	Csr MatrixFormat = 1
	// Csc is reserved; the pointers region exists but has no read path.
	Csc MatrixFormat = 2
)

// MatrixFormatFromByte converts the header tag byte.
func MatrixFormatFromByte(b byte) (MatrixFormat, error) {
	switch MatrixFormat(b) {
	case Coo, Csr, Csc:
		return MatrixFormat(b), nil
	default:
		return 0, fmt.Errorf("format_type %d: %w", b, ErrUnsupportedFormat)
	}
}

func (f MatrixFormat) String() string {
	switch f {
	case Coo:
		return "COO"
	case Csr:
		return "CSR"
	case Csc:
		return "CSC"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// DataType is the element type tag of the values stream.
type DataType uint8

const (
	F32 DataType = 0
	F64 DataType = 1
	I32 DataType = 2
	I64 DataType = 3
	U32 DataType = 4
	U64 DataType = 5
)

// DataTypeFromByte converts the header tag byte.
func DataTypeFromByte(b byte) (DataType, error) {
	switch DataType(b) {
	case F32, F64, I32, I64, U32, U64:
		return DataType(b), nil
	default:
		return 0, fmt.Errorf("data_type %d: %w", b, ErrUnsupportedFormat)
	}
}

// Size returns the element size in bytes, which is also its natural
// alignment.
func (d DataType) Size() uint64 {
	switch d {
	case F32, I32, U32:
		return 4
	default:
		return 8
	}
}

func (d DataType) String() string {
	switch d {
	case F32:
		return "f32"
	case F64:
		return "f64"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U32:
		return "u32"
	case U64:
		return "u64"
	default:
		return fmt.Sprintf("datatype(%d)", uint8(d))
	}
}
