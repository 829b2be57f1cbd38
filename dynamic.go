package bspc

import (
	"fmt"

	"github.com/drbh/bspc/bloom"
	"github.com/drbh/bspc/format"
)

// DynamicMatrix wraps one of the six monomorphic readers, selected at
// open time from the header's data_type byte. Queries surface elements
// as [Value] so callers need not know the stored type.
type DynamicMatrix struct {
	impl dynamicReader
}

// dynamicReader is the forwarding surface each typed adapter implements.
type dynamicReader interface {
	dimensions() (uint64, uint64)
	nnz() uint64
	matrixFormat() format.MatrixFormat
	dataType() format.DataType
	structureFlags() uint8
	header() format.Header
	bloomIndex() *bloom.ChunkedFilter
	mayContainRow(row uint64) (bool, error)
	getElement(row, col uint64) (Value, bool, error)
	rowView(row uint64, fn func(col uint64, v Value) bool) error
	colView(col uint64, fn func(row uint64, v Value) bool) error
	rowRangeView(start, end uint64, fn func(row, col uint64, v Value) bool) error
	submatrix(rowStart, rowEnd, colStart, colEnd uint64) (map[Coordinate]Value, error)
	rowLabel(i uint64) ([]byte, error)
	colLabel(i uint64) ([]byte, error)
	close() error
}

// OpenDynamic maps a .bspc file and selects the reader variant matching
// the header's declared element type.
func OpenDynamic(path string) (*DynamicMatrix, error) {
	mm, err := mapFile(path)
	if err != nil {
		return nil, err
	}

	header, err := format.DecodeHeader(mm.data)
	if err != nil {
		_ = mm.close()

		return nil, err
	}

	impl, err := openAdapter(mm, header.DataType)
	if err != nil {
		_ = mm.close()

		return nil, err
	}

	return &DynamicMatrix{impl: impl}, nil
}

func openAdapter(mm *mapping, dt format.DataType) (dynamicReader, error) {
	switch dt {
	case format.F32:
		return adapt[float32](mm)
	case format.F64:
		return adapt[float64](mm)
	case format.I32:
		return adapt[int32](mm)
	case format.I64:
		return adapt[int64](mm)
	case format.U32:
		return adapt[uint32](mm)
	case format.U64:
		return adapt[uint64](mm)
	default:
		return nil, fmt.Errorf("data_type %d: %w", dt, format.ErrUnsupportedFormat)
	}
}

func adapt[T Element](mm *mapping) (dynamicReader, error) {
	m, err := newMatrix[T](mm)
	if err != nil {
		return nil, err
	}

	return dynAdapter[T]{m: m}, nil
}

// Close unmaps the file.
func (d *DynamicMatrix) Close() error { return d.impl.close() }

// Dimensions returns (nrows, ncols).
func (d *DynamicMatrix) Dimensions() (uint64, uint64) { return d.impl.dimensions() }

// Nnz returns the number of stored elements.
func (d *DynamicMatrix) Nnz() uint64 { return d.impl.nnz() }

// Format returns the storage layout tag.
func (d *DynamicMatrix) Format() format.MatrixFormat { return d.impl.matrixFormat() }

// DataType returns the element type tag.
func (d *DynamicMatrix) DataType() format.DataType { return d.impl.dataType() }

// StructureFlags returns the advisory structure bits.
func (d *DynamicMatrix) StructureFlags() uint8 { return d.impl.structureFlags() }

// Header returns a copy of the decoded file header.
func (d *DynamicMatrix) Header() format.Header { return d.impl.header() }

// BloomIndex returns the chunk-level bloom index.
func (d *DynamicMatrix) BloomIndex() *bloom.ChunkedFilter { return d.impl.bloomIndex() }

// MayContainRow probes the bloom index.
func (d *DynamicMatrix) MayContainRow(row uint64) (bool, error) {
	return d.impl.mayContainRow(row)
}

// GetElement returns the first stored value at (row, col).
func (d *DynamicMatrix) GetElement(row, col uint64) (Value, bool, error) {
	return d.impl.getElement(row, col)
}

// RowView calls fn for every stored (col, value) pair of the row.
func (d *DynamicMatrix) RowView(row uint64, fn func(col uint64, v Value) bool) error {
	return d.impl.rowView(row, fn)
}

// ColView calls fn for every stored (row, value) pair of the column.
func (d *DynamicMatrix) ColView(col uint64, fn func(row uint64, v Value) bool) error {
	return d.impl.colView(col, fn)
}

// RowRangeView calls fn for every stored entry with start <= row < end
// in a single pass over the stream.
func (d *DynamicMatrix) RowRangeView(start, end uint64, fn func(row, col uint64, v Value) bool) error {
	return d.impl.rowRangeView(start, end, fn)
}

// Submatrix materializes the stored intersections of the two ranges.
func (d *DynamicMatrix) Submatrix(rowStart, rowEnd, colStart, colEnd uint64) (map[Coordinate]Value, error) {
	return d.impl.submatrix(rowStart, rowEnd, colStart, colEnd)
}

// RowLabel returns the raw stride-width label bytes for a row.
func (d *DynamicMatrix) RowLabel(i uint64) ([]byte, error) { return d.impl.rowLabel(i) }

// ColLabel returns the raw stride-width label bytes for a column.
func (d *DynamicMatrix) ColLabel(i uint64) ([]byte, error) { return d.impl.colLabel(i) }

// dynAdapter forwards every dynamicReader method to a typed Matrix,
// boxing elements into Value.
type dynAdapter[T Element] struct {
	m *Matrix[T]
}

func (a dynAdapter[T]) dimensions() (uint64, uint64) { return a.m.Dimensions() }
func (a dynAdapter[T]) nnz() uint64 { return a.m.Nnz() }
func (a dynAdapter[T]) matrixFormat() format.MatrixFormat { return a.m.Format() }
func (a dynAdapter[T]) dataType() format.DataType { return a.m.DataType() }
func (a dynAdapter[T]) structureFlags() uint8 { return a.m.StructureFlags() }
func (a dynAdapter[T]) header() format.Header { return a.m.Header() }
func (a dynAdapter[T]) bloomIndex() *bloom.ChunkedFilter { return a.m.BloomIndex() }
func (a dynAdapter[T]) rowLabel(i uint64) ([]byte, error) { return a.m.RowLabel(i) }
func (a dynAdapter[T]) colLabel(i uint64) ([]byte, error) { return a.m.ColLabel(i) }
func (a dynAdapter[T]) close() error { return a.m.Close() }
func (a dynAdapter[T]) mayContainRow(r uint64) (bool, error) { return a.m.MayContainRow(r) }

func (a dynAdapter[T]) getElement(row, col uint64) (Value, bool, error) {
	v, ok, err := a.m.GetElement(row, col)
	if err != nil || !ok {
		return Value{}, false, err
	}

	return valueOf(v), true, nil
}

func (a dynAdapter[T]) rowView(row uint64, fn func(col uint64, v Value) bool) error {
	return a.m.RowView(row, func(col uint64, v T) bool {
		return fn(col, valueOf(v))
	})
}

func (a dynAdapter[T]) colView(col uint64, fn func(row uint64, v Value) bool) error {
	return a.m.ColView(col, func(row uint64, v T) bool {
		return fn(row, valueOf(v))
	})
}

func (a dynAdapter[T]) rowRangeView(start, end uint64, fn func(row, col uint64, v Value) bool) error {
	return a.m.RowRangeView(start, end, func(row, col uint64, v T) bool {
		return fn(row, col, valueOf(v))
	})
}

func (a dynAdapter[T]) submatrix(rowStart, rowEnd, colStart, colEnd uint64) (map[Coordinate]Value, error) {
	typed, err := a.m.Submatrix(rowStart, rowEnd, colStart, colEnd)
	if err != nil {
		return nil, err
	}

	boxed := make(map[Coordinate]Value, len(typed))
	for coord, v := range typed {
		boxed[coord] = valueOf(v)
	}

	return boxed, nil
}
