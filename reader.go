package bspc

import (
	"fmt"

	"github.com/drbh/bspc/bloom"
	"github.com/drbh/bspc/format"
)

// Matrix is a read-only view of a memory-mapped .bspc file with element
// type T. All query methods are safe for concurrent use; the underlying
// mapping is immutable until Close.
type Matrix[T Element] struct {
	mm     *mapping
	header format.Header

	values     []T
	rowIndices []uint32
	colIndices []uint32

	index *bloom.ChunkedFilter
	meta  *MetadataView // nil when the file carries no metadata section
}

// Open maps a .bspc file and validates it end to end: header decode,
// overflow-checked region extents, per-region alignment, typed view
// construction, and stream-length consistency against nnz. The declared
// data type must match T.
//
// If the file carries a serialized bloom index it is loaded; otherwise
// the index is rebuilt from the row id stream.
func Open[T Element](path string) (*Matrix[T], error) {
	mm, err := mapFile(path)
	if err != nil {
		return nil, err
	}

	m, err := newMatrix[T](mm)
	if err != nil {
		_ = mm.close()

		return nil, err
	}

	return m, nil
}

func newMatrix[T Element](mm *mapping) (*Matrix[T], error) {
	header, err := format.DecodeHeader(mm.data)
	if err != nil {
		return nil, err
	}

	if err := header.Validate(uint64(len(mm.data))); err != nil {
		return nil, err
	}

	if want := dataTypeOf[T](); header.DataType != want {
		return nil, fmt.Errorf("file stores %s, reader wants %s: %w",
			header.DataType, want, format.ErrInvalidElement)
	}

	valuesBytes, err := mm.slice(header.ValuesOffset, header.ValuesSize)
	if err != nil {
		return nil, err
	}

	rowBytes, err := mm.slice(header.Indices0Offset, header.Indices0Size)
	if err != nil {
		return nil, err
	}

	colBytes, err := mm.slice(header.Indices1Offset, header.Indices1Size)
	if err != nil {
		return nil, err
	}

	values, err := typedSlice[T](valuesBytes)
	if err != nil {
		return nil, err
	}

	rowIndices, err := typedSlice[uint32](rowBytes)
	if err != nil {
		return nil, err
	}

	colIndices, err := typedSlice[uint32](colBytes)
	if err != nil {
		return nil, err
	}

	nnz := header.Nnz
	if uint64(len(values)) != nnz || uint64(len(rowIndices)) != nnz || uint64(len(colIndices)) != nnz {
		return nil, fmt.Errorf("stream lengths %d/%d/%d, want nnz %d: %w",
			len(values), len(rowIndices), len(colIndices), nnz, format.ErrCorruptedData)
	}

	m := &Matrix[T]{
		mm:         mm,
		header:     header,
		values:     values,
		rowIndices: rowIndices,
		colIndices: colIndices,
	}

	if err := m.loadBloomIndex(); err != nil {
		return nil, err
	}

	if off, size, ok := header.MetadataRegion(); ok {
		metaBytes, err := mm.slice(off, size)
		if err != nil {
			return nil, err
		}

		meta, err := NewMetadataView(metaBytes)
		if err != nil {
			return nil, err
		}

		m.meta = meta
	}

	return m, nil
}

// loadBloomIndex deserializes the persisted index, or rebuilds it from
// the row id stream. The stream is written in row order, so collapsing
// runs of equal ids yields the unique rows for the bulk insert.
func (m *Matrix[T]) loadBloomIndex() error {
	if off, size, ok := m.header.BloomRegion(); ok {
		blob, err := m.mm.slice(off, size)
		if err != nil {
			return err
		}

		index, err := bloom.Deserialize(blob)
		if err != nil {
			return err
		}

		m.index = index

		return nil
	}

	index, err := bloom.New(m.header.Nrows, uint64(DefaultChunkConfig().ChunkSize))
	if err != nil {
		return err
	}

	uniqueRows := make([]uint64, 0, min(len(m.rowIndices), 1024))
	for i, row := range m.rowIndices {
		if i == 0 || row != m.rowIndices[i-1] {
			uniqueRows = append(uniqueRows, uint64(row))
		}
	}

	index.BulkInsertSorted(uniqueRows)
	m.index = index

	return nil
}

// Close unmaps the file. All views and iterators become invalid.
func (m *Matrix[T]) Close() error {
	return m.mm.close()
}

// Dimensions returns (nrows, ncols).
func (m *Matrix[T]) Dimensions() (uint64, uint64) {
	return m.header.Nrows, m.header.Ncols
}

// Nnz returns the number of stored elements.
func (m *Matrix[T]) Nnz() uint64 { return m.header.Nnz }

// Format returns the storage layout tag.
func (m *Matrix[T]) Format() format.MatrixFormat { return m.header.FormatType }

// DataType returns the element type tag.
func (m *Matrix[T]) DataType() format.DataType { return m.header.DataType }

// StructureFlags returns the advisory structure bits.
func (m *Matrix[T]) StructureFlags() uint8 { return m.header.StructureFlags }

// Header returns a copy of the decoded file header.
func (m *Matrix[T]) Header() format.Header { return m.header }

// BloomIndex returns the chunk-level bloom index.
func (m *Matrix[T]) BloomIndex() *bloom.ChunkedFilter { return m.index }

// MayContainRow probes the bloom index; false means the row is
// definitely empty.
func (m *Matrix[T]) MayContainRow(row uint64) (bool, error) {
	if row >= m.header.Nrows {
		return false, fmt.Errorf("row %d of %d: %w", row, m.header.Nrows, format.ErrIndexOutOfBounds)
	}

	return m.index.MayContainRow(row), nil
}

// RowLabel returns the raw stride-width label bytes for a row.
func (m *Matrix[T]) RowLabel(i uint64) ([]byte, error) {
	if m.meta == nil {
		return nil, fmt.Errorf("no metadata section: %w", format.ErrInvalidMetadata)
	}

	return m.meta.RowLabel(i)
}

// ColLabel returns the raw stride-width label bytes for a column.
func (m *Matrix[T]) ColLabel(i uint64) ([]byte, error) {
	if m.meta == nil {
		return nil, fmt.Errorf("no metadata section: %w", format.ErrInvalidMetadata)
	}

	return m.meta.ColLabel(i)
}

// Metadata returns the label view, or nil when absent.
func (m *Matrix[T]) Metadata() *MetadataView { return m.meta }
