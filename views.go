package bspc

import (
	"fmt"

	"github.com/drbh/bspc/format"
)

// checkEntry validates a stored coordinate against the declared
// dimensions. The header already passed validation, so a violation here
// means the streams themselves are damaged.
func (m *Matrix[T]) checkEntry(i int) error {
	if uint64(m.rowIndices[i]) >= m.header.Nrows || uint64(m.colIndices[i]) >= m.header.Ncols {
		return fmt.Errorf("entry %d has coordinates (%d, %d) outside %dx%d: %w",
			i, m.rowIndices[i], m.colIndices[i], m.header.Nrows, m.header.Ncols,
			format.ErrCorruptedData)
	}

	return nil
}

// GetElement returns the first stored value at (row, col). ok is false
// when no element is stored there. The bloom index is probed before the
// stream is scanned.
func (m *Matrix[T]) GetElement(row, col uint64) (value T, ok bool, err error) {
	if row >= m.header.Nrows || col >= m.header.Ncols {
		return value, false, fmt.Errorf("(%d, %d) outside %dx%d: %w",
			row, col, m.header.Nrows, m.header.Ncols, format.ErrIndexOutOfBounds)
	}

	if !m.index.MayContainRow(row) {
		return value, false, nil
	}

	for i := range m.rowIndices {
		if err := m.checkEntry(i); err != nil {
			return value, false, err
		}

		if uint64(m.rowIndices[i]) == row && uint64(m.colIndices[i]) == col {
			return m.values[i], true, nil
		}
	}

	return value, false, nil
}

// RowView calls fn for every stored (col, value) pair of the row, in
// stream order. Iteration stops when fn returns false.
func (m *Matrix[T]) RowView(row uint64, fn func(col uint64, value T) bool) error {
	if row >= m.header.Nrows {
		return fmt.Errorf("row %d of %d: %w", row, m.header.Nrows, format.ErrIndexOutOfBounds)
	}

	for i := range m.rowIndices {
		if err := m.checkEntry(i); err != nil {
			return err
		}

		if uint64(m.rowIndices[i]) == row {
			if !fn(uint64(m.colIndices[i]), m.values[i]) {
				return nil
			}
		}
	}

	return nil
}

// ColView calls fn for every stored (row, value) pair of the column, in
// stream order. Iteration stops when fn returns false.
func (m *Matrix[T]) ColView(col uint64, fn func(row uint64, value T) bool) error {
	if col >= m.header.Ncols {
		return fmt.Errorf("col %d of %d: %w", col, m.header.Ncols, format.ErrIndexOutOfBounds)
	}

	for i := range m.colIndices {
		if err := m.checkEntry(i); err != nil {
			return err
		}

		if uint64(m.colIndices[i]) == col {
			if !fn(uint64(m.rowIndices[i]), m.values[i]) {
				return nil
			}
		}
	}

	return nil
}

// RowRangeView calls fn for every stored entry with start <= row < end,
// in stream order. The coordinate stream is traversed exactly once per
// call. Iteration stops when fn returns false.
func (m *Matrix[T]) RowRangeView(start, end uint64, fn func(row, col uint64, value T) bool) error {
	if start > end || end > m.header.Nrows {
		return fmt.Errorf("row range [%d, %d) of %d: %w",
			start, end, m.header.Nrows, format.ErrInvalidRange)
	}

	for i := range m.rowIndices {
		if err := m.checkEntry(i); err != nil {
			return err
		}

		row := uint64(m.rowIndices[i])
		if row >= start && row < end {
			if !fn(row, uint64(m.colIndices[i]), m.values[i]) {
				return nil
			}
		}
	}

	return nil
}

// Coordinate addresses one element of a submatrix result.
type Coordinate struct {
	Row uint64
	Col uint64
}

// Submatrix materializes the stored intersections of the row range
// [rowStart, rowEnd) and column range [colStart, colEnd), keyed by
// absolute coordinates. Memory is bounded by the number of stored
// elements inside the window.
func (m *Matrix[T]) Submatrix(rowStart, rowEnd, colStart, colEnd uint64) (map[Coordinate]T, error) {
	if rowStart > rowEnd || rowEnd > m.header.Nrows {
		return nil, fmt.Errorf("row range [%d, %d) of %d: %w",
			rowStart, rowEnd, m.header.Nrows, format.ErrInvalidRange)
	}

	if colStart > colEnd || colEnd > m.header.Ncols {
		return nil, fmt.Errorf("col range [%d, %d) of %d: %w",
			colStart, colEnd, m.header.Ncols, format.ErrInvalidRange)
	}

	result := make(map[Coordinate]T)

	err := m.RowRangeView(rowStart, rowEnd, func(row, col uint64, value T) bool {
		if col >= colStart && col < colEnd {
			result[Coordinate{Row: row, Col: col}] = value
		}

		return true
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
