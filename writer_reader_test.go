package bspc

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drbh/bspc/format"
)

// tinyTriples is a 3x3 f64 matrix with 5 stored elements, grouped by row.
func tinyTriples() []Triple[float64] {
	return []Triple[float64]{
		{Row: 0, Col: 0, Value: 1.0},
		{Row: 0, Col: 2, Value: 2.0},
		{Row: 1, Col: 1, Value: 3.0},
		{Row: 2, Col: 0, Value: 4.0},
		{Row: 2, Col: 2, Value: 5.0},
	}
}

func writeTiny(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tiny.bspc")
	err := Write(context.Background(), path, 3, 3, tinyTriples(), DefaultChunkConfig())
	require.NoError(t, err)

	return path
}

func Test_RoundTrip_Point_Queries(t *testing.T) {
	t.Parallel()

	m, err := Open[float64](writeTiny(t))
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	nrows, ncols := m.Dimensions()
	require.Equal(t, uint64(3), nrows)
	require.Equal(t, uint64(3), ncols)
	require.Equal(t, uint64(5), m.Nnz())
	require.Equal(t, format.Coo, m.Format())
	require.Equal(t, format.F64, m.DataType())

	v, ok, err := m.GetElement(0, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2.0, v)

	_, ok, err = m.GetElement(1, 0)
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = m.GetElement(3, 0)
	require.ErrorIs(t, err, format.ErrIndexOutOfBounds)

	_, _, err = m.GetElement(0, 3)
	require.ErrorIs(t, err, format.ErrIndexOutOfBounds)
}

func Test_RoundTrip_Row_And_Col_Views(t *testing.T) {
	t.Parallel()

	m, err := Open[float64](writeTiny(t))
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	row2 := map[uint64]float64{}
	err = m.RowView(2, func(col uint64, v float64) bool {
		row2[col] = v

		return true
	})
	require.NoError(t, err)
	require.Equal(t, map[uint64]float64{0: 4.0, 2: 5.0}, row2)

	col0 := map[uint64]float64{}
	err = m.ColView(0, func(row uint64, v float64) bool {
		col0[row] = v

		return true
	})
	require.NoError(t, err)
	require.Equal(t, map[uint64]float64{0: 1.0, 2: 4.0}, col0)

	err = m.RowView(3, func(uint64, float64) bool { return true })
	require.ErrorIs(t, err, format.ErrIndexOutOfBounds)
}

func Test_RowRangeView_Traverses_Once_In_Stream_Order(t *testing.T) {
	t.Parallel()

	m, err := Open[float64](writeTiny(t))
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	var got []Triple[float64]

	err = m.RowRangeView(0, 2, func(row, col uint64, v float64) bool {
		got = append(got, Triple[float64]{Row: uint32(row), Col: uint32(col), Value: v})

		return true
	})
	require.NoError(t, err)

	want := []Triple[float64]{
		{Row: 0, Col: 0, Value: 1.0},
		{Row: 0, Col: 2, Value: 2.0},
		{Row: 1, Col: 1, Value: 3.0},
	}
	require.Equal(t, want, got)

	err = m.RowRangeView(2, 1, func(uint64, uint64, float64) bool { return true })
	require.ErrorIs(t, err, format.ErrInvalidRange)
}

func Test_Submatrix_Materializes_The_Window(t *testing.T) {
	t.Parallel()

	m, err := Open[float64](writeTiny(t))
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	window, err := m.Submatrix(0, 3, 0, 1)
	require.NoError(t, err)
	require.Equal(t, map[Coordinate]float64{
		{Row: 0, Col: 0}: 1.0,
		{Row: 2, Col: 0}: 4.0,
	}, window)
}

func Test_Bloom_Probe_Has_No_False_Negatives(t *testing.T) {
	t.Parallel()

	m, err := Open[float64](writeTiny(t))
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	for _, row := range []uint64{0, 1, 2} {
		ok, err := m.MayContainRow(row)
		require.NoError(t, err)
		require.True(t, ok, "row %d", row)
	}

	_, err = m.MayContainRow(3)
	require.ErrorIs(t, err, format.ErrIndexOutOfBounds)
}

func Test_Writer_Produces_Aligned_Regions(t *testing.T) {
	t.Parallel()

	path := writeTiny(t)

	m, err := Open[float64](path)
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	h := m.Header()
	require.Zero(t, h.ValuesOffset%8, "values offset %d", h.ValuesOffset)
	require.Zero(t, h.Indices0Offset%4, "indices_0 offset %d", h.Indices0Offset)
	require.Zero(t, h.Indices1Offset%4, "indices_1 offset %d", h.Indices1Offset)

	_, _, ok := h.BloomRegion()
	require.True(t, ok, "writer must persist the bloom index")
}

func Test_Write_Accepts_F32_And_Aligns_For_Four_Bytes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f32.bspc")
	triples := []Triple[float32]{
		{Row: 0, Col: 1, Value: 1.5},
		{Row: 4, Col: 2, Value: -2.5},
	}

	require.NoError(t, Write(context.Background(), path, 5, 3, triples, DefaultChunkConfig()))

	m, err := Open[float32](path)
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	require.Equal(t, format.F32, m.DataType())
	require.Zero(t, m.Header().ValuesOffset%4)

	v, ok, err := m.GetElement(4, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, float32(-2.5), v)
}

func Test_Open_Rejects_Element_Type_Mismatch(t *testing.T) {
	t.Parallel()

	_, err := Open[int32](writeTiny(t))
	require.ErrorIs(t, err, format.ErrInvalidElement)
}

func Test_Write_Roundtrips_An_Empty_Matrix(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.bspc")
	require.NoError(t, Write(context.Background(), path, 10, 10, nil, DefaultChunkConfig()))

	m, err := Open[float64](path)
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	require.Equal(t, uint64(0), m.Nnz())

	_, ok, err := m.GetElement(5, 5)
	require.NoError(t, err)
	require.False(t, ok)
}

func Test_Write_Tolerates_Unsorted_Input(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "unsorted.bspc")
	triples := []Triple[float64]{
		{Row: 2, Col: 2, Value: 5.0},
		{Row: 0, Col: 0, Value: 1.0},
		{Row: 1, Col: 1, Value: 3.0},
	}

	require.NoError(t, Write(context.Background(), path, 3, 3, triples, DefaultChunkConfig()))

	m, err := Open[float64](path)
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	for _, tr := range triples {
		v, ok, err := m.GetElement(uint64(tr.Row), uint64(tr.Col))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, tr.Value, v)

		mayContain, err := m.MayContainRow(uint64(tr.Row))
		require.NoError(t, err)
		require.True(t, mayContain)
	}
}

func Test_Write_Rejects_Out_Of_Bounds_Triples(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.bspc")
	triples := []Triple[float64]{{Row: 3, Col: 0, Value: 1.0}}

	err := Write(context.Background(), path, 3, 3, triples, DefaultChunkConfig())
	require.ErrorIs(t, err, format.ErrIndexOutOfBounds)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "failed write must leave no file")
}

func Test_Write_Honors_Cancellation_Before_Assembly(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "cancelled.bspc")
	err := Write(ctx, path, 3, 3, tinyTriples(), DefaultChunkConfig())
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "cancelled write must leave no file")
}

func Test_Open_Detects_Header_Corruption(t *testing.T) {
	t.Parallel()

	path := writeTiny(t)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Blow up nrows so nrows*ncols overflows u64.
	binary.LittleEndian.PutUint64(data[8:], ^uint64(0))
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Open[float64](path)
	require.Error(t, err)
	require.True(t,
		errors.Is(err, format.ErrArraySizeOverflow) || errors.Is(err, format.ErrInvalidHeader),
		"got %v", err)
}

func Test_Queries_Detect_Index_Stream_Corruption(t *testing.T) {
	t.Parallel()

	path := writeTiny(t)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	header, err := format.DecodeHeader(data)
	require.NoError(t, err)

	// Overwrite the first row id with nrows, which no valid entry may hold.
	binary.LittleEndian.PutUint32(data[header.Indices0Offset:], uint32(header.Nrows))
	require.NoError(t, os.WriteFile(path, data, 0o644))

	m, err := Open[float64](path)
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	_, _, err = m.GetElement(2, 2)
	require.ErrorIs(t, err, format.ErrCorruptedData)

	err = m.RowView(2, func(uint64, float64) bool { return true })
	require.ErrorIs(t, err, format.ErrCorruptedData)
}

func Test_Layout_Places_Regions_Back_To_Back(t *testing.T) {
	t.Parallel()

	l, err := computeLayout(5, 8)
	require.NoError(t, err)
	require.Equal(t, uint64(160), l.valuesOffset)
	require.Equal(t, uint64(40), l.valuesSize)
	require.Equal(t, uint64(200), l.indices0Offset)
	require.Equal(t, uint64(220), l.indices1Offset)
	require.Equal(t, uint64(240), l.bloomOffset)

	l, err = computeLayout(5, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(160), l.valuesOffset)
	require.Equal(t, uint64(20), l.valuesSize)
	require.Equal(t, uint64(180), l.indices0Offset)
	require.Equal(t, uint64(200), l.indices1Offset)
}
