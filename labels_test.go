package bspc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drbh/bspc/format"
)

func labelSet(labels ...string) [][]byte {
	out := make([][]byte, len(labels))
	for i, l := range labels {
		out[i] = []byte(l)
	}

	return out
}

func Test_WriteWithLabels_RoundTrips_Row_And_Col_Labels(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "labeled.bspc")
	err := WriteWithLabels(context.Background(), path, 3, 3, tinyTriples(),
		labelSet("gene_A", "gene_B", "gene_C"),
		labelSet("sample_1", "sample_2", "sample_3"),
		32, DefaultChunkConfig())
	require.NoError(t, err)

	m, err := Open[float64](path)
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	rowLabel, err := m.RowLabel(0)
	require.NoError(t, err)
	require.Len(t, rowLabel, 32)
	require.Equal(t, []byte("gene_A"), TrimLabel(rowLabel))
	require.Equal(t, byte(0), rowLabel[6])

	colLabel, err := m.ColLabel(1)
	require.NoError(t, err)
	require.Len(t, colLabel, 32)
	require.Equal(t, []byte("sample_2"), TrimLabel(colLabel))

	// Labels beyond count are rejected.
	_, err = m.RowLabel(3)
	require.ErrorIs(t, err, format.ErrInvalidMetadata)

	// The data regions are unaffected by the metadata section.
	v, ok, err := m.GetElement(0, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2.0, v)
}

func Test_WriteWithLabels_Aligns_The_Metadata_Region(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "labeled.bspc")
	err := WriteWithLabels(context.Background(), path, 3, 3, tinyTriples(),
		labelSet("r0", "r1", "r2"), nil, 8, DefaultChunkConfig())
	require.NoError(t, err)

	m, err := Open[float64](path)
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	off, size, ok := m.Header().MetadataRegion()
	require.True(t, ok)
	require.Zero(t, off%format.AlignmentBoundary)
	require.NotZero(t, size)
}

func Test_Writer_Rejects_Invalid_Labels(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.bspc")

	// Label longer than the stride.
	err := WriteWithLabels(context.Background(), path, 3, 3, tinyTriples(),
		labelSet("a_label_longer_than_stride"), nil, 8, DefaultChunkConfig())
	require.ErrorIs(t, err, format.ErrInvalidLabel)

	// Embedded NUL.
	err = WriteWithLabels(context.Background(), path, 3, 3, tinyTriples(),
		labelSet("nul\x00"), nil, 32, DefaultChunkConfig())
	require.ErrorIs(t, err, format.ErrInvalidLabel)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func Test_AddLabels_Appends_Metadata_To_An_Existing_File(t *testing.T) {
	t.Parallel()

	path := writeTiny(t)

	require.NoError(t, AddLabels(path,
		labelSet("gene_A", "gene_B", "gene_C"),
		labelSet("sample_1", "sample_2", "sample_3"), 16))

	m, err := Open[float64](path)
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	label, err := m.RowLabel(2)
	require.NoError(t, err)
	require.Equal(t, []byte("gene_C"), TrimLabel(label))

	// The matrix data is byte-identical: queries still work.
	v, ok, err := m.GetElement(2, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5.0, v)

	// A second labeling pass is an in-place mutation, which the format
	// forbids.
	err = AddLabels(path, labelSet("x", "y", "z"), nil, 16)
	require.ErrorIs(t, err, format.ErrInvalidMetadata)
}

func Test_Labels_Are_Unavailable_Without_A_Metadata_Section(t *testing.T) {
	t.Parallel()

	m, err := Open[float64](writeTiny(t))
	require.NoError(t, err)

	defer func() { _ = m.Close() }()

	_, err = m.RowLabel(0)
	require.ErrorIs(t, err, format.ErrInvalidMetadata)
}

func Test_MetadataBuilder_Validates_Stride(t *testing.T) {
	t.Parallel()

	_, err := NewMetadataBuilder(0).WithRowLabels(labelSet("a")).Build()
	require.ErrorIs(t, err, format.ErrInvalidMetadata)

	_, err = NewMetadataBuilder(format.MaxLabelStride + 1).WithRowLabels(labelSet("a")).Build()
	require.ErrorIs(t, err, format.ErrInvalidMetadata)
}
