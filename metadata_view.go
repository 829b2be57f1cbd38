package bspc

import (
	"bytes"
	"fmt"

	"github.com/drbh/bspc/format"
)

// MetadataView provides O(1) label lookups over the metadata byte
// window of a mapped file. The view borrows the bytes; it is valid only
// while the owning mapping is alive.
type MetadataView struct {
	data   []byte
	header format.MetadataHeader
}

// NewMetadataView decodes the 40-byte metadata header and validates
// that every present label region lies inside the window.
func NewMetadataView(data []byte) (*MetadataView, error) {
	header, err := format.DecodeMetadataHeader(data)
	if err != nil {
		return nil, err
	}

	for _, region := range []struct {
		name      string
		off, size uint64
	}{
		{"row labels", header.RowLabelsOff, header.RowLabelsSize},
		{"col labels", header.ColLabelsOff, header.ColLabelsSize},
	} {
		if region.size == 0 {
			continue
		}

		end, err := format.CheckedAdd(region.off, region.size)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", region.name, err)
		}

		if end > uint64(len(data)) {
			return nil, fmt.Errorf("%s region [%d, %d) exceeds section of %d bytes: %w",
				region.name, region.off, end, len(data), format.ErrInvalidMetadata)
		}
	}

	return &MetadataView{data: data, header: header}, nil
}

// Header returns the decoded metadata header.
func (v *MetadataView) Header() format.MetadataHeader { return v.header }

// RowLabelArray returns the row label array header.
func (v *MetadataView) RowLabelArray() (format.LabelArrayHeader, error) {
	return v.labelArray(v.header.RowLabelsOff, v.header.RowLabelsSize, "row")
}

// ColLabelArray returns the column label array header.
func (v *MetadataView) ColLabelArray() (format.LabelArrayHeader, error) {
	return v.labelArray(v.header.ColLabelsOff, v.header.ColLabelsSize, "col")
}

func (v *MetadataView) labelArray(off, size uint64, which string) (format.LabelArrayHeader, error) {
	if size == 0 {
		return format.LabelArrayHeader{}, fmt.Errorf("no %s labels present: %w",
			which, format.ErrInvalidMetadata)
	}

	if size < format.LabelArrayHeaderSize {
		return format.LabelArrayHeader{}, fmt.Errorf("%s label region of %d bytes: %w",
			which, size, format.ErrInsufficientBuffer)
	}

	arr, err := format.DecodeLabelArrayHeader(v.data[off : off+size])
	if err != nil {
		return format.LabelArrayHeader{}, err
	}

	if arr.DataSize() > size-format.LabelArrayHeaderSize {
		return format.LabelArrayHeader{}, fmt.Errorf("%s labels need %d bytes, region has %d: %w",
			which, arr.DataSize(), size-format.LabelArrayHeaderSize, format.ErrInvalidMetadata)
	}

	return arr, nil
}

// RowLabel returns the raw stride-width bytes of row label i.
func (v *MetadataView) RowLabel(i uint64) ([]byte, error) {
	return v.label(v.header.RowLabelsOff, v.header.RowLabelsSize, i, "row")
}

// ColLabel returns the raw stride-width bytes of column label i.
func (v *MetadataView) ColLabel(i uint64) ([]byte, error) {
	return v.label(v.header.ColLabelsOff, v.header.ColLabelsSize, i, "col")
}

func (v *MetadataView) label(off, size, i uint64, which string) ([]byte, error) {
	arr, err := v.labelArray(off, size, which)
	if err != nil {
		return nil, err
	}

	if i >= uint64(arr.Count) {
		return nil, fmt.Errorf("%s label %d of %d: %w", which, i, arr.Count, format.ErrInvalidMetadata)
	}

	start := off + format.LabelArrayHeaderSize + i*uint64(arr.Stride)

	return v.data[start : start+uint64(arr.Stride)], nil
}

// TrimLabel strips the zero padding from a stride-width label so it can
// be treated as a string.
func TrimLabel(label []byte) []byte {
	return bytes.TrimRight(label, "\x00")
}
