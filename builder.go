package bspc

import (
	"fmt"

	"github.com/drbh/bspc/format"
)

// MetadataBuilder assembles the metadata section bytes: the 40-byte
// header followed by fixed-stride row and column label arrays.
type MetadataBuilder struct {
	rowLabels [][]byte
	colLabels [][]byte
	stride    uint32
}

// NewMetadataBuilder creates a builder with the given label stride.
func NewMetadataBuilder(stride uint32) *MetadataBuilder {
	return &MetadataBuilder{stride: stride}
}

// WithRowLabels sets the row labels. Labels are validated at Build time.
func (b *MetadataBuilder) WithRowLabels(labels [][]byte) *MetadataBuilder {
	b.rowLabels = labels

	return b
}

// WithColLabels sets the column labels. Labels are validated at Build time.
func (b *MetadataBuilder) WithColLabels(labels [][]byte) *MetadataBuilder {
	b.colLabels = labels

	return b
}

// Build validates every label and serializes the section. Each label is
// right-padded with zeros to the stride width.
func (b *MetadataBuilder) Build() ([]byte, error) {
	if b.stride == 0 || b.stride > format.MaxLabelStride {
		return nil, fmt.Errorf("label stride %d: %w", b.stride, format.ErrInvalidMetadata)
	}

	for _, labels := range [][][]byte{b.rowLabels, b.colLabels} {
		for _, label := range labels {
			if err := format.ValidateLabel(label); err != nil {
				return nil, err
			}

			if uint64(len(label)) > uint64(b.stride) {
				return nil, fmt.Errorf("label of %d bytes exceeds stride %d: %w",
					len(label), b.stride, format.ErrInvalidLabel)
			}
		}
	}

	rowSize := labelArraySize(len(b.rowLabels), b.stride)
	colSize := labelArraySize(len(b.colLabels), b.stride)

	header := format.MetadataHeader{Version: format.MetadataVersion}
	if rowSize > 0 {
		header.RowLabelsOff = format.MetadataHeaderSize
		header.RowLabelsSize = rowSize
	}

	if colSize > 0 {
		header.ColLabelsOff = format.MetadataHeaderSize + rowSize
		header.ColLabelsSize = colSize
	}

	section := make([]byte, 0, format.MetadataHeaderSize+rowSize+colSize)
	section = append(section, format.EncodeMetadataHeader(header)...)
	section = appendLabelArray(section, b.rowLabels, b.stride)
	section = appendLabelArray(section, b.colLabels, b.stride)

	return section, nil
}

func labelArraySize(count int, stride uint32) uint64 {
	if count == 0 {
		return 0
	}

	return format.LabelArrayHeaderSize + uint64(count)*uint64(stride)
}

func appendLabelArray(buf []byte, labels [][]byte, stride uint32) []byte {
	if len(labels) == 0 {
		return buf
	}

	buf = append(buf, format.EncodeLabelArrayHeader(format.LabelArrayHeader{
		Count:  uint32(len(labels)),
		Stride: stride,
	})...)

	for _, label := range labels {
		buf = append(buf, label...)
		for pad := uint64(len(label)); pad < uint64(stride); pad++ {
			buf = append(buf, 0)
		}
	}

	return buf
}
