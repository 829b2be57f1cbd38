package format

import (
	"encoding/binary"
	"fmt"
)

// Metadata header field offsets (bytes from metadata section start).
const (
	offMetaMagic     = 0x00 // [4]byte
	offMetaVersion   = 0x04 // uint8, then 3 padding bytes
	offRowLabelsOff  = 0x08 // uint64
	offRowLabelsSize = 0x10 // uint64
	offColLabelsOff  = 0x18 // uint64
	offColLabelsSize = 0x20 // uint64
)

// MetadataHeader is the 40-byte header of the metadata section. Offsets
// are relative to the start of the section, not the file.
type MetadataHeader struct {
	Version       uint8
	RowLabelsOff  uint64
	RowLabelsSize uint64
	ColLabelsOff  uint64
	ColLabelsSize uint64
}

// DecodeMetadataHeader parses the metadata section header.
func DecodeMetadataHeader(buf []byte) (MetadataHeader, error) {
	if len(buf) < MetadataHeaderSize {
		return MetadataHeader{}, fmt.Errorf("metadata header needs %d bytes, got %d: %w",
			MetadataHeaderSize, len(buf), ErrInsufficientBuffer)
	}

	if string(buf[offMetaMagic:offMetaMagic+4]) != MetadataMagic {
		return MetadataHeader{}, fmt.Errorf("bad metadata magic %q: %w",
			buf[offMetaMagic:offMetaMagic+4], ErrInvalidMetadata)
	}

	if buf[offMetaVersion] != MetadataVersion {
		return MetadataHeader{}, fmt.Errorf("metadata version %d: %w",
			buf[offMetaVersion], ErrUnsupportedFormat)
	}

	return MetadataHeader{
		Version:       buf[offMetaVersion],
		RowLabelsOff:  binary.LittleEndian.Uint64(buf[offRowLabelsOff:]),
		RowLabelsSize: binary.LittleEndian.Uint64(buf[offRowLabelsSize:]),
		ColLabelsOff:  binary.LittleEndian.Uint64(buf[offColLabelsOff:]),
		ColLabelsSize: binary.LittleEndian.Uint64(buf[offColLabelsSize:]),
	}, nil
}

// EncodeMetadataHeader serializes the header to exactly
// MetadataHeaderSize bytes. Padding bytes are zero.
func EncodeMetadataHeader(h MetadataHeader) []byte {
	buf := make([]byte, MetadataHeaderSize)

	copy(buf[offMetaMagic:], MetadataMagic)
	buf[offMetaVersion] = h.Version
	binary.LittleEndian.PutUint64(buf[offRowLabelsOff:], h.RowLabelsOff)
	binary.LittleEndian.PutUint64(buf[offRowLabelsSize:], h.RowLabelsSize)
	binary.LittleEndian.PutUint64(buf[offColLabelsOff:], h.ColLabelsOff)
	binary.LittleEndian.PutUint64(buf[offColLabelsSize:], h.ColLabelsSize)

	return buf
}

// LabelArrayHeader is the 8-byte header of a fixed-stride label array.
// Each of the count labels occupies exactly stride bytes, zero-padded
// on the right.
type LabelArrayHeader struct {
	Count  uint32
	Stride uint32
}

// DecodeLabelArrayHeader parses a label array header and validates the
// stride bound and the count*stride product.
func DecodeLabelArrayHeader(buf []byte) (LabelArrayHeader, error) {
	if len(buf) < LabelArrayHeaderSize {
		return LabelArrayHeader{}, fmt.Errorf("label array header needs %d bytes, got %d: %w",
			LabelArrayHeaderSize, len(buf), ErrInsufficientBuffer)
	}

	h := LabelArrayHeader{
		Count:  binary.LittleEndian.Uint32(buf[0:4]),
		Stride: binary.LittleEndian.Uint32(buf[4:8]),
	}

	if h.Stride == 0 || h.Stride > MaxLabelStride {
		return LabelArrayHeader{}, fmt.Errorf("label stride %d: %w", h.Stride, ErrInvalidMetadata)
	}

	if _, err := CheckedMul(uint64(h.Count), uint64(h.Stride)); err != nil {
		return LabelArrayHeader{}, err
	}

	return h, nil
}

// EncodeLabelArrayHeader serializes the header to exactly
// LabelArrayHeaderSize bytes.
func EncodeLabelArrayHeader(h LabelArrayHeader) []byte {
	buf := make([]byte, LabelArrayHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Count)
	binary.LittleEndian.PutUint32(buf[4:8], h.Stride)

	return buf
}

// DataSize returns count*stride, the byte length of the label data that
// follows the header.
func (h LabelArrayHeader) DataSize() uint64 {
	// Overflow was rejected at decode time; builders validate before encode.
	return uint64(h.Count) * uint64(h.Stride)
}
