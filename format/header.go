package format

import (
	"encoding/binary"
	"fmt"
)

// Header field offsets (bytes from file start).
const (
	offMagic          = 0x00 // [4]byte
	offVersion        = 0x04 // uint8
	offFormatType     = 0x05 // uint8
	offDataType       = 0x06 // uint8
	offStructureFlags = 0x07 // uint8
	offNrows          = 0x08 // uint64
	offNcols          = 0x10 // uint64
	offNnz            = 0x18 // uint64
	offValuesOffset   = 0x20 // uint64
	offValuesSize     = 0x28 // uint64
	offIndices0Offset = 0x30 // uint64
	offIndices0Size   = 0x38 // uint64
	offIndices1Offset = 0x40 // uint64
	offIndices1Size   = 0x48 // uint64
	offPointersOffset = 0x50 // uint64
	offPointersSize   = 0x58 // uint64
	offMetadataOffset = 0x60 // uint64
	offMetadataSize   = 0x68 // uint64
	offBloomOffset    = 0x70 // uint64
	offBloomSize      = 0x78 // uint64
	offReserved       = 0x80 // [32]byte through 0x9F
)

// Header is the 160-byte fixed file header. All multi-byte fields are
// little-endian on disk.
type Header struct {
	Version        uint8
	FormatType     MatrixFormat
	DataType       DataType
	StructureFlags uint8

	Nrows uint64
	Ncols uint64
	Nnz   uint64

	ValuesOffset   uint64
	ValuesSize     uint64
	Indices0Offset uint64
	Indices0Size   uint64
	Indices1Offset uint64
	Indices1Size   uint64
	PointersOffset uint64
	PointersSize   uint64
	MetadataOffset uint64
	MetadataSize   uint64
	BloomOffset    uint64
	BloomSize      uint64

	// Reserved trailing bytes, preserved verbatim across decode/encode.
	Reserved [32]byte
}

// NewHeader returns a header with magic-implied defaults for the current
// version.
func NewHeader(formatType MatrixFormat, dataType DataType) Header {
	return Header{
		Version:    Version,
		FormatType: formatType,
		DataType:   dataType,
	}
}

// DecodeHeader parses and validates a file header.
//
// Checks, in order: buffer length, magic, version, enum tags, the
// structural invariants nrows > 0, ncols > 0, nnz <= nrows*ncols
// (checked multiply), region size consistency against nnz, and that no
// optional region is half-present.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("header needs %d bytes, got %d: %w",
			HeaderSize, len(buf), ErrInsufficientBuffer)
	}

	if string(buf[offMagic:offMagic+4]) != Magic {
		return Header{}, fmt.Errorf("bad magic %q: %w", buf[offMagic:offMagic+4], ErrInvalidHeader)
	}

	if buf[offVersion] != Version {
		return Header{}, fmt.Errorf("version %d: %w", buf[offVersion], ErrUnsupportedFormat)
	}

	formatType, err := MatrixFormatFromByte(buf[offFormatType])
	if err != nil {
		return Header{}, err
	}

	dataType, err := DataTypeFromByte(buf[offDataType])
	if err != nil {
		return Header{}, err
	}

	h := Header{
		Version:        buf[offVersion],
		FormatType:     formatType,
		DataType:       dataType,
		StructureFlags: buf[offStructureFlags],

		Nrows: binary.LittleEndian.Uint64(buf[offNrows:]),
		Ncols: binary.LittleEndian.Uint64(buf[offNcols:]),
		Nnz:   binary.LittleEndian.Uint64(buf[offNnz:]),

		ValuesOffset:   binary.LittleEndian.Uint64(buf[offValuesOffset:]),
		ValuesSize:     binary.LittleEndian.Uint64(buf[offValuesSize:]),
		Indices0Offset: binary.LittleEndian.Uint64(buf[offIndices0Offset:]),
		Indices0Size:   binary.LittleEndian.Uint64(buf[offIndices0Size:]),
		Indices1Offset: binary.LittleEndian.Uint64(buf[offIndices1Offset:]),
		Indices1Size:   binary.LittleEndian.Uint64(buf[offIndices1Size:]),
		PointersOffset: binary.LittleEndian.Uint64(buf[offPointersOffset:]),
		PointersSize:   binary.LittleEndian.Uint64(buf[offPointersSize:]),
		MetadataOffset: binary.LittleEndian.Uint64(buf[offMetadataOffset:]),
		MetadataSize:   binary.LittleEndian.Uint64(buf[offMetadataSize:]),
		BloomOffset:    binary.LittleEndian.Uint64(buf[offBloomOffset:]),
		BloomSize:      binary.LittleEndian.Uint64(buf[offBloomSize:]),
	}
	copy(h.Reserved[:], buf[offReserved:offReserved+32])

	if h.Nrows == 0 || h.Ncols == 0 {
		return Header{}, fmt.Errorf("empty dimensions %dx%d: %w", h.Nrows, h.Ncols, ErrInvalidHeader)
	}

	capacity, err := CheckedMul(h.Nrows, h.Ncols)
	if err != nil {
		return Header{}, fmt.Errorf("dimensions %dx%d: %w", h.Nrows, h.Ncols, err)
	}

	if h.Nnz > capacity {
		return Header{}, fmt.Errorf("nnz %d exceeds %dx%d: %w", h.Nnz, h.Nrows, h.Ncols, ErrInvalidHeader)
	}

	valuesSize, err := CheckedMul(h.Nnz, h.DataType.Size())
	if err != nil {
		return Header{}, err
	}

	if h.ValuesSize != valuesSize {
		return Header{}, fmt.Errorf("values size %d, want %d: %w", h.ValuesSize, valuesSize, ErrCorruptedData)
	}

	indicesSize, err := CheckedMul(h.Nnz, 4)
	if err != nil {
		return Header{}, err
	}

	if h.Indices0Size != indicesSize || h.Indices1Size != indicesSize {
		return Header{}, fmt.Errorf("index sizes %d/%d, want %d: %w",
			h.Indices0Size, h.Indices1Size, indicesSize, ErrCorruptedData)
	}

	// Optional regions are either fully absent (both fields zero) or
	// fully present.
	if (h.MetadataOffset == 0) != (h.MetadataSize == 0) {
		return Header{}, fmt.Errorf("half-present metadata region: %w", ErrInvalidHeader)
	}

	if (h.BloomOffset == 0) != (h.BloomSize == 0) {
		return Header{}, fmt.Errorf("half-present bloom region: %w", ErrInvalidHeader)
	}

	return h, nil
}

// EncodeHeader serializes the header to exactly HeaderSize bytes.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)

	copy(buf[offMagic:], Magic)
	buf[offVersion] = h.Version
	buf[offFormatType] = byte(h.FormatType)
	buf[offDataType] = byte(h.DataType)
	buf[offStructureFlags] = h.StructureFlags

	binary.LittleEndian.PutUint64(buf[offNrows:], h.Nrows)
	binary.LittleEndian.PutUint64(buf[offNcols:], h.Ncols)
	binary.LittleEndian.PutUint64(buf[offNnz:], h.Nnz)

	binary.LittleEndian.PutUint64(buf[offValuesOffset:], h.ValuesOffset)
	binary.LittleEndian.PutUint64(buf[offValuesSize:], h.ValuesSize)
	binary.LittleEndian.PutUint64(buf[offIndices0Offset:], h.Indices0Offset)
	binary.LittleEndian.PutUint64(buf[offIndices0Size:], h.Indices0Size)
	binary.LittleEndian.PutUint64(buf[offIndices1Offset:], h.Indices1Offset)
	binary.LittleEndian.PutUint64(buf[offIndices1Size:], h.Indices1Size)
	binary.LittleEndian.PutUint64(buf[offPointersOffset:], h.PointersOffset)
	binary.LittleEndian.PutUint64(buf[offPointersSize:], h.PointersSize)
	binary.LittleEndian.PutUint64(buf[offMetadataOffset:], h.MetadataOffset)
	binary.LittleEndian.PutUint64(buf[offMetadataSize:], h.MetadataSize)
	binary.LittleEndian.PutUint64(buf[offBloomOffset:], h.BloomOffset)
	binary.LittleEndian.PutUint64(buf[offBloomSize:], h.BloomSize)

	copy(buf[offReserved:], h.Reserved[:])

	return buf
}

// MetadataRegion returns the metadata extent. ok is false when the
// region is absent.
func (h Header) MetadataRegion() (offset, size uint64, ok bool) {
	if h.MetadataOffset == 0 && h.MetadataSize == 0 {
		return 0, 0, false
	}

	return h.MetadataOffset, h.MetadataSize, true
}

// BloomRegion returns the bloom filter extent. ok is false when the
// region is absent.
func (h Header) BloomRegion() (offset, size uint64, ok bool) {
	if h.BloomOffset == 0 && h.BloomSize == 0 {
		return 0, 0, false
	}

	return h.BloomOffset, h.BloomSize, true
}

// region pairs an extent with the alignment its element type requires.
type region struct {
	name   string
	offset uint64
	size   uint64
	align  uint64
}

// Validate checks every present region against the file size with
// overflow-checked arithmetic, and that each region offset is aligned
// for its element type.
func (h Header) Validate(fileSize uint64) error {
	regions := []region{
		{"values", h.ValuesOffset, h.ValuesSize, h.DataType.Size()},
		{"indices_0", h.Indices0Offset, h.Indices0Size, 4},
		{"indices_1", h.Indices1Offset, h.Indices1Size, 4},
	}

	if h.PointersSize != 0 {
		regions = append(regions, region{"pointers", h.PointersOffset, h.PointersSize, 4})
	}

	if off, size, ok := h.MetadataRegion(); ok {
		regions = append(regions, region{"metadata", off, size, AlignmentBoundary})
	}

	if off, size, ok := h.BloomRegion(); ok {
		// The bloom block is a packed byte stream with no alignment needs.
		regions = append(regions, region{"bloom_filter", off, size, 1})
	}

	for _, r := range regions {
		end, err := CheckedAdd(r.offset, r.size)
		if err != nil {
			return fmt.Errorf("%s region: %w", r.name, err)
		}

		if end > fileSize {
			return fmt.Errorf("%s region [%d, %d) exceeds file size %d: %w",
				r.name, r.offset, end, fileSize, ErrInvalidHeader)
		}

		if err := ValidateOffsetAlignment(r.offset, r.align); err != nil {
			return fmt.Errorf("%s region: %w", r.name, err)
		}
	}

	return nil
}
