package format

// BSPC file format constants.
const (
	// Magic bytes at the start of every .bspc file.
	Magic = "BSPC"

	// File format version.
	Version = 1

	// Fixed header size in bytes.
	HeaderSize = 160

	// Default alignment boundary for file regions.
	AlignmentBoundary = 8
)

// Metadata section constants.
const (
	// Magic bytes at the start of the metadata section.
	MetadataMagic = "META"

	// Metadata section format version.
	MetadataVersion = 1

	// Fixed metadata header size in bytes.
	MetadataHeaderSize = 40

	// Fixed label array header size in bytes.
	LabelArrayHeaderSize = 8

	// Maximum label stride (64 KiB per label).
	MaxLabelStride = 65536

	// Maximum label length accepted by ValidateLabel.
	MaxLabelLen = 1024
)

// MaxChunkCount bounds the number of bloom index chunks a file may declare,
// keeping deserialization allocations away from attacker control.
const MaxChunkCount = 1_000_000

// Structure flag bits. Advisory: readers expose them but never enforce them.
const (
	FlagSymmetric       = 1 << 0
	FlagUpperTriangular = 1 << 1
	FlagLowerTriangular = 1 << 2
	FlagSortedIndices   = 1 << 3
)
