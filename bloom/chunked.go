package bloom

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"

	"github.com/drbh/bspc/format"
)

// Serialized layout: chunk_size u32 | total_rows u32 | num_chunks u32,
// then per chunk: hash_count u8 + LeafSize filter bytes.
const (
	chunkedHeaderSize = 12
	chunkedLeafSize   = 1 + LeafSize
)

// ChunkedFilter partitions the row space into fixed-size chunks and
// keeps one compact bloom filter per chunk. It answers "which chunks may
// intersect this row range" without touching the coordinate stream.
//
// A row id r maps to chunk r/chunkSize; the in-chunk key r%chunkSize is
// what gets inserted into the leaf, so leaf bit patterns are independent
// of the chunk position.
type ChunkedFilter struct {
	filters   []*Filter
	chunkSize uint64
	totalRows uint64
}

// New allocates ceil(totalRows/chunkSize) leaf filters, each sized for
// chunkSize expected rows.
func New(totalRows, chunkSize uint64) (*ChunkedFilter, error) {
	return build(totalRows, chunkSize, func() *Filter { return New64(chunkSize) })
}

// NewWithHashCount pins the per-leaf hash count instead of deriving it
// from the chunk size.
func NewWithHashCount(totalRows, chunkSize uint64, hashCount uint8) (*ChunkedFilter, error) {
	return build(totalRows, chunkSize, func() *Filter { return NewWithHashCount(Size64, hashCount) })
}

func build(totalRows, chunkSize uint64, newLeaf func() *Filter) (*ChunkedFilter, error) {
	if chunkSize == 0 {
		return nil, fmt.Errorf("zero chunk size: %w", format.ErrInvalidChunk)
	}

	numChunks := (totalRows + chunkSize - 1) / chunkSize
	if numChunks > format.MaxChunkCount {
		return nil, fmt.Errorf("%d chunks exceeds %d: %w",
			numChunks, format.MaxChunkCount, format.ErrInvalidChunk)
	}

	filters := make([]*Filter, numChunks)
	for i := range filters {
		filters[i] = newLeaf()
	}

	return &ChunkedFilter{
		filters:   filters,
		chunkSize: chunkSize,
		totalRows: totalRows,
	}, nil
}

// ChunkSize returns the chunk width in rows.
func (c *ChunkedFilter) ChunkSize() uint64 { return c.chunkSize }

// TotalRows returns the row count the index was built for.
func (c *ChunkedFilter) TotalRows() uint64 { return c.totalRows }

// NumChunks returns the number of leaf filters.
func (c *ChunkedFilter) NumChunks() int { return len(c.filters) }

// Insert records a row id in its chunk's filter. Rows past the last
// chunk are ignored.
func (c *ChunkedFilter) Insert(row uint64) {
	chunk := row / c.chunkSize
	if chunk < uint64(len(c.filters)) {
		c.filters[chunk].Insert(row % c.chunkSize)
	}
}

// BulkInsertSorted inserts a non-decreasing slice of row ids.
//
// The slice is partitioned by chunk with binary search, and partitions
// are processed by a worker pool. Partitions never overlap, so each
// worker owns its leaf filter exclusively.
func (c *ChunkedFilter) BulkInsertSorted(rows []uint64) {
	if len(rows) == 0 {
		return
	}

	var g errgroup.Group

	g.SetLimit(runtime.GOMAXPROCS(0))

	lo := 0
	for lo < len(rows) {
		chunk := rows[lo] / c.chunkSize
		if chunk >= uint64(len(c.filters)) {
			break
		}

		chunkEnd := (chunk + 1) * c.chunkSize
		hi := lo + sort.Search(len(rows)-lo, func(i int) bool {
			return rows[lo+i] >= chunkEnd
		})

		part := rows[lo:hi]
		leaf := c.filters[chunk]

		g.Go(func() error {
			for _, row := range part {
				leaf.Insert(row % c.chunkSize)
			}

			return nil
		})

		lo = hi
	}

	// Workers never fail; the group is used purely for the pool.
	_ = g.Wait()
}

// MayContainRow probes the chunk filter for a single row.
func (c *ChunkedFilter) MayContainRow(row uint64) bool {
	chunk := row / c.chunkSize
	if chunk >= uint64(len(c.filters)) {
		return false
	}

	return c.filters[chunk].Contains(row % c.chunkSize)
}

// CandidateChunks returns the set of chunk ids whose filters report a
// possible hit for any row in [start, end). The result may include
// false positives; it never misses a chunk that holds an inserted row
// in the range.
func (c *ChunkedFilter) CandidateChunks(start, end uint64) *bitset.BitSet {
	candidates := bitset.New(uint(len(c.filters)))

	if start >= end || len(c.filters) == 0 {
		return candidates
	}

	startChunk := start / c.chunkSize
	endChunk := (end - 1) / c.chunkSize

	for chunk := startChunk; chunk <= endChunk; chunk++ {
		if chunk >= uint64(len(c.filters)) {
			break
		}

		chunkStart := chunk * c.chunkSize
		chunkEnd := min((chunk+1)*c.chunkSize, c.totalRows)

		probeStart := max(start, chunkStart)
		probeEnd := min(end, chunkEnd)

		for row := probeStart; row < probeEnd; row++ {
			if c.filters[chunk].Contains(row % c.chunkSize) {
				candidates.Set(uint(chunk))
				break
			}
		}
	}

	return candidates
}

// MayContainRange returns the candidate chunk ids for [start, end) in
// ascending order.
func (c *ChunkedFilter) MayContainRange(start, end uint64) []uint32 {
	candidates := c.CandidateChunks(start, end)
	chunks := make([]uint32, 0, candidates.Count())

	for i, ok := candidates.NextSet(0); ok; i, ok = candidates.NextSet(i + 1) {
		chunks = append(chunks, uint32(i))
	}

	return chunks
}

// SerializedSize returns the byte length Serialize will produce.
func (c *ChunkedFilter) SerializedSize() int {
	return chunkedHeaderSize + len(c.filters)*chunkedLeafSize
}

// Serialize encodes the index. The on-disk leaf is fixed at LeafSize
// bytes; indexes built from larger in-memory filters cannot be
// persisted.
func (c *ChunkedFilter) Serialize() ([]byte, error) {
	if c.chunkSize > math.MaxUint32 || c.totalRows > math.MaxUint32 {
		return nil, fmt.Errorf("chunk geometry %d/%d exceeds u32: %w",
			c.chunkSize, c.totalRows, format.ErrInvalidChunk)
	}

	buf := make([]byte, 0, c.SerializedSize())
	buf = binary.LittleEndian.AppendUint32(buf, uint32(c.chunkSize))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(c.totalRows))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.filters)))

	for _, f := range c.filters {
		if len(f.Bits()) != LeafSize {
			return nil, fmt.Errorf("leaf filter is %d bytes, want %d: %w",
				len(f.Bits()), LeafSize, format.ErrInvalidChunk)
		}

		buf = append(buf, f.HashCount())
		buf = append(buf, f.Bits()...)
	}

	return buf, nil
}

// Deserialize decodes an index produced by Serialize.
func Deserialize(data []byte) (*ChunkedFilter, error) {
	if len(data) < chunkedHeaderSize {
		return nil, fmt.Errorf("chunked filter needs %d bytes, got %d: %w",
			chunkedHeaderSize, len(data), format.ErrInvalidChunk)
	}

	chunkSize := uint64(binary.LittleEndian.Uint32(data[0:4]))
	totalRows := uint64(binary.LittleEndian.Uint32(data[4:8]))
	numChunks := int(binary.LittleEndian.Uint32(data[8:12]))

	if chunkSize == 0 || numChunks > format.MaxChunkCount {
		return nil, fmt.Errorf("chunk geometry %d/%d: %w", chunkSize, numChunks, format.ErrInvalidChunk)
	}

	// The block is exactly 12+9k bytes; anything shorter is truncated
	// and trailing bytes mean the chunk count lies about the payload.
	if len(data) != chunkedHeaderSize+numChunks*chunkedLeafSize {
		return nil, fmt.Errorf("chunked filter is %d bytes, want %d: %w",
			len(data), chunkedHeaderSize+numChunks*chunkedLeafSize, format.ErrInvalidChunk)
	}

	filters := make([]*Filter, numChunks)
	off := chunkedHeaderSize

	for i := range filters {
		filters[i] = FromBits(data[off+1:off+chunkedLeafSize], data[off])
		off += chunkedLeafSize
	}

	return &ChunkedFilter{
		filters:   filters,
		chunkSize: chunkSize,
		totalRows: totalRows,
	}, nil
}
