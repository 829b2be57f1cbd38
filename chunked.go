package bspc

import (
	"fmt"

	"github.com/drbh/bspc/bloom"
	"github.com/drbh/bspc/format"
)

// ChunkConfig tunes the chunk-level bloom index and the memory budget
// for chunked processing.
type ChunkConfig struct {
	// MemoryLimitMB bounds per-chunk memory for streaming processors.
	MemoryLimitMB uint32 `json:"memory_limit_mb"`

	// BloomHashCount is the number of hash functions per leaf filter,
	// in [1, 8].
	BloomHashCount uint8 `json:"bloom_hash_count"`

	// ChunkSize is the bloom partition width in rows.
	ChunkSize uint32 `json:"chunk_size"`
}

// DefaultChunkConfig returns the standard configuration: 128 MiB,
// 3 hashes, 100k-row chunks.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MemoryLimitMB:  128,
		BloomHashCount: 3,
		ChunkSize:      100_000,
	}
}

// Validate rejects configurations the bloom index cannot represent.
func (c ChunkConfig) Validate() error {
	if c.ChunkSize == 0 {
		return fmt.Errorf("zero chunk size: %w", format.ErrInvalidChunk)
	}

	if c.BloomHashCount < bloom.MinHashCount || c.BloomHashCount > bloom.MaxHashCount {
		return fmt.Errorf("bloom hash count %d outside [%d, %d]: %w",
			c.BloomHashCount, bloom.MinHashCount, bloom.MaxHashCount, format.ErrInvalidChunk)
	}

	return nil
}

// OptimalChunkSize picks a chunk width from the matrix shape and the
// typical query span: smaller chunks for very sparse matrices where
// filtering pays off, larger ones for dense data.
func OptimalChunkSize(matrixRows, nnz, typicalQuerySize uint64) uint64 {
	base := max(typicalQuerySize, 1000) * 2

	if matrixRows == 0 {
		return base
	}

	density := float64(nnz) / float64(matrixRows)

	switch {
	case density < 0.01:
		return min(base, 50_000)
	case density > 0.1:
		return max(base, 200_000)
	default:
		return min(max(base, 50_000), 200_000)
	}
}

// ChunkedMatrix composes a dynamic reader with a ChunkConfig and routes
// point queries through the bloom index. Row iterators give streaming
// collaborators per-row lazy views.
type ChunkedMatrix struct {
	matrix *DynamicMatrix
	config ChunkConfig
}

// OpenChunked opens path with the given configuration.
func OpenChunked(path string, cfg ChunkConfig) (*ChunkedMatrix, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	matrix, err := OpenDynamic(path)
	if err != nil {
		return nil, err
	}

	return &ChunkedMatrix{matrix: matrix, config: cfg}, nil
}

// NewChunkedMatrix wraps an already-open dynamic reader.
func NewChunkedMatrix(matrix *DynamicMatrix, cfg ChunkConfig) (*ChunkedMatrix, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &ChunkedMatrix{matrix: matrix, config: cfg}, nil
}

// Close releases the underlying reader.
func (c *ChunkedMatrix) Close() error { return c.matrix.Close() }

// Matrix returns the underlying dynamic reader.
func (c *ChunkedMatrix) Matrix() *DynamicMatrix { return c.matrix }

// Config returns the chunk configuration.
func (c *ChunkedMatrix) Config() ChunkConfig { return c.config }

// Dimensions returns (nrows, ncols).
func (c *ChunkedMatrix) Dimensions() (uint64, uint64) { return c.matrix.Dimensions() }

// Nnz returns the number of stored elements.
func (c *ChunkedMatrix) Nnz() uint64 { return c.matrix.Nnz() }

// GetElement returns the stored value at (row, col). The bloom index is
// probed first so point queries on empty rows skip the stream scan.
func (c *ChunkedMatrix) GetElement(row, col uint64) (Value, bool, error) {
	mayContain, err := c.matrix.MayContainRow(row)
	if err != nil {
		return Value{}, false, err
	}

	if !mayContain {
		if col >= c.matrix.Header().Ncols {
			return Value{}, false, fmt.Errorf("col %d of %d: %w",
				col, c.matrix.Header().Ncols, format.ErrIndexOutOfBounds)
		}

		return Value{}, false, nil
	}

	return c.matrix.GetElement(row, col)
}

// MayContainRow probes the bloom index.
func (c *ChunkedMatrix) MayContainRow(row uint64) (bool, error) {
	return c.matrix.MayContainRow(row)
}

// RowView forwards to the underlying reader.
func (c *ChunkedMatrix) RowView(row uint64, fn func(col uint64, v Value) bool) error {
	return c.matrix.RowView(row, fn)
}

// ColView forwards to the underlying reader.
func (c *ChunkedMatrix) ColView(col uint64, fn func(row uint64, v Value) bool) error {
	return c.matrix.ColView(col, fn)
}

// RowRangeView forwards to the underlying reader.
func (c *ChunkedMatrix) RowRangeView(start, end uint64, fn func(row, col uint64, v Value) bool) error {
	return c.matrix.RowRangeView(start, end, fn)
}

// RowLabel forwards to the underlying reader.
func (c *ChunkedMatrix) RowLabel(i uint64) ([]byte, error) { return c.matrix.RowLabel(i) }

// ColLabel forwards to the underlying reader.
func (c *ChunkedMatrix) ColLabel(i uint64) ([]byte, error) { return c.matrix.ColLabel(i) }

// RowHandle is a lazy view of a single row.
type RowHandle struct {
	matrix *DynamicMatrix
	row    uint64
}

// Row returns the row id the handle refers to.
func (r RowHandle) Row() uint64 { return r.row }

// MayContain probes the bloom index for the row.
func (r RowHandle) MayContain() (bool, error) { return r.matrix.MayContainRow(r.row) }

// Each calls fn for every stored (col, value) pair of the row.
func (r RowHandle) Each(fn func(col uint64, v Value) bool) error {
	return r.matrix.RowView(r.row, fn)
}

// Rows calls fn with a lazy handle for every row of the matrix, in
// ascending order. fn returns false to stop.
func (c *ChunkedMatrix) Rows(fn func(RowHandle) bool) error {
	nrows, _ := c.matrix.Dimensions()

	return c.RowsRange(0, nrows, fn)
}

// RowsRange calls fn with a lazy handle for every row in [start, end).
func (c *ChunkedMatrix) RowsRange(start, end uint64, fn func(RowHandle) bool) error {
	nrows, _ := c.matrix.Dimensions()
	if start > end || end > nrows {
		return fmt.Errorf("row range [%d, %d) of %d: %w", start, end, nrows, format.ErrInvalidRange)
	}

	for row := start; row < end; row++ {
		if !fn(RowHandle{matrix: c.matrix, row: row}) {
			return nil
		}
	}

	return nil
}
