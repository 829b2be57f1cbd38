package bspc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"

	"github.com/google/renameio"
	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/drbh/bspc/bloom"
	"github.com/drbh/bspc/format"
)

// Serialization chunks shrink above this nnz so the worker pool can
// steal work; below it larger chunks keep the per-chunk overhead down.
const largeWriteThreshold = 50_000_000

// chunkBuffers holds one partition's serialized byte streams.
type chunkBuffers struct {
	values []byte
	rows   []byte
	cols   []byte
}

// Write produces a complete .bspc file in one pass.
//
// Triples should be grouped by row; arbitrary order is tolerated but
// loses the fast bulk path of the bloom build. Serialization of the
// three streams runs on a worker pool while the bloom index is built
// concurrently; assembly then streams the buffers into a temp file that
// is atomically renamed over path, so readers observe either the
// complete file or no file at all.
//
// The context is honored at the serialization/assembly boundary:
// cancellation before assembly leaves no file behind.
func Write[T Element](ctx context.Context, path string, nrows, ncols uint64, triples []Triple[T], cfg ChunkConfig) error {
	return write(ctx, path, nrows, ncols, triples, nil, nil, 0, cfg)
}

// WriteWithLabels is Write plus a metadata section carrying fixed-stride
// row and column labels.
func WriteWithLabels[T Element](
	ctx context.Context,
	path string,
	nrows, ncols uint64,
	triples []Triple[T],
	rowLabels, colLabels [][]byte,
	stride uint32,
	cfg ChunkConfig,
) error {
	return write(ctx, path, nrows, ncols, triples, rowLabels, colLabels, stride, cfg)
}

func write[T Element](
	ctx context.Context,
	path string,
	nrows, ncols uint64,
	triples []Triple[T],
	rowLabels, colLabels [][]byte,
	stride uint32,
	cfg ChunkConfig,
) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if nrows == 0 || ncols == 0 {
		return fmt.Errorf("empty dimensions %dx%d: %w", nrows, ncols, format.ErrInvalidHeader)
	}

	capacity, err := format.CheckedMul(nrows, ncols)
	if err != nil {
		return err
	}

	nnz := uint64(len(triples))
	if nnz > capacity {
		return fmt.Errorf("%d triples exceed %dx%d: %w", nnz, nrows, ncols, format.ErrInvalidHeader)
	}

	// Labels are validated before any serialization work starts.
	var metadata []byte
	if len(rowLabels) > 0 || len(colLabels) > 0 {
		metadata, err = NewMetadataBuilder(stride).
			WithRowLabels(rowLabels).
			WithColLabels(colLabels).
			Build()
		if err != nil {
			return err
		}
	}

	layout, err := computeLayout(nnz, elementSize[T]())
	if err != nil {
		return err
	}

	buffers, bloomData, err := serializeParallel(ctx, nrows, ncols, triples, cfg)
	if err != nil {
		return err
	}

	// Phase boundary: cancellation here leaves no file on disk.
	if err := ctx.Err(); err != nil {
		return err
	}

	header := format.NewHeader(format.Coo, dataTypeOf[T]())
	header.Nrows = nrows
	header.Ncols = ncols
	header.Nnz = nnz
	header.ValuesOffset = layout.valuesOffset
	header.ValuesSize = layout.valuesSize
	header.Indices0Offset = layout.indices0Offset
	header.Indices0Size = layout.indices0Size
	header.Indices1Offset = layout.indices1Offset
	header.Indices1Size = layout.indices1Size
	header.BloomOffset = layout.bloomOffset
	header.BloomSize = uint64(len(bloomData))

	if len(metadata) > 0 {
		bloomEnd, err := format.CheckedAdd(layout.bloomOffset, uint64(len(bloomData)))
		if err != nil {
			return err
		}

		metadataOffset, err := format.AlignTo(bloomEnd, format.AlignmentBoundary)
		if err != nil {
			return err
		}

		header.MetadataOffset = metadataOffset
		header.MetadataSize = uint64(len(metadata))
	}

	return assemble(path, header, buffers, bloomData, metadata)
}

// partitionSize picks the serialization chunk length for the worker pool.
func partitionSize(nnz uint64) uint64 {
	workers := uint64(runtime.GOMAXPROCS(0))
	if nnz > largeWriteThreshold {
		workers *= 4
	}

	size := (nnz + workers - 1) / workers
	if size == 0 {
		size = 1
	}

	return size
}

// serializeParallel fans the triples out to serialization workers and
// builds the bloom index concurrently. Workers write disjoint buffers;
// nothing is shared until the group is collected.
func serializeParallel[T Element](
	ctx context.Context,
	nrows, ncols uint64,
	triples []Triple[T],
	cfg ChunkConfig,
) ([]chunkBuffers, []byte, error) {
	elemSize := elementSize[T]()
	chunkLen := int(partitionSize(uint64(len(triples))))

	numChunks := 0
	if len(triples) > 0 {
		numChunks = (len(triples) + chunkLen - 1) / chunkLen
	}

	buffers := make([]chunkBuffers, numChunks)

	var bloomData []byte

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0) + 1)

	for i := range numChunks {
		part := triples[i*chunkLen : min((i+1)*chunkLen, len(triples))]
		out := &buffers[i]

		g.Go(func() error {
			out.values = make([]byte, 0, uint64(len(part))*elemSize)
			out.rows = make([]byte, 0, len(part)*4)
			out.cols = make([]byte, 0, len(part)*4)

			for _, t := range part {
				if uint64(t.Row) >= nrows || uint64(t.Col) >= ncols {
					return fmt.Errorf("triple (%d, %d) outside %dx%d: %w",
						t.Row, t.Col, nrows, ncols, format.ErrIndexOutOfBounds)
				}

				out.values = appendElement(out.values, t.Value)
				out.rows = appendUint32LE(out.rows, t.Row)
				out.cols = appendUint32LE(out.cols, t.Col)
			}

			return nil
		})
	}

	g.Go(func() error {
		index, err := buildBloomIndex(nrows, triples, cfg)
		if err != nil {
			return err
		}

		bloomData, err = index.Serialize()

		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return buffers, bloomData, nil
}

func appendUint32LE(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// buildBloomIndex inserts every distinct row id into the chunked index.
// Row-sorted input takes the partitioned bulk path; unsorted input falls
// back to per-row inserts, which are idempotent.
func buildBloomIndex[T Element](nrows uint64, triples []Triple[T], cfg ChunkConfig) (*bloom.ChunkedFilter, error) {
	index, err := bloom.NewWithHashCount(nrows, uint64(cfg.ChunkSize), cfg.BloomHashCount)
	if err != nil {
		return nil, err
	}

	sorted := sort.SliceIsSorted(triples, func(i, j int) bool {
		return triples[i].Row < triples[j].Row
	})

	if !sorted {
		for _, t := range triples {
			index.Insert(uint64(t.Row))
		}

		return index, nil
	}

	uniqueRows := make([]uint64, 0, min(len(triples), 1024))
	for i, t := range triples {
		if i == 0 || t.Row != triples[i-1].Row {
			uniqueRows = append(uniqueRows, uint64(t.Row))
		}
	}

	index.BulkInsertSorted(uniqueRows)

	return index, nil
}

// assemble streams the file regions in order into a temp file and
// atomically renames it over path.
func assemble(path string, header format.Header, buffers []chunkBuffers, bloomData, metadata []byte) error {
	t, err := renameio.TempFile("", path)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	defer func() { _ = t.Cleanup() }()

	w := &countingWriter{w: t}

	if _, err := w.Write(format.EncodeHeader(header)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if err := w.padTo(header.ValuesOffset); err != nil {
		return err
	}

	for i := range buffers {
		if _, err := w.Write(buffers[i].values); err != nil {
			return fmt.Errorf("write values: %w", err)
		}
	}

	if err := w.padTo(header.Indices0Offset); err != nil {
		return err
	}

	for i := range buffers {
		if _, err := w.Write(buffers[i].rows); err != nil {
			return fmt.Errorf("write row indices: %w", err)
		}
	}

	if err := w.padTo(header.Indices1Offset); err != nil {
		return err
	}

	for i := range buffers {
		if _, err := w.Write(buffers[i].cols); err != nil {
			return fmt.Errorf("write col indices: %w", err)
		}
	}

	if _, err := w.Write(bloomData); err != nil {
		return fmt.Errorf("write bloom index: %w", err)
	}

	if len(metadata) > 0 {
		if err := w.padTo(header.MetadataOffset); err != nil {
			return err
		}

		if _, err := w.Write(metadata); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}
	}

	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}

// countingWriter tracks the file position so regions can be zero-padded
// to their aligned offsets.
type countingWriter struct {
	w   io.Writer
	pos uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.pos += uint64(n)

	return n, err
}

func (c *countingWriter) padTo(offset uint64) error {
	if offset < c.pos {
		return fmt.Errorf("pad target %d behind position %d: %w", offset, c.pos, format.ErrInvalidRange)
	}

	if offset == c.pos {
		return nil
	}

	if _, err := c.Write(make([]byte, offset-c.pos)); err != nil {
		return fmt.Errorf("write padding: %w", err)
	}

	return nil
}

// AddLabels appends a metadata section to an already-written file.
//
// The header is patched with the new 8-aligned metadata region and the
// result replaces path atomically; every other region stays
// byte-identical. Files that already carry metadata are rejected: the
// format permits no in-place mutation.
func AddLabels(path string, rowLabels, colLabels [][]byte, stride uint32) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	header, err := format.DecodeHeader(data)
	if err != nil {
		return err
	}

	if _, _, ok := header.MetadataRegion(); ok {
		return fmt.Errorf("%s already has metadata: %w", path, format.ErrInvalidMetadata)
	}

	metadata, err := NewMetadataBuilder(stride).
		WithRowLabels(rowLabels).
		WithColLabels(colLabels).
		Build()
	if err != nil {
		return err
	}

	metadataOffset, err := format.AlignTo(uint64(len(data)), format.AlignmentBoundary)
	if err != nil {
		return err
	}

	header.MetadataOffset = metadataOffset
	header.MetadataSize = uint64(len(metadata))

	patched := make([]byte, 0, metadataOffset+uint64(len(metadata)))
	patched = append(patched, format.EncodeHeader(header)...)
	patched = append(patched, data[format.HeaderSize:]...)
	patched = append(patched, make([]byte, metadataOffset-uint64(len(data)))...)
	patched = append(patched, metadata...)

	if err := atomic.WriteFile(path, bytes.NewReader(patched)); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}
