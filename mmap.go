package bspc

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/drbh/bspc/format"
)

// mapping owns a read-only memory map of a whole file. All typed views
// borrow from data and must not be used after Close.
type mapping struct {
	data []byte
}

// mapFile maps path read-only. The file descriptor is closed before
// returning; the mapping keeps the pages alive.
func mapFile(path string) (*mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	size := info.Size()
	if size < format.HeaderSize {
		return nil, fmt.Errorf("file %s is %d bytes: %w", path, size, format.ErrInsufficientBuffer)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &mapping{data: data}, nil
}

// slice returns the byte window [offset, offset+size) with
// overflow-checked bounds.
func (m *mapping) slice(offset, size uint64) ([]byte, error) {
	end, err := format.CheckedAdd(offset, size)
	if err != nil {
		return nil, err
	}

	if end > uint64(len(m.data)) {
		return nil, fmt.Errorf("region [%d, %d) exceeds mapping of %d bytes: %w",
			offset, end, len(m.data), format.ErrInvalidHeader)
	}

	return m.data[offset:end], nil
}

// close releases the mapping. Safe to call once; views become invalid.
func (m *mapping) close() error {
	if m.data == nil {
		return nil
	}

	data := m.data
	m.data = nil

	return unix.Munmap(data)
}

// typedSlice reinterprets a byte window as a []T after validating that
// the length divides into whole elements and the base pointer is
// naturally aligned. The returned slice borrows from b.
func typedSlice[T Element](b []byte) ([]T, error) {
	elemSize := elementSize[T]()

	count, err := format.ElementCount(uint64(len(b)), elemSize)
	if err != nil {
		return nil, err
	}

	if count == 0 {
		return nil, nil
	}

	ptr := unsafe.Pointer(&b[0])
	if err := format.ValidatePointerAlignment(uintptr(ptr), elemSize); err != nil {
		return nil, err
	}

	return unsafe.Slice((*T)(ptr), count), nil
}
