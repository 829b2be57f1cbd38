// Package bspc reads and writes BSPC files, an on-disk container format
// for very large sparse matrices.
//
// A .bspc file holds a fixed 160-byte header, the non-zero value stream,
// two coordinate index streams, an optional chunk-level bloom index, and
// an optional label metadata section. All regions are little-endian and
// aligned for their element type, so readers map the file and build
// typed views directly over the bytes.
//
// # Reading
//
//	m, err := bspc.Open[float64]("matrix.bspc")
//	if err != nil {
//	    // classify with errors.Is against the format package sentinels
//	}
//	defer m.Close()
//
//	v, ok, err := m.GetElement(0, 2)
//
// When the element type is only known at runtime, use [OpenDynamic]; its
// queries surface values as [Value]. For bloom-accelerated access with a
// memory budget, use [OpenChunked].
//
// # Writing
//
// [Write] produces a complete file in one pass: layout computation,
// parallel serialization of the three streams, a concurrently built
// bloom index, and sequential assembly into a temp file that is renamed
// into place. Readers therefore observe either the complete file or no
// file at all.
//
// # Concurrency
//
// Readers are safe for concurrent use; all state is immutable after
// Open. Writers are one-shot functions with no shared state.
package bspc
