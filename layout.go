package bspc

import "github.com/drbh/bspc/format"

// fileLayout is the computed placement of the value and index regions.
// It is a pure function of (nnz, element size); the bloom and metadata
// extents are filled in once their sizes are known.
type fileLayout struct {
	valuesOffset   uint64
	valuesSize     uint64
	indices0Offset uint64
	indices0Size   uint64
	indices1Offset uint64
	indices1Size   uint64
	bloomOffset    uint64
}

// computeLayout places the regions in file order with overflow-checked
// arithmetic: values aligned to the element size straight after the
// header, then the two u32 index streams aligned to 4, then the bloom
// block.
func computeLayout(nnz, elemSize uint64) (fileLayout, error) {
	var l fileLayout

	var err error

	l.valuesOffset, err = format.AlignTo(format.HeaderSize, elemSize)
	if err != nil {
		return fileLayout{}, err
	}

	l.valuesSize, err = format.CheckedMul(nnz, elemSize)
	if err != nil {
		return fileLayout{}, err
	}

	valuesEnd, err := format.CheckedAdd(l.valuesOffset, l.valuesSize)
	if err != nil {
		return fileLayout{}, err
	}

	l.indices0Offset, err = format.AlignTo(valuesEnd, 4)
	if err != nil {
		return fileLayout{}, err
	}

	l.indices0Size, err = format.CheckedMul(nnz, 4)
	if err != nil {
		return fileLayout{}, err
	}

	indices0End, err := format.CheckedAdd(l.indices0Offset, l.indices0Size)
	if err != nil {
		return fileLayout{}, err
	}

	l.indices1Offset, err = format.AlignTo(indices0End, 4)
	if err != nil {
		return fileLayout{}, err
	}

	l.indices1Size = l.indices0Size

	l.bloomOffset, err = format.CheckedAdd(l.indices1Offset, l.indices1Size)
	if err != nil {
		return fileLayout{}, err
	}

	return l, nil
}
