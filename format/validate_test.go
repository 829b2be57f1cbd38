package format

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func Test_AlignTo_Rounds_Up_To_Boundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		offset   uint64
		boundary uint64
		want     uint64
	}{
		{0, 8, 0},
		{1, 8, 8},
		{7, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{15, 8, 16},
		{0, 4, 0},
		{3, 4, 4},
		{5, 4, 8},
		{160, 8, 160},
	}

	for _, tt := range tests {
		got, err := AlignTo(tt.offset, tt.boundary)
		if err != nil {
			t.Fatalf("AlignTo(%d, %d): %v", tt.offset, tt.boundary, err)
		}

		if got != tt.want {
			t.Errorf("AlignTo(%d, %d) = %d, want %d", tt.offset, tt.boundary, got, tt.want)
		}
	}
}

func Test_ValidateAlignmentBoundary_Accepts_Only_Powers_Of_Two(t *testing.T) {
	t.Parallel()

	for _, boundary := range []uint64{1, 2, 4, 8, 16, 4096} {
		if err := ValidateAlignmentBoundary(boundary); err != nil {
			t.Errorf("ValidateAlignmentBoundary(%d) = %v, want nil", boundary, err)
		}
	}

	for _, boundary := range []uint64{0, 3, 5, 6, 7, 12} {
		if err := ValidateAlignmentBoundary(boundary); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("ValidateAlignmentBoundary(%d) = %v, want %v", boundary, err, ErrInvalidRange)
		}
	}
}

func Test_AlignTo_Rejects_Offsets_Near_The_Ceiling(t *testing.T) {
	t.Parallel()

	_, err := AlignTo(math.MaxUint64-3, 8)
	if !errors.Is(err, ErrArraySizeOverflow) {
		t.Errorf("AlignTo = %v, want %v", err, ErrArraySizeOverflow)
	}
}

func Test_CheckedArithmetic_Detects_Wrap(t *testing.T) {
	t.Parallel()

	if _, err := CheckedAdd(math.MaxUint64, 1); !errors.Is(err, ErrArraySizeOverflow) {
		t.Errorf("CheckedAdd = %v, want %v", err, ErrArraySizeOverflow)
	}

	if _, err := CheckedMul(1<<33, 1<<33); !errors.Is(err, ErrArraySizeOverflow) {
		t.Errorf("CheckedMul = %v, want %v", err, ErrArraySizeOverflow)
	}

	sum, err := CheckedAdd(40, 2)
	if err != nil || sum != 42 {
		t.Errorf("CheckedAdd = (%d, %v), want (42, nil)", sum, err)
	}

	product, err := CheckedMul(6, 7)
	if err != nil || product != 42 {
		t.Errorf("CheckedMul = (%d, %v), want (42, nil)", product, err)
	}
}

func Test_ElementCount_Requires_Whole_Elements(t *testing.T) {
	t.Parallel()

	count, err := ElementCount(16, 4)
	if err != nil || count != 4 {
		t.Fatalf("ElementCount(16, 4) = (%d, %v), want (4, nil)", count, err)
	}

	count, err = ElementCount(0, 8)
	if err != nil || count != 0 {
		t.Fatalf("ElementCount(0, 8) = (%d, %v), want (0, nil)", count, err)
	}

	if _, err := ElementCount(15, 4); !errors.Is(err, ErrArrayAlignment) {
		t.Errorf("ElementCount(15, 4) = %v, want %v", err, ErrArrayAlignment)
	}
}

func Test_ParseRange_Accepts_Colon_And_Dash_Forms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in        string
		wantStart uint64
		wantEnd   uint64
	}{
		{"0:10", 0, 10},
		{"5:15", 5, 15},
		{"100:200", 100, 200},
		{"0-10", 0, 10},
		{"5-15", 5, 15},
		{"7:7", 7, 7},
	}

	for _, tt := range tests {
		start, end, err := ParseRange(tt.in)
		if err != nil {
			t.Fatalf("ParseRange(%q): %v", tt.in, err)
		}

		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("ParseRange(%q) = (%d, %d), want (%d, %d)",
				tt.in, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}

func Test_ParseRange_Rejects_Malformed_Input(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "10:5", "10", "abc:def", "10:", ":10", "-5", "1.5:2"} {
		if _, _, err := ParseRange(in); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("ParseRange(%q) = %v, want %v", in, err, ErrInvalidRange)
		}
	}

	if _, _, err := ParseRange("0:99999999999999999999"); !errors.Is(err, ErrArraySizeOverflow) {
		t.Errorf("ParseRange overflow = %v, want %v", err, ErrArraySizeOverflow)
	}
}

func Test_ValidateLabel_Enforces_Content_Rules(t *testing.T) {
	t.Parallel()

	for _, label := range []string{"gene_A", "row 12", "tab\there", "line\nbreak", "col-3"} {
		if err := ValidateLabel([]byte(label)); err != nil {
			t.Errorf("ValidateLabel(%q) = %v, want nil", label, err)
		}
	}

	invalid := [][]byte{
		{},
		[]byte("nul\x00byte"),
		[]byte("ctrl\x01byte"),
		bytes.Repeat([]byte("a"), MaxLabelLen+1),
	}

	for _, label := range invalid {
		if err := ValidateLabel(label); !errors.Is(err, ErrInvalidLabel) {
			t.Errorf("ValidateLabel(%.20q...) = %v, want %v", label, err, ErrInvalidLabel)
		}
	}
}
