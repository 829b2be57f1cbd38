package format

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func Test_MetadataHeader_RoundTrips_Through_Encode_And_Decode(t *testing.T) {
	t.Parallel()

	h := MetadataHeader{
		Version:       MetadataVersion,
		RowLabelsOff:  40,
		RowLabelsSize: 104,
		ColLabelsOff:  144,
		ColLabelsSize: 104,
	}

	decoded, err := DecodeMetadataHeader(EncodeMetadataHeader(h))
	if err != nil {
		t.Fatalf("DecodeMetadataHeader: %v", err)
	}

	if diff := cmp.Diff(h, decoded); diff != "" {
		t.Errorf("metadata header mismatch (-want +got):\n%s", diff)
	}
}

func Test_DecodeMetadataHeader_Rejects_Invalid_Input(t *testing.T) {
	t.Parallel()

	valid := EncodeMetadataHeader(MetadataHeader{Version: MetadataVersion})

	short := make([]byte, MetadataHeaderSize-1)
	if _, err := DecodeMetadataHeader(short); !errors.Is(err, ErrInsufficientBuffer) {
		t.Errorf("short buffer = %v, want %v", err, ErrInsufficientBuffer)
	}

	badMagic := append([]byte(nil), valid...)
	copy(badMagic, "XXXX")

	if _, err := DecodeMetadataHeader(badMagic); !errors.Is(err, ErrInvalidMetadata) {
		t.Errorf("bad magic = %v, want %v", err, ErrInvalidMetadata)
	}

	badVersion := append([]byte(nil), valid...)
	badVersion[4] = 9

	if _, err := DecodeMetadataHeader(badVersion); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("bad version = %v, want %v", err, ErrUnsupportedFormat)
	}
}

func Test_LabelArrayHeader_RoundTrips_And_Validates_Stride(t *testing.T) {
	t.Parallel()

	h := LabelArrayHeader{Count: 3, Stride: 32}

	decoded, err := DecodeLabelArrayHeader(EncodeLabelArrayHeader(h))
	if err != nil {
		t.Fatalf("DecodeLabelArrayHeader: %v", err)
	}

	if decoded != h {
		t.Errorf("decoded = %+v, want %+v", decoded, h)
	}

	if decoded.DataSize() != 96 {
		t.Errorf("DataSize = %d, want 96", decoded.DataSize())
	}

	for _, stride := range []uint32{0, MaxLabelStride + 1} {
		buf := EncodeLabelArrayHeader(LabelArrayHeader{Count: 1, Stride: stride})
		if _, err := DecodeLabelArrayHeader(buf); !errors.Is(err, ErrInvalidMetadata) {
			t.Errorf("stride %d = %v, want %v", stride, err, ErrInvalidMetadata)
		}
	}
}

func Test_Kind_Categories_Follow_The_Code_Bands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want Category
	}{
		{KindInvalidHeader, CategoryProtocol},
		{KindCorruptedData, CategoryProtocol},
		{KindIndexOutOfBounds, CategoryBoundary},
		{KindInsufficientBuffer, CategoryBoundary},
		{KindInvalidRange, CategorySemantic},
		{KindInvalidChunk, CategorySemantic},
	}

	for _, tt := range tests {
		if got := tt.kind.Category(); got != tt.want {
			t.Errorf("%v.Category() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
