package bspc

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drbh/bspc/format"
)

// readAndPatchHeader loads a file, applies mutate to its decoded header,
// and returns the file bytes with the header re-encoded in place.
func readAndPatchHeader(t *testing.T, path string, mutate func(*format.Header)) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	header, err := format.DecodeHeader(data)
	require.NoError(t, err)

	mutate(&header)
	copy(data, format.EncodeHeader(header))

	return data
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, data, 0o644))
}
