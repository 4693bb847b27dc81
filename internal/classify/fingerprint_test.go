package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprint_StableAndSixteenHexChars(t *testing.T) {
	raw := []byte(`{"classes":["a","b"]}`)
	h1 := Fingerprint(raw)
	h2 := Fingerprint(raw)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 16)
}

func TestFingerprint_DiffersOnDifferentInput(t *testing.T) {
	require.NotEqual(t, Fingerprint([]byte("a")), Fingerprint([]byte("b")))
}
