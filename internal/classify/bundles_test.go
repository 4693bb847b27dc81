package classify

import (
	"testing"

	"github.com/nmemsh/nmem/internal/models"
	"github.com/stretchr/testify/require"
)

func TestLoad_AllDimensionsParse(t *testing.T) {
	for _, dim := range Dimensions() {
		bundle, hash, err := Load(dim)
		require.NoError(t, err, dim)
		require.Len(t, hash, 16, dim)
		require.Len(t, bundle.Classes, 2, dim)
	}
}

func TestLoad_UnknownDimensionErrors(t *testing.T) {
	_, _, err := Load("no-such-dimension")
	require.Error(t, err)
}

func TestLoad_CachesResult(t *testing.T) {
	_, hash1, err := Load(models.DimensionPhase)
	require.NoError(t, err)
	_, hash2, err := Load(models.DimensionPhase)
	require.NoError(t, err)
	require.Equal(t, hash1, hash2)
}
