package classify

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nmemsh/nmem/internal/models"
	"github.com/nmemsh/nmem/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.InitDBWithPath(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestClassify_ReturnsLabelAndRegistersRun(t *testing.T) {
	db := newTestDB(t)
	label, err := Classify(db, models.DimensionPhase, "run the deploy script", 1000)
	require.NoError(t, err)
	require.Equal(t, models.DimensionPhase, label.Dimension)
	require.NotZero(t, label.RunID)
	require.NotEmpty(t, label.Value)
}

func TestClassify_ReusesClassifierRunOnSecondCall(t *testing.T) {
	db := newTestDB(t)
	first, err := Classify(db, models.DimensionPhase, "content one", 1000)
	require.NoError(t, err)
	second, err := Classify(db, models.DimensionPhase, "content two", 2000)
	require.NoError(t, err)
	require.Equal(t, first.RunID, second.RunID)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM classifier_runs`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestClassifyAll_RunsEveryDimension(t *testing.T) {
	db := newTestDB(t)
	labels, err := ClassifyAll(db, "investigate the failing test", 1000)
	require.NoError(t, err)
	require.Len(t, labels, len(Dimensions()))
}
