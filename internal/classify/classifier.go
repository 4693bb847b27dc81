package classify

import (
	"fmt"

	"github.com/nmemsh/nmem/internal/store"
)

// Label is one dimension's classification result: the predicted class and
// the classifier_run id it was produced under.
type Label struct {
	Dimension string
	Value     string
	RunID     int64
}

// Classify scores content against dimension's bundle and registers (or
// reuses) the backing classifier_run row, per spec §4.S4.
func Classify(q store.Querier, dimension, content string, now int64) (Label, error) {
	bundle, hash, err := Load(dimension)
	if err != nil {
		return Label{}, fmt.Errorf("classify %s: %w", dimension, err)
	}

	value, _ := bundle.Classify(content)

	runID, err := store.RegisterClassifierRun(q, dimension, hash, now)
	if err != nil {
		return Label{}, fmt.Errorf("classify %s: %w", dimension, err)
	}

	return Label{Dimension: dimension, Value: value, RunID: runID}, nil
}

// ClassifyAll runs every per-observation dimension (spec §4.S4's "fifth
// dimension is reserved at the episode level" excludes friction here)
// against content, used by S5 on observation insert.
func ClassifyAll(q store.Querier, content string, now int64) ([]Label, error) {
	labels := make([]Label, 0, len(Dimensions()))
	for _, dim := range Dimensions() {
		label, err := Classify(q, dim, content, now)
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, nil
}
