package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestBundle_Classify_ComputesExpectedProbability(t *testing.T) {
	bundle := Bundle{
		Classes: [2]string{"neg", "pos"},
		Word: Vectorizer{
			Vocabulary:  map[string]int{"foo": 0, "bar": 1},
			IDF:         []float64{2.0, 3.0},
			Weights:     []float64{1.0, -1.0},
			NgramRange:  [2]int{1, 1},
			Binary:      false,
			SublinearTF: boolPtr(false),
		},
		Char: Vectorizer{
			Vocabulary: map[string]int{},
			NgramRange: [2]int{3, 3},
		},
		Bias: 0.5,
	}

	label, p := bundle.Classify("foo foo bar")
	require.Equal(t, "pos", label)
	require.InDelta(t, 0.6682, p, 0.001)
}

func TestBundle_Classify_NoVocabMatchIsNeutral(t *testing.T) {
	bundle := Bundle{
		Classes: [2]string{"neg", "pos"},
		Word: Vectorizer{
			Vocabulary: map[string]int{"foo": 0},
			IDF:        []float64{2.0},
			Weights:    []float64{1.0},
			NgramRange: [2]int{1, 1},
		},
		Char: Vectorizer{Vocabulary: map[string]int{}, NgramRange: [2]int{3, 3}},
		Bias: 0,
	}

	label, p := bundle.Classify("completely unrelated text")
	require.Equal(t, "neg", label)
	require.InDelta(t, 0.5, p, 1e-9)
}

func TestBundle_Classify_BinaryTFIgnoresCount(t *testing.T) {
	bundle := Bundle{
		Classes: [2]string{"neg", "pos"},
		Word: Vectorizer{
			Vocabulary: map[string]int{"foo": 0},
			IDF:        []float64{1.0},
			Weights:    []float64{1.0},
			NgramRange: [2]int{1, 1},
			Binary:     true,
		},
		Char: Vectorizer{Vocabulary: map[string]int{}, NgramRange: [2]int{3, 3}},
		Bias: 0,
	}

	_, pOnce := bundle.Classify("foo")
	_, pMany := bundle.Classify("foo foo foo foo")
	require.InDelta(t, pOnce, pMany, 1e-9)
}

func TestParseBundle_RoundTrips(t *testing.T) {
	raw := []byte(`{"classes":["a","b"],"word":{"vocabulary":{"x":0},"idf":[1.0],"weights":[0.5],"ngram_range":[1,1],"binary":false,"sublinear_tf":true},"char":{"vocabulary":{},"idf":[],"weights":[],"ngram_range":[3,3],"binary":false},"bias":0.1}`)
	b, err := ParseBundle(raw)
	require.NoError(t, err)
	require.Equal(t, [2]string{"a", "b"}, b.Classes)
	require.Equal(t, 0.1, b.Bias)
	require.True(t, b.Word.sublinear())
	require.True(t, b.Char.sublinear()) // absent sublinear_tf defaults to true
}
