package classify

import (
	"encoding/json"
	"fmt"
	"math"
)

// Vectorizer is one of a bundle's word or char_wb vectorizers.
type Vectorizer struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	Weights     []float64      `json:"weights"`
	NgramRange  [2]int         `json:"ngram_range"`
	Binary      bool           `json:"binary"`
	SublinearTF *bool          `json:"sublinear_tf"`
}

// sublinear reports the effective sublinear_tf flag; the field defaults to
// true when absent, per spec §4.S4.
func (v Vectorizer) sublinear() bool {
	if v.SublinearTF == nil {
		return true
	}
	return *v.SublinearTF
}

// Bundle is one classifier dimension's exported model, per spec §4.S4.
type Bundle struct {
	Classes [2]string  `json:"classes"`
	Word    Vectorizer `json:"word"`
	Char    Vectorizer `json:"char"`
	Bias    float64    `json:"bias"`
}

// ParseBundle decodes a classifier bundle from its exported JSON form.
func ParseBundle(raw []byte) (Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return Bundle{}, fmt.Errorf("parse classifier bundle: %w", err)
	}
	return b, nil
}

// score computes one vectorizer's contribution: tokenize, compute tf-idf
// per matching n-gram, L2-normalize the sparse vector, dot with weights.
func (v Vectorizer) score(ngrams []string) float64 {
	counts := make(map[int]int)
	for _, g := range ngrams {
		idx, ok := v.Vocabulary[g]
		if !ok {
			continue
		}
		counts[idx]++
	}
	if len(counts) == 0 {
		return 0
	}

	tfidf := make(map[int]float64, len(counts))
	var sumSquares float64
	for idx, count := range counts {
		var tf float64
		switch {
		case v.Binary:
			tf = 1
		case v.sublinear():
			tf = math.Log(float64(count) + 1)
		default:
			tf = float64(count)
		}
		idf := 1.0
		if idx < len(v.IDF) {
			idf = v.IDF[idx]
		}
		w := tf * idf
		tfidf[idx] = w
		sumSquares += w * w
	}

	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return 0
	}

	var dot float64
	for idx, w := range tfidf {
		normed := w / norm
		if idx < len(v.Weights) {
			dot += normed * v.Weights[idx]
		}
	}
	return dot
}

// Classify scores content against the bundle and returns the predicted
// class and its probability, per spec §4.S4's scoring algorithm.
func (b Bundle) Classify(content string) (label string, probability float64) {
	words := wordTokens(content)
	wordGrams := wordNgrams(words, orDefault(b.Word.NgramRange[0], 1), orDefault(b.Word.NgramRange[1], 1))
	charGrams := charNgrams(content, orDefault(b.Char.NgramRange[0], 3), orDefault(b.Char.NgramRange[1], 3))

	raw := b.Word.score(wordGrams) + b.Char.score(charGrams) + b.Bias
	p := sigmoid(raw)

	if p >= 0.5 {
		return b.Classes[1], p
	}
	return b.Classes[0], 1 - p
}

func orDefault(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
