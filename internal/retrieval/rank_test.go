package retrieval

import (
	"math"
	"testing"
)

func TestTypeWeight(t *testing.T) {
	cases := map[string]float64{
		"file_edit":       1.0,
		"command":         0.67,
		"session_compact": 0.5,
		"mcp_call":        0.33,
		"tool_other":      0.17,
		"":                0.17,
	}
	for obsType, want := range cases {
		if got := TypeWeight(obsType); math.Abs(got-want) > 1e-9 {
			t.Errorf("TypeWeight(%q) = %v, want %v", obsType, got, want)
		}
	}
}

func TestNormalizeRank(t *testing.T) {
	if got := NormalizeRank(5, 5, 5); got != 1.0 {
		t.Errorf("all-equal ranks should normalize to 1.0, got %v", got)
	}
	if got := NormalizeRank(0, 0, 10); got != 1.0 {
		t.Errorf("best rank (min) should normalize to 1.0, got %v", got)
	}
	if got := NormalizeRank(10, 0, 10); got != 0.0 {
		t.Errorf("worst rank (max) should normalize to 0.0, got %v", got)
	}
	if got := NormalizeRank(5, 0, 10); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("midpoint rank should normalize to 0.5, got %v", got)
	}
}

func TestBlendedScore_WeightsSumToOne(t *testing.T) {
	if math.Abs((bm25Weight+recencyWeight+typeWeight)-1.0) > 1e-9 {
		t.Errorf("blended score weights must sum to 1.0: %v+%v+%v", bm25Weight, recencyWeight, typeWeight)
	}
}

func TestBlendedScore_MonotonicInRecency(t *testing.T) {
	fresher := BlendedScore(0.5, 0, "command")
	older := BlendedScore(0.5, 30, "command")
	if fresher <= older {
		t.Errorf("a fresher observation should score higher: fresh=%v old=%v", fresher, older)
	}
}

func TestRecency_HalfLife(t *testing.T) {
	got := Recency(recencyHalfLifeDays)
	if math.Abs(got-0.5) > 1e-6 {
		t.Errorf("recency at exactly one half-life should be ~0.5, got %v", got)
	}
}
