// Package retrieval implements S8: full-text search and blended-score
// ranking over observations, per spec §4.S8. The blended formula and its
// constants are preserved verbatim per spec §9's open-question decision:
// they were tuned empirically and must stay comparable across versions.
package retrieval

import "github.com/nmemsh/nmem/internal/store"

// Blended-score weights and recency half-life, fixed per spec §4.S8/§9.
const (
	bm25Weight     = 0.5
	recencyWeight  = 0.3
	typeWeight     = 0.2
	recencyHalfLifeDays = 7.0
)

// typeWeights assigns a retrieval weight per obs_type, per spec §4.S8.
// Unlisted types fall back to the "_" catch-all weight.
var typeWeights = map[string]float64{
	"file_edit":        1.0,
	"command":          0.67,
	"session_compact":  0.5,
	"mcp_call":         0.33,
}

const defaultTypeWeight = 0.17

// TypeWeight returns the retrieval type weight for obsType.
func TypeWeight(obsType string) float64 {
	if w, ok := typeWeights[obsType]; ok {
		return w
	}
	return defaultTypeWeight
}

// Recency returns the exponential recency decay for an observation ageDays
// old, using the fixed 7-day half-life.
func Recency(ageDays float64) float64 {
	return store.ExpDecay(ageDays, recencyHalfLifeDays)
}

// BlendedScore combines a normalized BM25 rank, recency, and type weight
// into the final S8 ranking score: 0.5*bm25_norm + 0.3*recency + 0.2*type_w.
func BlendedScore(bm25Norm, ageDays float64, obsType string) float64 {
	return bm25Weight*bm25Norm + recencyWeight*Recency(ageDays) + typeWeight*TypeWeight(obsType)
}

// NormalizeRank linearly rescales a raw FTS rank (smaller is better) onto
// [0,1] with the best match (smallest rank) at 1.0 and the worst at 0.0.
// Returns a constant 1.0 when every candidate tied (min == max).
func NormalizeRank(rank, min, max float64) float64 {
	if max == min {
		return 1.0
	}
	return (max - rank) / (max - min)
}
