// Package retrieval provides hybrid (keyword + semantic) retrieval of CV
// chunks and score fusion.
package retrieval

import (
	"sort"

	"github.com/hyperjump/rirekisho/internal/keyword"
	"github.com/hyperjump/rirekisho/internal/vector"
)

// FusedHit holds a chunk ID and fused keyword/semantic scores.
type FusedHit struct {
	ChunkID       string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// NormalizeKeywordScores normalizes BM25 scores to [0,1] by dividing by the max.
func NormalizeKeywordScores(results []*keyword.KeywordResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// NormalizeSemanticScores returns semantic scores as-is; cosine similarity over
// unit vectors is already 0-1.
func NormalizeSemanticScores(results []*vector.VectorResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	for _, r := range results {
		normalized[r.ID] = r.Score
	}
	return normalized
}

// Fuse merges keyword and semantic score maps with weights and returns hits
// sorted by fused score. Ties break on chunk ID so ordering is deterministic
// across runs, which the answer cache fingerprint depends on.
func Fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []*FusedHit {
	hitMap := make(map[string]*FusedHit)
	for id, score := range keywordScores {
		hitMap[id] = &FusedHit{ChunkID: id, KeywordScore: score}
	}
	for id, score := range semanticScores {
		if hit, exists := hitMap[id]; exists {
			hit.SemanticScore = score
		} else {
			hitMap[id] = &FusedHit{ChunkID: id, SemanticScore: score}
		}
	}
	hits := make([]*FusedHit, 0, len(hitMap))
	for _, hit := range hitMap {
		hit.Score = (keywordWeight * hit.KeywordScore) + (semanticWeight * hit.SemanticScore)
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	return hits
}
