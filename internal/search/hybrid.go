// Package search provides the retrieval engine and hybrid result ranking.
package search

import (
	"sort"

	"github.com/hyperjump/omoide/internal/keyword"
	"github.com/hyperjump/omoide/internal/models"
	"github.com/hyperjump/omoide/internal/vector"
)

// RankOptions controls how vector and lexical candidates are merged.
type RankOptions struct {
	// SimilarityThreshold discards vector-only candidates below this cosine
	// similarity. Lexically matched records are kept regardless (OR semantics).
	SimilarityThreshold float64
	// IncludeLexicalOnly keeps records that matched lexically but cleared no
	// vector threshold.
	IncludeLexicalOnly bool
	// VectorWeight and LexicalWeight form the combined score. With
	// LexicalWeight 0 ranking is by vector similarity alone, lexical-only
	// matches trailing.
	VectorWeight  float64
	LexicalWeight float64
	// Limit bounds the returned list; 0 means no bound.
	Limit int
}

// Rank merges vector-similarity and lexical candidates into one ordered list.
// A record present in both sets contributes both scores; a record in only one
// set has the other score treated as 0. Ordering is by combined score
// descending, ties broken by smaller id.
func Rank(vectorHits []vector.Candidate, lexicalHits []keyword.Match, opts RankOptions) []models.SearchResult {
	merged := make(map[int64]*models.SearchResult)

	for _, v := range vectorHits {
		if v.Similarity < opts.SimilarityThreshold {
			continue
		}
		merged[v.ID] = &models.SearchResult{ID: v.ID, Similarity: v.Similarity}
	}

	maxLexical := 0.0
	for _, l := range lexicalHits {
		if l.Score > maxLexical {
			maxLexical = l.Score
		}
	}
	for _, l := range lexicalHits {
		if r, ok := merged[l.ID]; ok {
			r.LexicalScore = l.Score
			continue
		}
		if !opts.IncludeLexicalOnly {
			continue
		}
		r := &models.SearchResult{ID: l.ID, LexicalScore: l.Score}
		// A lexical-only record may still be a vector candidate below the
		// threshold; keep its similarity for scoring and display.
		for _, v := range vectorHits {
			if v.ID == l.ID {
				r.Similarity = v.Similarity
				break
			}
		}
		merged[l.ID] = r
	}

	results := make([]models.SearchResult, 0, len(merged))
	for _, r := range merged {
		lexical := 0.0
		if maxLexical > 0 {
			lexical = r.LexicalScore / maxLexical
		}
		r.Score = opts.VectorWeight*r.Similarity + opts.LexicalWeight*lexical
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
