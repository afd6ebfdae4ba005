// Package models defines the core data types and error taxonomy.
package models

import "time"

// TextRecord is a stored text with its embedding vector. Records are append-only:
// a text correction is a new record, never an in-place edit.
type TextRecord struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Vector    []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchResult is a query-time projection over a TextRecord. It is never persisted.
type SearchResult struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	// Similarity is the cosine similarity in [0,1]; 0 when the record matched
	// lexically only.
	Similarity float64 `json:"similarity"`
	// LexicalScore is the non-negative keyword rank score; 0 when the record
	// matched by vector similarity only.
	LexicalScore float64 `json:"lexical_score"`
	// Score is the combined rank used for ordering.
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}
