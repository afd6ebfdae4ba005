// Package keyword provides lexical (full-text) indexing and ranked search.
package keyword

import "context"

// Match is a single lexical search hit. Score is non-negative and higher is
// better; a text with zero matching terms never appears as a Match.
type Match struct {
	ID    int64
	Score float64
}

// Index defines lexical search operations over record texts.
type Index interface {
	Index(ctx context.Context, id int64, text string) error
	Search(ctx context.Context, query string, limit int) ([]Match, error)
	Delete(ctx context.Context, id int64) error
	DocCount() (uint64, error)
	Close() error
}
