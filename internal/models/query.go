package models

import "strings"

// IngestRequest is the body of an ingest call.
type IngestRequest struct {
	Text string `json:"text"`
}

// IngestResponse is returned after a successful ingest.
type IngestResponse struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// SearchQuery represents a search request.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate normalizes the query and applies limit bounds. Returns an
// EmptyInputError when the query is blank after trimming.
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return &EmptyInputError{}
	}
	if q.Limit <= 0 {
		q.Limit = 5
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []SearchResult `json:"results"`
	Total     int            `json:"total"`
	QueryTime int64          `json:"query_time_ms"`
	Query     string         `json:"query"`
}
