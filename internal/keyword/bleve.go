package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// indexedText is the document shape stored in Bleve.
type indexedText struct {
	Text string `json:"text"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates a
// memory-only index, used in tests and when the index is rebuilt from storage
// on every start.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so a query term
	// matches the exact word it was indexed as.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes the text under the record id.
func (b *BleveIndex) Index(ctx context.Context, id int64, text string) error {
	return b.index.Index(strconv.FormatInt(id, 10), &indexedText{Text: text})
}

// Search runs a match query and returns up to limit hits. Bleve returns only
// documents with at least one matching term, so zero-match texts are excluded
// rather than scored 0.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	req := bleve.NewSearchRequest(q)
	req.Size = limit

	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]Match, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Match{ID: id, Score: hit.Score})
	}
	return out, nil
}

// Delete removes the record from the index.
func (b *BleveIndex) Delete(ctx context.Context, id int64) error {
	return b.index.Delete(strconv.FormatInt(id, 10))
}

// DocCount returns the total number of indexed texts.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
