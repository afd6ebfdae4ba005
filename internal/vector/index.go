// Package vector provides the approximate nearest-neighbor index and
// similarity helpers.
package vector

// Candidate is a single vector search hit.
type Candidate struct {
	ID int64
	// Similarity is cosine similarity (1 - cosine distance) in [0,1].
	Similarity float64
}

// Index defines approximate nearest-neighbor search over cosine similarity.
// Implementations must be safe for concurrent use by multiple requests.
type Index interface {
	// Insert adds a vector under id. The id must be unique within the index.
	Insert(id int64, vec []float32) error
	// Search returns up to k candidates ordered by descending similarity,
	// ties broken by smaller id. An empty index yields an empty result.
	Search(query []float32, k int, efSearch int) ([]Candidate, error)
	// Remove detaches all edges referencing id and removes it. Removing an
	// unknown id is a no-op.
	Remove(id int64)
	// Size returns the number of indexed vectors.
	Size() int
}
