package vector

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/hyperjump/omoide/internal/models"
)

// Options configures HNSW construction.
type Options struct {
	// M is the max number of connections per node per layer (2M at layer 0).
	// Higher M improves recall on high-dimensional data at higher build cost.
	M int
	// EFConstruction is the candidate-list width during insertion.
	EFConstruction int
}

// DefaultOptions match the parameters the index is deployed with in production.
var DefaultOptions = Options{
	M:              32,
	EFConstruction: 100,
}

// hnswNode is a single element of the graph. neighbors[l] holds the ids this
// node links to at layer l. Neighbor slices are replaced wholesale, never
// mutated in place, so a reader holding the lock sees either the pre- or
// post-insert edge list.
type hnswNode struct {
	id        int64
	vector    []float32
	layer     int
	neighbors [][]int64
}

// HNSW is a Hierarchical Navigable Small World graph over cosine distance.
// Writers take the exclusive lock; searches run under the shared lock, so a
// search never observes a partially-linked node.
type HNSW struct {
	dimensions     int
	m              int
	mmax0          int
	efConstruction int
	ml             float64

	entryPoint int64
	maxLevel   int
	nodes      map[int64]*hnswNode

	rng *rand.Rand
	mu  sync.RWMutex
}

// NewHNSW creates an empty index for vectors of the given dimension.
func NewHNSW(dimensions int, optFns ...func(o *Options)) *HNSW {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.M < 2 {
		// M == 1 would make the level normalization 1/ln(M) divide by zero.
		opts.M = 2
	}
	if opts.EFConstruction < opts.M {
		opts.EFConstruction = opts.M
	}
	return &HNSW{
		dimensions:     dimensions,
		m:              opts.M,
		mmax0:          2 * opts.M,
		efConstruction: opts.EFConstruction,
		ml:             1 / math.Log(float64(opts.M)),
		nodes:          make(map[int64]*hnswNode),
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Size returns the number of indexed vectors.
func (h *HNSW) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

// Insert adds a vector under id, linking it into every layer up to its drawn level.
func (h *HNSW) Insert(id int64, vec []float32) error {
	if len(vec) != h.dimensions {
		return &models.DimensionError{Expected: h.dimensions, Actual: len(vec)}
	}

	vectorCopy := make([]float32, len(vec))
	copy(vectorCopy, vec)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.nodes[id]; exists {
		return fmt.Errorf("id %d already indexed", id)
	}

	level := int(math.Floor(-math.Log(h.rng.Float64()) * h.ml))
	node := &hnswNode{
		id:        id,
		vector:    vectorCopy,
		layer:     level,
		neighbors: make([][]int64, level+1),
	}

	if len(h.nodes) == 0 {
		h.nodes[id] = node
		h.entryPoint = id
		h.maxLevel = level
		return nil
	}

	// Greedy descent through layers above the new node's level.
	currID := h.entryPoint
	currDist := CosineDistance(h.nodes[currID].vector, vectorCopy)
	for l := h.maxLevel; l > level; l-- {
		currID, currDist = h.greedyStep(vectorCopy, currID, currDist, l)
	}

	// At each layer the node lives on, find EFConstruction candidates and
	// connect to a heuristic selection of M of them.
	for l := min(level, h.maxLevel); l >= 0; l-- {
		candidates := h.searchLayer(vectorCopy, currID, currDist, h.efConstruction, l)
		selected := h.selectNeighbors(vectorCopy, candidates, h.m)

		node.neighbors[l] = make([]int64, len(selected))
		for i, c := range selected {
			node.neighbors[l][i] = c.id
		}

		// Continue the descent from the best candidate found at this layer.
		if len(selected) > 0 {
			currID, currDist = selected[0].id, selected[0].dist
		}
	}

	h.nodes[id] = node

	// Back-link the neighbors, pruning their edge lists when over capacity.
	for l := min(level, h.maxLevel); l >= 0; l-- {
		for _, neighborID := range node.neighbors[l] {
			h.link(neighborID, id, l)
		}
	}

	if level > h.maxLevel {
		h.entryPoint = id
		h.maxLevel = level
	}
	return nil
}

// Search returns up to k candidates ordered by descending cosine similarity,
// ties broken by smaller id.
func (h *HNSW) Search(query []float32, k int, efSearch int) ([]Candidate, error) {
	if len(query) != h.dimensions {
		return nil, &models.DimensionError{Expected: h.dimensions, Actual: len(query)}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.nodes) == 0 || k <= 0 {
		return nil, nil
	}
	if efSearch < k {
		efSearch = k
	}

	currID := h.entryPoint
	currDist := CosineDistance(h.nodes[currID].vector, query)
	for l := h.maxLevel; l > 0; l-- {
		currID, currDist = h.greedyStep(query, currID, currDist, l)
	}

	results := h.searchLayer(query, currID, currDist, efSearch, 0)

	sort.Slice(results, func(i, j int) bool {
		if results[i].dist == results[j].dist {
			return results[i].id < results[j].id
		}
		return results[i].dist < results[j].dist
	})
	if k < len(results) {
		results = results[:k]
	}

	out := make([]Candidate, len(results))
	for i, r := range results {
		out[i] = Candidate{ID: r.id, Similarity: 1 - r.dist}
	}
	return out, nil
}

// Remove detaches every edge referencing id and deletes the node. The entry
// point is reassigned when the removed node held it.
func (h *HNSW) Remove(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.nodes[id]; !ok {
		return
	}

	// Pruning can leave one-directional edges, so every node's lists are
	// swept; the graph must never hold a dangling reference.
	for _, other := range h.nodes {
		if other.id == id {
			continue
		}
		for l, conns := range other.neighbors {
			kept := conns[:0]
			for _, n := range conns {
				if n != id {
					kept = append(kept, n)
				}
			}
			other.neighbors[l] = kept
		}
	}
	delete(h.nodes, id)

	if h.entryPoint == id {
		h.entryPoint = 0
		h.maxLevel = 0
		for _, other := range h.nodes {
			if h.entryPoint == 0 || other.layer > h.maxLevel {
				h.entryPoint = other.id
				h.maxLevel = other.layer
			}
		}
	}
}

// greedyStep walks layer l one best-first step at a time until no neighbor
// improves on the current distance.
func (h *HNSW) greedyStep(query []float32, currID int64, currDist float64, l int) (int64, float64) {
	for changed := true; changed; {
		changed = false
		curr := h.nodes[currID]
		if l >= len(curr.neighbors) {
			break
		}
		for _, n := range curr.neighbors[l] {
			d := CosineDistance(h.nodes[n].vector, query)
			if d < currDist {
				currID, currDist = n, d
				changed = true
			}
		}
	}
	return currID, currDist
}

// searchLayer runs a best-first expansion at layer l bounded by ef candidates,
// starting from the given entry point. Caller holds at least the read lock.
func (h *HNSW) searchLayer(query []float32, epID int64, epDist float64, ef int, l int) []queueItem {
	var visited bitset.BitSet
	visited.Set(uint(epID))

	frontier := newMinQueue()
	heap.Push(frontier, queueItem{id: epID, dist: epDist})

	results := newMaxQueue()
	heap.Push(results, queueItem{id: epID, dist: epDist})

	for frontier.Len() > 0 {
		candidate := heap.Pop(frontier).(queueItem)
		if candidate.dist > results.top().dist && results.Len() >= ef {
			break
		}

		node := h.nodes[candidate.id]
		if l >= len(node.neighbors) {
			continue
		}
		for _, n := range node.neighbors[l] {
			if visited.Test(uint(n)) {
				continue
			}
			visited.Set(uint(n))

			d := CosineDistance(h.nodes[n].vector, query)
			if results.Len() < ef {
				heap.Push(results, queueItem{id: n, dist: d})
				heap.Push(frontier, queueItem{id: n, dist: d})
			} else if d < results.top().dist {
				heap.Pop(results)
				heap.Push(results, queueItem{id: n, dist: d})
				heap.Push(frontier, queueItem{id: n, dist: d})
			}
		}
	}

	return results.items
}

// selectNeighbors keeps up to m candidates by the diversity-preserving
// heuristic: a candidate is kept only when no already-kept neighbor is closer
// to it than the candidate is to the query. Plain truncation would collapse
// the graph into near-duplicate edges and break long-range connectivity.
func (h *HNSW) selectNeighbors(query []float32, candidates []queueItem, m int) []queueItem {
	sorted := make([]queueItem, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].dist == sorted[j].dist {
			return sorted[i].id < sorted[j].id
		}
		return sorted[i].dist < sorted[j].dist
	})

	selected := make([]queueItem, 0, m)
	rejected := make([]queueItem, 0, len(sorted))

	for _, c := range sorted {
		if len(selected) >= m {
			break
		}
		keep := true
		for _, s := range selected {
			if CosineDistance(h.nodes[s.id].vector, h.nodes[c.id].vector) < c.dist {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, c)
		} else {
			rejected = append(rejected, c)
		}
	}

	// Backfill from rejected candidates so sparse regions still reach m edges.
	for _, c := range rejected {
		if len(selected) >= m {
			break
		}
		selected = append(selected, c)
	}
	return selected
}

// link adds target to node's edge list at layer l, re-pruning with the
// selection heuristic when the degree bound is exceeded.
func (h *HNSW) link(nodeID, target int64, l int) {
	maxConn := h.m
	if l == 0 {
		maxConn = h.mmax0
	}

	node := h.nodes[nodeID]
	if l >= len(node.neighbors) {
		return
	}
	conns := append(append([]int64(nil), node.neighbors[l]...), target)

	if len(conns) <= maxConn {
		node.neighbors[l] = conns
		return
	}

	candidates := make([]queueItem, len(conns))
	for i, id := range conns {
		candidates[i] = queueItem{id: id, dist: CosineDistance(node.vector, h.nodes[id].vector)}
	}
	selected := h.selectNeighbors(node.vector, candidates, maxConn)

	pruned := make([]int64, len(selected))
	for i, c := range selected {
		pruned[i] = c.id
	}
	node.neighbors[l] = pruned
}
