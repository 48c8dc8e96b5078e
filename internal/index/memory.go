package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/futig/rag-chat/internal/entity"
)

var _ Searcher = &Memory{}

type chunkSet struct {
	model  string
	dim    int
	chunks []entity.Chunk
	norms  []float64
}

// Memory is an exact cosine-similarity index. The chunk set is immutable and
// swapped as a whole on reload, so searches never take a lock.
type Memory struct {
	set atomic.Pointer[chunkSet]
}

func NewMemory() *Memory {
	m := &Memory{}
	m.set.Store(&chunkSet{})
	return m
}

// NewMemoryFromSnapshot builds an index from a snapshot.
func NewMemoryFromSnapshot(s *Snapshot) (*Memory, error) {
	m := NewMemory()
	if err := m.Replace(s); err != nil {
		return nil, err
	}
	return m, nil
}

// Replace swaps the indexed chunks for the snapshot contents.
func (m *Memory) Replace(s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	set := &chunkSet{
		model:  s.Model,
		dim:    s.Dimension,
		chunks: make([]entity.Chunk, len(s.Chunks)),
		norms:  make([]float64, len(s.Chunks)),
	}
	copy(set.chunks, s.Chunks)
	for i, c := range set.chunks {
		set.norms[i] = norm(c.Embedding)
	}

	m.set.Store(set)
	return nil
}

func (m *Memory) Search(ctx context.Context, vector []float32, k int) ([]entity.ScoredChunk, error) {
	set := m.set.Load()
	if len(set.chunks) == 0 || k <= 0 {
		return []entity.ScoredChunk{}, nil
	}
	if len(vector) != set.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", entity.ErrDimensionMismatch, len(vector), set.dim)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qnorm := norm(vector)
	scored := make([]entity.ScoredChunk, len(set.chunks))
	for i, c := range set.chunks {
		scored[i] = entity.ScoredChunk{
			Chunk: c,
			Score: cosine(vector, c.Embedding, qnorm, set.norms[i]),
		}
	}

	// stable: equal scores keep insertion order
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

func (m *Memory) Len() int {
	return len(m.set.Load().chunks)
}

// Model returns the embedding model recorded in the loaded snapshot.
func (m *Memory) Model() string {
	return m.set.Load().model
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
