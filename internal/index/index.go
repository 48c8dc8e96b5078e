// Package index implements the vector index capability used by retrieval:
// an exact in-memory index backed by a snapshot file, and Qdrant.
package index

import (
	"context"

	"github.com/futig/rag-chat/internal/entity"
)

// Searcher answers nearest-neighbour queries. Results are ordered by
// descending score and hold at most k items.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]entity.ScoredChunk, error)
}

// Writer stores embedded chunks. Used by the indexer only.
type Writer interface {
	Upsert(ctx context.Context, chunks []entity.Chunk) error
}
