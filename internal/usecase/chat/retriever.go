package chat

import (
	"context"
	"fmt"
	"sort"

	"github.com/futig/rag-chat/internal/entity"
)

const DefaultTopK = 2

type Retriever struct {
	embedder Embedder
	index    VectorIndex
	k        int
}

func NewRetriever(embedder Embedder, index VectorIndex, k int) *Retriever {
	if k <= 0 {
		k = DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		k:        k,
	}
}

// Retrieve returns at most k chunks ordered by descending score. The order
// is re-checked here because not every index guarantees it.
func (r *Retriever) Retrieve(ctx context.Context, question string) (entity.RetrievalResult, error) {
	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return entity.RetrievalResult{}, fmt.Errorf("embed question: %w", err)
	}

	items, err := r.index.Search(ctx, vector, r.k)
	if err != nil {
		return entity.RetrievalResult{}, fmt.Errorf("search index: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	if len(items) > r.k {
		items = items[:r.k]
	}

	return entity.RetrievalResult{Items: items}, nil
}
