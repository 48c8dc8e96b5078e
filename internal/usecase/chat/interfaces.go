package chat

import (
	"context"

	"github.com/futig/rag-chat/internal/entity"
)

// ChatModel is the generative text capability: a blocking call used for
// condensation and a streaming call used for the final answer.
type ChatModel interface {
	Complete(ctx context.Context, req *entity.LLMRequest) (string, error)
	Stream(ctx context.Context, req *entity.LLMRequest) (entity.TokenStream, error)
}

// Embedder must be the same model the index was built with.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]entity.ScoredChunk, error)
}
