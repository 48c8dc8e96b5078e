package embedding

import (
	"context"
	"fmt"

	"github.com/futig/rag-chat/internal/config"
	"github.com/futig/rag-chat/internal/integration/common"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

type OllamaConnector struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

func NewOllamaConnector(cfg config.EmbeddingConfig, proxyURL string, logger *zap.Logger) (*OllamaConnector, error) {
	client, err := common.NewOllamaClient(cfg.Url, common.NewHTTPClient(cfg.HTTPClientConfig, proxyURL))
	if err != nil {
		return nil, err
	}

	return &OllamaConnector{
		client: client,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

func (c *OllamaConnector) Model() string {
	return c.model
}

func (c *OllamaConnector) Embed(ctx context.Context, text string) ([]float32, error) {
	ctxzap.Debug(ctx, "embedding via ollama", zap.String("model", c.model))

	resp, err := c.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  c.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embeddings: empty vector for model %s", c.model)
	}

	vector := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}
