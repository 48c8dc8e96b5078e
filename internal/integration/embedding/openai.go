package embedding

import (
	"context"
	"fmt"

	"github.com/futig/rag-chat/internal/config"
	"github.com/futig/rag-chat/internal/integration/common"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type OpenAIConnector struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIConnector(cfg config.EmbeddingConfig, proxyURL string, logger *zap.Logger) *OpenAIConnector {
	clientCfg := openai.DefaultConfig(cfg.Token)
	if cfg.Url != "" {
		clientCfg.BaseURL = cfg.Url
	}
	clientCfg.HTTPClient = common.NewHTTPClient(cfg.HTTPClientConfig, proxyURL)

	return &OpenAIConnector{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

func (c *OpenAIConnector) Model() string {
	return c.model
}

func (c *OpenAIConnector) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request, results follow the input order.
func (c *OpenAIConnector) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctxzap.Debug(ctx, "embedding via openai", zap.String("model", c.model), zap.Int("texts", len(texts)))

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: expected %d vectors, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
