package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/futig/rag-chat/internal/config"
	"github.com/futig/rag-chat/internal/entity"
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

func NewOllamaConnector(cfg config.LLMConfig, proxyURL string, logger *zap.Logger) (*OllamaConnector, error) {
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

func (c *OllamaConnector) Complete(ctx context.Context, req *entity.LLMRequest) (string, error) {
	ctxzap.Debug(ctx, "chat completion via ollama", zap.String("model", c.model), zap.Int("messages", len(req.Messages)))

	var sb strings.Builder
	err := c.client.Chat(ctx, c.chatRequest(req, false), func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	return sb.String(), nil
}

// Stream adapts the callback-based ollama API to a pull stream. The request
// runs in its own goroutine, which exits once the stream is closed.
func (c *OllamaConnector) Stream(ctx context.Context, req *entity.LLMRequest) (entity.TokenStream, error) {
	ctxzap.Debug(ctx, "streaming chat completion via ollama", zap.String("model", c.model), zap.Int("messages", len(req.Messages)))

	ctx, cancel := context.WithCancel(ctx)
	s := &ollamaStream{
		fragments: make(chan string),
		cancel:    cancel,
	}

	go func() {
		defer close(s.fragments)
		s.err = c.client.Chat(ctx, c.chatRequest(req, true), func(resp api.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}
			select {
			case s.fragments <- resp.Message.Content:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	return s, nil
}

func (c *OllamaConnector) chatRequest(req *entity.LLMRequest, stream bool) *api.ChatRequest {
	messages := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, api.Message{Role: string(entity.RoleSystem), Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: string(m.Role), Content: m.Content})
	}

	return &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
}

type ollamaStream struct {
	fragments chan string
	cancel    context.CancelFunc
	// written by the producer before fragments is closed
	err error
}

func (s *ollamaStream) Recv() (string, error) {
	text, ok := <-s.fragments
	if ok {
		return text, nil
	}
	if s.err != nil {
		return "", fmt.Errorf("ollama chat stream: %w", s.err)
	}
	return "", io.EOF
}

func (s *ollamaStream) Close() error {
	s.cancel()
	return nil
}
