package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/futig/rag-chat/internal/config"
	"github.com/futig/rag-chat/internal/entity"
	"github.com/futig/rag-chat/internal/integration/common"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConnector talks to any OpenAI-compatible chat completions API.
type OpenAIConnector struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIConnector(cfg config.LLMConfig, proxyURL string, logger *zap.Logger) *OpenAIConnector {
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

func (c *OpenAIConnector) Complete(ctx context.Context, req *entity.LLMRequest) (string, error) {
	ctxzap.Debug(ctx, "chat completion via openai", zap.String("model", c.model), zap.Int("messages", len(req.Messages)))

	resp, err := c.client.CreateChatCompletion(ctx, c.chatRequest(req, false))
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIConnector) Stream(ctx context.Context, req *entity.LLMRequest) (entity.TokenStream, error) {
	ctxzap.Debug(ctx, "streaming chat completion via openai", zap.String("model", c.model), zap.Int("messages", len(req.Messages)))

	ctx, cancel := context.WithCancel(ctx)
	stream, err := c.client.CreateChatCompletionStream(ctx, c.chatRequest(req, true))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create chat completion stream: %w", err)
	}

	return &openAIStream{stream: stream, cancel: cancel}, nil
}

func (c *OpenAIConnector) chatRequest(req *entity.LLMRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: m.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func openAIRole(r entity.Role) string {
	switch r {
	case entity.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case entity.RoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
	cancel context.CancelFunc
}

func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("receive chat completion chunk: %w", err)
		}
		// role-only and empty keep-alive deltas carry no text
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openAIStream) Close() error {
	s.cancel()
	s.stream.Close()
	return nil
}
