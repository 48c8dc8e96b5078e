package llm

import (
	"context"
	"io"
	"strings"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const maxMockQuoteRunes = 200

// MockConnector is a deterministic stand-in for a language model. It
// rewrites follow-ups by naming the previous question and answers by quoting
// the first line of the grounding context.
type MockConnector struct {
	noContextReply string
	logger         *zap.Logger
}

func NewMockConnector(noContextReply string, logger *zap.Logger) *MockConnector {
	return &MockConnector{
		noContextReply: noContextReply,
		logger:         logger,
	}
}

func (m *MockConnector) Complete(ctx context.Context, req *entity.LLMRequest) (string, error) {
	ctxzap.Info(ctx, "[MOCK] condensing question via LLM")

	if len(req.Messages) == 0 {
		return "", nil
	}

	last := req.Messages[len(req.Messages)-1].Content
	question := strings.TrimSpace(last[strings.LastIndex(last, "\n")+1:])

	previous := ""
	for i := len(req.Messages) - 2; i >= 0; i-- {
		if req.Messages[i].Role == entity.RoleUser {
			previous = strings.TrimSpace(req.Messages[i].Content)
			break
		}
	}
	if previous == "" {
		return question, nil
	}

	return question + " (regarding: " + previous + ")", nil
}

func (m *MockConnector) Stream(ctx context.Context, req *entity.LLMRequest) (entity.TokenStream, error) {
	ctxzap.Info(ctx, "[MOCK] streaming answer via LLM")

	answer := m.noContextReply
	if grounding := strings.TrimSpace(req.Grounding); grounding != "" {
		quote, _, _ := strings.Cut(grounding, "\n")
		if r := []rune(quote); len(r) > maxMockQuoteRunes {
			quote = string(r[:maxMockQuoteRunes]) + "..."
		}
		answer = "According to the source text: " + quote
	}

	return NewSliceStream(ctx, splitWords(answer)), nil
}

// splitWords keeps the separating spaces so the fragments concatenate back
// to the original text.
func splitWords(s string) []string {
	var parts []string
	for len(s) > 0 {
		i := strings.IndexByte(s, ' ')
		if i < 0 {
			parts = append(parts, s)
			break
		}
		parts = append(parts, s[:i+1])
		s = s[i+1:]
	}
	return parts
}

// SliceStream replays fixed fragments and honours context cancellation.
type SliceStream struct {
	ctx       context.Context
	fragments []string
	closed    bool
}

func NewSliceStream(ctx context.Context, fragments []string) *SliceStream {
	return &SliceStream{ctx: ctx, fragments: fragments}
}

func (s *SliceStream) Recv() (string, error) {
	if s.closed {
		return "", context.Canceled
	}
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if len(s.fragments) == 0 {
		return "", io.EOF
	}
	next := s.fragments[0]
	s.fragments = s.fragments[1:]
	return next, nil
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}
