package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/futig/rag-chat/internal/entity"
	"go.uber.org/zap"
)

func drain(t *testing.T, s entity.TokenStream) string {
	t.Helper()
	var sb strings.Builder
	for {
		text, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String()
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		sb.WriteString(text)
	}
}

func TestMockCompleteNamesPreviousQuestion(t *testing.T) {
	m := NewMockConnector(entity.NoContextReply, zap.NewNop())

	out, err := m.Complete(context.Background(), &entity.LLMRequest{
		Messages: []entity.Message{
			{Role: entity.RoleUser, Content: "What is a spherical lightning?"},
			{Role: entity.RoleAssistant, Content: "A rare phenomenon."},
			{Role: entity.RoleUser, Content: "Rephrase:\nWhat causes it?"},
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(out, "What causes it?") || !strings.Contains(out, "spherical lightning") {
		t.Fatalf("unexpected rewrite %q", out)
	}
}

func TestMockStreamWithoutContext(t *testing.T) {
	m := NewMockConnector(entity.NoContextReply, zap.NewNop())

	s, err := m.Stream(context.Background(), &entity.LLMRequest{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if got := drain(t, s); got != entity.NoContextReply {
		t.Fatalf("expected no-context reply, got %q", got)
	}
}

func TestMockStreamQuotesContext(t *testing.T) {
	m := NewMockConnector(entity.NoContextReply, zap.NewNop())

	s, _ := m.Stream(context.Background(), &entity.LLMRequest{Grounding: "Ball lightning glows.\nSecond line."})
	if got := drain(t, s); got != "According to the source text: Ball lightning glows." {
		t.Fatalf("unexpected answer %q", got)
	}
}

func TestSliceStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSliceStream(ctx, []string{"a", "b"})

	if _, err := s.Recv(); err != nil {
		t.Fatalf("first Recv: %v", err)
	}
	cancel()
	if _, err := s.Recv(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
