package chat

import (
	"context"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type GenerationInput struct {
	Context string
	// Standalone is the condensed question, used for retrieval only.
	Standalone string
	// Question is the raw question the user asked; the answer prompt uses it.
	Question string
	History  []entity.Turn
}

// Generator streams an answer grounded in the assembled context.
type Generator struct {
	model       ChatModel
	prompts     entity.Prompts
	temperature float32
}

func NewGenerator(model ChatModel, prompts entity.Prompts, temperature float32) *Generator {
	return &Generator{
		model:       model,
		prompts:     prompts,
		temperature: temperature,
	}
}

func (g *Generator) Generate(ctx context.Context, in GenerationInput) (entity.TokenStream, error) {
	ctxzap.Debug(ctx, "generating answer",
		zap.String("standalone_question", in.Standalone),
		zap.Int("context_bytes", len(in.Context)),
		zap.Int("history_turns", len(in.History)),
	)

	messages := entity.TurnsToMessages(in.History)
	messages = append(messages, entity.Message{
		Role:    entity.RoleUser,
		Content: render(g.prompts.AnswerUser, in.Question, in.Context, g.prompts.NoContextReply),
	})

	return g.model.Stream(ctx, &entity.LLMRequest{
		System:      render(g.prompts.AnswerSystem, in.Question, in.Context, g.prompts.NoContextReply),
		Messages:    messages,
		Temperature: g.temperature,
		Grounding:   in.Context,
	})
}
