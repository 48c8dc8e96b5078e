package chat

import (
	"context"
	"strings"

	"github.com/futig/rag-chat/internal/entity"
)

// Condenser rewrites a follow-up question into a standalone one.
type Condenser struct {
	model       ChatModel
	prompts     entity.Prompts
	temperature float32
}

func NewCondenser(model ChatModel, prompts entity.Prompts, temperature float32) *Condenser {
	return &Condenser{
		model:       model,
		prompts:     prompts,
		temperature: temperature,
	}
}

// Condense returns the question unchanged when there is no history. A blank
// model output also falls back to the raw question.
func (c *Condenser) Condense(ctx context.Context, question string, history []entity.Turn) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	messages := entity.TurnsToMessages(history)
	messages = append(messages, entity.Message{
		Role:    entity.RoleUser,
		Content: render(c.prompts.CondenseUser, question, "", c.prompts.NoContextReply),
	})

	out, err := c.model.Complete(ctx, &entity.LLMRequest{
		System:      c.prompts.CondenseSystem,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}

	if out = strings.TrimSpace(out); out == "" {
		return question, nil
	}
	return out, nil
}
