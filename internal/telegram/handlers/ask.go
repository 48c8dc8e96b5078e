package handlers

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/futig/rag-chat/internal/pkg/logger"
	"github.com/futig/rag-chat/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// AskHandler answers plain text messages. The answer is streamed into a
// single reply that is edited at most once per editInterval.
type AskHandler struct {
	BaseHandler
	bot          Sender
	chatUC       ChatUsecase
	editInterval time.Duration
	logger       *zap.Logger
}

func NewAskHandler(bot Sender, chatUC ChatUsecase, editInterval time.Duration, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		BaseHandler: BaseHandler{
			command:       CommandNone,
			messageSender: NewMessageSender(bot, logger),
		},
		bot:          bot,
		chatUC:       chatUC,
		editInterval: editInterval,
		logger:       logger,
	}
}

func (h *AskHandler) Handle(ctx context.Context, msg *Message) error {
	sessionID := render.SessionID(msg.ChatID)
	ctx = logger.AddFields(ctx, zap.String("session_id", sessionID), zap.String("action", "Ask"))

	typing := NewTypingNotifier(h.bot, msg.ChatID, h.logger)
	typing.Start(ctx)
	defer typing.Stop()

	answer, err := h.chatUC.Ask(ctx, &entity.PipelineRequest{
		Question:  msg.Text,
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}
	defer answer.Close()

	replyID, err := h.messageSender.Reply(ctx, msg.ChatID, msg.MessageID, render.MsgThinking)
	if err != nil {
		return err
	}

	var (
		text     strings.Builder
		shown    = render.MsgThinking
		lastEdit = time.Now()
	)
	edit := func(s string) {
		s = render.Truncate(s, render.MaxMessageRunes)
		if s == shown {
			return
		}
		if err := h.messageSender.Edit(msg.ChatID, replyID, s); err == nil {
			shown = s
		}
		lastEdit = time.Now()
	}

	for {
		fragment, err := answer.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			ctxzap.Error(ctx, "answer stream failed", zap.Error(err))
			if text.Len() == 0 {
				return err
			}
			edit(text.String() + render.MsgAnswerPartial)
			return nil
		}

		text.WriteString(fragment)
		if time.Since(lastEdit) >= h.editInterval {
			edit(text.String() + render.MsgStreamingCursor)
		}
	}

	// shown exactly as stored
	final := render.Answer(text.String())
	if answer.PersistErr() != nil {
		final += render.MsgAnswerNotSaved
	}

	parts := render.Split(final, render.MaxMessageRunes)
	edit(parts[0])
	for _, part := range parts[1:] {
		if _, err := h.messageSender.Send(msg.ChatID, part); err != nil {
			return err
		}
	}

	ctxzap.Info(ctx, "answer delivered", zap.Int("parts", len(parts)))
	return nil
}
