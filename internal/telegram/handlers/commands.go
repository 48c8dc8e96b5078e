package handlers

import (
	"context"
	"strings"

	"github.com/futig/rag-chat/internal/telegram/render"
	"go.uber.org/zap"
)

// TextHandler replies to a command with fixed text.
type TextHandler struct {
	BaseHandler
	text string
}

func NewStartHandler(bot Sender, logger *zap.Logger) *TextHandler {
	return newTextHandler("start", render.MsgWelcome, bot, logger)
}

func NewHelpHandler(bot Sender, logger *zap.Logger) *TextHandler {
	return newTextHandler("help", render.MsgHelp, bot, logger)
}

func newTextHandler(command, text string, bot Sender, logger *zap.Logger) *TextHandler {
	return &TextHandler{
		BaseHandler: BaseHandler{
			command:       command,
			messageSender: NewMessageSender(bot, logger),
		},
		text: text,
	}
}

func (h *TextHandler) Handle(ctx context.Context, msg *Message) error {
	h.sendMessage(msg.ChatID, h.text)
	return nil
}

// HistoryHandler shows the last turns of the chat
type HistoryHandler struct {
	BaseHandler
	chatUC ChatUsecase
	limit  int
}

func NewHistoryHandler(bot Sender, chatUC ChatUsecase, limit int, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		BaseHandler: BaseHandler{
			command:       "history",
			messageSender: NewMessageSender(bot, logger),
		},
		chatUC: chatUC,
		limit:  limit,
	}
}

func (h *HistoryHandler) Handle(ctx context.Context, msg *Message) error {
	turns, err := h.chatUC.History(ctx, render.SessionID(msg.ChatID))
	if err != nil {
		return err
	}

	h.sendMessage(msg.ChatID, render.History(turns, h.limit))
	return nil
}

// TranscriptHandler sends the whole conversation as a document
type TranscriptHandler struct {
	BaseHandler
	chatUC ChatUsecase
}

func NewTranscriptHandler(bot Sender, chatUC ChatUsecase, logger *zap.Logger) *TranscriptHandler {
	return &TranscriptHandler{
		BaseHandler: BaseHandler{
			command:       "transcript",
			messageSender: NewMessageSender(bot, logger),
		},
		chatUC: chatUC,
	}
}

func (h *TranscriptHandler) Handle(ctx context.Context, msg *Message) error {
	sessionID := render.SessionID(msg.ChatID)

	turns, err := h.chatUC.History(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		h.sendMessage(msg.ChatID, render.MsgHistoryEmpty)
		return nil
	}

	transcript, err := h.chatUC.Transcript(ctx, sessionID, strings.TrimSpace(msg.Args))
	if err != nil {
		return err
	}

	return h.messageSender.SendDocument(msg.ChatID, transcript.FileName, transcript.Data)
}
