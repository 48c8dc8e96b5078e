package handlers

import (
	"context"
)

// CommandNone is the command of the handler that receives plain text.
const CommandNone = ""

// Message represents a normalized Telegram message
type Message struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Text      string
	// Args is the text after the command, if any.
	Args string
}

// Handler processes one kind of message
type Handler interface {
	Handle(ctx context.Context, msg *Message) error

	// Command returns the bot command this handler serves, or CommandNone
	Command() string
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	command       string
	messageSender *MessageSender
}

func (h *BaseHandler) Command() string {
	return h.command
}

func (h *BaseHandler) sendMessage(chatID int64, text string) {
	if h.messageSender != nil {
		_, _ = h.messageSender.Send(chatID, text)
	}
}
