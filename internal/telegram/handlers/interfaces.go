package handlers

import (
	"context"

	"github.com/futig/rag-chat/internal/entity"
	chatuc "github.com/futig/rag-chat/internal/usecase/chat"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChatUsecase is the part of the chat pipeline the bot uses.
type ChatUsecase interface {
	Ask(ctx context.Context, req *entity.PipelineRequest) (*chatuc.Answer, error)
	History(ctx context.Context, sessionID string) ([]entity.Turn, error)
	Transcript(ctx context.Context, sessionID, format string) (*entity.Transcript, error)
}

// Sender is the subset of *tgbotapi.BotAPI used to talk to chats.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}
