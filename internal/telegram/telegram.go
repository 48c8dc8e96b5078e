package telegram

import (
	"context"
	"fmt"

	"github.com/futig/rag-chat/internal/config"
	"github.com/futig/rag-chat/internal/telegram/bot"
	"github.com/futig/rag-chat/internal/telegram/handlers"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
}

// NewBot connects to Telegram and wires the chat pipeline to it
func NewBot(
	cfg *config.TelegramConfig,
	chatUC handlers.ChatUsecase,
	historyPreviewTurns int,
	logger *zap.Logger,
) (Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	b := bot.New(api, cfg, logger)
	registerHandlers(b, api, cfg, chatUC, historyPreviewTurns, logger)

	logger.Info("telegram bot initialized successfully")
	return b, nil
}

func registerHandlers(
	b *bot.Bot,
	api handlers.Sender,
	cfg *config.TelegramConfig,
	chatUC handlers.ChatUsecase,
	historyPreviewTurns int,
	logger *zap.Logger,
) {
	b.RegisterHandler(handlers.NewStartHandler(api, logger))
	b.RegisterHandler(handlers.NewHelpHandler(api, logger))
	b.RegisterHandler(handlers.NewHistoryHandler(api, chatUC, historyPreviewTurns, logger))
	b.RegisterHandler(handlers.NewTranscriptHandler(api, chatUC, logger))
	b.RegisterHandler(handlers.NewAskHandler(api, chatUC, cfg.EditInterval, logger))
}
