package middleware

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// LoggingMiddleware logs all incoming updates
type LoggingMiddleware struct {
	logger *zap.Logger
}

func NewLoggingMiddleware(logger *zap.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger: logger,
	}
}

func (m *LoggingMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	start := time.Now()

	var (
		userID      int64
		chatID      int64
		messageType = "other"
	)
	if msg := update.Message; msg != nil {
		chatID = msg.Chat.ID
		if msg.From != nil {
			userID = msg.From.ID
		}
		switch {
		case msg.IsCommand():
			messageType = "command"
		case msg.Text != "":
			messageType = "text"
		}
	}

	m.logger.Info("telegram update received",
		zap.Int64("user_id", userID),
		zap.Int64("chat_id", chatID),
		zap.String("type", messageType),
		zap.Int("update_id", update.UpdateID),
	)

	next(update)

	m.logger.Info("telegram update processed",
		zap.Int64("chat_id", chatID),
		zap.Int("update_id", update.UpdateID),
		zap.Duration("duration", time.Since(start)),
	)
}
