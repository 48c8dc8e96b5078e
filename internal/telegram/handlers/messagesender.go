package handlers

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	maxSendRetries = 3
	retrySleepBase = 500 * time.Millisecond
)

// MessageSender provides centralized message sending functionality
type MessageSender struct {
	bot    Sender
	logger *zap.Logger
}

// NewMessageSender creates a new MessageSender
func NewMessageSender(bot Sender, logger *zap.Logger) *MessageSender {
	return &MessageSender{
		bot:    bot,
		logger: logger,
	}
}

// Send sends a message and returns its id.
func (s *MessageSender) Send(chatID int64, text string) (int, error) {
	sent, err := s.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		s.logger.Error("failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
		return 0, err
	}
	return sent.MessageID, nil
}

// Reply sends text as a reply and retries, since the returned message id is
// needed for later edits.
func (s *MessageSender) Reply(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo

	var sent tgbotapi.Message
	err := retry.Do(
		func() error {
			var err error
			sent, err = s.bot.Send(msg)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(maxSendRetries),
		retry.Delay(retrySleepBase),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("failed to send message, retrying",
				zap.Error(err),
				zap.Uint("attempt", n+1),
				zap.Int64("chat_id", chatID),
			)
		}),
	)
	if err != nil {
		s.logger.Error("failed to send message after all retries",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
		return 0, err
	}
	return sent.MessageID, nil
}

// Edit replaces the text of a message sent earlier.
func (s *MessageSender) Edit(chatID int64, messageID int, text string) error {
	_, err := s.bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	if err != nil {
		s.logger.Warn("failed to edit message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
		)
	}
	return err
}

func (s *MessageSender) SendDocument(chatID int64, filename string, data []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	if _, err := s.bot.Send(doc); err != nil {
		s.logger.Error("failed to send document",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("filename", filename),
		)
		return err
	}
	return nil
}
