package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/futig/rag-chat/internal/config"
	"github.com/futig/rag-chat/internal/telegram/handlers"
	"github.com/futig/rag-chat/internal/telegram/middleware"
	"github.com/futig/rag-chat/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// API is the subset of *tgbotapi.BotAPI the bot needs.
type API interface {
	handlers.Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot represents the Telegram bot
type Bot struct {
	api         API
	cfg         *config.TelegramConfig
	handlers    map[string]handlers.Handler
	sender      *handlers.MessageSender
	logger      *zap.Logger
	loggingMW   *middleware.LoggingMiddleware
	recoveryMW  *middleware.RecoveryMiddleware
	rateLimitMW *middleware.RateLimiterMiddleware
	ctx         context.Context
	cancel      context.CancelFunc
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

func New(api API, cfg *config.TelegramConfig, logger *zap.Logger) *Bot {
	b := &Bot{
		api:      api,
		cfg:      cfg,
		handlers: make(map[string]handlers.Handler),
		sender:   handlers.NewMessageSender(api, logger),
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	b.loggingMW = middleware.NewLoggingMiddleware(logger)
	b.recoveryMW = middleware.NewRecoveryMiddleware(logger, api)
	b.rateLimitMW = middleware.NewRateLimiterMiddleware(
		cfg.RateLimitPerMinute,
		cfg.RateLimitBurst,
		logger,
		api,
	)

	return b
}

// Start begins polling for updates. It returns immediately.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting telegram bot")

	if _, ok := b.handlers[handlers.CommandNone]; !ok {
		return fmt.Errorf("no handler registered for plain messages")
	}

	b.ctx, b.cancel = context.WithCancel(ctxzap.ToContext(ctx, b.logger))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)

	go b.processUpdates(updates)

	b.logger.Info("telegram bot started successfully")
	return nil
}

// Stop stops polling and waits for in-flight answers. Answers still running
// after ShutdownTimeout are cancelled and not saved.
func (b *Bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	close(b.stopChan)
	b.api.StopReceivingUpdates()
	b.rateLimitMW.Close()
	defer func() {
		if b.cancel != nil {
			b.cancel()
		}
	}()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	shutdownTimeout := time.Duration(b.cfg.ShutdownTimeout) * time.Second
	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(shutdownTimeout):
		b.logger.Warn("shutdown timeout exceeded, cancelling running handlers",
			zap.Duration("timeout", shutdownTimeout),
		)
		return fmt.Errorf("shutdown timeout exceeded")
	}

	b.logger.Info("telegram bot stopped successfully")
	return nil
}

func (b *Bot) processUpdates(updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-b.ctx.Done():
			ctxzap.Info(b.ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(b.ctx, "stop signal received, stopping update processing")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.HandleUpdate(u)
			}(update)
		}
	}
}

// HandleUpdate runs one update through the middleware chain.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	b.rateLimitMW.Handle(update, func(u tgbotapi.Update) {
		b.loggingMW.Handle(u, func(u2 tgbotapi.Update) {
			b.recoveryMW.Handle(u2, b.handleUpdate)
		})
	})
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	message := update.Message
	if message == nil {
		return
	}

	ctx := b.ctx
	if ctx == nil {
		ctx = ctxzap.ToContext(context.Background(), b.logger)
	}
	ctx = ctxzap.ToContext(ctx, b.logger.With(zap.Int64("chat_id", message.Chat.ID)))

	msg := &handlers.Message{
		ChatID:    message.Chat.ID,
		MessageID: message.MessageID,
		Text:      message.Text,
	}
	if message.From != nil {
		msg.UserID = message.From.ID
	}

	command := handlers.CommandNone
	if message.IsCommand() {
		command = message.Command()
		msg.Args = message.CommandArguments()
		ctxzap.Info(ctx, "command received", zap.String("command", command))
	} else if message.Text == "" {
		_, _ = b.sender.Send(message.Chat.ID, render.MsgTextOnly)
		return
	}

	handler, exists := b.handlers[command]
	if !exists {
		_, _ = b.sender.Send(message.Chat.ID, render.MsgUnknownCommand)
		return
	}

	if err := handler.Handle(ctx, msg); err != nil {
		handlers.HandleError(ctx, b.sender, message.Chat.ID, err)
	}
}

// RegisterHandler registers a handler for its command
func (b *Bot) RegisterHandler(handler handlers.Handler) {
	command := handler.Command()
	b.handlers[command] = handler
	b.logger.Info("handler registered",
		zap.String("command", command),
	)
}
