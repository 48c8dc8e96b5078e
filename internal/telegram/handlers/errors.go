package handlers

import (
	"context"
	"errors"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/futig/rag-chat/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityWarning ErrorSeverity = iota
	SeverityError
)

// HandlerError represents a structured error with user message and logging info
type HandlerError struct {
	Err         error
	UserMessage string
	LogMessage  string
	Severity    ErrorSeverity
}

// classifyHandlerError maps pipeline and validation errors to what the user
// is told. Causes stay in the logs.
func classifyHandlerError(err error) *HandlerError {
	switch {
	case errors.Is(err, entity.ErrEmptyQuestion), errors.Is(err, entity.ErrQuestionTooLong):
		return &HandlerError{err, render.ErrInvalidQuestion, "invalid question", SeverityWarning}
	case errors.Is(err, entity.ErrUnsupportedFormat):
		return &HandlerError{err, render.ErrUnsupportedFormat, "unsupported transcript format", SeverityWarning}
	case errors.Is(err, context.DeadlineExceeded):
		return &HandlerError{err, render.ErrTimeout, "operation timed out", SeverityError}
	case errors.Is(err, entity.ErrHistoryUnavailable):
		return &HandlerError{err, render.ErrHistoryUnavailable, "history unavailable", SeverityError}
	case errors.Is(err, entity.ErrRetrievalUnavailable):
		return &HandlerError{err, render.ErrSearchUnavailable, "retrieval unavailable", SeverityError}
	case errors.Is(err, entity.ErrGenerationUnavailable):
		return &HandlerError{err, render.ErrModelUnavailable, "generation unavailable", SeverityError}
	default:
		return &HandlerError{err, render.ErrGeneric, "handler error", SeverityError}
	}
}

// HandleError logs err and tells the user what went wrong
func HandleError(ctx context.Context, sender *MessageSender, chatID int64, err error) {
	if err == nil {
		return
	}

	handlerErr := classifyHandlerError(err)
	fields := []zap.Field{zap.Error(handlerErr.Err), zap.Int64("chat_id", chatID)}

	if handlerErr.Severity == SeverityWarning {
		ctxzap.Warn(ctx, handlerErr.LogMessage, fields...)
	} else {
		ctxzap.Error(ctx, handlerErr.LogMessage, fields...)
	}

	_, _ = sender.Send(chatID, handlerErr.UserMessage)
}
