package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/futig/rag-chat/internal/pkg/logger"
	"github.com/futig/rag-chat/internal/pkg/response"
	chatuc "github.com/futig/rag-chat/internal/usecase/chat"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	StreamStatusHeader   = "X-Stream-Status"
	StreamStatusComplete = "complete"
)

type Handler struct {
	usecase      ChatUsecase
	maxBodyBytes int64
}

func NewHandler(usecase ChatUsecase, maxBodyBytes int64) *Handler {
	return &Handler{
		usecase:      usecase,
		maxBodyBytes: maxBodyBytes,
	}
}

// Chat handles POST / and POST /api/chat - Ask a question and stream the answer.
// The answer is sent as chunked text/plain, or as server-sent events when the
// client accepts text/event-stream.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Chat")

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req entity.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ctx = logger.WithSession(ctx, req.SessionID)
	ctxzap.Info(ctx, "chat request received", zap.Int("question_len", len(req.Question)))

	answer, err := h.usecase.Ask(ctx, toPipelineRequest(&req))
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	defer answer.Close()

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		h.streamEvents(ctx, w, answer)
		return
	}
	h.streamText(ctx, w, answer)
}

// streamText relays fragments verbatim. A complete answer ends with the
// X-Stream-Status trailer; a failed one aborts the connection instead, so
// the client never sees a clean end of stream.
func (h *Handler) streamText(ctx context.Context, w http.ResponseWriter, answer *chatuc.Answer) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Trailer", StreamStatusHeader)
	w.WriteHeader(http.StatusOK)

	for {
		fragment, err := answer.Recv()
		if errors.Is(err, io.EOF) {
			w.Header().Set(StreamStatusHeader, StreamStatusComplete)
			ctxzap.Info(ctx, "answer streamed")
			return
		}
		if err != nil {
			ctxzap.Error(ctx, "answer stream failed", zap.Error(err))
			panic(http.ErrAbortHandler)
		}

		if _, err := io.WriteString(w, fragment); err != nil {
			ctxzap.Warn(ctx, "client went away", zap.Error(err))
			return
		}
		if err := rc.Flush(); err != nil {
			ctxzap.Debug(ctx, "flush not supported", zap.Error(err))
		}
	}
}

func (h *Handler) streamEvents(ctx context.Context, w http.ResponseWriter, answer *chatuc.Answer) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event entity.StreamEvent) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		if err := rc.Flush(); err != nil {
			ctxzap.Debug(ctx, "flush not supported", zap.Error(err))
		}
		return nil
	}

	for {
		fragment, err := answer.Recv()
		if errors.Is(err, io.EOF) {
			_ = send(entity.StreamEvent{Type: entity.StreamEventDone})
			ctxzap.Info(ctx, "answer streamed")
			return
		}
		if err != nil {
			ctxzap.Error(ctx, "answer stream failed", zap.Error(err))
			_ = send(entity.StreamEvent{Type: entity.StreamEventError, Error: errorCode(err)})
			return
		}

		if err := send(entity.StreamEvent{Type: entity.StreamEventChunk, Content: fragment}); err != nil {
			ctxzap.Warn(ctx, "client went away", zap.Error(err))
			return
		}
	}
}

// GetHistory handles GET /api/sessions/{sessionID}/history - Get stored turns
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "GetHistory"),
	)

	turns, err := h.usecase.History(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Debug(ctx, "history fetched", zap.Int("turns", len(turns)))
	response.Success(w, toHistoryResponse(sessionID, turns))
}

// GetTranscript handles GET /api/sessions/{sessionID}/transcript?format= - Download history
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	format := r.URL.Query().Get("format")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("format", format),
		zap.String("action", "GetTranscript"),
	)

	transcript, err := h.usecase.Transcript(ctx, sessionID, format)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Attachment(w, transcript)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	ctxzap.Error(ctx, message, zap.Error(err))
	response.Error(w, status, http.StatusText(status), message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrInvalidRequest) || errors.Is(err, entity.ErrEmptyQuestion) ||
		errors.Is(err, entity.ErrQuestionTooLong) || errors.Is(err, entity.ErrInvalidSessionID):
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, entity.ErrUnsupportedFormat):
		h.respondError(ctx, w, http.StatusBadRequest, "unsupported transcript format", err)
	case errors.Is(err, entity.ErrHistoryUnavailable), errors.Is(err, entity.ErrRetrievalUnavailable):
		h.respondError(ctx, w, http.StatusServiceUnavailable, errorCode(err), err)
	case errors.Is(err, entity.ErrGenerationUnavailable):
		h.respondError(ctx, w, http.StatusBadGateway, errorCode(err), err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}

// errorCode is the client-facing name of a pipeline failure. Causes stay in
// the logs.
func errorCode(err error) string {
	switch {
	case errors.Is(err, entity.ErrHistoryUnavailable):
		return entity.ErrHistoryUnavailable.Error()
	case errors.Is(err, entity.ErrRetrievalUnavailable):
		return entity.ErrRetrievalUnavailable.Error()
	case errors.Is(err, entity.ErrGenerationUnavailable):
		return entity.ErrGenerationUnavailable.Error()
	default:
		return "internal error"
	}
}
