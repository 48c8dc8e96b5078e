package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/futig/rag-chat/internal/integration/llm"
	"github.com/futig/rag-chat/internal/pkg/formatter"
	"github.com/futig/rag-chat/internal/pkg/validator"
	"github.com/futig/rag-chat/internal/repository"
	"go.uber.org/zap"
)

// recordingModel wraps another model and keeps every request it saw.
type recordingModel struct {
	next ChatModel

	mu       sync.Mutex
	complete []*entity.LLMRequest
	stream   []*entity.LLMRequest
}

func (m *recordingModel) Complete(ctx context.Context, req *entity.LLMRequest) (string, error) {
	m.mu.Lock()
	m.complete = append(m.complete, req)
	m.mu.Unlock()
	return m.next.Complete(ctx, req)
}

func (m *recordingModel) Stream(ctx context.Context, req *entity.LLMRequest) (entity.TokenStream, error) {
	m.mu.Lock()
	m.stream = append(m.stream, req)
	m.mu.Unlock()
	return m.next.Stream(ctx, req)
}

// scriptedModel answers with fixed fragments and then either io.EOF, an
// error, or blocks until its context is cancelled.
type scriptedModel struct {
	condensed   string
	completeErr error
	streamErr   error
	fragments   []string
	endErr      error
	block       bool

	mu      sync.Mutex
	streams []*scriptedStream
}

func (m *scriptedModel) Complete(ctx context.Context, req *entity.LLMRequest) (string, error) {
	if m.completeErr != nil {
		return "", m.completeErr
	}
	return m.condensed, nil
}

func (m *scriptedModel) Stream(ctx context.Context, req *entity.LLMRequest) (entity.TokenStream, error) {
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	stream := &scriptedStream{ctx: ctx, fragments: m.fragments, endErr: m.endErr, block: m.block}
	m.mu.Lock()
	m.streams = append(m.streams, stream)
	m.mu.Unlock()
	return stream, nil
}

// lastStream returns the most recently opened stream.
func (m *scriptedModel) lastStream() *scriptedStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.streams) == 0 {
		return nil
	}
	return m.streams[len(m.streams)-1]
}

type scriptedStream struct {
	ctx       context.Context
	fragments []string
	endErr    error
	block     bool
	closed    atomic.Bool
}

func (s *scriptedStream) Recv() (string, error) {
	if len(s.fragments) > 0 {
		next := s.fragments[0]
		s.fragments = s.fragments[1:]
		return next, nil
	}
	if s.block {
		<-s.ctx.Done()
		return "", s.ctx.Err()
	}
	if s.endErr != nil {
		return "", s.endErr
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error {
	s.closed.Store(true)
	return nil
}

type staticIndex struct {
	items []entity.ScoredChunk
	err   error
}

func (i *staticIndex) Search(ctx context.Context, vector []float32, k int) ([]entity.ScoredChunk, error) {
	if i.err != nil {
		return nil, i.err
	}
	out := make([]entity.ScoredChunk, len(i.items))
	copy(out, i.items)
	return out, nil
}

type constEmbedder struct {
	err error
}

func (e constEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0}, nil
}

// failingHistory fails Load or Append on demand.
type failingHistory struct {
	repository.HistoryRepository
	loadErr   error
	appendErr error
}

func (h *failingHistory) Load(ctx context.Context, sessionID string) ([]entity.Turn, error) {
	if h.loadErr != nil {
		return nil, h.loadErr
	}
	return h.HistoryRepository.Load(ctx, sessionID)
}

func (h *failingHistory) Append(ctx context.Context, sessionID string, turns ...entity.Turn) error {
	if h.appendErr != nil {
		return h.appendErr
	}
	return h.HistoryRepository.Append(ctx, sessionID, turns...)
}

var errBoom = errors.New("boom")

func newTestUsecase(history repository.HistoryRepository, model ChatModel, embedder Embedder, index VectorIndex) *ChatUsecase {
	return NewUsecase(
		history,
		model,
		embedder,
		index,
		formatter.NewFactory(),
		validator.NewValidator(0),
		Options{Prompts: entity.DefaultPrompts()},
		zap.NewNop(),
	)
}

func mockModel() *recordingModel {
	return &recordingModel{next: llm.NewMockConnector(entity.NoContextReply, zap.NewNop())}
}

// drain reads an answer to the end and returns the text and the final error.
func drain(a *Answer) (string, error) {
	var text string
	for {
		fragment, err := a.Recv()
		if err != nil {
			return text, err
		}
		text += fragment
	}
}
