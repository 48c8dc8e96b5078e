package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/futig/rag-chat/internal/pkg/formatter"
	"github.com/futig/rag-chat/internal/pkg/logger"
	"github.com/futig/rag-chat/internal/pkg/validator"
	"github.com/futig/rag-chat/internal/repository"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const defaultPersistTimeout = 10 * time.Second

type Options struct {
	TopK                int
	CondenseTemperature float32
	AnswerTemperature   float32
	Prompts             entity.Prompts
	// PersistTimeout bounds the history append that follows a completed
	// answer. The append is detached from the request context.
	PersistTimeout time.Duration
}

// ChatUsecase runs the session-aware retrieval pipeline and serves the
// stored history of a session.
type ChatUsecase struct {
	historyRepo      repository.HistoryRepository
	condenser        *Condenser
	retriever        *Retriever
	generator        *Generator
	formatterFactory *formatter.Factory
	validator        *validator.Validator
	persistTimeout   time.Duration
	logger           *zap.Logger
}

// NewUsecase creates a new chat use case
func NewUsecase(
	historyRepo repository.HistoryRepository,
	model ChatModel,
	embedder Embedder,
	index VectorIndex,
	formatterFactory *formatter.Factory,
	validator *validator.Validator,
	opts Options,
	logger *zap.Logger,
) *ChatUsecase {
	prompts := opts.Prompts.Merge(entity.DefaultPrompts())
	persistTimeout := opts.PersistTimeout
	if persistTimeout <= 0 {
		persistTimeout = defaultPersistTimeout
	}

	return &ChatUsecase{
		historyRepo:      historyRepo,
		condenser:        NewCondenser(model, prompts, opts.CondenseTemperature),
		retriever:        NewRetriever(embedder, index, opts.TopK),
		generator:        NewGenerator(model, prompts, opts.AnswerTemperature),
		formatterFactory: formatterFactory,
		validator:        validator,
		persistTimeout:   persistTimeout,
		logger:           logger,
	}
}

// Ask runs the pipeline up to the first answer fragment. Any failure before
// output is returned here as a *StageError; later failures end the stream.
func (uc *ChatUsecase) Ask(ctx context.Context, req *entity.PipelineRequest) (*Answer, error) {
	if err := uc.validator.ValidatePipelineRequest(req); err != nil {
		return nil, err
	}

	ctx = logger.WithSession(ctx, req.SessionID)
	m := newMachine(ctx)

	history, err := uc.historyRepo.Load(ctx, req.SessionID)
	if err != nil {
		return nil, m.fail(entity.ErrHistoryUnavailable, err)
	}

	m.advance(StateCondensing)
	standalone, err := uc.condenser.Condense(ctx, req.Question, history)
	if err != nil {
		return nil, m.fail(entity.ErrGenerationUnavailable, err)
	}
	ctxzap.Debug(ctx, "question condensed", zap.String("standalone_question", standalone))

	m.advance(StateRetrieving)
	retrieved, err := uc.retriever.Retrieve(ctx, standalone)
	if err != nil {
		return nil, m.fail(entity.ErrRetrievalUnavailable, err)
	}
	ctxzap.Debug(ctx, "chunks retrieved", zap.Int("count", retrieved.Len()))

	m.advance(StateAssembling)
	assembled := Assemble(retrieved)

	m.advance(StateGenerating)
	genCtx, cancel := context.WithCancel(ctx)
	stream, err := uc.generator.Generate(genCtx, GenerationInput{
		Context:    assembled,
		Standalone: standalone,
		Question:   req.Question,
		History:    history,
	})
	if err != nil {
		cancel()
		return nil, m.fail(entity.ErrGenerationUnavailable, err)
	}

	answer := &Answer{
		uc:      uc,
		ctx:     genCtx,
		cancel:  cancel,
		stream:  stream,
		machine: m,
		request: *req,
	}
	if err := answer.prefetch(); err != nil {
		return nil, err
	}

	return answer, nil
}

// History returns the stored turns of a session, oldest first.
func (uc *ChatUsecase) History(ctx context.Context, sessionID string) ([]entity.Turn, error) {
	if err := uc.validator.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	turns, err := uc.historyRepo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrHistoryUnavailable, err)
	}

	return turns, nil
}

// Transcript renders the history of a session in the requested format.
func (uc *ChatUsecase) Transcript(ctx context.Context, sessionID, format string) (*entity.Transcript, error) {
	transcriptFormat, err := uc.validator.ValidateTranscriptFormat(format)
	if err != nil {
		return nil, err
	}

	turns, err := uc.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	f, err := uc.formatterFactory.Create(transcriptFormat)
	if err != nil {
		return nil, err
	}

	data, err := f.Format(sessionID, turns)
	if err != nil {
		return nil, fmt.Errorf("format transcript: %w", err)
	}

	return &entity.Transcript{
		Data:        data,
		ContentType: f.ContentType(),
		FileName:    sessionID + f.FileExtension(),
	}, nil
}

// persist appends the question and the full answer as one unit. It runs
// after the answer is complete, so it must outlive a request context that
// is cancelled right after the last fragment.
func (uc *ChatUsecase) persist(ctx context.Context, req entity.PipelineRequest, answer string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.persistTimeout)
	defer cancel()

	now := time.Now()
	return uc.historyRepo.Append(ctx, req.SessionID,
		entity.Turn{Role: entity.RoleUser, Content: req.Question, CreatedAt: now},
		entity.Turn{Role: entity.RoleAssistant, Content: answer, CreatedAt: now},
	)
}
