package chat

import (
	"context"

	"github.com/futig/rag-chat/internal/entity"
	chatuc "github.com/futig/rag-chat/internal/usecase/chat"
)

type ChatUsecase interface {
	Ask(ctx context.Context, req *entity.PipelineRequest) (*chatuc.Answer, error)
	History(ctx context.Context, sessionID string) ([]entity.Turn, error)
	Transcript(ctx context.Context, sessionID, format string) (*entity.Transcript, error)
}
