package chat

import "github.com/futig/rag-chat/internal/entity"

func toPipelineRequest(req *entity.ChatRequest) *entity.PipelineRequest {
	return &entity.PipelineRequest{
		Question:  req.Question,
		SessionID: req.SessionID,
	}
}

func toHistoryResponse(sessionID string, turns []entity.Turn) *entity.HistoryResponse {
	dtos := make([]entity.TurnDTO, 0, len(turns))
	for _, t := range turns {
		dtos = append(dtos, entity.TurnDTO{
			ID:        t.ID,
			Seq:       t.Seq,
			Role:      t.Role,
			Content:   t.Content,
			CreatedAt: t.CreatedAt,
		})
	}
	return &entity.HistoryResponse{
		SessionID: sessionID,
		Turns:     dtos,
	}
}
