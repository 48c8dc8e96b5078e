package repository

import (
	"fmt"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func toPgUUID(id string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid turn id: %w", err)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func fromPgUUID(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

func scanPgTurn(row pgx.CollectableRow) (entity.Turn, error) {
	var (
		id        pgtype.UUID
		t         entity.Turn
		role      string
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &t.Seq, &role, &t.Content, &createdAt); err != nil {
		return entity.Turn{}, err
	}

	t.ID = fromPgUUID(id)
	t.Role = entity.Role(role)
	if createdAt.Valid {
		t.CreatedAt = createdAt.Time.UTC()
	}
	return t, nil
}
