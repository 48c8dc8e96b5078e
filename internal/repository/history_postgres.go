package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ HistoryRepository = &HistoryPostgres{}

// lockSessionSQL upserts the session row and keeps its row lock until the
// transaction ends. Each session has its own row, so unrelated sessions
// never wait on each other.
const lockSessionSQL = `INSERT INTO chat_sessions (session_id) VALUES ($1)
ON CONFLICT (session_id) DO UPDATE SET session_id = EXCLUDED.session_id`

// HistoryPostgres implements HistoryRepository using PostgreSQL. Appends lock
// the session row for the length of the transaction, so writers from several
// processes are serialized as well.
type HistoryPostgres struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewHistoryPostgres(db *pgxpool.Pool) *HistoryPostgres {
	return &HistoryPostgres{
		db:  db,
		now: time.Now,
	}
}

func (r *HistoryPostgres) Load(ctx context.Context, sessionID string) ([]entity.Turn, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, seq, role, content, created_at FROM chat_turns WHERE session_id = $1 ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}

	turns, err := pgx.CollectRows(rows, scanPgTurn)
	if err != nil {
		return nil, fmt.Errorf("collect turns: %w", err)
	}
	if turns == nil {
		turns = []entity.Turn{}
	}

	return turns, nil
}

func (r *HistoryPostgres) Append(ctx context.Context, sessionID string, turns ...entity.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, lockSessionSQL, sessionID); err != nil {
		return fmt.Errorf("lock session: %w", err)
	}

	var last *entity.Turn
	rows, err := tx.Query(ctx,
		`SELECT id, seq, role, content, created_at FROM chat_turns WHERE session_id = $1 ORDER BY seq DESC LIMIT 1`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("query last turn: %w", err)
	}
	t, err := pgx.CollectOneRow(rows, scanPgTurn)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return fmt.Errorf("scan last turn: %w", err)
	default:
		last = &t
	}

	stamped, err := stampTurns(turns, last, r.now())
	if err != nil {
		return fmt.Errorf("prepare turns: %w", err)
	}

	batch := &pgx.Batch{}
	for _, t := range stamped {
		id, err := toPgUUID(t.ID)
		if err != nil {
			return err
		}
		batch.Queue(
			`INSERT INTO chat_turns (id, session_id, seq, role, content, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			id, sessionID, t.Seq, string(t.Role), t.Content, pgtype.Timestamptz{Time: t.CreatedAt, Valid: true},
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert turns: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
