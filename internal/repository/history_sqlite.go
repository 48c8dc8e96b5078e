package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/futig/rag-chat/internal/pkg/keylock"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_turns (
	id         TEXT PRIMARY KEY,
	session_id TEXT    NOT NULL,
	seq        INTEGER NOT NULL,
	role       TEXT    NOT NULL,
	content    TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE (session_id, seq)
);`

var _ HistoryRepository = &HistorySQLite{}

// HistorySQLite stores turns in an embedded SQLite database.
type HistorySQLite struct {
	db    *sql.DB
	locks *keylock.Locker
	now   func() time.Time
}

func NewHistorySQLite(path string) (*HistorySQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return &HistorySQLite{
		db:    db,
		locks: keylock.New(),
		now:   time.Now,
	}, nil
}

func (r *HistorySQLite) Close() error {
	return r.db.Close()
}

func (r *HistorySQLite) Load(ctx context.Context, sessionID string) ([]entity.Turn, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, seq, role, content, created_at FROM chat_turns WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []entity.Turn{}
	for rows.Next() {
		t, err := scanSQLiteTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	return turns, nil
}

func (r *HistorySQLite) Append(ctx context.Context, sessionID string, turns ...entity.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	unlock := r.locks.Lock(sessionID)
	defer unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var last *entity.Turn
	row := tx.QueryRowContext(ctx,
		`SELECT id, seq, role, content, created_at FROM chat_turns WHERE session_id = ? ORDER BY seq DESC LIMIT 1`,
		sessionID,
	)
	t, err := scanSQLiteTurn(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		last = &t
	}

	stamped, err := stampTurns(turns, last, r.now())
	if err != nil {
		return fmt.Errorf("prepare turns: %w", err)
	}

	for _, t := range stamped {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_turns (id, session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, sessionID, t.Seq, string(t.Role), t.Content, t.CreatedAt.UnixMicro(),
		); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTurn(s rowScanner) (entity.Turn, error) {
	var (
		t         entity.Turn
		role      string
		createdAt int64
	)
	if err := s.Scan(&t.ID, &t.Seq, &role, &t.Content, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Turn{}, err
		}
		return entity.Turn{}, fmt.Errorf("scan turn: %w", err)
	}
	t.Role = entity.Role(role)
	t.CreatedAt = time.UnixMicro(createdAt).UTC()
	return t, nil
}
