package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/google/uuid"
)

// HistoryRepository persists the append-only turn log of each session.
type HistoryRepository interface {
	// Load returns the turns of a session ordered by Seq. Unknown sessions
	// yield an empty slice and no error.
	Load(ctx context.Context, sessionID string) ([]entity.Turn, error)
	// Append persists turns after every turn already stored for the session.
	// The turns are written as one unit, in the given order.
	Append(ctx context.Context, sessionID string, turns ...entity.Turn) error
}

// stampTurns prepares turns for storage: ids are generated when missing, Seq
// continues from last, and CreatedAt never goes backwards within a session.
// Times are kept in UTC at microsecond precision so every backend stores
// them losslessly.
func stampTurns(turns []entity.Turn, last *entity.Turn, now time.Time) ([]entity.Turn, error) {
	var (
		seq     int64
		minTime time.Time
	)
	if last != nil {
		seq = last.Seq
		minTime = last.CreatedAt
	}

	out := make([]entity.Turn, 0, len(turns))
	for _, t := range turns {
		if err := t.Role.Validate(); err != nil {
			return nil, err
		}

		seq++
		t.Seq = seq

		if t.ID == "" {
			t.ID = uuid.NewString()
		} else if _, err := uuid.Parse(t.ID); err != nil {
			return nil, fmt.Errorf("invalid turn id %q: %w", t.ID, err)
		}

		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.CreatedAt = t.CreatedAt.UTC().Truncate(time.Microsecond)
		if t.CreatedAt.Before(minTime) {
			t.CreatedAt = minTime
		}
		minTime = t.CreatedAt

		out = append(out, t)
	}

	return out, nil
}

func lastTurn(turns []entity.Turn) *entity.Turn {
	if len(turns) == 0 {
		return nil
	}
	return &turns[len(turns)-1]
}

func cloneTurns(turns []entity.Turn) []entity.Turn {
	out := make([]entity.Turn, len(turns))
	copy(out, turns)
	return out
}
