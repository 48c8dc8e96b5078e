package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/futig/rag-chat/internal/pkg/keylock"
)

var safeFileName = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9_.-]{0,127}$`)

var _ HistoryRepository = &HistoryFile{}

// HistoryFile keeps one JSON array of turns per session in a directory.
type HistoryFile struct {
	dir   string
	locks *keylock.Locker
	now   func() time.Time
}

func NewHistoryFile(dir string) (*HistoryFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	return &HistoryFile{
		dir:   dir,
		locks: keylock.New(),
		now:   time.Now,
	}, nil
}

func (r *HistoryFile) Load(ctx context.Context, sessionID string) ([]entity.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// files are replaced by rename, so a reader sees either the old or the new log
	return r.read(sessionID)
}

func (r *HistoryFile) Append(ctx context.Context, sessionID string, turns ...entity.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := r.locks.Lock(sessionID)
	defer unlock()

	existing, err := r.read(sessionID)
	if err != nil {
		return err
	}

	stamped, err := stampTurns(turns, lastTurn(existing), r.now())
	if err != nil {
		return fmt.Errorf("prepare turns: %w", err)
	}

	return r.write(sessionID, append(existing, stamped...))
}

func (r *HistoryFile) read(sessionID string) ([]entity.Turn, error) {
	data, err := os.ReadFile(r.path(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return []entity.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}

	turns := []entity.Turn{}
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("decode history file %s: %w", filepath.Base(r.path(sessionID)), err)
	}

	return turns, nil
}

func (r *HistoryFile) write(sessionID string, turns []entity.Turn) error {
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, r.path(sessionID)); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}

	return nil
}

func (r *HistoryFile) path(sessionID string) string {
	return filepath.Join(r.dir, fileName(sessionID))
}

// fileName maps a session id to a file name. Ids that are not safe as a
// path component are hashed.
func fileName(sessionID string) string {
	if safeFileName.MatchString(sessionID) {
		return sessionID + ".json"
	}
	sum := sha256.Sum256([]byte(sessionID))
	return "sha256-" + hex.EncodeToString(sum[:]) + ".json"
}
