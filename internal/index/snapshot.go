package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/futig/rag-chat/internal/entity"
)

// Snapshot is the on-disk form of the memory index, written by the indexer.
type Snapshot struct {
	Model     string         `json:"model"`
	Dimension int            `json:"dimension"`
	CreatedAt time.Time      `json:"created_at"`
	Chunks    []entity.Chunk `json:"chunks"`
}

// Validate checks that every chunk carries an embedding of the declared size.
func (s *Snapshot) Validate() error {
	if len(s.Chunks) == 0 {
		return nil
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: snapshot declares dimension %d", entity.ErrDimensionMismatch, s.Dimension)
	}
	for i, c := range s.Chunks {
		if len(c.Embedding) != s.Dimension {
			return fmt.Errorf("%w: chunk %d (%s) has %d, snapshot has %d",
				entity.ErrDimensionMismatch, i, c.ID, len(c.Embedding), s.Dimension)
		}
	}
	return nil
}

func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes the snapshot next to path and renames it into place, so
// watchers never read a half-written file.
func (s *Snapshot) Save(path string) error {
	if err := s.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}

var _ Writer = &SnapshotWriter{}

// SnapshotWriter collects chunks in memory and writes them out on Commit.
type SnapshotWriter struct {
	path string
	snap Snapshot
}

func NewSnapshotWriter(path, model string) *SnapshotWriter {
	return &SnapshotWriter{
		path: path,
		snap: Snapshot{Model: model},
	}
}

func (w *SnapshotWriter) Upsert(ctx context.Context, chunks []entity.Chunk) error {
	for _, c := range chunks {
		if w.snap.Dimension == 0 {
			w.snap.Dimension = len(c.Embedding)
		}
		if len(c.Embedding) != w.snap.Dimension {
			return fmt.Errorf("%w: chunk %s has %d, expected %d",
				entity.ErrDimensionMismatch, c.ID, len(c.Embedding), w.snap.Dimension)
		}
		w.snap.Chunks = append(w.snap.Chunks, c)
	}
	return nil
}

func (w *SnapshotWriter) Commit(ctx context.Context) error {
	w.snap.CreatedAt = time.Now().UTC()
	return w.snap.Save(w.path)
}
