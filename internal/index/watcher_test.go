package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcherReloadsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := snapshotOf([]float32{1, 0}).Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	idx, _ := NewMemoryFromSnapshot(snap)

	w, err := NewWatcher(path, idx, 10*time.Millisecond, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := snapshotOf([]float32{1, 0}, []float32{0, 1}, []float32{1, 1}).Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	waitFor(t, func() bool { return idx.Len() == 3 })

	// a broken snapshot keeps the previous contents
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if idx.Len() != 3 {
		t.Fatalf("index changed after a broken snapshot: %d chunks", idx.Len())
	}
}
