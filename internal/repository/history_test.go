package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/jackc/pgx/v5/pgxpool"
)

type storeFactory func(t *testing.T) (store HistoryRepository, reopen func() HistoryRepository)

func fileStore(t *testing.T) (HistoryRepository, func() HistoryRepository) {
	dir := t.TempDir()
	open := func() HistoryRepository {
		s, err := NewHistoryFile(dir)
		if err != nil {
			t.Fatalf("NewHistoryFile: %v", err)
		}
		return s
	}
	return open(), open
}

func sqliteStore(t *testing.T) (HistoryRepository, func() HistoryRepository) {
	path := filepath.Join(t.TempDir(), "history.db")
	open := func() HistoryRepository {
		s, err := NewHistorySQLite(path)
		if err != nil {
			t.Fatalf("NewHistorySQLite: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	}
	return open(), open
}

func cachedFileStore(t *testing.T) (HistoryRepository, func() HistoryRepository) {
	inner, reopenInner := fileStore(t)
	return NewCachedHistory(inner, time.Minute, time.Minute), func() HistoryRepository {
		return NewCachedHistory(reopenInner(), time.Minute, time.Minute)
	}
}

func postgresStore(t *testing.T) (HistoryRepository, func() HistoryRepository) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	if err := RunMigrations(url, "migrations"); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	open := func() HistoryRepository { return NewHistoryPostgres(pool) }
	return open(), open
}

var stores = map[string]storeFactory{
	"file":     fileStore,
	"sqlite":   sqliteStore,
	"cached":   cachedFileStore,
	"postgres": postgresStore,
}

// uniqueSession keeps runs against a shared database independent.
func uniqueSession(t *testing.T) string {
	return fmt.Sprintf("test-%d", time.Now().UnixNano())
}

func TestHistoryUnknownSessionIsEmpty(t *testing.T) {
	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			store, _ := factory(t)

			turns, err := store.Load(context.Background(), uniqueSession(t))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if turns == nil || len(turns) != 0 {
				t.Fatalf("expected empty non-nil slice, got %#v", turns)
			}
		})
	}
}

func TestHistoryAppendOrder(t *testing.T) {
	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			store, _ := factory(t)
			ctx := context.Background()
			session := uniqueSession(t)

			if err := store.Append(ctx, session, entity.Turn{Role: entity.RoleUser, Content: "t1"}); err != nil {
				t.Fatalf("Append t1: %v", err)
			}
			if err := store.Append(ctx, session, entity.Turn{Role: entity.RoleAssistant, Content: "t2"}); err != nil {
				t.Fatalf("Append t2: %v", err)
			}

			turns, err := store.Load(ctx, session)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(turns) != 2 {
				t.Fatalf("expected 2 turns, got %d", len(turns))
			}
			if turns[0].Content != "t1" || turns[1].Content != "t2" {
				t.Fatalf("wrong order: %q, %q", turns[0].Content, turns[1].Content)
			}
			if turns[0].Seq != 1 || turns[1].Seq != 2 {
				t.Fatalf("wrong seq: %d, %d", turns[0].Seq, turns[1].Seq)
			}
			if turns[1].CreatedAt.Before(turns[0].CreatedAt) {
				t.Fatalf("timestamps go backwards")
			}
		})
	}
}

func TestHistoryRoundTripAcrossRestart(t *testing.T) {
	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			store, reopen := factory(t)
			ctx := context.Background()
			session := uniqueSession(t)

			const n = 7
			for i := 0; i < n; i++ {
				role := entity.RoleUser
				if i%2 == 1 {
					role = entity.RoleAssistant
				}
				turn := entity.Turn{Role: role, Content: fmt.Sprintf("message %d\nwith ünïcode 球状闪电", i)}
				if err := store.Append(ctx, session, turn); err != nil {
					t.Fatalf("Append %d: %v", i, err)
				}
			}

			before, err := store.Load(ctx, session)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			after, err := reopen().Load(ctx, session)
			if err != nil {
				t.Fatalf("Load after reopen: %v", err)
			}

			if len(after) != n {
				t.Fatalf("expected %d turns, got %d", n, len(after))
			}
			if !reflect.DeepEqual(before, after) {
				t.Fatalf("turns differ after reopen:\nbefore %#v\nafter  %#v", before, after)
			}
			for i, turn := range after {
				if turn.Seq != int64(i+1) {
					t.Errorf("turn %d has seq %d", i, turn.Seq)
				}
			}
		})
	}
}

func TestHistoryConcurrentAppendsSameSession(t *testing.T) {
	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			store, _ := factory(t)
			ctx := context.Background()
			session := uniqueSession(t)

			const workers = 10
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- store.Append(ctx, session,
						entity.Turn{Role: entity.RoleUser, Content: fmt.Sprintf("q%d", i)},
						entity.Turn{Role: entity.RoleAssistant, Content: fmt.Sprintf("a%d", i)},
					)
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Fatalf("Append: %v", err)
				}
			}

			turns, err := store.Load(ctx, session)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(turns) != 2*workers {
				t.Fatalf("expected %d turns, got %d", 2*workers, len(turns))
			}

			// each q/a pair must be adjacent
			for i := 0; i < len(turns); i += 2 {
				q, a := turns[i], turns[i+1]
				if q.Role != entity.RoleUser || a.Role != entity.RoleAssistant {
					t.Fatalf("pair %d interleaved: %s/%s", i/2, q.Role, a.Role)
				}
				if q.Content[1:] != a.Content[1:] {
					t.Fatalf("pair %d mixed: %q/%q", i/2, q.Content, a.Content)
				}
			}
			for i, turn := range turns {
				if turn.Seq != int64(i+1) {
					t.Fatalf("turn %d has seq %d", i, turn.Seq)
				}
			}
		})
	}
}

func TestHistoryRejectsUnknownRole(t *testing.T) {
	store, _ := fileStore(t)

	err := store.Append(context.Background(), "s1", entity.Turn{Role: "system", Content: "x"})
	if err == nil {
		t.Fatal("expected error for system role")
	}

	turns, _ := store.Load(context.Background(), "s1")
	if len(turns) != 0 {
		t.Fatalf("nothing should be persisted, got %d turns", len(turns))
	}
}

func TestHistoryFileCorruptIsError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewHistoryFile(dir)
	if err != nil {
		t.Fatalf("NewHistoryFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "s1.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := store.Load(context.Background(), "s1"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFileNameHashesUnsafeIDs(t *testing.T) {
	if got := fileName("tg-42"); got != "tg-42.json" {
		t.Errorf("fileName(tg-42) = %q", got)
	}
	for _, id := range []string{"../x", "a/b", ".hidden", ""} {
		got := fileName(id)
		if filepath.Base(got) != got || got[:7] != "sha256-" {
			t.Errorf("fileName(%q) = %q is not a hashed name", id, got)
		}
	}
}

type countingStore struct {
	HistoryRepository
	loads int
}

func (s *countingStore) Load(ctx context.Context, sessionID string) ([]entity.Turn, error) {
	s.loads++
	return s.HistoryRepository.Load(ctx, sessionID)
}

func TestCachedHistoryInvalidatesOnAppend(t *testing.T) {
	inner, _ := fileStore(t)
	counting := &countingStore{HistoryRepository: inner}
	store := NewCachedHistory(counting, time.Minute, time.Minute)
	ctx := context.Background()

	if _, err := store.Load(ctx, "s1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := store.Load(ctx, "s1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if counting.loads != 1 {
		t.Fatalf("expected one underlying load, got %d", counting.loads)
	}

	if err := store.Append(ctx, "s1", entity.Turn{Role: entity.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	turns, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(turns) != 1 || counting.loads != 2 {
		t.Fatalf("expected fresh load with 1 turn, got %d turns after %d loads", len(turns), counting.loads)
	}

	// callers must not be able to mutate the cached slice
	turns[0].Content = "mutated"
	again, _ := store.Load(ctx, "s1")
	if again[0].Content != "hi" {
		t.Fatalf("cache was mutated through a returned slice")
	}
}

func TestStampTurnsClampsTime(t *testing.T) {
	lastTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	last := &entity.Turn{Seq: 4, CreatedAt: lastTime}

	stamped, err := stampTurns([]entity.Turn{
		{Role: entity.RoleUser, Content: "late clock", CreatedAt: lastTime.Add(-time.Hour)},
		{Role: entity.RoleAssistant, Content: "no time"},
	}, last, lastTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("stampTurns: %v", err)
	}

	if stamped[0].Seq != 5 || stamped[1].Seq != 6 {
		t.Fatalf("wrong seq: %d, %d", stamped[0].Seq, stamped[1].Seq)
	}
	if !stamped[0].CreatedAt.Equal(lastTime) {
		t.Errorf("expected clamp to %v, got %v", lastTime, stamped[0].CreatedAt)
	}
	if !stamped[1].CreatedAt.Equal(lastTime.Add(time.Minute)) {
		t.Errorf("expected now, got %v", stamped[1].CreatedAt)
	}
	if stamped[0].ID == "" || stamped[0].ID == stamped[1].ID {
		t.Errorf("ids not generated: %q %q", stamped[0].ID, stamped[1].ID)
	}
}
