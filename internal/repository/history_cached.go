package repository

import (
	"context"
	"time"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/futig/rag-chat/internal/pkg/keylock"
	"github.com/patrickmn/go-cache"
)

var _ HistoryRepository = &CachedHistory{}

// CachedHistory is a read-through cache in front of another store. Loads and
// appends of one session are serialized so a concurrent load can never put a
// stale log back into the cache after an append.
type CachedHistory struct {
	next  HistoryRepository
	cache *cache.Cache
	locks *keylock.Locker
}

func NewCachedHistory(next HistoryRepository, ttl, cleanupInterval time.Duration) *CachedHistory {
	return &CachedHistory{
		next:  next,
		cache: cache.New(ttl, cleanupInterval),
		locks: keylock.New(),
	}
}

func (r *CachedHistory) Load(ctx context.Context, sessionID string) ([]entity.Turn, error) {
	unlock := r.locks.Lock(sessionID)
	defer unlock()

	if cached, ok := r.cache.Get(sessionID); ok {
		return cloneTurns(cached.([]entity.Turn)), nil
	}

	turns, err := r.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	r.cache.Set(sessionID, cloneTurns(turns), cache.DefaultExpiration)
	return turns, nil
}

func (r *CachedHistory) Append(ctx context.Context, sessionID string, turns ...entity.Turn) error {
	unlock := r.locks.Lock(sessionID)
	defer unlock()

	// invalidate even on failure: the store may have partially committed
	r.cache.Delete(sessionID)
	return r.next.Append(ctx, sessionID, turns...)
}
