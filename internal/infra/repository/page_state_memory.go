package repository

import (
	"context"
	"sync"
	"time"

	"github.com/andleeb4898/pantry/internal/domain/model"
	repo "github.com/andleeb4898/pantry/internal/repository"
)

type stateEntry struct {
	state     model.PageState
	expiresAt time.Time
}

// プロセス内に画面状態を持つ実装。
// 期限切れは Load で見えなくなり、Sweep で消える。
type PageStateMemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]*stateEntry
	ttl     time.Duration
	now     func() time.Time
}

type MemoryOption func(*PageStateMemoryRepository)

// テスト用に時計を差し替える
func WithClock(fn func() time.Time) MemoryOption {
	return func(r *PageStateMemoryRepository) {
		if fn != nil {
			r.now = fn
		}
	}
}

func NewPageStateMemoryRepository(ttl time.Duration, opts ...MemoryOption) *PageStateMemoryRepository {
	r := &PageStateMemoryRepository{
		entries: make(map[string]*stateEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PageStateMemoryRepository) Load(ctx context.Context, sessionID string) (model.PageState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[sessionID]
	if !ok || r.now().After(e.expiresAt) {
		return model.PageState{}, repo.ErrNotFound
	}
	return e.state.Clone(), nil
}

func (r *PageStateMemoryRepository) Save(ctx context.Context, state model.PageState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[state.SessionID] = &stateEntry{
		state:     state.Clone(),
		expiresAt: r.now().Add(r.ttl),
	}
	return nil
}

// Sweep は期限切れを消して件数を返す。
func (r *PageStateMemoryRepository) Sweep(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := 0
	for sid, e := range r.entries {
		if now.After(e.expiresAt) {
			delete(r.entries, sid)
			n++
		}
	}
	return n
}

func (r *PageStateMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
