package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andleeb4898/pantry/internal/domain/model"
	repo "github.com/andleeb4898/pantry/internal/repository"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "pantry:state:"

// 複数プロセスで画面状態を共有するときの実装。
// TTLは保存のたびに延長される。
type PageStateRedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPageStateRedisRepository(client *redis.Client, ttl time.Duration) *PageStateRedisRepository {
	return &PageStateRedisRepository{client: client, ttl: ttl}
}

func (r *PageStateRedisRepository) Load(ctx context.Context, sessionID string) (model.PageState, error) {
	raw, err := r.client.Get(ctx, stateKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.PageState{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PageState{}, fmt.Errorf("redis get state: %w", err)
	}

	var st model.PageState
	if err := docJSON.Unmarshal(raw, &st); err != nil {
		return model.PageState{}, fmt.Errorf("decode state: %w", err)
	}
	if st.Items == nil {
		st.Items = []model.PantryItem{}
	}
	return st, nil
}

func (r *PageStateRedisRepository) Save(ctx context.Context, state model.PageState) error {
	raw, err := docJSON.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := r.client.Set(ctx, stateKey(state.SessionID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set state: %w", err)
	}
	return nil
}

func stateKey(sessionID string) string {
	return stateKeyPrefix + sessionID
}
