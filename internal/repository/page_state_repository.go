package repository

import (
	"context"

	"github.com/andleeb4898/pantry/internal/domain/model"
)

// 画面状態の保存先（メモリ / Redis）。
// 見つからない・期限切れは ErrNotFound。
// 消すのは期限切れ（RedisはTTL、メモリは Sweep）だけ。
type PageStateRepository interface {
	Load(ctx context.Context, sessionID string) (model.PageState, error)
	Save(ctx context.Context, state model.PageState) error
}
