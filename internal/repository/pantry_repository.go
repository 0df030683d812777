package repository

import (
	"context"
	"errors"

	"github.com/andleeb4898/pantry/internal/domain/model"
)

var (
	ErrNotFound = errors.New("not found")

	// 条件付き更新で対象のversionが変わっていた
	ErrVersionConflict = errors.New("version conflict")

	// name_keyの一意制約に違反
	ErrDuplicateName = errors.New("duplicate name")

	// 加算するとint64を超える
	ErrQuantityOverflow = errors.New("quantity overflow")
)

// pantryコレクションの永続化だけを約束。
// IDはストア側で採番する。
type PantryRepository interface {
	// 全件（created_at, id 昇順）
	List(ctx context.Context) ([]model.PantryItem, error)
	FindByID(ctx context.Context, id string) (model.PantryItem, error)
	FindByNameKey(ctx context.Context, nameKey string) (model.PantryItem, error)

	Create(ctx context.Context, item model.PantryItem) (model.PantryItem, error)

	// quantityにdeltaを足す。imageが空なら既存の画像を残す
	// 結果がint64を超えるなら ErrQuantityOverflow
	AddQuantity(ctx context.Context, id string, delta int64, image string) error

	// quantity > 1 かつ version 一致のときだけ1減らす
	DecrementIfMoreThanOne(ctx context.Context, id string, version int64) (bool, error)

	// quantity <= 1 かつ version 一致のときだけ削除
	DeleteIfLastOne(ctx context.Context, id string, version int64) (bool, error)
}
