package repository

import (
	"context"

	"github.com/andleeb4898/pantry/internal/domain/model"
)

//履歴の絞り込み条件。

type AdjustmentFilter struct {
	ItemID string
	Limit  int
}

// 数量変更履歴の保存・一覧取得の約束。
type AdjustmentRepository interface {
	Create(ctx context.Context, adj model.PantryAdjustment) error

	//新しい順
	List(ctx context.Context, filter AdjustmentFilter) ([]model.PantryAdjustment, error)
}

// limitの既定値と上限
func NormalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
