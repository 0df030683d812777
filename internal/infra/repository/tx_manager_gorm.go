package repository

import (
	"context"

	"github.com/andleeb4898/pantry/internal/domain/model"
	repo "github.com/andleeb4898/pantry/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	pantry      repo.PantryRepository
	adjustments repo.AdjustmentRepository
}

func (r *txReposGorm) Pantry() repo.PantryRepository           { return r.pantry }
func (r *txReposGorm) Adjustments() repo.AdjustmentRepository { return r.adjustments }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			pantry:      NewPantryGormRepository(tx),
			adjustments: NewAdjustmentGormRepository(tx),
		}
		return fn(r)
	})
}

// AutoMigrate はpantry関連のテーブルを作る。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.PantryItem{},
		&model.PantryAdjustment{},
	)
}
