package repository

import (
	"context"

	"github.com/andleeb4898/pantry/internal/domain/model"
	repo "github.com/andleeb4898/pantry/internal/repository"

	"gorm.io/gorm"
)

type adjustmentGormRepository struct {
	db *gorm.DB
}

func NewAdjustmentGormRepository(db *gorm.DB) repo.AdjustmentRepository {
	return &adjustmentGormRepository{db: db}
}

func (r *adjustmentGormRepository) Create(ctx context.Context, adj model.PantryAdjustment) error {
	if err := r.db.WithContext(ctx).Create(&adj).Error; err != nil {
		return err
	}
	return nil
}

func (r *adjustmentGormRepository) List(ctx context.Context, filter repo.AdjustmentFilter) ([]model.PantryAdjustment, error) {
	q := r.db.WithContext(ctx).Model(&model.PantryAdjustment{})

	if filter.ItemID != "" {
		q = q.Where("item_id = ?", filter.ItemID)
	}

	//新しい順
	q = q.Order("id DESC").Limit(repo.NormalizeLimit(filter.Limit))

	var adjs []model.PantryAdjustment
	if err := q.Find(&adjs).Error; err != nil {
		return nil, err
	}
	return adjs, nil
}
