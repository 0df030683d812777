package repository

import (
	"context"
	"errors"
	"math"

	"github.com/andleeb4898/pantry/internal/domain/model"
	repo "github.com/andleeb4898/pantry/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// unique_violation
const pgUniqueViolation = "23505"

type PantryGormRepository struct {
	db *gorm.DB
}

// DI
func NewPantryGormRepository(db *gorm.DB) *PantryGormRepository {
	return &PantryGormRepository{db: db}
}

func (r *PantryGormRepository) List(ctx context.Context) ([]model.PantryItem, error) {
	var items []model.PantryItem
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// IDで1件取得
func (r *PantryGormRepository) FindByID(ctx context.Context, id string) (model.PantryItem, error) {
	var it model.PantryItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PantryItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PantryItem{}, err
	}
	return it, nil
}

// 名前キーで1件取得
func (r *PantryGormRepository) FindByNameKey(ctx context.Context, nameKey string) (model.PantryItem, error) {
	var it model.PantryItem
	err := r.db.WithContext(ctx).Where("name_key = ?", nameKey).First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PantryItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PantryItem{}, err
	}
	return it, nil
}

// 作成。IDはここで採番する
func (r *PantryGormRepository) Create(ctx context.Context, it model.PantryItem) (model.PantryItem, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.NameKey == "" {
		it.NameKey = model.NameKey(it.Name)
	}
	it.Version = 1

	if err := r.db.WithContext(ctx).Create(&it).Error; err != nil {
		if isUniqueViolation(err) {
			return model.PantryItem{}, repo.ErrDuplicateName
		}
		return model.PantryItem{}, err
	}
	return it, nil
}

// 数量を加算（画像は空でなければ差し替え）
func (r *PantryGormRepository) AddQuantity(ctx context.Context, id string, delta int64, image string) error {
	values := map[string]interface{}{
		"quantity": gorm.Expr("quantity + ?", delta),
		"version":  gorm.Expr("version + ?", 1),
	}
	if image != "" {
		values["image"] = image
	}

	res := r.db.WithContext(ctx).
		Model(&model.PantryItem{}).
		Where("id = ? AND quantity <= ?", id, int64(math.MaxInt64)-delta).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// 行が無いのか上限に当たったのかを見分ける
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return repo.ErrQuantityOverflow
	}
	return nil
}

// 2以上のときだけ1減らす
func (r *PantryGormRepository) DecrementIfMoreThanOne(ctx context.Context, id string, version int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.PantryItem{}).
		Where("id = ? AND quantity > ? AND version = ?", id, 1, version).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity - ?", 1),
			"version":  gorm.Expr("version + ?", 1),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 最後の1つなら削除
func (r *PantryGormRepository) DeleteIfLastOne(ctx context.Context, id string, version int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND quantity <= ? AND version = ?", id, 1, version).
		Delete(&model.PantryItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
