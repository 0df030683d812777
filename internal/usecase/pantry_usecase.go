package usecase

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/andleeb4898/pantry/internal/domain/model"
	"github.com/andleeb4898/pantry/internal/metrics"
	repo "github.com/andleeb4898/pantry/internal/repository"

	"go.uber.org/zap"
)

const maxNameBytes = 255

type PantryUsecase struct {
	tx          repo.TransactionManager
	items       repo.PantryRepository
	adjustments repo.AdjustmentRepository
	metrics     *metrics.Metrics
	log         *zap.Logger
}

// DI
func NewPantryUsecase(
	tx repo.TransactionManager,
	items repo.PantryRepository,
	adjustments repo.AdjustmentRepository,
	m *metrics.Metrics,
	log *zap.Logger,
) *PantryUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &PantryUsecase{
		tx:          tx,
		items:       items,
		adjustments: adjustments,
		metrics:     m,
		log:         log,
	}
}

// ListAll は全件を作成順で返す。名前は表示用に先頭だけ大文字にする。
func (u *PantryUsecase) ListAll(ctx context.Context) ([]model.PantryItem, error) {
	items, err := u.items.List(ctx)
	if err != nil {
		u.log.Error("list pantry failed", zap.Error(err))
		u.metrics.RecordPantryOp("list", "error")
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	for i := range items {
		items[i].Name = model.DisplayName(items[i].Name)
	}
	u.metrics.RecordPantryOp("list", "ok")
	u.metrics.SetPantryItems(len(items))
	return items, nil
}

// POST /api/items, フォームの追加の入力DTO
type UpsertInput struct {
	Name     string
	Quantity int64
	Image    string
}

type UpsertOutput struct {
	Item    model.PantryItem `json:"item"`
	Created bool             `json:"created"`
}

// UpsertByName は同じ名前（大文字小文字無視）があれば数量を足し、なければ作る。
func (u *PantryUsecase) UpsertByName(ctx context.Context, in UpsertInput) (UpsertOutput, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		u.metrics.RecordPantryOp("upsert", "invalid")
		return UpsertOutput{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if len(name) > maxNameBytes {
		u.metrics.RecordPantryOp("upsert", "invalid")
		return UpsertOutput{}, NewHTTPError(http.StatusBadRequest, "name too long")
	}
	if in.Quantity < 1 {
		u.metrics.RecordPantryOp("upsert", "invalid")
		return UpsertOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be >= 1")
	}
	if in.Image != "" && !model.IsImageDataURI(in.Image) {
		u.metrics.RecordPantryOp("upsert", "invalid")
		return UpsertOutput{}, NewHTTPError(http.StatusBadRequest, "invalid image")
	}

	var out UpsertOutput
	run := func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			key := model.NameKey(name)

			existing, err := r.Pantry().FindByNameKey(ctx, key)
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				return err
			}

			if err == nil {
				if existing.Quantity > math.MaxInt64-in.Quantity {
					return repo.ErrQuantityOverflow
				}
				//既存に加算。画像は指定があるときだけ差し替え
				if err := r.Pantry().AddQuantity(ctx, existing.ID, in.Quantity, in.Image); err != nil {
					return err
				}
				updated, err := r.Pantry().FindByID(ctx, existing.ID)
				if err != nil {
					return err
				}
				if err := r.Adjustments().Create(ctx, model.PantryAdjustment{
					ItemID:        updated.ID,
					Name:          updated.Name,
					Delta:         in.Quantity,
					Reason:        model.AdjustmentReasonRestock,
					QuantityAfter: updated.Quantity,
				}); err != nil {
					return err
				}
				out = UpsertOutput{Item: updated, Created: false}
				return nil
			}

			created, err := r.Pantry().Create(ctx, model.PantryItem{
				Name:     name,
				NameKey:  key,
				Quantity: in.Quantity,
				Image:    in.Image,
			})
			if err != nil {
				return err
			}
			if err := r.Adjustments().Create(ctx, model.PantryAdjustment{
				ItemID:        created.ID,
				Name:          created.Name,
				Delta:         in.Quantity,
				Reason:        model.AdjustmentReasonCreate,
				QuantityAfter: created.Quantity,
			}); err != nil {
				return err
			}
			out = UpsertOutput{Item: created, Created: true}
			return nil
		})
	}

	err := run()
	if errors.Is(err, repo.ErrDuplicateName) {
		// 同時に同じ名前が作られた。もう一度やれば加算側に入る
		u.log.Info("duplicate name on create, retrying", zap.String("name", name))
		err = run()
	}
	if errors.Is(err, repo.ErrQuantityOverflow) {
		u.metrics.RecordPantryOp("upsert", "invalid")
		return UpsertOutput{}, NewHTTPError(http.StatusBadRequest, "quantity too large")
	}
	if err != nil {
		u.log.Error("upsert pantry failed", zap.String("name", name), zap.Error(err))
		u.metrics.RecordPantryOp("upsert", "error")
		return UpsertOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if out.Created {
		u.metrics.RecordPantryOp("upsert", "created")
	} else {
		u.metrics.RecordPantryOp("upsert", "updated")
	}
	return out, nil
}

type DecrementResult struct {
	Item    model.PantryItem `json:"item"`
	Deleted bool             `json:"deleted"`
}

// DecrementOrDelete は数量を1減らし、最後の1つなら削除する。
// expectedVersion が0より大きければ、現在のversionと一致するときだけ書き込む。
func (u *PantryUsecase) DecrementOrDelete(ctx context.Context, id string, expectedVersion int64) (DecrementResult, error) {
	if strings.TrimSpace(id) == "" {
		u.metrics.RecordPantryOp("decrement", "invalid")
		return DecrementResult{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if expectedVersion < 0 {
		u.metrics.RecordPantryOp("decrement", "invalid")
		return DecrementResult{}, NewHTTPError(http.StatusBadRequest, "invalid version")
	}

	var out DecrementResult
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Pantry().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if expectedVersion > 0 && cur.Version != expectedVersion {
			return repo.ErrVersionConflict
		}

		adj := model.PantryAdjustment{ItemID: cur.ID, Name: cur.Name, Delta: -1}
		if cur.Quantity > 1 {
			ok, err := r.Pantry().DecrementIfMoreThanOne(ctx, cur.ID, cur.Version)
			if err != nil {
				return err
			}
			if !ok {
				return repo.ErrVersionConflict
			}
			cur.Quantity--
			cur.Version++
			adj.Reason = model.AdjustmentReasonConsume
			adj.QuantityAfter = cur.Quantity
			out = DecrementResult{Item: cur}
		} else {
			ok, err := r.Pantry().DeleteIfLastOne(ctx, cur.ID, cur.Version)
			if err != nil {
				return err
			}
			if !ok {
				return repo.ErrVersionConflict
			}
			adj.Delta = -cur.Quantity
			adj.Reason = model.AdjustmentReasonRemove
			adj.QuantityAfter = 0
			out = DecrementResult{Item: cur, Deleted: true}
		}
		return r.Adjustments().Create(ctx, adj)
	})

	switch {
	case err == nil:
	case errors.Is(err, repo.ErrNotFound):
		u.metrics.RecordPantryOp("decrement", "not_found")
		return DecrementResult{}, NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrVersionConflict):
		u.metrics.RecordPantryOp("decrement", "conflict")
		return DecrementResult{}, NewHTTPError(http.StatusConflict, "version conflict")
	default:
		u.log.Error("decrement pantry failed", zap.String("id", id), zap.Error(err))
		u.metrics.RecordPantryOp("decrement", "error")
		return DecrementResult{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if out.Deleted {
		u.metrics.RecordPantryOp("decrement", "deleted")
	} else {
		u.metrics.RecordPantryOp("decrement", "decremented")
	}
	return out, nil
}

// ListAdjustments は1アイテムの数量変更履歴（新しい順）。
func (u *PantryUsecase) ListAdjustments(ctx context.Context, itemID string, limit int) ([]model.PantryAdjustment, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if limit < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	adjs, err := u.adjustments.List(ctx, repo.AdjustmentFilter{ItemID: itemID, Limit: limit})
	if err != nil {
		u.log.Error("list adjustments failed", zap.String("item_id", itemID), zap.Error(err))
		u.metrics.RecordPantryOp("adjustments", "error")
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	u.metrics.RecordPantryOp("adjustments", "ok")
	return adjs, nil
}

// Image はアイテムの画像（data URI）を返す。画像がなければ404。
func (u *PantryUsecase) Image(ctx context.Context, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	it, err := u.items.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return "", NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		u.log.Error("find pantry item failed", zap.String("id", id), zap.Error(err))
		return "", NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if it.Image == "" {
		return "", NewHTTPError(http.StatusNotFound, "no image")
	}
	return it.Image, nil
}
