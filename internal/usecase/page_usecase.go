package usecase

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/andleeb4898/pantry/internal/domain/model"
	repo "github.com/andleeb4898/pantry/internal/repository"

	"go.uber.org/zap"
)

// PageUsecase が使う在庫操作
type PantryService interface {
	ListAll(ctx context.Context) ([]model.PantryItem, error)
	UpsertByName(ctx context.Context, in UpsertInput) (UpsertOutput, error)
	DecrementOrDelete(ctx context.Context, id string, expectedVersion int64) (DecrementResult, error)
}

// アップロード画像を data URI にする
type ImageEncoder interface {
	Encode(r io.Reader) (string, error)
}

// 追加モーダルのフォーム入力
type AddFormInput struct {
	Name     string
	Quantity string
}

const lockStripes = 64

// PageUsecase はセッションごとの画面状態を持ち、操作に応じて在庫操作を呼ぶ。
// ストア側の失敗はログに出すだけで、画面状態はそのまま残す。
type PageUsecase struct {
	pantry  PantryService
	states  repo.PageStateRepository
	encoder ImageEncoder
	log     *zap.Logger
	now     func() time.Time

	// 同じセッションの操作は直列にする
	locks [lockStripes]sync.Mutex
}

// DI
func NewPageUsecase(pantry PantryService, states repo.PageStateRepository, encoder ImageEncoder, log *zap.Logger) *PageUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &PageUsecase{
		pantry:  pantry,
		states:  states,
		encoder: encoder,
		log:     log,
		now:     time.Now,
	}
}

// Mount は初回なら全件取得して状態を作り、既存なら保存済みの状態を返す。
func (u *PageUsecase) Mount(ctx context.Context, sessionID string) (model.PageState, error) {
	return u.update(ctx, sessionID, func(st *model.PageState) {})
}

func (u *PageUsecase) OpenAdd(ctx context.Context, sessionID string) (model.PageState, error) {
	return u.update(ctx, sessionID, func(st *model.PageState) {
		st.Apply(model.EventOpenAdd)
	})
}

func (u *PageUsecase) OpenSearch(ctx context.Context, sessionID string) (model.PageState, error) {
	return u.update(ctx, sessionID, func(st *model.PageState) {
		st.Apply(model.EventOpenSearch)
	})
}

// 入力中の値は残す
func (u *PageUsecase) CancelAdd(ctx context.Context, sessionID string) (model.PageState, error) {
	return u.update(ctx, sessionID, func(st *model.PageState) {
		st.Apply(model.EventCancelAdd)
	})
}

func (u *PageUsecase) CancelSearch(ctx context.Context, sessionID string) (model.PageState, error) {
	return u.update(ctx, sessionID, func(st *model.PageState) {
		st.Apply(model.EventCancelSearch)
	})
}

// AttachImage は画像をフォームに添付する（プレビュー用）。モーダルは開いたまま。
func (u *PageUsecase) AttachImage(ctx context.Context, sessionID string, in AddFormInput, file io.Reader) (model.PageState, error) {
	return u.update(ctx, sessionID, func(st *model.PageState) {
		if st.Mode != model.ModeAddOpen {
			return
		}
		st.Form.Name = in.Name
		st.Form.Quantity = in.Quantity
		if file == nil {
			return
		}
		image, err := u.encoder.Encode(file)
		if err != nil {
			u.log.Warn("encode image failed", zap.String("session_id", sessionID), zap.Error(err))
			return
		}
		st.Form.Image = image
	})
}

// SubmitAdd は入力を検証して追加する。名前か数量が不正なら何もしない。
func (u *PageUsecase) SubmitAdd(ctx context.Context, sessionID string, in AddFormInput, file io.Reader) (model.PageState, error) {
	return u.update(ctx, sessionID, func(st *model.PageState) {
		if !st.CanApply(model.EventSubmitAdd) {
			return
		}
		st.Form.Name = in.Name
		st.Form.Quantity = in.Quantity
		if file != nil {
			image, err := u.encoder.Encode(file)
			if err != nil {
				u.log.Warn("encode image failed", zap.String("session_id", sessionID), zap.Error(err))
				return
			}
			st.Form.Image = image
		}

		if strings.TrimSpace(in.Name) == "" {
			return
		}
		qty, err := ParseQuantity(in.Quantity)
		if err != nil {
			return
		}

		_, err = u.pantry.UpsertByName(ctx, UpsertInput{
			Name:     in.Name,
			Quantity: qty,
			Image:    st.Form.Image,
		})
		if err != nil {
			u.log.Error("add item failed", zap.String("session_id", sessionID), zap.Error(err))
			return
		}

		st.Form = model.AddForm{}
		st.Apply(model.EventSubmitAdd)
		u.refresh(ctx, st)
	})
}

// SubmitSearch は検索条件を保存する。全件は残したまま表示だけ絞り込む。
// 空なら条件を消して取り直す。
func (u *PageUsecase) SubmitSearch(ctx context.Context, sessionID string, query string) (model.PageState, error) {
	return u.update(ctx, sessionID, func(st *model.PageState) {
		if !st.Apply(model.EventSubmitSearch) {
			return
		}
		q := strings.TrimSpace(query)
		if q == "" {
			st.Query = ""
			u.refresh(ctx, st)
			return
		}
		st.Query = q
	})
}

// Remove は1つ減らす（最後の1つなら削除）。
// 404/409 のときも一覧を取り直して最新に合わせる。
func (u *PageUsecase) Remove(ctx context.Context, sessionID string, id string, version int64) (model.PageState, error) {
	return u.update(ctx, sessionID, func(st *model.PageState) {
		_, err := u.pantry.DecrementOrDelete(ctx, id, version)
		if err != nil {
			he, ok := AsHTTPError(err)
			if !ok || (he.Status != http.StatusNotFound && he.Status != http.StatusConflict) {
				u.log.Error("remove item failed", zap.String("session_id", sessionID), zap.String("id", id), zap.Error(err))
				return
			}
			u.log.Info("stale item on remove", zap.String("session_id", sessionID), zap.String("id", id), zap.Int("status", he.Status))
		}
		u.refresh(ctx, st)
	})
}

func (u *PageUsecase) Refresh(ctx context.Context, sessionID string) (model.PageState, error) {
	return u.update(ctx, sessionID, func(st *model.PageState) {
		u.refresh(ctx, st)
	})
}

// update はロックを取り、状態を読み込んで fn を適用し保存する。
func (u *PageUsecase) update(ctx context.Context, sessionID string, fn func(st *model.PageState)) (model.PageState, error) {
	if sessionID == "" {
		return model.PageState{}, NewHTTPError(http.StatusBadRequest, "session required")
	}

	mu := u.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	st, err := u.states.Load(ctx, sessionID)
	if errors.Is(err, repo.ErrNotFound) {
		//初回は全件取得
		st = model.NewPageState(sessionID)
		u.refresh(ctx, &st)
	} else if err != nil {
		u.log.Error("load page state failed", zap.String("session_id", sessionID), zap.Error(err))
		return model.PageState{}, NewHTTPError(http.StatusInternalServerError, "state error")
	}

	fn(&st)

	if err := u.states.Save(ctx, st); err != nil {
		u.log.Error("save page state failed", zap.String("session_id", sessionID), zap.Error(err))
		return model.PageState{}, NewHTTPError(http.StatusInternalServerError, "state error")
	}
	return st, nil
}

// 失敗したら前の一覧のまま
func (u *PageUsecase) refresh(ctx context.Context, st *model.PageState) {
	items, err := u.pantry.ListAll(ctx)
	if err != nil {
		u.log.Warn("refresh items failed", zap.String("session_id", st.SessionID), zap.Error(err))
		return
	}
	// 画像本体は /api/items/:id/image から読む
	st.Items = make([]model.PantryItem, len(items))
	for i, it := range items {
		st.Items[i] = it.WithoutImage()
	}
	st.FetchedAt = u.now()
}

func (u *PageUsecase) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &u.locks[h.Sum32()%lockStripes]
}
