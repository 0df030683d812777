package usecase

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andleeb4898/pantry/internal/domain/model"
	infrarepo "github.com/andleeb4898/pantry/internal/infra/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type PantryServiceMock struct{ mock.Mock }

func (m *PantryServiceMock) ListAll(ctx context.Context) ([]model.PantryItem, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.PantryItem)
	return items, args.Error(1)
}

func (m *PantryServiceMock) UpsertByName(ctx context.Context, in UpsertInput) (UpsertOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(UpsertOutput)
	return out, args.Error(1)
}

func (m *PantryServiceMock) DecrementOrDelete(ctx context.Context, id string, expectedVersion int64) (DecrementResult, error) {
	args := m.Called(ctx, id, expectedVersion)
	out, _ := args.Get(0).(DecrementResult)
	return out, args.Error(1)
}

// 中身をそのまま data URI 風にする
type stubEncoder struct{ err error }

func (e stubEncoder) Encode(r io.Reader) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	raw, _ := io.ReadAll(r)
	return "data:image/png;base64," + string(raw), nil
}

var (
	apple  = model.PantryItem{ID: "1", Name: "Apple", Quantity: 3, Version: 1}
	banana = model.PantryItem{ID: "2", Name: "Banana", Quantity: 1, Version: 1}
)

func newPageUsecase(svc *PantryServiceMock, enc ImageEncoder) *PageUsecase {
	if enc == nil {
		enc = stubEncoder{}
	}
	return NewPageUsecase(svc, infrarepo.NewPageStateMemoryRepository(time.Hour), enc, nil)
}

func TestMount_StateHoldsNoImageBodies(t *testing.T) {
	ctx := context.Background()
	svc := new(PantryServiceMock)
	withImage := model.PantryItem{ID: "3", Name: "Carrot", Quantity: 2, Version: 1, Image: "data:image/png;base64,PNG"}
	svc.On("ListAll", ctx).Return([]model.PantryItem{apple, withImage}, nil).Once()

	states := infrarepo.NewPageStateMemoryRepository(time.Hour)
	u := NewPageUsecase(svc, states, stubEncoder{}, nil)

	st, err := u.Mount(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, st.Items, 2)
	assert.False(t, st.Items[0].HasImage)
	assert.True(t, st.Items[1].HasImage)
	assert.Empty(t, st.Items[1].Image)

	saved, err := states.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, saved.Items[1].Image)
	assert.True(t, saved.Items[1].HasImage)
	svc.AssertExpectations(t)
}

func TestMount_FetchesOnceThenReusesState(t *testing.T) {
	ctx := context.Background()
	svc := new(PantryServiceMock)
	svc.On("ListAll", ctx).Return([]model.PantryItem{apple, banana}, nil).Once()
	u := newPageUsecase(svc, nil)

	st, err := u.Mount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ModeIdle, st.Mode)
	assert.Len(t, st.Items, 2)
	assert.False(t, st.FetchedAt.IsZero())

	st, err = u.Mount(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, st.Items, 2)

	svc.AssertNumberOfCalls(t, "ListAll", 1)
}

func TestMount_FetchFailureKeepsEmptyList(t *testing.T) {
	ctx := context.Background()
	svc := new(PantryServiceMock)
	svc.On("ListAll", ctx).Return(nil, NewHTTPError(http.StatusInternalServerError, "db error"))
	u := newPageUsecase(svc, nil)

	st, err := u.Mount(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, st.Items)
}

func TestModalTransitions(t *testing.T) {
	ctx := context.Background()
	svc := new(PantryServiceMock)
	svc.On("ListAll", ctx).Return([]model.PantryItem{}, nil)
	u := newPageUsecase(svc, nil)

	st, err := u.OpenAdd(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ModeAddOpen, st.Mode)

	// 追加モーダル中は検索モーダルを開けない
	st, err = u.OpenSearch(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ModeAddOpen, st.Mode)

	st, err = u.CancelSearch(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ModeAddOpen, st.Mode)

	st, err = u.CancelAdd(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ModeIdle, st.Mode)

	st, err = u.OpenSearch(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ModeSearchOpen, st.Mode)

	st, err = u.CancelSearch(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ModeIdle, st.Mode)
}

func TestSubmitAdd_EmptyFieldsAreNoop(t *testing.T) {
	ctx := context.Background()
	svc := new(PantryServiceMock)
	svc.On("ListAll", ctx).Return([]model.PantryItem{}, nil)
	u := newPageUsecase(svc, nil)

	_, err := u.OpenAdd(ctx, "s1")
	require.NoError(t, err)

	for _, in := range []AddFormInput{
		{Name: "", Quantity: "2"},
		{Name: "apple", Quantity: ""},
		{Name: "apple", Quantity: "abc"},
		{Name: "apple", Quantity: "0"},
	} {
		st, err := u.SubmitAdd(ctx, "s1", in, nil)
		require.NoError(t, err)
		assert.Equal(t, model.ModeAddOpen, st.Mode)
		assert.Equal(t, in.Name, st.Form.Name)
	}

	svc.AssertNotCalled(t, "UpsertByName", mock.Anything, mock.Anything)
}

func TestSubmitAdd_Success(t *testing.T) {
	ctx := context.Background()
	svc := new(PantryServiceMock)
	svc.On("ListAll", ctx).Return([]model.PantryItem{}, nil).Once()
	svc.On("UpsertByName", ctx, UpsertInput{Name: "apple", Quantity: 3, Image: "data:image/png;base64,PNG"}).
		Return(UpsertOutput{Item: apple, Created: true}, nil).Once()
	svc.On("ListAll", ctx).Return([]model.PantryItem{apple}, nil).Once()
	u := newPageUsecase(svc, nil)

	_, err := u.OpenAdd(ctx, "s1")
	require.NoError(t, err)

	st, err := u.AttachImage(ctx, "s1", AddFormInput{Name: "apple", Quantity: "3"}, strings.NewReader("PNG"))
	require.NoError(t, err)
	assert.Equal(t, model.ModeAddOpen, st.Mode)
	assert.Equal(t, "data:image/png;base64,PNG", st.Form.Image)

	st, err = u.SubmitAdd(ctx, "s1", AddFormInput{Name: "apple", Quantity: "3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ModeIdle, st.Mode)
	assert.Equal(t, model.AddForm{}, st.Form)
	assert.Equal(t, []model.PantryItem{apple}, st.Items)

	svc.AssertExpectations(t)
}

func TestSubmitAdd_RemoteFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	svc := new(PantryServiceMock)
	svc.On("ListAll", ctx).Return([]model.PantryItem{banana}, nil).Once()
	svc.On("UpsertByName", ctx, mock.Anything).Return(UpsertOutput{}, NewHTTPError(http.StatusInternalServerError, "db error"))
	u := newPageUsecase(svc, nil)

	_, err := u.OpenAdd(ctx, "s1")
	require.NoError(t, err)

	st, err := u.SubmitAdd(ctx, "s1", AddFormInput{Name: "apple", Quantity: "1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ModeAddOpen, st.Mode)
	assert.Equal(t, []model.PantryItem{banana}, st.Items)
	svc.AssertNumberOfCalls(t, "ListAll", 1)
}

func TestSubmitAdd_BadImageIsNoop(t *testing.T) {
	ctx := context.Background()
	svc := new(PantryServiceMock)
	svc.On("ListAll", ctx).Return([]model.PantryItem{}, nil)
	u := newPageUsecase(svc, stubEncoder{err: errors.New("file is not an image")})

	_, err := u.OpenAdd(ctx, "s1")
	require.NoError(t, err)

	st, err := u.SubmitAdd(ctx, "s1", AddFormInput{Name: "apple", Quantity: "1"}, strings.NewReader("text"))
	require.NoError(t, err)
	assert.Equal(t, model.ModeAddOpen, st.Mode)
	assert.Empty(t, st.Form.Image)
	svc.AssertNotCalled(t, "UpsertByName", mock.Anything, mock.Anything)
}

func TestSubmitSearch_FiltersWithoutDroppingItems(t *testing.T) {
	ctx := context.Background()
	svc := new(PantryServiceMock)
	svc.On("ListAll", ctx).Return([]model.PantryItem{apple, banana}, nil)
	u := newPageUsecase(svc, nil)

	_, err := u.OpenSearch(ctx, "s1")
	require.NoError(t, err)
	st, err := u.SubmitSearch(ctx, "s1", "app")
	require.NoError(t, err)
	assert.Equal(t, model.ModeIdle, st.Mode)
	assert.Equal(t, []model.PantryItem{apple}, st.VisibleItems())
	assert.Len(t, st.Items, 2)
	svc.AssertNumberOfCalls(t, "ListAll", 1)

	// 空の検索は取り直して全件に戻す
	_, err = u.OpenSearch(ctx, "s1")
	require.NoError(t, err)
	st, err = u.SubmitSearch(ctx, "s1", "  ")
	require.NoError(t, err)
	assert.Empty(t, st.Query)
	assert.Len(t, st.VisibleItems(), 2)
	svc.AssertNumberOfCalls(t, "ListAll", 2)
}

func TestSubmitSearch_IgnoredWhenModalClosed(t *testing.T) {
	ctx := context.Background()
	svc := new(PantryServiceMock)
	svc.On("ListAll", ctx).Return([]model.PantryItem{apple, banana}, nil)
	u := newPageUsecase(svc, nil)

	st, err := u.SubmitSearch(ctx, "s1", "app")
	require.NoError(t, err)
	assert.Empty(t, st.Query)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		err         error
		wantRefresh bool
	}{
		{name: "ok", err: nil, wantRefresh: true},
		{name: "not found", err: NewHTTPError(http.StatusNotFound, "not found"), wantRefresh: true},
		{name: "conflict", err: NewHTTPError(http.StatusConflict, "version conflict"), wantRefresh: true},
		{name: "db error", err: NewHTTPError(http.StatusInternalServerError, "db error"), wantRefresh: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(PantryServiceMock)
			svc.On("ListAll", ctx).Return([]model.PantryItem{apple, banana}, nil).Once()
			svc.On("DecrementOrDelete", ctx, "2", int64(1)).Return(DecrementResult{Deleted: true}, tt.err)
			svc.On("ListAll", ctx).Return([]model.PantryItem{apple}, nil).Once()
			u := newPageUsecase(svc, nil)

			_, err := u.Mount(ctx, "s1")
			require.NoError(t, err)

			st, err := u.Remove(ctx, "s1", "2", 1)
			require.NoError(t, err)
			if tt.wantRefresh {
				assert.Equal(t, []model.PantryItem{apple}, st.Items)
				svc.AssertNumberOfCalls(t, "ListAll", 2)
			} else {
				assert.Len(t, st.Items, 2)
				svc.AssertNumberOfCalls(t, "ListAll", 1)
			}
		})
	}
}

func TestRefresh_FailureKeepsPreviousList(t *testing.T) {
	ctx := context.Background()
	svc := new(PantryServiceMock)
	svc.On("ListAll", ctx).Return([]model.PantryItem{apple}, nil).Once()
	svc.On("ListAll", ctx).Return(nil, NewHTTPError(http.StatusInternalServerError, "db error")).Once()
	u := newPageUsecase(svc, nil)

	_, err := u.Mount(ctx, "s1")
	require.NoError(t, err)
	st, err := u.Refresh(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []model.PantryItem{apple}, st.Items)
}

func TestPageUsecase_EmptySessionRejected(t *testing.T) {
	u := newPageUsecase(new(PantryServiceMock), nil)

	_, err := u.Mount(context.Background(), "")
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestPageUsecase_SameSessionSerialized(t *testing.T) {
	ctx := context.Background()
	svc := new(PantryServiceMock)
	svc.On("ListAll", ctx).Return([]model.PantryItem{}, nil)
	svc.On("UpsertByName", ctx, mock.Anything).Return(UpsertOutput{}, nil)
	u := newPageUsecase(svc, nil)

	// 並行に開いて送っても状態が壊れない（モーダルは常に1つ）
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = u.OpenAdd(ctx, "s1")
		}()
		go func() {
			defer wg.Done()
			_, _ = u.SubmitAdd(ctx, "s1", AddFormInput{Name: "apple", Quantity: "1"}, nil)
		}()
	}
	wg.Wait()

	st, err := u.Mount(ctx, "s1")
	require.NoError(t, err)
	assert.Contains(t, []model.Mode{model.ModeIdle, model.ModeAddOpen}, st.Mode)
}
