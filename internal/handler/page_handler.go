package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/andleeb4898/pantry/internal/domain/model"
	mw "github.com/andleeb4898/pantry/internal/middleware"
	"github.com/andleeb4898/pantry/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 画面の表示用
type pageView struct {
	Items      []model.PantryItem
	Query      string
	Form       model.AddForm
	AddOpen    bool
	SearchOpen bool
}

func newPageView(st model.PageState) pageView {
	return pageView{
		Items:      st.VisibleItems(),
		Query:      st.Query,
		Form:       st.Form,
		AddOpen:    st.Mode == model.ModeAddOpen,
		SearchOpen: st.Mode == model.ModeSearchOpen,
	}
}

// サーバーレンダリングの画面。POSTのあとは / にリダイレクトする
type PageHandler struct {
	uc *usecase.PageUsecase
}

// DI
func NewPageHandler(uc *usecase.PageUsecase) *PageHandler {
	return &PageHandler{uc: uc}
}

func (h *PageHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.index)
	e.POST("/modal/add", h.openAdd)
	e.POST("/modal/search", h.openSearch)
	e.POST("/modal/add/cancel", h.cancelAdd)
	e.POST("/modal/search/cancel", h.cancelSearch)
	e.POST("/items", h.submitItem)
	e.POST("/items/:id/delete", h.remove)
	e.POST("/search", h.search)
	e.POST("/refresh", h.refresh)
}

func (h *PageHandler) index(c echo.Context) error {
	st, err := h.uc.Mount(c.Request().Context(), mw.GetSessionID(c))
	if err != nil {
		return pageError(err)
	}
	return c.Render(http.StatusOK, "index.html", newPageView(st))
}

// ほかのセッションの変更を取り込む
func (h *PageHandler) refresh(c echo.Context) error {
	_, err := h.uc.Refresh(c.Request().Context(), mw.GetSessionID(c))
	return redirectHome(c, err)
}

func (h *PageHandler) openAdd(c echo.Context) error {
	_, err := h.uc.OpenAdd(c.Request().Context(), mw.GetSessionID(c))
	return redirectHome(c, err)
}

func (h *PageHandler) openSearch(c echo.Context) error {
	_, err := h.uc.OpenSearch(c.Request().Context(), mw.GetSessionID(c))
	return redirectHome(c, err)
}

func (h *PageHandler) cancelAdd(c echo.Context) error {
	_, err := h.uc.CancelAdd(c.Request().Context(), mw.GetSessionID(c))
	return redirectHome(c, err)
}

func (h *PageHandler) cancelSearch(c echo.Context) error {
	_, err := h.uc.CancelSearch(c.Request().Context(), mw.GetSessionID(c))
	return redirectHome(c, err)
}

// 追加モーダルの送信。action=preview なら画像だけ添付してモーダルを開いたままにする
func (h *PageHandler) submitItem(c echo.Context) error {
	ctx := c.Request().Context()
	sid := mw.GetSessionID(c)
	in := usecase.AddFormInput{
		Name:     c.FormValue("name"),
		Quantity: c.FormValue("quantity"),
	}

	var file io.Reader
	fh, err := c.FormFile("image")
	switch {
	case err == nil && fh.Size > 0:
		f, err := fh.Open()
		if err != nil {
			return pageError(err)
		}
		defer f.Close()
		file = f
	case err == nil, errors.Is(err, http.ErrMissingFile):
	default:
		return c.String(http.StatusBadRequest, "invalid form")
	}

	if c.FormValue("action") == "preview" {
		_, err = h.uc.AttachImage(ctx, sid, in, file)
	} else {
		_, err = h.uc.SubmitAdd(ctx, sid, in, file)
	}
	return redirectHome(c, err)
}

func (h *PageHandler) remove(c echo.Context) error {
	// versionが読めなければ条件なしで減らす
	version, err := strconv.ParseInt(c.FormValue("version"), 10, 64)
	if err != nil || version < 0 {
		version = 0
	}
	_, err = h.uc.Remove(c.Request().Context(), mw.GetSessionID(c), c.Param("id"), version)
	return redirectHome(c, err)
}

func (h *PageHandler) search(c echo.Context) error {
	_, err := h.uc.SubmitSearch(c.Request().Context(), mw.GetSessionID(c), c.FormValue("query"))
	return redirectHome(c, err)
}

func redirectHome(c echo.Context, err error) error {
	if err != nil {
		return pageError(err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// 画面側のエラーはechoのエラーハンドラに任せる
func pageError(err error) error {
	if he, ok := usecase.AsHTTPError(err); ok {
		return echo.NewHTTPError(he.Status, he.Message)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
