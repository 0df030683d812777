package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andleeb4898/pantry/internal/domain/model"
	"github.com/andleeb4898/pantry/internal/infra/datauri"
	"github.com/andleeb4898/pantry/internal/usecase"
	"github.com/andleeb4898/pantry/internal/validator"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// /api/items のJSON API
type ItemHandler struct {
	uc *usecase.PantryUsecase
}

// DI
func NewItemHandler(uc *usecase.PantryUsecase) *ItemHandler {
	return &ItemHandler{uc: uc}
}

func (h *ItemHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/items", h.list)
	g.POST("/items", h.create)
	g.DELETE("/items/:id", h.remove)
	g.GET("/items/:id/adjustments", h.adjustments)
	g.GET("/items/:id/image", h.image)
}

type listItemsResponse struct {
	Items []model.PantryItem `json:"items"`
}

func (h *ItemHandler) list(c echo.Context) error {
	items, err := h.uc.ListAll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	//qがあれば名前で絞り込む（大文字小文字無視）
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		filtered := make([]model.PantryItem, 0, len(items))
		for _, it := range items {
			if it.MatchesQuery(q) {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	return c.JSON(http.StatusOK, listItemsResponse{Items: items})
}

type createItemRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
	Image    string `json:"image" validate:"omitempty,datauri"`
}

func (h *ItemHandler) create(c echo.Context) error {
	var req createItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		if errors.Is(err, validator.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
		return writeError(c, err)
	}

	out, err := h.uc.UpsertByName(c.Request().Context(), usecase.UpsertInput{
		Name:     req.Name,
		Quantity: req.Quantity,
		Image:    req.Image,
	})
	if err != nil {
		return writeError(c, err)
	}

	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, out)
}

func (h *ItemHandler) remove(c echo.Context) error {
	// version（省略時は条件なし）
	var version int64
	if v := c.QueryParam("version"); v != "" {
		x, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid version"})
		}
		version = x
	}

	out, err := h.uc.DecrementOrDelete(c.Request().Context(), c.Param("id"), version)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type listAdjustmentsResponse struct {
	Items []model.PantryAdjustment `json:"items"`
}

func (h *ItemHandler) adjustments(c echo.Context) error {
	// limit（default 50）
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}

	adjs, err := h.uc.ListAdjustments(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, listAdjustmentsResponse{Items: adjs})
}

// 画像はURLに ?v=<version> を付けて参照するので長めにキャッシュしてよい
const imageCacheControl = "private, max-age=86400"

func (h *ItemHandler) image(c echo.Context) error {
	uri, err := h.uc.Image(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	mime, raw, err := datauri.Decode(uri)
	if err != nil {
		c.Logger().Errorf("decode stored image %s: %v", c.Param("id"), err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	hdr := c.Response().Header()
	hdr.Set(echo.HeaderCacheControl, imageCacheControl)
	hdr.Set(echo.HeaderXContentTypeOptions, "nosniff")
	// SVGを直接開かれてもスクリプトは動かさない
	hdr.Set(echo.HeaderContentSecurityPolicy, "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	return c.Blob(http.StatusOK, mime, raw)
}
