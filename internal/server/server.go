package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/andleeb4898/pantry/internal/config"
	"github.com/andleeb4898/pantry/internal/handler"
	"github.com/andleeb4898/pantry/internal/metrics"
	mw "github.com/andleeb4898/pantry/internal/middleware"
	"github.com/andleeb4898/pantry/internal/validator"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// ルーティングに渡す部品
type Handlers struct {
	Page   *handler.PageHandler
	Items  *handler.ItemHandler
	Health *handler.HealthHandler
}

// New はミドルウェアとルートを組んだechoを返す。
func New(cfg config.Config, h Handlers, m *metrics.Metrics, log *zap.Logger) (*echo.Echo, error) {
	renderer, err := handler.NewTemplateRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Validator = validator.NewRequestValidator()

	e.Use(echomw.Recover())
	e.Use(mw.RequestLogger(log, m))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	e.Use(session.Middleware(mw.NewSessionStore(cfg.SessionSecret)))
	e.Use(mw.SessionID(cfg.SessionCookie, cfg.IsProd(), log))

	RegisterRoutes(e, h, m)
	return e, nil
}

// Start はctxが終わるまで待ち受け、終わったらgracefulに止める。
func Start(ctx context.Context, e *echo.Echo, addr string, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("http server shutting down")
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
