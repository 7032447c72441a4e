package echohttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
)

// RouteRegister registers Echo routes.
type RouteRegister interface {
	RegisterRoutes(e *echo.Echo)
}

// Server holds the Echo instance.
type Server struct {
	e *echo.Echo
}

// NewServer wires request logging, panic recovery and request ids. A nil
// logger falls back to slog.Default.
func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(slogecho.New(log))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	return &Server{e: e}
}

func (s *Server) RegisterRouter(r RouteRegister) {
	r.RegisterRoutes(s.e)
}

func (s *Server) Echo() *echo.Echo {
	return s.e
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
// for up to grace.
func (s *Server) Run(ctx context.Context, addr string, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return s.e.Shutdown(shutdownCtx)
}
