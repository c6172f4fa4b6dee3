// Package server wires the matching engine into an HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/pawmatch/pawmatch/internal/profile"
	"github.com/pawmatch/pawmatch/plugin/matcher"
	apiv1 "github.com/pawmatch/pawmatch/server/router/api/v1"
)

// Server is the pawmatch HTTP server.
type Server struct {
	e       *echo.Echo
	profile *profile.Profile
}

// New creates the HTTP server around a matching engine.
func New(p *profile.Profile, engine *matcher.Engine) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			slog.Info("http request",
				"uri", v.URI,
				"status", v.Status)
			return nil
		},
	}))

	apiv1.NewMatchService(engine).Register(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})

	return &Server{e: e, profile: p}
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("pawmatch server starting", "addr", addr, "mode", s.profile.Mode, "version", s.profile.Version)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.e.Start(addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.e.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
