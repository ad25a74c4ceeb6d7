// Package server wires the echo HTTP server around the routine service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/babywise/internal/profile"
	"github.com/hrygo/babywise/plugin/ai/timeout"
	ratelimit "github.com/hrygo/babywise/server/middleware"
	apiv1 "github.com/hrygo/babywise/server/router/api/v1"
	"github.com/hrygo/babywise/server/service/routine"
	"github.com/hrygo/babywise/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer  *echo.Echo
	rateLimiter *ratelimit.RateLimiter
	listener    net.Listener

	// background stops goroutines started by Start.
	background context.CancelFunc
}

func NewServer(_ context.Context, profile *profile.Profile, store *store.Store, routineService *routine.Service) (*Server, error) {
	s := &Server{
		Store:   store,
		Profile: profile,
		rateLimiter: ratelimit.NewRateLimiter(ratelimit.RateLimitConfig{
			PerSecond: profile.RateLimitPerSecond,
			Burst:     profile.RateLimitBurst,
		}),
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.HTTPErrorHandler = apiv1.HTTPErrorHandler
	echoServer.Use(middleware.RequestID())
	echoServer.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			slog.Error("panic recovered", "path", c.Path(), "error", err, "stack", string(stack))
			return err
		},
	}))
	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	s.echoServer = echoServer

	apiV1Service := apiv1.NewAPIV1Service(profile, routineService, s.rateLimiter)
	apiV1Service.RegisterRoutes(echoServer)

	return s, nil
}

// Handler exposes the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Addr returns the bound address once the server is started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.listener = listener
	s.echoServer.Listener = listener

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.background = cancel
	go s.rateLimiter.RunCleanup(bgCtx)

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, timeout.ShutdownTimeout)
	defer cancel()

	slog.Info("server shutting down")
	if s.background != nil {
		s.background()
	}

	// Shutdown echo server.
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	// Close database connection.
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("babywise stopped properly")
}
