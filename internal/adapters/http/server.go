package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ServerConfig tunes the HTTP server lifecycle.
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Server wraps http.Server with graceful shutdown.
type Server struct {
	cfg        ServerConfig
	httpServer *http.Server
}

// NewServer creates the server over a router.
func NewServer(cfg ServerConfig, router *gin.Engine) *Server {
	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	s.cfg.Logger.Info("starting HTTP server", slog.String("address", s.cfg.Address))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.cfg.Logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		return err
	}

	s.cfg.Logger.Info("HTTP server stopped")
	return nil
}
