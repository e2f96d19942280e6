package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/forPelevin/montage/internal/logging"
	"github.com/forPelevin/montage/internal/usecase"
)

// Service is the part of the pipeline the HTTP layer drives.
type Service interface {
	Cut(ctx context.Context, in usecase.Input) (usecase.Result, error)
	Analyze(ctx context.Context, in usecase.Input) (usecase.Selection, error)
	AIAvailable() bool
}

type ServerConfig struct {
	Bind           string
	UploadDir      string
	OutputDir      string
	MaxUploadBytes int64
	Service        Service
	Logger         *slog.Logger
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Bind,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
			WriteTimeout:      0,
			IdleTimeout:       60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
