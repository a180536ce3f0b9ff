package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidgrab/pkg/config"
	"vidgrab/pkg/downloader"
	"vidgrab/pkg/logger"
)

// Server is the HTTP front of the download pipeline
type Server struct {
	cfg *config.Config
	svc *downloader.Service
	log logger.Logger
}

// New creates a server around an already-built downloader service
func New(cfg *config.Config, svc *downloader.Service, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Server{cfg: cfg, svc: svc, log: log}
}

// Run starts the HTTP server and blocks until the context is canceled or a
// SIGINT/SIGTERM arrives, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	handler := NewHandler(s.svc, s.cfg, s.log)
	router := NewRouter(handler, s.cfg.Server, s.log)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	if s.cfg.Proxy.RefreshOnStart {
		s.svc.WarmUp(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("starting HTTP server")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		s.log.WithField("signal", sig.String()).Info("shutting down")
	case <-ctx.Done():
		s.log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.log.Info("shutdown complete")
	return nil
}
