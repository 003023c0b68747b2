package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/avirajsharma-ops/sameer/internal/config"
	"github.com/avirajsharma-ops/sameer/internal/observe"
	"github.com/avirajsharma-ops/sameer/internal/session"
)

// Server ties the WebSocket handler, health and metrics endpoints into one
// HTTP listener.
type Server struct {
	cfg      config.ServerConfig
	handler  *Handler
	registry *session.Registry
	metrics  *observe.Metrics
	log      *slog.Logger
}

// New assembles the HTTP server around the given connection handler.
func New(cfg config.ServerConfig, handler *Handler, registry *session.Registry, metrics *observe.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		handler:  handler,
		registry: registry,
		metrics:  metrics,
		log:      log,
	}
}

// Run serves until ctx is cancelled, then drains the listener and closes all
// live sessions.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.handler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:        s.cfg.ListenAddr,
		Handler:     observe.Middleware(s.metrics)(mux),
		ReadTimeout: 30 * time.Second,
		// WebSocket connections stay open indefinitely; no write timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("listening", "addr", srv.Addr, "tls", s.cfg.TLS != nil)
		var err error
		if s.cfg.TLS != nil {
			err = srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown incomplete, forcing close", "error", err)
			_ = srv.Close()
		}
		s.registry.CloseAll()
		return nil
	})

	return g.Wait()
}
