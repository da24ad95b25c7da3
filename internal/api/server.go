// Package api implements the HTTP surface: ingestion endpoints (InfluxDB
// line protocol, Prometheus remote-write, SenML), the Prometheus remote-read
// and simple-query paths, and the DCAT-flavored CRUD surface over stored
// series, using the standard library's net/http.ServeMux the way the
// teacher's internal/api/http.go does.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pv/sensapp/internal/batching"
	"github.com/pv/sensapp/internal/bus"
	"github.com/pv/sensapp/internal/config"
	"github.com/pv/sensapp/internal/storage"
)

// Server holds the wiring every handler needs: the configured storage
// backend, the event bus batches are published on, and the knobs from
// internal/config that size ingestion batching and sync waits.
type Server struct {
	mux    *http.ServeMux
	store  storage.Storage
	bus    *bus.EventBus
	cfg    *config.Config
	logger *slog.Logger
}

// NewServer builds a Server with every route registered.
func NewServer(store storage.Storage, eventBus *bus.EventBus, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mux:    http.NewServeMux(),
		store:  store,
		bus:    eventBus,
		cfg:    cfg,
		logger: logger,
	}
	s.routes()
	return s
}

// Handler exposes the configured mux for use with http.Server or in tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Listen starts an HTTP server on addr and blocks until ctx is cancelled or
// the server fails.
func (s *Server) Listen(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	s.mux.HandleFunc("POST /api/v1/prometheus_remote_write", s.handlePrometheusRemoteWrite)
	s.mux.HandleFunc("POST /api/v1/prometheus_remote_read", s.handlePrometheusRemoteRead)
	s.mux.HandleFunc("GET /api/v1/query", s.handleSimpleQuery)
	s.mux.HandleFunc("POST /api/v2/write", s.handleInfluxWrite)
	s.mux.HandleFunc("POST /api/v1/senml", s.handleSenMLWrite)

	s.mux.HandleFunc("GET /metrics", s.handleListMetrics)
	s.mux.HandleFunc("GET /series", s.handleListSeries)
	s.mux.HandleFunc("GET /series/{uuid}", s.handleSeriesData)
}

// newBuilder creates a BatchBuilder sized per configuration, for one
// ingestion request.
func (s *Server) newBuilder() *batching.BatchBuilder {
	return batching.New(s.cfg.BatchSize)
}
