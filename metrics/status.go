package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// StatusServer serves the operational HTTP surface next to the FTP port:
// GET /metrics with the Prometheus series and GET /healthz for probes.
type StatusServer struct {
	srv *http.Server
	log *slog.Logger
}

// NewStatusServer builds the status listener for addr, exposing prom's
// registry.
func NewStatusServer(addr string, prom *Prometheus, log *slog.Logger) *StatusServer {
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", prom.Handler())

	return &StatusServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// ListenAndServe blocks serving the status endpoints until Shutdown.
func (s *StatusServer) ListenAndServe() error {
	s.log.Info("status_server_listening", "addr", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires.
func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler returns the status router, for embedding into an existing HTTP
// server instead of running a second listener.
func (s *StatusServer) Handler() http.Handler {
	return s.srv.Handler
}
