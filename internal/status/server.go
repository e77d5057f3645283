// Package status exposes a small read-only HTTP endpoint reporting
// batch progress, for watching a long run from another terminal.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tnsops/bookingbot/pkg/ledger"
)

// Progress is the wire shape of GET /progress.
type Progress struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Error      int `json:"error"`
}

// Server serves progress snapshots from the ledger.
type Server struct {
	led    *ledger.Ledger
	logger *zap.Logger
	http   *http.Server
}

// New builds a server listening on addr.
func New(addr string, led *ledger.Ledger, logger *zap.Logger) *Server {
	s := &Server{led: led, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/progress", s.handleProgress)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until Shutdown. It blocks, so callers run it on its own
// goroutine.
func (s *Server) Start() error {
	s.logger.Info("status endpoint listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	c := s.led.Counts()
	writeJSON(w, http.StatusOK, Progress{
		Total:      c.Pending + c.Processing + c.Done + c.Error,
		Pending:    c.Pending,
		Processing: c.Processing,
		Done:       c.Done,
		Error:      c.Error,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
