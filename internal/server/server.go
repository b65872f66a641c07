// Package server exposes the read-only status API over the harvested data.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jrr00064/mapharvest/internal/dedup"
	"github.com/jrr00064/mapharvest/internal/store"
)

// Server serves the status API.
type Server struct {
	store store.Store
	http  *http.Server
}

// New builds the server on the given port.
func New(st store.Store, port int) *Server {
	s := &Server{store: st}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router; exposed separately so tests can drive it with
// httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/businesses", s.handleBusinesses)
		r.Get("/runs", s.handleRuns)
	})
	return r
}

// ListenAndServe runs until the context ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.http.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountBusinesses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	runs, err := s.store.ListRuns(r.Context(), 1)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"businesses": count}
	if len(runs) > 0 {
		resp["last_run"] = runs[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBusinesses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{
		Category: q.Get("category"),
		Source:   q.Get("source"),
		Name:     q.Get("name"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	records, err := s.store.ListBusinesses(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []dedup.Canonical{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
