// Package server exposes a persisted symbol graph over a read-only HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abramin/symgraph/internal/graph"
	"github.com/abramin/symgraph/internal/logging"
	"github.com/abramin/symgraph/internal/store"
	"github.com/abramin/symgraph/internal/telemetry"
)

// Server is the symgraph HTTP server.
type Server struct {
	store      *store.Store
	metrics    *telemetry.Metrics
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
	port       int
}

// Config holds server configuration.
type Config struct {
	Port    int
	DataDir string
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// New opens the store under cfg.DataDir and creates a server over it.
func New(cfg Config) (*Server, error) {
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return newServer(st, cfg), nil
}

func newServer(st *store.Store, cfg Config) *Server {
	s := &Server{
		store:   st,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		port:    cfg.Port,
	}
	if s.logger == nil {
		s.logger = logging.NewDiscardLogger()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewMetrics()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/search", s.handleSearch)
		r.Get("/symbols/{id}", s.handleSymbol)
		r.Get("/symbols/{id}/callers", s.handleCallers)
		r.Get("/symbols/{id}/callees", s.handleCallees)
		r.Get("/graph/{id}", s.handleGraph)
		r.Get("/dangling", s.handleDangling)
		r.Get("/diagnostics", s.handleDiagnostics)
	})
	r.Method(http.MethodGet, "/metrics", s.metricsHandler())

	s.refreshGraphGauges()
	s.router = r
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is canceled, then shuts down gracefully and closes
// the store.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", fmt.Sprintf("http://localhost:%d", s.port))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.store.Close()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// instrument records request counts and latencies by route pattern so
// symbol ids do not explode label cardinality.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(r.Method, route, status, time.Since(start))
	})
}

// metricsHandler reloads the graph gauges from the store before each scrape,
// so they follow reindexing done by another process.
func (s *Server) metricsHandler() http.Handler {
	h := s.metrics.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.refreshGraphGauges()
		h.ServeHTTP(w, r)
	})
}

func (s *Server) refreshGraphGauges() {
	stats, err := s.store.GetStats()
	if err != nil {
		s.logger.Warn("refreshing graph gauges", "error", err)
		return
	}
	s.metrics.SetGraphGauges(stats.SymbolsByKind, stats.EdgesByKind, stats.DanglingCount)
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding JSON response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func symbolIDParam(r *http.Request) (graph.SymbolID, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid symbol ID %q", chi.URLParam(r, "id"))
	}
	return graph.SymbolID(id), nil
}

func intQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// lookupSymbol resolves the {id} parameter, writing the error response
// itself when it fails.
func (s *Server) lookupSymbol(w http.ResponseWriter, r *http.Request) (*graph.Symbol, bool) {
	id, err := symbolIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	sym, err := s.store.GetSymbolByID(id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "symbol not found")
		return nil, false
	case err != nil:
		s.logger.Error("loading symbol", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load symbol")
		return nil, false
	}
	return sym, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats()
	if err != nil {
		s.logger.Error("loading stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleSearch handles GET /api/search?query=xxx&limit=n
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter required")
		return
	}

	results, err := s.store.SearchSymbols(query, intQuery(r, "limit", 50))
	if err != nil {
		s.logger.Error("searching symbols", "query", query, "error", err)
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	sym, ok := s.lookupSymbol(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sym)
}

func (s *Server) handleCallers(w http.ResponseWriter, r *http.Request) {
	s.writeCallEdges(w, r, s.store.GetCallers)
}

func (s *Server) handleCallees(w http.ResponseWriter, r *http.Request) {
	s.writeCallEdges(w, r, s.store.GetCallees)
}

func (s *Server) writeCallEdges(w http.ResponseWriter, r *http.Request, load func(graph.SymbolID) ([]graph.Edge, error)) {
	sym, ok := s.lookupSymbol(w, r)
	if !ok {
		return
	}
	edges, err := load(sym.ID)
	if err != nil {
		s.logger.Error("loading call edges", "id", sym.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load edges")
		return
	}
	s.writeJSON(w, http.StatusOK, edges)
}

// handleGraph handles GET /api/graph/{id}?depth=n
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	id, err := symbolIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := NewGraphBuilder(s.store).BuildFromRoot(id, intQuery(r, "depth", DefaultGraphDepth))
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "symbol not found")
		return
	case err != nil:
		s.logger.Error("building graph", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to build graph")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDangling(w http.ResponseWriter, r *http.Request) {
	edges, err := s.store.GetDanglingEdges(intQuery(r, "limit", store.DefaultLimit))
	if err != nil {
		s.logger.Error("loading dangling edges", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load dangling edges")
		return
	}
	s.writeJSON(w, http.StatusOK, edges)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	diags, err := s.store.GetDiagnostics(intQuery(r, "limit", store.DefaultLimit))
	if err != nil {
		s.logger.Error("loading diagnostics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load diagnostics")
		return
	}
	s.writeJSON(w, http.StatusOK, diags)
}
