package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eoinhurrell/notegraph/internal/cache"
	"github.com/eoinhurrell/notegraph/internal/graph"
	"github.com/eoinhurrell/notegraph/internal/health"
	"github.com/eoinhurrell/notegraph/internal/similarity"
)

// Handler holds the API route handlers for one vault
type Handler struct {
	vault      string
	analyzer   *graph.Analyzer
	cache      *cache.Cache
	clustering similarity.Options
}

// NewHandler creates route handlers serving analysis of the given vault
func NewHandler(vaultPath string, analyzer *graph.Analyzer, c *cache.Cache, clustering similarity.Options) *Handler {
	return &Handler{
		vault:      vaultPath,
		analyzer:   analyzer,
		cache:      c,
		clustering: clustering,
	}
}

// NewRouter creates a chi router with all API routes mounted
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Get("/stats/quick", h.QuickStats)
		r.Get("/backlinks", h.Backlinks)
		r.Get("/dangling", h.Dangling)
		r.Get("/orphans", h.Orphans)
		r.Get("/clusters", h.Clusters)
		r.Get("/health", h.Health)
		r.Get("/cache/stats", h.CacheStats)
		r.Post("/cache/invalidate", h.InvalidateCache)
	})
	return r
}

// Server wraps the HTTP listener with graceful shutdown
type Server struct {
	httpSrv *http.Server
}

// New creates a server on addr serving the given handler set
func New(addr string, h *Handler) *Server {
	return &Server{
		httpSrv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(h),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe blocks until the listener fails or Shutdown is called
func (s *Server) ListenAndServe() error {
	log.Printf("notegraph: serving API on %s", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Stats handles GET /api/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	opts := graph.DefaultOptions()
	if r.URL.Query().Get("context") == "true" {
		opts.IncludeContext = true
	}
	if r.URL.Query().Get("no_cache") == "true" {
		opts.UseCache = false
	}

	stats, err := h.analyzer.Analyze(h.vault, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// QuickStats handles GET /api/stats/quick
func (h *Handler) QuickStats(w http.ResponseWriter, r *http.Request) {
	quick, err := h.analyzer.QuickStats(h.vault)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, quick)
}

// Backlinks handles GET /api/backlinks?title=...
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	entries, err := h.analyzer.GetBacklinksForNote(h.vault, title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	if entries == nil {
		entries = []graph.BacklinkEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":     title,
		"backlinks": entries,
		"count":     len(entries),
	})
}

// Dangling handles GET /api/dangling
func (h *Handler) Dangling(w http.ResponseWriter, r *http.Request) {
	dangling, err := h.analyzer.FindDanglingLinks(h.vault)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	if dangling == nil {
		dangling = []graph.DanglingLink{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dangling_links": dangling,
		"count":          len(dangling),
	})
}

// Orphans handles GET /api/orphans
func (h *Handler) Orphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.analyzer.FindOrphanNotes(h.vault)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	if orphans == nil {
		orphans = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orphans": orphans,
		"count":   len(orphans),
	})
}

// Clusters handles GET /api/clusters with optional threshold, min_size
// and max query parameters.
func (h *Handler) Clusters(w http.ResponseWriter, r *http.Request) {
	opts := h.clustering
	q := r.URL.Query()
	if raw := q.Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 1 {
			writeError(w, http.StatusBadRequest, "threshold must be a number in (0, 1]")
			return
		}
		opts.Threshold = v
	}
	if raw := q.Get("min_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "min_size must be a positive integer")
			return
		}
		opts.MinClusterSize = v
	}
	if raw := q.Get("max"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "max must be a positive integer")
			return
		}
		opts.MaxResults = v
	}

	dangling, err := h.analyzer.FindDanglingLinks(h.vault)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	clusters := similarity.Cluster(dangling, opts)
	if clusters == nil {
		clusters = []similarity.LinkCluster{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clusters": clusters,
		"count":    len(clusters),
	})
}

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analyzer.Analyze(h.vault, graph.DefaultOptions())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, health.Score(stats))
}

// CacheStats handles GET /api/cache/stats
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.GetStats())
}

// InvalidateCache handles POST /api/cache/invalidate
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.analyzer.InvalidateCache(h.vault)
	writeJSON(w, http.StatusOK, map[string]any{"invalidated": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("notegraph: json encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
