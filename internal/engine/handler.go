package engine

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Handler serves the HTTP search API over one Engine.
type Handler struct {
	engine       *Engine
	cache        *QueryCache
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

// NewHandler creates the search handler. cache may be nil.
func NewHandler(e *Engine, cache *QueryCache, defaultLimit, maxLimit int) *Handler {
	return &Handler{
		engine:       e,
		cache:        cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /search?q=...&limit=....
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxLimit {
			parsed = h.maxLimit
		}
		limit = parsed
	}

	var (
		result   *Result
		err      error
		cacheHit bool
	)
	if h.cache != nil {
		terms := h.engine.analyzer.Analyze(query)
		result, cacheHit, err = h.cache.GetOrCompute(r.Context(), h.engine.Generation(), terms, limit, func() (*Result, error) {
			return h.engine.Query(r.Context(), query, limit)
		})
	} else {
		result, err = h.engine.Query(r.Context(), query, limit)
	}
	if err != nil {
		h.logger.Error("search failed", "query", query, "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	h.logger.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"generation": h.engine.Generation(),
		"terms":      h.engine.TermCount(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("writing response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
