package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/logger"
)

type Searcher interface {
	Execute(ctx context.Context, text string) (*executor.SearchResult, error)
	Quote(id string) (*quotes.Document, error)
}

type Lifecycle interface {
	Status() app.Status
	Reload(ctx context.Context)
}

type CacheAdmin interface {
	Stats() (hits, misses int64)
	Invalidate(ctx context.Context) (int64, error)
}

type SearchResponse struct {
	Query         string                    `json:"query"`
	Mode          executor.Mode             `json:"mode"`
	Generation    uint64                    `json:"generation"`
	TotalHits     int                       `json:"total_hits"`
	Dangling      int                       `json:"dangling"`
	CacheHit      bool                      `json:"cache_hit"`
	SearchResults []presenter.DisplayRecord `json:"search_results"`
}

type QuoteResponse struct {
	ID          string    `json:"id"`
	Users       []string  `json:"users"`
	Lines       []string  `json:"lines"`
	Uploaded    time.Time `json:"uploaded"`
	DisplayDate string    `json:"displayDate"`
}

type Handler struct {
	searcher  Searcher
	lifecycle Lifecycle
	cache     CacheAdmin
	formatter presenter.DateFormatter
	logger    *slog.Logger
}

// New wires the API. cache may be nil when caching is disabled.
func New(s Searcher, l Lifecycle, c CacheAdmin, f presenter.DateFormatter) *Handler {
	return &Handler{
		searcher:  s,
		lifecycle: l,
		cache:     c,
		formatter: f,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/quotes/search", h.Search)
	mux.HandleFunc("GET /api/v1/quotes/{id}", h.Quote)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("POST /api/v1/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")

	result, err := h.searcher.Execute(ctx, query)
	if err != nil {
		h.writeAppError(ctx, w, err)
		return
	}

	logger.FromContext(ctx).Info("search completed",
		"query", query,
		"mode", result.Mode,
		"total_hits", result.TotalHits,
		"returned", len(result.Documents),
		"cache_hit", result.CacheHit,
	)
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:         result.Query,
		Mode:          result.Mode,
		Generation:    result.Generation,
		TotalHits:     result.TotalHits,
		Dangling:      result.Dangling,
		CacheHit:      result.CacheHit,
		SearchResults: h.formatter.Records(result.Documents),
	})
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	doc, err := h.searcher.Quote(r.PathValue("id"))
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, QuoteResponse{
		ID:          doc.ID,
		Users:       doc.Users,
		Lines:       doc.Lines,
		Uploaded:    doc.Uploaded,
		DisplayDate: h.formatter.Format(doc.Uploaded),
	})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.lifecycle.Status())
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	h.lifecycle.Reload(r.Context())
	logger.FromContext(r.Context()).Info("reload requested")
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "reloading"})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeAppError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		logger.FromContext(ctx).Error("request failed", "error", err)
		msg = "internal error"
	case errors.Is(err, apperrors.ErrNotReady):
		msg = "quotes are still loading"
	}
	h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
