package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/runnerr0/marquee/internal/catalog"
	"github.com/runnerr0/marquee/internal/storage"
)

const defaultMaxRequestSize = 1 << 20

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the search, history and watchlist endpoints.
type Handler struct {
	searcher       *catalog.Searcher
	watchlist      *catalog.Watchlist
	history        *catalog.History
	pinger         Pinger
	maxRequestSize int64
}

// NewHandler creates a Handler. maxRequestSize bounds JSON bodies; zero
// means 1 MiB.
func NewHandler(searcher *catalog.Searcher, watchlist *catalog.Watchlist, history *catalog.History, pinger Pinger, maxRequestSize int64) *Handler {
	if maxRequestSize <= 0 {
		maxRequestSize = defaultMaxRequestSize
	}
	return &Handler{
		searcher:       searcher,
		watchlist:      watchlist,
		history:        history,
		pinger:         pinger,
		maxRequestSize: maxRequestSize,
	}
}

type movieJSON struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	ReleaseDate string `json:"release_date"`
	Director    string `json:"director"`
	PosterURL   string `json:"poster_url"`
}

type historyJSON struct {
	Query     string `json:"query"`
	Timestamp string `json:"timestamp"`
}

type watchlistJSON struct {
	MovieID   int64  `json:"movie_id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url"`
}

// Search handles GET /search?query=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	movies, err := h.searcher.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]movieJSON, 0, len(movies))
	for _, m := range movies {
		out = append(out, movieJSON{
			ID:          m.ID,
			Title:       m.Title,
			Genre:       m.Genre,
			ReleaseDate: m.ReleaseDate,
			Director:    m.Director,
			PosterURL:   m.PosterURL,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// ListHistory handles GET /history.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	items, err := h.history.List(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]historyJSON, 0, len(items))
	for _, it := range items {
		out = append(out, historyJSON{Query: it.Query, Timestamp: it.Timestamp})
	}
	respondJSON(w, http.StatusOK, out)
}

// ClearHistory handles DELETE /history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if _, err := h.history.Clear(r.Context()); err != nil {
		respondInternal(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Search history cleared successfully!")
}

// ListWatchlist handles GET /watchlist.
func (h *Handler) ListWatchlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.watchlist.List(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]watchlistJSON, 0, len(items))
	for _, it := range items {
		out = append(out, watchlistJSON{MovieID: it.MovieID, Title: it.Title, PosterURL: it.PosterURL})
	}
	respondJSON(w, http.StatusOK, out)
}

// AddWatchlist handles POST /watchlist.
func (h *Handler) AddWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := decodeAndValidate(w, r, h.maxRequestSize, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid movie ID", nil)
		return
	}

	if _, err := h.watchlist.Add(r.Context(), req.MovieID); err != nil {
		if errors.Is(err, catalog.ErrInvalidMovie) {
			respondError(w, r, http.StatusBadRequest, "Invalid movie ID", nil)
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondMessage(w, http.StatusCreated, "Movie added to watchlist")
}

// RemoveWatchlist handles DELETE /watchlist.
func (h *Handler) RemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := decodeAndValidate(w, r, h.maxRequestSize, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Movie ID required", nil)
		return
	}

	if _, err := h.watchlist.Remove(r.Context(), req.MovieID); err != nil {
		if errors.Is(err, catalog.ErrMovieIDRequired) {
			respondError(w, r, http.StatusBadRequest, "Movie ID required", nil)
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Movie removed from watchlist")
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			respondError(w, r, http.StatusServiceUnavailable, "database unavailable", err)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var _ Pinger = (*storage.SQLiteStore)(nil)
