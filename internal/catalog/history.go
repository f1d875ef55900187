package catalog

import (
	"context"
	"time"

	"github.com/runnerr0/marquee/internal/storage"
)

// HistoryTimeLayout is how history timestamps are rendered.
const HistoryTimeLayout = "2006-01-02 15:04:05"

// HistoryItem is a history entry with its timestamp rendered in the
// configured zone.
type HistoryItem struct {
	Query     string
	Timestamp string
}

// History lists and clears recorded searches.
type History struct {
	store storage.Store
	loc   *time.Location
}

// NewHistory creates a History rendering timestamps in loc (UTC if nil).
func NewHistory(store storage.Store, loc *time.Location) *History {
	if loc == nil {
		loc = time.UTC
	}
	return &History{store: store, loc: loc}
}

// List returns all searches, newest first.
func (h *History) List(ctx context.Context) ([]HistoryItem, error) {
	entries, err := h.store.ListHistory(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryItem{
			Query:     e.Query,
			Timestamp: e.Timestamp.In(h.loc).Format(HistoryTimeLayout),
		})
	}
	return items, nil
}

// Clear deletes all recorded searches.
func (h *History) Clear(ctx context.Context) (int64, error) {
	return h.store.ClearHistory(ctx)
}
