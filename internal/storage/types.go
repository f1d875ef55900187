package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// Movie is a cached record from the external metadata API. ID is the
// external identifier and the primary key.
type Movie struct {
	ID          int64
	Title       string
	Genre       string // comma-joined genre names
	ReleaseDate string
	Director    string
	PosterURL   string
}

// HistoryEntry is one recorded search.
type HistoryEntry struct {
	ID        int64
	Query     string
	Timestamp time.Time
}

// WatchlistEntry is one watchlist row. Duplicates per MovieID are allowed.
type WatchlistEntry struct {
	ID      int64
	MovieID int64
}

// WatchlistItem is a watchlist row joined with its movie.
type WatchlistItem struct {
	EntryID   int64
	MovieID   int64
	Title     string
	PosterURL string
}

// Stats holds row counts for the status command.
type Stats struct {
	Movies           int64
	HistoryEntries   int64
	WatchlistEntries int64
	LastSearch       time.Time
}
