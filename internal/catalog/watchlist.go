package catalog

import (
	"context"
	"fmt"

	"github.com/runnerr0/marquee/internal/storage"
)

// Watchlist manages the user's list of movies of interest.
type Watchlist struct {
	store storage.Store
}

func NewWatchlist(store storage.Store) *Watchlist {
	return &Watchlist{store: store}
}

// Add appends movieID to the watchlist. The movie must already be cached.
// Adding the same movie twice creates two entries.
func (w *Watchlist) Add(ctx context.Context, movieID int64) (*storage.WatchlistEntry, error) {
	if movieID <= 0 {
		return nil, ErrInvalidMovie
	}

	exists, err := w.store.MovieExists(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("check movie: %w", err)
	}
	if !exists {
		return nil, ErrInvalidMovie
	}

	return w.store.AddWatchlist(ctx, movieID)
}

// Remove deletes every entry for movieID and returns how many there were.
func (w *Watchlist) Remove(ctx context.Context, movieID int64) (int64, error) {
	if movieID <= 0 {
		return 0, ErrMovieIDRequired
	}
	return w.store.RemoveWatchlist(ctx, movieID)
}

// List returns the watchlist joined with movie titles and posters.
func (w *Watchlist) List(ctx context.Context) ([]storage.WatchlistItem, error) {
	return w.store.ListWatchlist(ctx)
}
