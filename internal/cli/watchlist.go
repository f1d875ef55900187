package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/runnerr0/marquee/internal/catalog"
	"github.com/runnerr0/marquee/internal/storage"
)

// Execute implements the go-flags Commander interface for WatchlistCommand.
func (c *WatchlistCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, db, _, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(ctx, store)
}

// executeWithStore applies --add/--remove and prints the watchlist (for testing).
func (c *WatchlistCommand) executeWithStore(ctx context.Context, store storage.Store) error {
	wl := catalog.NewWatchlist(store)

	if c.Add != 0 {
		if _, err := wl.Add(ctx, c.Add); err != nil {
			if errors.Is(err, catalog.ErrInvalidMovie) {
				return fmt.Errorf("invalid movie ID %d: search for it first so it is cached", c.Add)
			}
			return fmt.Errorf("add to watchlist: %w", err)
		}
		if !jsonOutput(c.globals) {
			fmt.Printf("Movie %d added to watchlist\n\n", c.Add)
		}
	}

	if c.Remove != 0 {
		n, err := wl.Remove(ctx, c.Remove)
		if err != nil {
			if errors.Is(err, catalog.ErrMovieIDRequired) {
				return fmt.Errorf("movie ID required")
			}
			return fmt.Errorf("remove from watchlist: %w", err)
		}
		if !jsonOutput(c.globals) {
			fmt.Printf("Movie %d removed from watchlist (%d %s)\n\n", c.Remove, n, pluralize(n, "entry", "entries"))
		}
	}

	items, err := wl.List(ctx)
	if err != nil {
		return fmt.Errorf("list watchlist: %w", err)
	}

	if jsonOutput(c.globals) {
		out := make([]jsonWatchlistItem, len(items))
		for i, it := range items {
			out[i] = jsonWatchlistItem{MovieID: it.MovieID, Title: it.Title, PosterURL: it.PosterURL}
		}
		return printJSON(out)
	}

	if len(items) == 0 {
		fmt.Println("Watchlist is empty.")
		return nil
	}
	fmt.Println("Watchlist:")
	for i, it := range items {
		fmt.Printf("%d. %s [%d]\n", i+1, it.Title, it.MovieID)
	}
	return nil
}

type jsonWatchlistItem struct {
	MovieID   int64  `json:"movie_id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url"`
}
