// Package catalog holds the search, watchlist and history operations that
// sit between the HTTP/CLI surfaces and the store.
package catalog

import (
	"context"
	"errors"

	"github.com/runnerr0/marquee/internal/storage"
)

var (
	// ErrInvalidMovie is returned when a watchlist add names a missing or
	// uncached movie.
	ErrInvalidMovie = errors.New("invalid movie ID")

	// ErrMovieIDRequired is returned when a watchlist removal has no ID.
	ErrMovieIDRequired = errors.New("movie ID required")
)

// MetadataSource is the external movie-metadata API.
type MetadataSource interface {
	Search(ctx context.Context, query string) ([]int64, error)
	Lookup(ctx context.Context, id int64) (*storage.Movie, error)
}
