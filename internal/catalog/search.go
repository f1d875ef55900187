package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/marquee/internal/logging"
	"github.com/runnerr0/marquee/internal/metrics"
	"github.com/runnerr0/marquee/internal/storage"
)

// Searcher fetches unseen movies from the metadata source into the store,
// logs the query and answers from the local cache.
type Searcher struct {
	store  storage.Store
	source MetadataSource
	now    func() time.Time
}

// NewSearcher creates a Searcher.
func NewSearcher(store storage.Store, source MetadataSource) *Searcher {
	return &Searcher{store: store, source: source, now: time.Now}
}

// Search runs one search. A blank query returns an empty result and
// records nothing. Otherwise exactly one history row is written, every
// result ID not yet cached is looked up once and stored, and the movies
// whose title or genre contain the query are returned from the whole cache.
//
// Failures of the metadata source are logged and treated as no results.
// Store failures are returned.
func (s *Searcher) Search(ctx context.Context, query string) ([]storage.Movie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []storage.Movie{}, nil
	}

	if _, err := s.store.AddHistory(ctx, query, s.now()); err != nil {
		return nil, fmt.Errorf("record search: %w", err)
	}
	metrics.HistoryEntriesWritten.Inc()

	if err := s.refresh(ctx, query); err != nil {
		return nil, err
	}

	movies, err := s.store.SearchMovies(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}
	return movies, nil
}

// refresh caches any result of the external search not already stored.
func (s *Searcher) refresh(ctx context.Context, query string) error {
	log := logging.Ctx(ctx)

	ids, err := s.source.Search(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("metadata search failed, using cache only")
		return nil
	}

	var added int
	for _, id := range ids {
		cached, err := s.store.MovieExists(ctx, id)
		if err != nil {
			return fmt.Errorf("check cache: %w", err)
		}
		if cached {
			metrics.MovieCacheHits.Inc()
			continue
		}
		metrics.MovieCacheMisses.Inc()

		movie, err := s.source.Lookup(ctx, id)
		if err != nil {
			log.Warn().Err(err).Int64("movie_id", id).Msg("metadata lookup failed, skipping")
			continue
		}

		inserted, err := s.store.InsertMovie(ctx, movie)
		if err != nil {
			return fmt.Errorf("cache movie: %w", err)
		}
		if inserted {
			added++
		}
	}

	log.Debug().Str("query", query).Int("results", len(ids)).Int("added", added).Msg("metadata refresh")
	return nil
}
