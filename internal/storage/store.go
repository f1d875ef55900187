package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store defines the persistence operations behind search, history and
// watchlist.
type Store interface {
	MovieExists(ctx context.Context, id int64) (bool, error)
	GetMovie(ctx context.Context, id int64) (*Movie, error)
	InsertMovie(ctx context.Context, movie *Movie) (bool, error)
	SearchMovies(ctx context.Context, query string) ([]Movie, error)

	AddHistory(ctx context.Context, query string, at time.Time) (*HistoryEntry, error)
	ListHistory(ctx context.Context) ([]HistoryEntry, error)
	ClearHistory(ctx context.Context) (int64, error)

	AddWatchlist(ctx context.Context, movieID int64) (*WatchlistEntry, error)
	RemoveWatchlist(ctx context.Context, movieID int64) (int64, error)
	ListWatchlist(ctx context.Context) ([]WatchlistItem, error)

	GetStats(ctx context.Context) (*Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	movieExists     *sql.Stmt
	getMovie        *sql.Stmt
	insertMovie     *sql.Stmt
	insertHistory   *sql.Stmt
	insertWatchlist *sql.Stmt
	deleteWatchlist *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.movieExists, err = s.db.Prepare(`SELECT EXISTS(SELECT 1 FROM movies WHERE id = ?)`)
	if err != nil {
		return err
	}

	s.getMovie, err = s.db.Prepare(`
		SELECT id, title, genre, release_date, director, poster_url
		FROM movies WHERE id = ?
	`)
	if err != nil {
		return err
	}

	// A concurrent search may already have cached the same id; that is
	// reported as "not inserted" rather than a constraint error.
	s.insertMovie, err = s.db.Prepare(`
		INSERT INTO movies (id, title, genre, release_date, director, poster_url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return err
	}

	s.insertHistory, err = s.db.Prepare(`INSERT INTO history (search_query, ts) VALUES (?, ?)`)
	if err != nil {
		return err
	}

	s.insertWatchlist, err = s.db.Prepare(`INSERT INTO watchlist (movie_id) VALUES (?)`)
	if err != nil {
		return err
	}

	s.deleteWatchlist, err = s.db.Prepare(`DELETE FROM watchlist WHERE movie_id = ?`)
	if err != nil {
		return err
	}

	return nil
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// likePattern builds a LIKE pattern matching query anywhere in a column,
// with %, _ and \ in the query taken literally.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}

// MovieExists reports whether id is already cached.
func (s *SQLiteStore) MovieExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.movieExists.QueryRowContext(ctx, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check movie %d: %w", id, err)
	}
	return exists, nil
}

// GetMovie retrieves a cached movie by its external ID.
func (s *SQLiteStore) GetMovie(ctx context.Context, id int64) (*Movie, error) {
	var m Movie
	err := s.getMovie.QueryRowContext(ctx, id).Scan(
		&m.ID, &m.Title, &m.Genre, &m.ReleaseDate, &m.Director, &m.PosterURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("movie %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get movie: %w", err)
	}
	return &m, nil
}

// InsertMovie caches a movie. It returns false without error when a row
// with the same ID already exists; cached rows are never overwritten.
func (s *SQLiteStore) InsertMovie(ctx context.Context, movie *Movie) (bool, error) {
	res, err := s.insertMovie.ExecContext(ctx,
		movie.ID, movie.Title, movie.Genre, movie.ReleaseDate, movie.Director, movie.PosterURL,
	)
	if err != nil {
		return false, fmt.Errorf("insert movie %d: %w", movie.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SearchMovies returns every cached movie whose title or genre contains
// query, case-insensitively, ordered by ID.
func (s *SQLiteStore) SearchMovies(ctx context.Context, query string) ([]Movie, error) {
	pattern := likePattern(query)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, genre, release_date, director, poster_url
		FROM movies
		WHERE title LIKE ? ESCAPE '\' OR genre LIKE ? ESCAPE '\'
		ORDER BY id
	`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	defer rows.Close()

	movies := []Movie{}
	for rows.Next() {
		var m Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Genre, &m.ReleaseDate, &m.Director, &m.PosterURL); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, m)
	}

	return movies, rows.Err()
}

// AddHistory records a search query. A zero at means now.
func (s *SQLiteStore) AddHistory(ctx context.Context, query string, at time.Time) (*HistoryEntry, error) {
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC().Truncate(time.Second)

	res, err := s.insertHistory.ExecContext(ctx, query, at.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &HistoryEntry{ID: id, Query: query, Timestamp: at}, nil
}

// ListHistory returns all history entries, newest first. Entries sharing a
// timestamp come back in reverse insertion order.
func (s *SQLiteStore) ListHistory(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, search_query, ts FROM history ORDER BY ts DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var tsStr string
		if err := rows.Scan(&e.ID, &e.Query, &tsStr); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Timestamp, _ = parseTimestamp(tsStr)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// ClearHistory deletes every history entry and returns how many were removed.
func (s *SQLiteStore) ClearHistory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM history")
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

// AddWatchlist inserts a watchlist row. The caller checks that the movie is
// cached; the schema reference rejects unknown IDs as a backstop.
func (s *SQLiteStore) AddWatchlist(ctx context.Context, movieID int64) (*WatchlistEntry, error) {
	res, err := s.insertWatchlist.ExecContext(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("insert watchlist: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &WatchlistEntry{ID: id, MovieID: movieID}, nil
}

// RemoveWatchlist deletes every watchlist row for movieID.
func (s *SQLiteStore) RemoveWatchlist(ctx context.Context, movieID int64) (int64, error) {
	res, err := s.deleteWatchlist.ExecContext(ctx, movieID)
	if err != nil {
		return 0, fmt.Errorf("delete watchlist: %w", err)
	}
	return res.RowsAffected()
}

// ListWatchlist returns watchlist rows joined with their movies, in the
// order they were added.
func (s *SQLiteStore) ListWatchlist(ctx context.Context) ([]WatchlistItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.movie_id, m.title, m.poster_url
		FROM watchlist w
		JOIN movies m ON m.id = w.movie_id
		ORDER BY w.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	items := []WatchlistItem{}
	for rows.Next() {
		var it WatchlistItem
		if err := rows.Scan(&it.EntryID, &it.MovieID, &it.Title, &it.PosterURL); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

// GetStats returns row counts for each table.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM movies", &stats.Movies},
		{"SELECT COUNT(*) FROM history", &stats.HistoryEntries},
		{"SELECT COUNT(*) FROM watchlist", &stats.WatchlistEntries},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count (%s): %w", c.query, err)
		}
	}

	if stats.HistoryEntries > 0 {
		var lastStr string
		if err := s.db.QueryRowContext(ctx, "SELECT MAX(ts) FROM history").Scan(&lastStr); err != nil {
			return nil, fmt.Errorf("last search: %w", err)
		}
		stats.LastSearch, _ = parseTimestamp(lastStr)
	}

	return stats, nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.movieExists, s.getMovie, s.insertMovie,
		s.insertHistory, s.insertWatchlist, s.deleteWatchlist,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
