package storage

import "database/sql"

// migrateV001 creates the movie cache, search history and watchlist tables.
// Every statement uses IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS movies (
			id           INTEGER PRIMARY KEY,
			title        TEXT NOT NULL,
			genre        TEXT NOT NULL DEFAULT '',
			release_date TEXT NOT NULL DEFAULT '',
			director     TEXT NOT NULL DEFAULT '',
			poster_url   TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS history (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			search_query TEXT NOT NULL,
			ts           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS watchlist (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			movie_id   INTEGER NOT NULL REFERENCES movies(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_history_ts         ON history(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_watchlist_movie_id ON watchlist(movie_id)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
