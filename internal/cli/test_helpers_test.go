package cli

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/marquee/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// openTestStore creates a migrated in-memory store for testing.
func openTestStore(t *testing.T) (*storage.SQLiteStore, *sql.DB) {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, db
}

// writeTestConfig writes a config file whose database lives in a temp dir
// and clears environment overrides that would leak into the test.
func writeTestConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	for _, k := range []string{"TMDB_API_KEY", "TMDB_BASE_URL", "TMDB_IMAGE_BASE_URL", "MARQUEE_DB_PATH", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "config.yaml")
	content := "storage:\n  path: " + dir + "\n  sqlite_file: marquee.db\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0600))
	return cfgPath, filepath.Join(dir, "marquee.db")
}

// fakeTMDB serves one movie (Inception, 27205) and counts detail calls.
func fakeTMDB(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var detailCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/3/search/movie":
			if r.URL.Query().Get("query") == "Inception" {
				_, _ = w.Write([]byte(`{"results":[{"id":27205}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"results":[]}`))
		case "/3/movie/27205":
			detailCalls.Add(1)
			_, _ = w.Write([]byte(`{"id":27205,"title":"Inception","release_date":"2010-07-15","poster_path":"/inception.jpg","genres":[{"name":"Action"},{"name":"Science Fiction"}]}`))
		case "/3/movie/27205/credits":
			_, _ = w.Write([]byte(`{"crew":[{"name":"Christopher Nolan","job":"Director"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &detailCalls
}

func seedMovie(t *testing.T, store storage.Store, id int64, title, genre string) {
	t.Helper()
	_, err := store.InsertMovie(context.Background(), &storage.Movie{
		ID:          id,
		Title:       title,
		Genre:       genre,
		ReleaseDate: "2000-01-01",
		Director:    "N/A",
	})
	require.NoError(t, err)
}
