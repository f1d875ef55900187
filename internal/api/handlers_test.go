package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/marquee/internal/catalog"
	"github.com/runnerr0/marquee/internal/storage"
	"github.com/runnerr0/marquee/internal/tmdb"
)

// tmdbStub serves the subset of TMDB used by search and counts detail calls.
type tmdbStub struct {
	detailCalls  atomic.Int32
	creditsCalls atomic.Int32
	failSearch   atomic.Bool
}

func (s *tmdbStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/3/search/movie":
		if s.failSearch.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Query().Get("query") == "Inception" {
			_, _ = w.Write([]byte(`{"results":[{"id":27205}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	case "/3/movie/27205":
		s.detailCalls.Add(1)
		_, _ = w.Write([]byte(`{"id":27205,"title":"Inception","release_date":"2010-07-15","poster_path":"/inception.jpg","genres":[{"name":"Action"},{"name":"Science Fiction"}]}`))
	case "/3/movie/27205/credits":
		s.creditsCalls.Add(1)
		_, _ = w.Write([]byte(`{"crew":[{"name":"Christopher Nolan","job":"Director"}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type testEnv struct {
	router http.Handler
	store  *storage.SQLiteStore
	stub   *tmdbStub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	stub := &tmdbStub{}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client := tmdb.New(tmdb.Config{
		APIKey:       "test",
		BaseURL:      srv.URL + "/3",
		ImageBaseURL: "https://image.tmdb.org/t/p/w500",
	})

	h := NewHandler(
		catalog.NewSearcher(store, client),
		catalog.NewWatchlist(store),
		catalog.NewHistory(store, time.FixedZone("UTC-05:00", -5*3600)),
		store,
		0,
	)

	return &testEnv{router: NewRouter(h, RouterConfig{}), store: store, stub: stub}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func (e *testEnv) historyCount(t *testing.T) int {
	t.Helper()
	entries, err := e.store.ListHistory(context.Background())
	require.NoError(t, err)
	return len(entries)
}

// --- /search ---

func TestSearch_InceptionFetchedOnceThenCached(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/search?query=Inception", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	movies := decode[[]movieJSON](t, rec)
	require.Len(t, movies, 1)
	assert.Equal(t, movieJSON{
		ID:          27205,
		Title:       "Inception",
		Genre:       "Action, Science Fiction",
		ReleaseDate: "2010-07-15",
		Director:    "Christopher Nolan",
		PosterURL:   "https://image.tmdb.org/t/p/w500/inception.jpg",
	}, movies[0])
	assert.Equal(t, int32(1), env.stub.detailCalls.Load())

	rec = env.do(t, http.MethodGet, "/search?query=Inception", "")
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[[]movieJSON](t, rec)
	assert.Equal(t, movies, again)
	assert.Equal(t, int32(1), env.stub.detailCalls.Load(), "cached id must not be fetched again")
	assert.Equal(t, int32(1), env.stub.creditsCalls.Load())

	assert.Equal(t, 2, env.historyCount(t))
}

func TestSearch_EmptyQuery(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{"/search", "/search?query=", "/search?query=%20%20"} {
		rec := env.do(t, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	}
	assert.Equal(t, 0, env.historyCount(t))
}

func TestSearch_NoMatchesStillRecordsHistory(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/search?query=zzzz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, 1, env.historyCount(t))
}

func TestSearch_UpstreamFailureIsNotAnError(t *testing.T) {
	env := newTestEnv(t)
	env.stub.failSearch.Store(true)

	rec := env.do(t, http.MethodGet, "/search?query=Inception", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, 1, env.historyCount(t))
}

// --- /history ---

func TestHistory_ListAndClear(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.store.AddHistory(ctx, "Inception", time.Date(2024, 7, 4, 16, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = env.store.AddHistory(ctx, "Heat", time.Date(2024, 7, 5, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"query":"Heat","timestamp":"2024-07-04 20:00:00"},
		{"query":"Inception","timestamp":"2024-07-04 11:30:00"}
	]`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Search history cleared successfully!"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// --- /watchlist ---

func TestWatchlist_AddListRemove(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/search?query=Inception", "")

	rec := env.do(t, http.MethodPost, "/watchlist", `{"movie_id":27205}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"Movie added to watchlist"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/watchlist", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"movie_id":27205,"title":"Inception","poster_url":"https://image.tmdb.org/t/p/w500/inception.jpg"}]`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/watchlist", `{"movie_id":27205}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Movie removed from watchlist"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/watchlist", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestWatchlist_AddInvalid(t *testing.T) {
	env := newTestEnv(t)

	bodies := []string{
		`{"movie_id":12345}`, // not cached
		`{"movie_id":0}`,
		`{"movie_id":-3}`,
		`{}`,
		`{"movie_id":"abc"}`,
		`not json`,
		``,
	}
	for _, body := range bodies {
		rec := env.do(t, http.MethodPost, "/watchlist", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.JSONEq(t, `{"error":"Invalid movie ID"}`, rec.Body.String())
	}

	items, err := env.store.ListWatchlist(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWatchlist_RemoveRequiresID(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{}`, ``, `{"movie_id":0}`} {
		rec := env.do(t, http.MethodDelete, "/watchlist", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.JSONEq(t, `{"error":"Movie ID required"}`, rec.Body.String())
	}
}

func TestWatchlist_RemoveUnknownIsOK(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/watchlist", `{"movie_id":999}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// --- plumbing ---

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/watchlist", `{"movie_id":1}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/search?query=Inception", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marquee_http_requests_total")
	assert.Contains(t, rec.Body.String(), "marquee_tmdb_requests_total")
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("disk gone") }

func TestHealth_Unavailable(t *testing.T) {
	h := NewHandler(nil, nil, nil, failingPinger{}, 0)
	rec := httptest.NewRecorder()
	NewRouter(h, RouterConfig{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"database unavailable"}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(nil, nil, catalog.NewHistory(env.store, nil), env.store, 0)
	router := NewRouter(h, RouterConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/history", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
