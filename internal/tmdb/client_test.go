package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTMDB struct {
	server       *httptest.Server
	searchCalls  atomic.Int32
	detailCalls  atomic.Int32
	creditsCalls atomic.Int32
	lastAPIKey   atomic.Value
	lastQuery    atomic.Value

	creditsStatus int
}

func newFakeTMDB(t *testing.T) *fakeTMDB {
	t.Helper()
	f := &fakeTMDB{creditsStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/3/search/movie", func(w http.ResponseWriter, r *http.Request) {
		f.searchCalls.Add(1)
		f.lastAPIKey.Store(r.URL.Query().Get("api_key"))
		f.lastQuery.Store(r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":27205,"title":"Inception"},{"id":64956,"title":"Inception: The Cobol Job"}]}`))
	})
	mux.HandleFunc("/3/movie/27205", func(w http.ResponseWriter, r *http.Request) {
		f.detailCalls.Add(1)
		_, _ = w.Write([]byte(`{"id":27205,"title":"Inception","release_date":"2010-07-15","poster_path":"/oYuLEt3zVCKq57qu2F8dT7NIa6f.jpg","genres":[{"id":28,"name":"Action"},{"id":878,"name":"Science Fiction"},{"id":12,"name":"Adventure"}]}`))
	})
	mux.HandleFunc("/3/movie/27205/credits", func(w http.ResponseWriter, r *http.Request) {
		f.creditsCalls.Add(1)
		if f.creditsStatus != http.StatusOK {
			w.WriteHeader(f.creditsStatus)
			return
		}
		_, _ = w.Write([]byte(`{"id":27205,"crew":[{"name":"Hans Zimmer","job":"Original Music Composer"},{"name":"Christopher Nolan","job":"Director"},{"name":"Someone Else","job":"Director"}]}`))
	})
	mux.HandleFunc("/3/movie/64956", func(w http.ResponseWriter, r *http.Request) {
		f.detailCalls.Add(1)
		_, _ = w.Write([]byte(`{"id":64956,"title":"Inception: The Cobol Job","release_date":"","poster_path":null,"genres":[]}`))
	})
	mux.HandleFunc("/3/movie/64956/credits", func(w http.ResponseWriter, r *http.Request) {
		f.creditsCalls.Add(1)
		_, _ = w.Write([]byte(`{"id":64956,"crew":[{"name":"Writer","job":"Screenplay"}]}`))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeTMDB) client() *Client {
	return New(Config{
		APIKey:       "test-key",
		BaseURL:      f.server.URL + "/3/",
		ImageBaseURL: "https://image.tmdb.org/t/p/w500",
	})
}

func TestSearch_ReturnsIDsInOrder(t *testing.T) {
	f := newFakeTMDB(t)

	ids, err := f.client().Search(context.Background(), "Inception")
	require.NoError(t, err)
	assert.Equal(t, []int64{27205, 64956}, ids)
	assert.Equal(t, "test-key", f.lastAPIKey.Load())
	assert.Equal(t, "Inception", f.lastQuery.Load())
}

func TestLookup_NormalizesMovie(t *testing.T) {
	f := newFakeTMDB(t)

	m, err := f.client().Lookup(context.Background(), 27205)
	require.NoError(t, err)

	assert.Equal(t, int64(27205), m.ID)
	assert.Equal(t, "Inception", m.Title)
	assert.Equal(t, "Action, Science Fiction, Adventure", m.Genre)
	assert.Equal(t, "2010-07-15", m.ReleaseDate)
	assert.Equal(t, "Christopher Nolan", m.Director)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/oYuLEt3zVCKq57qu2F8dT7NIa6f.jpg", m.PosterURL)
	assert.Equal(t, int32(1), f.detailCalls.Load())
	assert.Equal(t, int32(1), f.creditsCalls.Load())
}

func TestLookup_MissingFieldsFallBack(t *testing.T) {
	f := newFakeTMDB(t)

	m, err := f.client().Lookup(context.Background(), 64956)
	require.NoError(t, err)

	assert.Equal(t, "Inception: The Cobol Job", m.Title)
	assert.Equal(t, "", m.Genre)
	assert.Equal(t, NotAvailable, m.ReleaseDate)
	assert.Equal(t, NotAvailable, m.Director)
	assert.Empty(t, m.PosterURL)
}

func TestLookup_CreditsFailureKeepsMovie(t *testing.T) {
	f := newFakeTMDB(t)
	f.creditsStatus = http.StatusInternalServerError

	m, err := f.client().Lookup(context.Background(), 27205)
	require.NoError(t, err)
	assert.Equal(t, "Inception", m.Title)
	assert.Equal(t, NotAvailable, m.Director)
}

func TestLookup_DetailNotFound(t *testing.T) {
	f := newFakeTMDB(t)

	_, err := f.client().Lookup(context.Background(), 1)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "movie", se.Endpoint)
}

func TestSearch_NonOKStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{APIKey: "bad", BaseURL: srv.URL})
	ids, err := c.Search(context.Background(), "Inception")

	assert.Nil(t, ids)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.NotContains(t, err.Error(), "bad", "api key must not leak into errors")
	assert.Equal(t, int32(1), calls.Load(), "no retries")
}

func TestCircuitBreaker_OpensAfterServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{APIKey: "k", BaseURL: srv.URL})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.Search(ctx, "x")
		require.Error(t, err)
	}
	assert.Equal(t, int32(5), calls.Load())

	_, err := c.Search(ctx, "x")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), calls.Load(), "open breaker must not reach the server")
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{APIKey: "k", BaseURL: srv.URL})
	for i := 0; i < 8; i++ {
		_, err := c.Lookup(context.Background(), int64(i+1))
		var se *StatusError
		require.ErrorAs(t, err, &se)
	}
	assert.Equal(t, int32(8), calls.Load())
}

func TestSearch_CanceledContext(t *testing.T) {
	f := newFakeTMDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.client().Search(ctx, "Inception")
	assert.Error(t, err)
	assert.Equal(t, int32(0), f.searchCalls.Load())
}
