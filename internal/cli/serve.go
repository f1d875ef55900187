package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runnerr0/marquee/internal/api"
	"github.com/runnerr0/marquee/internal/catalog"
	"github.com/runnerr0/marquee/internal/config"
	"github.com/runnerr0/marquee/internal/logging"
	"github.com/runnerr0/marquee/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	c.applyOverrides(cfg)

	source, err := newTMDBClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, dbPath, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	srv, err := newServer(cfg, store, source)
	if err != nil {
		return err
	}

	logging.Info().
		Str("addr", srv.Addr).
		Str("db", dbPath).
		Str("version", c.version).
		Msg("marquee listening")

	return runServer(ctx, srv)
}

// applyOverrides copies command-line overrides onto cfg and re-initializes
// logging when the level changes.
func (c *ServeCommand) applyOverrides(cfg *config.Config) {
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port > 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
		logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	}
}

// newServer wires the catalog and API layers onto store and source.
func newServer(cfg *config.Config, store storage.Store, source catalog.MetadataSource) (*http.Server, error) {
	loc, err := cfg.HistoryLocation()
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(
		catalog.NewSearcher(store, source),
		catalog.NewWatchlist(store),
		catalog.NewHistory(store, loc),
		store,
		cfg.Server.MaxRequestSize,
	)
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   time.Duration(cfg.Server.RateLimitWindowSeconds) * time.Second,
	})

	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}, nil
}

// runServer serves until ctx is canceled, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
