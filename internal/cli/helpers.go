package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/runnerr0/marquee/internal/config"
	"github.com/runnerr0/marquee/internal/logging"
	"github.com/runnerr0/marquee/internal/storage"
	"github.com/runnerr0/marquee/internal/tmdb"
)

// loadConfig reads --config (or the default path, creating it), validates
// it and initializes logging. --verbose forces debug level.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if globals != nil && globals.Config != "" {
		cfg, err = config.Load(globals.Config)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if globals != nil && globals.Verbose {
		cfg.Logging.Level = "debug"
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	return cfg, nil
}

// openStore opens the configured database, runs migrations, and returns a
// ready-to-use store and the underlying *sql.DB.
func openStore(ctx context.Context, cfg *config.Config) (*storage.SQLiteStore, *sql.DB, string, error) {
	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, nil, "", fmt.Errorf("resolve db path: %w", err)
	}

	db, err := storage.Open(ctx, dbPath)
	if err != nil {
		return nil, nil, "", err
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, "", fmt.Errorf("init store: %w", err)
	}

	return store, db, dbPath, nil
}

// newTMDBClient builds the metadata client; the API key must be set.
func newTMDBClient(cfg *config.Config) (*tmdb.Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return tmdb.New(tmdb.Config{
		APIKey:            cfg.TMDB.APIKey,
		BaseURL:           cfg.TMDB.BaseURL,
		ImageBaseURL:      cfg.TMDB.ImageBaseURL,
		Timeout:           time.Duration(cfg.TMDB.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
		Burst:             cfg.TMDB.Burst,
	}), nil
}

func jsonOutput(globals *GlobalFlags) bool {
	return globals != nil && globals.JSON
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
