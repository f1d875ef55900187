package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/marquee/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string `json:"version"`
	DatabasePath      string `json:"database_path"`
	DatabaseSizeBytes int64  `json:"database_size_bytes"`
	SchemaVersion     int    `json:"schema_version"`
	Movies            int64  `json:"movies"`
	HistoryEntries    int64  `json:"history_entries"`
	WatchlistEntries  int64  `json:"watchlist_entries"`
	LastSearch        string `json:"last_search,omitempty"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, db, dbPath, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(ctx, store, db, dbPath)
}

// executeWithStore runs status against a provided store and db (for testing).
func (c *StatusCommand) executeWithStore(ctx context.Context, store storage.Store, db *sql.DB, dbPath string) error {
	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	schemaVersion, err := storage.NewMigrationRunner(db).Version(ctx)
	if err != nil {
		return fmt.Errorf("schema version: %w", err)
	}

	dbSize := getDatabaseSize(db, dbPath)

	if jsonOutput(c.globals) {
		return c.printStatusJSON(stats, dbPath, dbSize, schemaVersion)
	}
	return c.printStatusHuman(stats, dbPath, dbSize, schemaVersion)
}

func (c *StatusCommand) printStatusHuman(stats *storage.Stats, dbPath string, dbSize int64, schemaVersion int) error {
	fmt.Println("Marquee Status")
	fmt.Println("==============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", dbPath, formatBytes(dbSize))
	fmt.Printf("Schema:        v%d\n", schemaVersion)
	fmt.Printf("Movies:        %s\n", formatNumber(stats.Movies))
	fmt.Printf("Searches:      %s\n", formatNumber(stats.HistoryEntries))
	fmt.Printf("Watchlist:     %s\n", formatNumber(stats.WatchlistEntries))

	if !stats.LastSearch.IsZero() {
		fmt.Printf("Last search:   %s\n", stats.LastSearch.Local().Format("2006-01-02 15:04"))
	}

	return nil
}

func (c *StatusCommand) printStatusJSON(stats *storage.Stats, dbPath string, dbSize int64, schemaVersion int) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		SchemaVersion:     schemaVersion,
		Movies:            stats.Movies,
		HistoryEntries:    stats.HistoryEntries,
		WatchlistEntries:  stats.WatchlistEntries,
	}

	if !stats.LastSearch.IsZero() {
		out.LastSearch = stats.LastSearch.UTC().Format(time.RFC3339)
	}

	return printJSON(out)
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if i > 0 {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
