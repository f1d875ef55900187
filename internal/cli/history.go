package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/marquee/internal/catalog"
)

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, db, _, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	loc, err := cfg.HistoryLocation()
	if err != nil {
		return err
	}

	return c.executeWithStore(ctx, catalog.NewHistory(store, loc))
}

// executeWithStore lists or clears history through h (for testing).
func (c *HistoryCommand) executeWithStore(ctx context.Context, h *catalog.History) error {
	if c.Clear {
		return c.clear(ctx, h)
	}

	items, err := h.List(ctx)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	if jsonOutput(c.globals) {
		out := make([]jsonHistoryItem, len(items))
		for i, it := range items {
			out[i] = jsonHistoryItem{Query: it.Query, Timestamp: it.Timestamp}
		}
		return printJSON(out)
	}

	if len(items) == 0 {
		fmt.Println("No search history.")
		return nil
	}
	for _, it := range items {
		fmt.Printf("%s  %s\n", it.Timestamp, it.Query)
	}
	return nil
}

type jsonHistoryItem struct {
	Query     string `json:"query"`
	Timestamp string `json:"timestamp"`
}

func (c *HistoryCommand) clear(ctx context.Context, h *catalog.History) error {
	// Confirmation prompt unless --force
	if !c.Force {
		fmt.Println("This will permanently delete all search history.")
		fmt.Print(`Type "CLEAR" to confirm: `)

		var in io.Reader = os.Stdin
		if c.stdin != nil {
			in = c.stdin
		}
		scanner := bufio.NewScanner(in)
		if !scanner.Scan() {
			return fmt.Errorf("aborted: no input received")
		}
		if strings.TrimSpace(scanner.Text()) != "CLEAR" {
			return fmt.Errorf("aborted: confirmation text did not match")
		}
	}

	n, err := h.Clear(ctx)
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(map[string]interface{}{
			"cleared": n,
			"message": "Search history cleared successfully!",
		})
	}

	fmt.Printf("Search history cleared successfully! (%d %s removed)\n", n, pluralize(n, "entry", "entries"))
	return nil
}

func pluralize(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
