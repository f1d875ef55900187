package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/marquee/internal/catalog"
	"github.com/runnerr0/marquee/internal/storage"
)

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	source, err := newTMDBClient(cfg)
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

	return c.executeWithStore(ctx, store, source, args)
}

// executeWithStore runs the search against a provided store and source (for testing).
func (c *SearchCommand) executeWithStore(ctx context.Context, store storage.Store, source catalog.MetadataSource, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("search requires a query")
	}

	results, err := catalog.NewSearcher(store, source).Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput(c.globals) {
		return c.printJSON(query, results)
	}
	return c.printHuman(query, results)
}

func (c *SearchCommand) printHuman(query string, results []storage.Movie) error {
	if len(results) == 0 {
		fmt.Printf("No movies found for %q\n", query)
		return nil
	}

	resultWord := "movies"
	if len(results) == 1 {
		resultWord = "movie"
	}
	fmt.Printf("Found %d %s for %q\n\n", len(results), resultWord, query)

	for i, m := range results {
		fmt.Printf("%d. %s (%s) [%d]\n", i+1, m.Title, m.ReleaseDate, m.ID)
		fmt.Printf("   %s · directed by %s\n", m.Genre, m.Director)
		if m.PosterURL != "" {
			fmt.Printf("   %s\n", m.PosterURL)
		}

		if i < len(results)-1 {
			fmt.Println()
		}
	}

	return nil
}

type jsonMovie struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	ReleaseDate string `json:"release_date"`
	Director    string `json:"director"`
	PosterURL   string `json:"poster_url"`
}

type jsonSearchOutput struct {
	Count   int         `json:"count"`
	Query   string      `json:"query"`
	Results []jsonMovie `json:"results"`
}

func (c *SearchCommand) printJSON(query string, results []storage.Movie) error {
	out := jsonSearchOutput{
		Count:   len(results),
		Query:   query,
		Results: make([]jsonMovie, len(results)),
	}

	for i, m := range results {
		out.Results[i] = jsonMovie{
			ID:          m.ID,
			Title:       m.Title,
			Genre:       m.Genre,
			ReleaseDate: m.ReleaseDate,
			Director:    m.Director,
			PosterURL:   m.PosterURL,
		}
	}

	return printJSON(out)
}
