package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Serve     *ServeCommand
	Search    *SearchCommand
	History   *HistoryCommand
	Watchlist *WatchlistCommand
	Status    *StatusCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "marquee"
	parser.LongDescription = "Movie search with a local TMDB cache, search history and a watchlist."

	cmds := &commands{
		Serve:     &ServeCommand{globals: &globals, version: version},
		Search:    &SearchCommand{globals: &globals, version: version},
		History:   &HistoryCommand{globals: &globals, version: version},
		Watchlist: &WatchlistCommand{globals: &globals, version: version},
		Status:    &StatusCommand{globals: &globals, version: version},
	}

	parser.AddCommand("serve", "Run the HTTP API", "Run the HTTP API until interrupted.", cmds.Serve)
	parser.AddCommand("search", "Search movies", "Search movies by title or genre, caching new TMDB results locally.", cmds.Search)
	parser.AddCommand("history", "List or clear search history", "List recorded searches, newest first, or clear them with --clear.", cmds.History)
	parser.AddCommand("watchlist", "Show or edit the watchlist", "Show the watchlist, optionally adding or removing a cached movie first.", cmds.Watchlist)
	parser.AddCommand("status", "Show database statistics", "Show the database location and row counts.", cmds.Status)

	return parser, &globals, cmds
}

// Run is the main entry point for the marquee CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// go-flags requires a subcommand, but --version is valid without one.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("marquee %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
