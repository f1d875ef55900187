package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ServeCommand runs the HTTP API.
type ServeCommand struct {
	Host     string `long:"host" description:"Override listen host"`
	Port     int    `long:"port" description:"Override listen port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// SearchCommand searches movies; the query is the remaining arguments.
type SearchCommand struct {
	globals *GlobalFlags
	version string
}

// HistoryCommand lists or clears search history.
type HistoryCommand struct {
	Clear bool `long:"clear" description:"Delete all search history"`
	Force bool `long:"force" description:"Skip the confirmation prompt for --clear"`

	globals *GlobalFlags
	version string
	stdin   io.Reader // nil means os.Stdin
}

// WatchlistCommand shows the watchlist after an optional add or remove.
type WatchlistCommand struct {
	Add    int64 `long:"add" description:"Add a cached movie by ID" value-name:"ID"`
	Remove int64 `long:"remove" description:"Remove all entries for a movie ID" value-name:"ID"`

	globals *GlobalFlags
	version string
}

// StatusCommand shows database location and row counts.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}
