package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "127.0.0.1",
			Port:                   5000,
			ReadTimeoutSeconds:     15,
			WriteTimeoutSeconds:    60,
			MaxRequestSize:         1048576,
			RateLimitRequests:      120,
			RateLimitWindowSeconds: 60,
		},
		TMDB: TMDBConfig{
			APIKey:            "",
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p/w500",
			TimeoutSeconds:    10,
			RequestsPerSecond: 20,
			Burst:             20,
		},
		Storage: StorageConfig{
			Path:       "~/.config/marquee",
			SQLiteFile: "marquee.db",
		},
		History: HistoryConfig{
			UTCOffset: "-05:00",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
