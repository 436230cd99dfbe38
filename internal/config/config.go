// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file.
	DBPath string `koanf:"db_path"`

	// SelectionSize sets how many items a selection round shows.
	SelectionSize int `koanf:"selection_size"`

	// MaxSubmissionItems caps the number of items in one ranking submission.
	MaxSubmissionItems int `koanf:"max_submission_items"`

	// SubmitRetries bounds retry attempts after write contention.
	SubmitRetries int `koanf:"submit_retries"`

	// DedupeSize sets the size of the submission deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MaxCombos bounds combination enumeration during selection.
	MaxCombos int `koanf:"max_combos"`

	// BestsLimit sets how many entries personal bests return per end.
	BestsLimit int `koanf:"bests_limit"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and currently
// unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:            "info",
		Addr:                ":8080",
		DBPath:              "mediarank.db",
		SelectionSize:       4,
		MaxSubmissionItems:  4,
		SubmitRetries:       5,
		DedupeSize:          100_000,
		MaxLeaderboardLimit: 500,
		MaxCombos:           4096,
		BestsLimit:          5,
	}
	return c
}
