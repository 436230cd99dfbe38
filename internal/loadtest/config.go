// Package loadtest drives a running ranking service end to end:
// it registers a synthetic catalog, plays concurrent ranking rounds
// through the public API and verifies the resulting leaderboard.
package loadtest

import "time"

// Config holds configuration for the ranking load test.
type Config struct {
	BaseURL        string        // Base URL of the service
	NumMedia       int           // Number of media items to register
	NumUsers       int           // Number of synthetic users
	NumSubmissions int           // Number of ranking rounds to play
	TopN           int           // Number of top entries to fetch from leaderboard
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	LogFile        string        // Log file for test output
	Verbose        bool          // Enable verbose logging
}

// NextItem mirrors the wire shape of GET /next/{user}.
type NextItem struct {
	MediaID string  `json:"media_id"`
	Rating  float64 `json:"rating"`
}

// Submission mirrors the wire shape of POST /submissions.
type Submission struct {
	ID    string   `json:"id"`
	User  string   `json:"user"`
	Order []string `json:"order"`
}

// SubmissionResponse mirrors the acknowledgement of POST /submissions.
type SubmissionResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// Entry mirrors one leaderboard row.
type Entry struct {
	MediaID string  `json:"media_id"`
	Rating  float64 `json:"rating"`
	Count   int64   `json:"count"`
}

// Stats holds test statistics.
type Stats struct {
	MediaRegistered      int
	RoundsPlayed         int
	SubmissionsApplied   int
	SubmissionsDuplicate int
	SubmissionsFailed    int
	PairwiseExpected     int64
	LeaderboardEntries   int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
