package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"
)

// Run executes the complete load test: health check, catalog
// registration, concurrent ranking rounds, leaderboard retrieval and
// consistency verification.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	log.Printf("starting mediarank load test")
	log.Printf("target: %s", config.BaseURL)
	log.Printf("media: %d, users: %d, rounds: %d, workers: %d",
		config.NumMedia, config.NumUsers, config.NumSubmissions, config.Workers)

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // load generation needs no crypto randomness

	if err := registerMedia(ctx, config, rng, stats); err != nil {
		return fmt.Errorf("media registration failed: %w", err)
	}

	users := generateUsers(config.NumUsers)

	if err := playRounds(ctx, config, users, stats); err != nil {
		return fmt.Errorf("ranking rounds failed: %w", err)
	}

	leaderboard, err := fetchLeaderboard(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	if err := verifyResults(ctx, config, leaderboard, stats); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(config, leaderboard, stats)

	return nil
}

// checkServiceHealth verifies the service is reachable before the run.
func checkServiceHealth(ctx context.Context, config *Config) error {
	log.Printf("checking service health...")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("service unreachable: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}
	if resp.StatusCode != statusOK {
		return fmt.Errorf("health check returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	log.Printf("service is healthy")
	return nil
}

// registerMedia registers the synthetic catalog in one batch.
func registerMedia(ctx context.Context, config *Config, rng *rand.Rand, stats *Stats) error {
	log.Printf("registering %d media items...", config.NumMedia)

	media := generateMedia(config.NumMedia, rng)

	client := newHTTPClient(config.Timeout)
	resp, err := client.Post(ctx, config.BaseURL+"/media", map[string][]string{"media": media})
	if err != nil {
		return fmt.Errorf("registration request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read registration response: %w", err)
	}
	if resp.StatusCode != statusCreated {
		return fmt.Errorf("registration returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	stats.MediaRegistered = len(media)
	log.Printf("registered %d media items", stats.MediaRegistered)
	return nil
}

// fetchLeaderboard retrieves the top entries after all rounds finished.
func fetchLeaderboard(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	limit := config.TopN
	if limit > stats.MediaRegistered {
		limit = stats.MediaRegistered
	}
	log.Printf("fetching top %d leaderboard entries...", limit)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/leaderboard?limit=%d", config.BaseURL, limit)
	var entries []Entry
	if err := getJSON(ctx, client, url, &entries); err != nil {
		return nil, err
	}

	stats.LeaderboardEntries = len(entries)
	log.Printf("retrieved %d leaderboard entries", len(entries))
	return entries, nil
}

// displayFinalStats prints the test summary and top performers.
func displayFinalStats(config *Config, leaderboard []Entry, stats *Stats) {
	roundsPerSecond := float64(stats.RoundsPlayed) / stats.Duration.Seconds()

	log.Printf(`
LOAD TEST COMPLETED
========================================
Duration: %v
Media registered: %d
Rounds played: %d (%.1f rounds/sec)
Submissions applied: %d
Submissions duplicate: %d
Submissions failed: %d
Pairwise updates: %d
Leaderboard entries: %d
========================================`,
		stats.Duration.Round(time.Millisecond),
		stats.MediaRegistered,
		stats.RoundsPlayed, roundsPerSecond,
		stats.SubmissionsApplied,
		stats.SubmissionsDuplicate,
		stats.SubmissionsFailed,
		stats.PairwiseExpected,
		stats.LeaderboardEntries,
	)

	top := len(leaderboard)
	if top > 10 {
		top = 10
	}
	if top > 0 {
		log.Printf("top %d media:", top)
		for i, e := range leaderboard[:top] {
			log.Printf("  %2d. %-24s rating=%8.2f comparisons=%d", i+1, e.MediaID, e.Rating, e.Count)
		}
	}

	if config.Verbose {
		if data, err := json.MarshalIndent(stats, "", "  "); err == nil {
			log.Printf("raw stats:\n%s", string(data))
		}
	}
}
