package loadtest

import (
	"context"
	"fmt"
	"log"
)

// verifyResults checks that the service state after the run is
// internally consistent: the leaderboard is sorted by rating and the
// comparison counts across the whole catalog match the number of
// pairwise updates the applied submissions implied.
func verifyResults(ctx context.Context, config *Config, leaderboard []Entry, stats *Stats) error {
	log.Printf("verifying results...")

	if err := verifyLeaderboardOrder(leaderboard); err != nil {
		return err
	}
	log.Printf("leaderboard ordering verified (%d entries)", len(leaderboard))

	if err := verifyPairwiseCounts(ctx, config, stats); err != nil {
		return err
	}
	log.Printf("pairwise comparison counts verified")

	return nil
}

// verifyLeaderboardOrder checks descending rating order.
func verifyLeaderboardOrder(leaderboard []Entry) error {
	for i := 1; i < len(leaderboard); i++ {
		if leaderboard[i].Rating > leaderboard[i-1].Rating {
			return fmt.Errorf("leaderboard out of order at position %d: %s (%.2f) above %s (%.2f)",
				i, leaderboard[i-1].MediaID, leaderboard[i-1].Rating,
				leaderboard[i].MediaID, leaderboard[i].Rating)
		}
	}
	return nil
}

// verifyPairwiseCounts fetches the full leaderboard and checks that
// the summed comparison counts equal twice the pairwise updates the
// applied submissions produced (each pair touches two items).
func verifyPairwiseCounts(ctx context.Context, config *Config, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	var entries []Entry
	if err := getJSON(ctx, client, config.BaseURL+"/leaderboard", &entries); err != nil {
		return fmt.Errorf("full leaderboard fetch failed: %w", err)
	}

	var totalCount int64
	for _, e := range entries {
		totalCount += e.Count
	}

	expected := stats.PairwiseExpected * 2
	if totalCount != expected {
		return fmt.Errorf("comparison count mismatch: leaderboard sums to %d, applied submissions imply %d",
			totalCount, expected)
	}
	return nil
}
