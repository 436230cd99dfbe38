package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	progressEvery           = 100
)

// playRounds runs ranking rounds concurrently: each round fetches the
// next selection for a user, ranks it in a random order and submits
// the result.
func playRounds(ctx context.Context, config *Config, users []string, stats *Stats) error {
	log.Printf("playing %d ranking rounds with %d workers...", config.NumSubmissions, config.Workers)

	client := newHTTPClient(config.Timeout)

	var (
		played    int64
		applied   int64
		duplicate int64
		failed    int64
		pairwise  int64
	)

	roundChan := make(chan int, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID))) //nolint:gosec // load generation needs no crypto randomness

			for round := range roundChan {
				select {
				case <-ctx.Done():
					return
				default:
					user := users[round%len(users)]
					result, pairs := playSingleRound(ctx, client, config, user, rng)

					total := atomic.AddInt64(&played, 1)
					switch result {
					case "applied":
						atomic.AddInt64(&applied, 1)
						atomic.AddInt64(&pairwise, pairs)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					if total%progressEvery == 0 {
						if config.Verbose {
							log.Printf("progress: %d/%d rounds (applied: %d, duplicate: %d, failed: %d)",
								total, config.NumSubmissions,
								atomic.LoadInt64(&applied), atomic.LoadInt64(&duplicate), atomic.LoadInt64(&failed))
						} else {
							fmt.Printf("\rrounds: %d/%d (applied: %d, failed: %d)",
								total, config.NumSubmissions,
								atomic.LoadInt64(&applied), atomic.LoadInt64(&failed))
						}
					}
				}
			}
		}(i)
	}

	go func() {
		defer close(roundChan)
		for i := 0; i < config.NumSubmissions; i++ {
			select {
			case <-ctx.Done():
				return
			case roundChan <- i:
			}
		}
	}()

	wg.Wait()

	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	stats.RoundsPlayed = int(atomic.LoadInt64(&played))
	stats.SubmissionsApplied = int(atomic.LoadInt64(&applied))
	stats.SubmissionsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.SubmissionsFailed = int(atomic.LoadInt64(&failed))
	stats.PairwiseExpected = atomic.LoadInt64(&pairwise)

	log.Printf(`ranking rounds completed:
   Applied: %d
   Duplicate: %d
   Failed: %d
`, stats.SubmissionsApplied, stats.SubmissionsDuplicate, stats.SubmissionsFailed)

	return nil
}

// playSingleRound plays one fetch-rank-submit round for user. Returns
// the outcome and the number of pairwise updates the round implied.
func playSingleRound(ctx context.Context, client *HTTPClient, config *Config, user string, rng *rand.Rand) (string, int64) {
	var items []NextItem
	if err := getJSON(ctx, client, config.BaseURL+"/next/"+user, &items); err != nil {
		if config.Verbose {
			log.Printf("next fetch failed for %s: %v", user, err)
		}
		return "failed", 0
	}
	if len(items) < 2 {
		return "failed", 0
	}

	sub := Submission{
		ID:    uuid.New().String(),
		User:  user,
		Order: rankOrder(items, rng),
	}

	resp, err := client.Post(ctx, config.BaseURL+"/submissions", sub)
	if err != nil {
		return "failed", 0
	}
	body, err := readResponseBody(resp)
	if err != nil || resp.StatusCode != statusOK {
		return "failed", 0
	}

	var ack SubmissionResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		return "failed", 0
	}
	if ack.Status == "duplicate" {
		return "duplicate", 0
	}

	n := int64(len(sub.Order))
	return "applied", n * (n - 1) / 2
}
