package loadtest

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Base names for the synthetic catalog. Several items share a base
// name so the group statistics endpoint has something to aggregate.
var baseNames = []string{
	"cat", "dog", "bird", "fish", "horse", "fox", "owl", "bear",
}

var extensions = []string{".jpg", ".png", ".mp4"}

// generateMedia creates numMedia filenames spread over the base names.
func generateMedia(numMedia int, rng *rand.Rand) []string {
	media := make([]string, numMedia)
	for i := range media {
		base := baseNames[i%len(baseNames)]
		ext := extensions[rng.Intn(len(extensions))]
		media[i] = fmt.Sprintf("%s_%02d%s", base, i/len(baseNames)+1, ext)
	}
	return media
}

// generateUsers creates numUsers synthetic user names.
func generateUsers(numUsers int) []string {
	users := make([]string, numUsers)
	for i := range users {
		users[i] = "user_" + uuid.New().String()[:8]
	}
	return users
}

// rankOrder returns the ids of items in a random preference order,
// simulating a user's ranking of the presented set.
func rankOrder(items []NextItem, rng *rand.Rand) []string {
	order := make([]string, len(items))
	for i, it := range items {
		order[i] = it.MediaID
	}
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}
