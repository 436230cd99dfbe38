// Package elo implements the pairwise ELO rating update.
//
// The arithmetic is plain float64 in a fixed evaluation order so that
// the same inputs always produce bit-identical ratings.
package elo

import "math"

// K is the fixed step size controlling how much one outcome can move a
// rating.
const K = 32.0

// Actual scores per outcome.
const (
	Win  = 1.0
	Loss = 0.0
	Draw = 0.5
)

// Expected returns the expected score of a player rated ra against an
// opponent rated rb.
func Expected(ra, rb float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (rb-ra)/400.0))
}

// Rate applies one win/loss outcome and returns the updated ratings of
// the winner and loser.
func Rate(winner, loser float64) (float64, float64) {
	ea := Expected(winner, loser)
	eb := Expected(loser, winner)
	return winner + K*(Win-ea), loser + K*(Loss-eb)
}

// Pair is one pairwise outcome derived from a ranking order.
type Pair struct {
	Winner string
	Loser  string
}

// Pairs derives every pairwise outcome implied by an ordering, best
// first: each item wins against every item ranked below it. An n-item
// order yields n*(n-1)/2 pairs and no draws.
func Pairs(order []string) []Pair {
	if len(order) < 2 {
		return nil
	}
	pairs := make([]Pair, 0, len(order)*(len(order)-1)/2)
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			pairs = append(pairs, Pair{Winner: order[i], Loser: order[j]})
		}
	}
	return pairs
}
