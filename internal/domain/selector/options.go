// Package selector chooses which media items to expose to a user next.
package selector

import "math/rand"

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithRand sets the random source used to shuffle never-rated items.
// Tests inject a seeded source for deterministic selection.
func WithRand(rng *rand.Rand) Option {
	return func(s *Selector) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithMaxCombos bounds how many combinations are enumerated while
// searching for an unseen combo before a repeat is allowed.
func WithMaxCombos(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.maxCombos = n
		}
	}
}
