// Package selector chooses which media items to expose to a user next.
//
// Candidates are ordered least-recently-rated first so under-exposed
// items surface early; items the user never rated sort before all rated
// ones, shuffled among themselves. Combinations the user has already
// been shown are skipped by walking further combinations of the
// preference order until an unseen one is found or the enumeration
// bound is reached, at which point a repeat is allowed rather than
// deadlocking.
package selector

import (
	"math/rand"
	"sort"
	"time"

	"github.com/okian/mediarank/internal/domain/model"
)

// Default selection configuration constants.
const (
	defaultMaxCombos = 4096
)

// SeenFunc reports whether a combo key was already shown to the user.
type SeenFunc func(comboKey string) bool

// Selector picks exposure sets from candidate metadata.
type Selector struct {
	rng       *rand.Rand
	maxCombos int
}

// New creates a Selector with configuration options.
func New(opts ...Option) *Selector {
	s := &Selector{
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // exposure shuffling needs no crypto randomness
		maxCombos: defaultMaxCombos,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pick returns up to n candidates to present next, preferring the
// least-recently-rated items and avoiding combos already seen. When
// every enumerated combination has been seen, the top preference combo
// is returned and the repeat is permitted.
func (s *Selector) Pick(candidates []model.Candidate, n int, seen SeenFunc) []model.Candidate {
	if len(candidates) == 0 || n < 1 {
		return nil
	}
	if n > len(candidates) {
		n = len(candidates)
	}

	ordered := s.order(candidates)
	if n == len(ordered) || seen == nil {
		return ordered[:n]
	}

	// Walk combinations of the preference order, most preferred first.
	idx := firstCombo(n)
	fallback := pickAt(ordered, idx)
	for tried := 0; tried < s.maxCombos; tried++ {
		combo := pickAt(ordered, idx)
		if !seen(comboKeyOf(combo)) {
			return combo
		}
		if !nextCombo(idx, len(ordered)) {
			break
		}
	}
	return fallback
}

// order sorts candidates by preference: never-rated items first
// (shuffled), then rated items by earliest last-rated timestamp,
// ties broken by media id.
func (s *Selector) order(candidates []model.Candidate) []model.Candidate {
	fresh := make([]model.Candidate, 0, len(candidates))
	rated := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.LastRatedAt.IsZero() {
			fresh = append(fresh, c)
		} else {
			rated = append(rated, c)
		}
	}

	s.rng.Shuffle(len(fresh), func(i, j int) {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	})
	sort.Slice(rated, func(i, j int) bool {
		if !rated[i].LastRatedAt.Equal(rated[j].LastRatedAt) {
			return rated[i].LastRatedAt.Before(rated[j].LastRatedAt)
		}
		return rated[i].MediaID < rated[j].MediaID
	})

	return append(fresh, rated...)
}

func comboKeyOf(combo []model.Candidate) string {
	ids := make([]string, len(combo))
	for i, c := range combo {
		ids[i] = c.MediaID
	}
	return model.ComboKey(ids)
}

func pickAt(ordered []model.Candidate, idx []int) []model.Candidate {
	out := make([]model.Candidate, len(idx))
	for i, j := range idx {
		out[i] = ordered[j]
	}
	return out
}

// firstCombo returns the index combination {0, 1, ..., n-1}.
func firstCombo(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// nextCombo advances idx to the next combination of len(idx) indices
// out of total, in lexicographic order. Returns false when exhausted.
func nextCombo(idx []int, total int) bool {
	k := len(idx)
	i := k - 1
	for i >= 0 && idx[i] == total-k+i {
		i--
	}
	if i < 0 {
		return false
	}
	idx[i]++
	for j := i + 1; j < k; j++ {
		idx[j] = idx[j-1] + 1
	}
	return true
}
