// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"strings"
	"time"
)

// DefaultRating is the rating assigned to a media item on first appearance.
const DefaultRating = 1000.0

// MediaState is the ELO state of one media item, either global or scoped
// to a single user. The zero value is not valid; new items start at
// DefaultRating with a zero comparison count.
type MediaState struct {
	Rating float64 // current ELO rating
	Count  int64   // number of pairwise comparisons the item participated in
}

// NewMediaState returns the state assigned to an item on creation.
func NewMediaState() MediaState {
	return MediaState{Rating: DefaultRating, Count: 0}
}

// Submission is one recorded ranking interaction. It is immutable once
// accepted: the order list is the sole source of truth for replaying
// rating history.
type Submission struct {
	ID      string    // idempotency key, server-generated when absent
	User    string    // authenticated user identity, supplied by the caller
	Order   []string  // media ids, best first
	RatedAt time.Time // submission timestamp
}

// Candidate is a media item eligible for exposure to a user.
type Candidate struct {
	MediaID     string
	Rating      float64
	LastRatedAt time.Time // zero when the user never rated the item
}

// ComboKey returns the order-independent key identifying a set of media
// ids presented together. The same set of items yields the same key
// regardless of presentation order.
func ComboKey(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

// GroupName normalizes a media filename to its name-group key:
// extension stripped, lowercased, underscores and digits removed.
// Files like "Cat_01.jpg" and "cat02.png" fall into the same group.
func GroupName(filename string) string {
	name := filename
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		if r == '_' || (r >= '0' && r <= '9') {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
