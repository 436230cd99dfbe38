// Package repository defines the ranking store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/mediarank/internal/domain/model"
)

// Entry is one leaderboard row as persisted. UserRating and UserCount
// are nil when the query was not scoped to a user or the user never
// rated the item.
type Entry struct {
	MediaID    string
	Rating     float64
	Count      int64
	UserRating *float64
	UserCount  *int64
}

// ApplyFunc computes updated rating states from the current ones. It
// runs inside the commit transaction: the states it receives are fresh
// reads under the store's write lock, so concurrent submissions can
// never base their update on stale ratings. Returning an error aborts
// the whole transaction with no state change.
type ApplyFunc func(global, personal map[string]model.MediaState) (map[string]model.MediaState, map[string]model.MediaState, error)

// Store provides durable read/write access to the ranking state. A
// write acknowledged by the store has been committed; no crash can
// silently lose it afterwards.
type Store interface {
	// RegisterMedia creates items at the default rating; existing items
	// are left untouched.
	RegisterMedia(ctx context.Context, mediaIDs []string) error

	// MediaState returns the global ELO state for one item, creating the
	// default state if the item is unknown.
	MediaState(ctx context.Context, mediaID string) (model.MediaState, error)

	// UserMediaState is MediaState scoped to one user's personal ratings.
	UserMediaState(ctx context.Context, user, mediaID string) (model.MediaState, error)

	// ApplyRanking atomically appends the submission record, applies the
	// state updates computed by apply, touches the user's last-rated
	// timestamps and upserts the combo-seen row for the submitted set.
	// Returns ErrDuplicate when the submission id was already committed
	// and ErrBusy when the write could not be serialized in time.
	ApplyRanking(ctx context.Context, sub model.Submission, apply ApplyFunc) error

	// Leaderboard returns every item ordered by global rating descending,
	// ties broken by media id ascending. A positive limit truncates the
	// result; user, when non-empty, annotates rows with personal state.
	Leaderboard(ctx context.Context, user string, limit int) ([]Entry, error)

	// Candidates returns every item with the user's last-rated timestamp
	// (zero for items the user never rated), for exposure selection.
	Candidates(ctx context.Context, user string) ([]model.Candidate, error)

	// ComboSeen reports whether the combo was already shown to the user.
	ComboSeen(ctx context.Context, user, comboKey string) (bool, error)

	// RecordExposure upserts the combo-seen row for a presented set.
	RecordExposure(ctx context.Context, user, comboKey string, shownAt time.Time) error

	// PersonalBests returns the user's highest and lowest rated items by
	// personal rating, at most limit each, annotated with global state.
	PersonalBests(ctx context.Context, user string, limit int) (highest, lowest []Entry, err error)

	// MediaCount returns the number of items tracked.
	MediaCount(ctx context.Context) (int64, error)

	// SubmissionCounts returns the total number of committed submissions
	// and the per-user breakdown.
	SubmissionCounts(ctx context.Context) (int64, map[string]int64, error)

	// Close releases the underlying storage.
	Close() error
}
