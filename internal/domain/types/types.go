// Package types contains common types used across the application
package types

import "time"

// Entry is one leaderboard row: the global rating plus, when a user
// scope was requested, that user's personal rating for the same item.
type Entry struct {
	MediaID    string   `json:"media_id"`
	Rating     float64  `json:"rating"`
	Count      int64    `json:"count"`
	UserRating *float64 `json:"user_rating,omitempty"`
	UserCount  *int64   `json:"user_count,omitempty"`
}

// NextItem is one media item offered to a user for ranking.
type NextItem struct {
	MediaID     string     `json:"media_id"`
	Rating      float64    `json:"rating"`
	LastRatedAt *time.Time `json:"last_rated_at,omitempty"`
}

// Updated reports the post-submission state of one item.
type Updated struct {
	Rating     float64 `json:"rating"`
	Count      int64   `json:"count"`
	UserRating float64 `json:"user_rating"`
	UserCount  int64   `json:"user_count"`
}

// GroupStat aggregates ratings over items sharing a normalized base name.
type GroupStat struct {
	Name        string  `json:"name"`
	Items       int     `json:"items"`
	Comparisons int64   `json:"comparisons"`
	MinRating   float64 `json:"min_rating"`
	MaxRating   float64 `json:"max_rating"`
	AvgRating   float64 `json:"avg_rating"`
	StdDev      float64 `json:"std_dev"`
}
