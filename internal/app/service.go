// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	repository "github.com/okian/mediarank/internal/adapters/repository"
	"github.com/okian/mediarank/internal/domain/dedupe"
	"github.com/okian/mediarank/internal/domain/elo"
	"github.com/okian/mediarank/internal/domain/model"
	"github.com/okian/mediarank/internal/domain/selector"
	"github.com/okian/mediarank/internal/domain/types"
	"github.com/okian/mediarank/pkg/logger"
	"github.com/okian/mediarank/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultSelectionSize       = 4
	defaultMaxSubmissionItems  = 4
	defaultSubmitRetries       = 5
	defaultDedupeSize          = 100_000
	defaultMaxLeaderboardLimit = 500
	defaultBestsLimit          = 5
	defaultDBPath              = "mediarank.db"

	retryBackoffStep = 10 * time.Millisecond
)

// Service implements the API dependencies for the media ranking system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	deduper  dedupe.Deduper
	selector *selector.Selector

	// Configuration
	dbPath              string
	selectionSize       int
	maxSubmissionItems  int
	submitRetries       int
	dedupeSize          int
	maxCombos           int
	maxLeaderboardLimit int
	bestsLimit          int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a prebuilt store instead of opening one on Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDBPath sets the SQLite database location.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithSelectionSize sets how many items a selection round presents.
func WithSelectionSize(n int) Option {
	return func(s *Service) {
		if n >= 2 {
			s.selectionSize = n
		}
	}
}

// WithMaxSubmissionItems caps the number of items in one submission.
func WithMaxSubmissionItems(n int) Option {
	return func(s *Service) {
		if n >= 2 {
			s.maxSubmissionItems = n
		}
	}
}

// WithSubmitRetries bounds retries after write contention.
func WithSubmitRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.submitRetries = n
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxCombos bounds combination enumeration during selection.
func WithMaxCombos(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCombos = n
		}
	}
}

// WithMaxLeaderboardLimit caps leaderboard page sizes.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLeaderboardLimit = n
		}
	}
}

// WithBestsLimit sets how many entries personal bests return per end.
func WithBestsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.bestsLimit = n
		}
	}
}

// WithSelector injects a preconfigured selector.
func WithSelector(sel *selector.Selector) Option {
	return func(s *Service) {
		if sel != nil {
			s.selector = sel
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:              defaultDBPath,
		selectionSize:       defaultSelectionSize,
		maxSubmissionItems:  defaultMaxSubmissionItems,
		submitRetries:       defaultSubmitRetries,
		dedupeSize:          defaultDedupeSize,
		maxLeaderboardLimit: defaultMaxLeaderboardLimit,
		bestsLimit:          defaultBestsLimit,
		logger:              nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ranking service...")

	// Initialize components
	if s.store == nil {
		store, err := repository.NewSQLiteStore(ctx, s.dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	if s.selector == nil {
		var opts []selector.Option
		if s.maxCombos > 0 {
			opts = append(opts, selector.WithMaxCombos(s.maxCombos))
		}
		s.selector = selector.New(opts...)
	}

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("selectionSize", s.selectionSize),
		logger.Int("maxSubmissionItems", s.maxSubmissionItems),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping ranking service...")

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "store close failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "ranking service stopped")
}

// SelectNext picks the next set of items to present to user and records
// the exposure so the same combination is avoided next time.
func (s *Service) SelectNext(ctx context.Context, user string) ([]types.NextItem, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if user == "" {
		return nil, fmt.Errorf("%w: user must not be empty", ErrValidation)
	}

	start := time.Now()
	defer func() {
		metrics.RecordSelectorLatency(float64(time.Since(start).Milliseconds()))
	}()

	candidates, err := s.store.Candidates(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoMedia
	}

	picked := s.selector.Pick(candidates, s.selectionSize, func(comboKey string) bool {
		seen, serr := s.store.ComboSeen(ctx, user, comboKey)
		if serr != nil {
			s.logger.Warn(ctx, "combo lookup failed", logger.Error(serr))
			return false
		}
		return seen
	})

	ids := make([]string, len(picked))
	for i, c := range picked {
		ids[i] = c.MediaID
	}
	comboKey := model.ComboKey(ids)

	if repeat, serr := s.store.ComboSeen(ctx, user, comboKey); serr == nil && repeat {
		metrics.RecordSelectorFallback()
		s.logger.Debug(ctx, "repeating seen combination",
			logger.String("user", user),
			logger.String("combo", comboKey),
		)
	}
	if err := s.store.RecordExposure(ctx, user, comboKey, time.Now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	items := make([]types.NextItem, len(picked))
	for i, c := range picked {
		items[i] = types.NextItem{
			MediaID: c.MediaID,
			Rating:  c.Rating,
		}
		if !c.LastRatedAt.IsZero() {
			t := c.LastRatedAt
			items[i].LastRatedAt = &t
		}
	}
	return items, nil
}

// Submit applies one ranking submission: the order implies a win for
// each item over every item ranked below it. Returns the updated global
// and personal state per item. The id, when empty, is generated; the
// same id is applied at most once.
func (s *Service) Submit(ctx context.Context, user, id string, order []string) (map[string]types.Updated, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := validateSubmission(user, order, s.maxSubmissionItems); err != nil {
		metrics.RecordSubmissionRejected()
		return nil, err
	}

	if id == "" {
		id = uuid.NewString()
	}

	if s.deduper.SeenAndRecord(ctx, id) {
		metrics.RecordSubmissionDuplicate()
		return nil, fmt.Errorf("submission %s: %w", id, ErrDuplicate)
	}

	start := time.Now()
	sub := model.Submission{
		ID:      id,
		User:    user,
		Order:   order,
		RatedAt: time.Now(),
	}

	result := make(map[string]types.Updated, len(order))
	apply := func(global, personal map[string]model.MediaState) (map[string]model.MediaState, map[string]model.MediaState, error) {
		clear(result)
		for _, p := range elo.Pairs(sub.Order) {
			gw, gl := global[p.Winner], global[p.Loser]
			gw.Rating, gl.Rating = elo.Rate(gw.Rating, gl.Rating)
			gw.Count++
			gl.Count++
			global[p.Winner], global[p.Loser] = gw, gl

			pw, pl := personal[p.Winner], personal[p.Loser]
			pw.Rating, pl.Rating = elo.Rate(pw.Rating, pl.Rating)
			pw.Count++
			pl.Count++
			personal[p.Winner], personal[p.Loser] = pw, pl
		}
		for _, mediaID := range sub.Order {
			result[mediaID] = types.Updated{
				Rating:     global[mediaID].Rating,
				Count:      global[mediaID].Count,
				UserRating: personal[mediaID].Rating,
				UserCount:  personal[mediaID].Count,
			}
		}
		return global, personal, nil
	}

	for attempt := 0; attempt < s.submitRetries; attempt++ {
		err := s.store.ApplyRanking(ctx, sub, apply)
		switch {
		case err == nil:
			metrics.RecordSubmissionProcessed()
			metrics.RecordPairwiseUpdates(len(order) * (len(order) - 1) / 2)
			metrics.RecordRatingLatency(float64(time.Since(start).Milliseconds()))
			s.logger.Debug(ctx, "submission applied",
				logger.String("id", id),
				logger.String("user", user),
				logger.Strings("order", order),
			)
			return result, nil

		case errors.Is(err, repository.ErrDuplicate):
			// Already committed, likely by an earlier attempt whose ack
			// was lost. The recorded state stands.
			metrics.RecordSubmissionDuplicate()
			return nil, fmt.Errorf("submission %s: %w", id, ErrDuplicate)

		case errors.Is(err, repository.ErrBusy):
			metrics.RecordCommitRetry()
			select {
			case <-ctx.Done():
				s.deduper.Unrecord(ctx, id)
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * retryBackoffStep):
			}

		default:
			s.deduper.Unrecord(ctx, id)
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}

	s.deduper.Unrecord(ctx, id)
	s.logger.Warn(ctx, "submission kept losing the write race",
		logger.String("id", id),
		logger.Int("attempts", s.submitRetries),
	)
	return nil, fmt.Errorf("submission %s: %w", id, ErrTransient)
}

// Leaderboard returns items ordered by global rating descending. A
// non-empty user annotates rows with that user's personal state.
func (s *Service) Leaderboard(ctx context.Context, user string, limit int) ([]types.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.maxLeaderboardLimit {
		limit = s.maxLeaderboardLimit
	}

	entries, err := s.store.Leaderboard(ctx, user, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = types.Entry{
			MediaID:    e.MediaID,
			Rating:     e.Rating,
			Count:      e.Count,
			UserRating: e.UserRating,
			UserCount:  e.UserCount,
		}
	}
	return out, nil
}

// PersonalBests returns the user's highest and lowest rated items by
// personal rating.
func (s *Service) PersonalBests(ctx context.Context, user string) (highest, lowest []types.Entry, err error) {
	if err := s.ready(); err != nil {
		return nil, nil, err
	}
	if user == "" {
		return nil, nil, fmt.Errorf("%w: user must not be empty", ErrValidation)
	}

	hi, lo, err := s.store.PersonalBests(ctx, user, s.bestsLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return toEntries(hi), toEntries(lo), nil
}

// RegisterMedia adds items to the catalog at the default rating.
// Already-known items are left untouched.
func (s *Service) RegisterMedia(ctx context.Context, mediaIDs []string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(mediaIDs) == 0 {
		return fmt.Errorf("%w: no media ids given", ErrValidation)
	}
	for _, id := range mediaIDs {
		if id == "" {
			return fmt.Errorf("%w: empty media id", ErrValidation)
		}
	}

	if err := s.store.RegisterMedia(ctx, mediaIDs); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if n, err := s.store.MediaCount(ctx); err == nil {
		metrics.UpdateMediaTotal(n)
	}
	s.logger.Info(ctx, "media registered", logger.Int("count", len(mediaIDs)))
	return nil
}

// GroupStats aggregates global ratings over items sharing a normalized
// base name, highest average first.
func (s *Service) GroupStats(ctx context.Context) ([]types.GroupStat, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	entries, err := s.store.Leaderboard(ctx, "", 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	groups := make(map[string][]repository.Entry)
	for _, e := range entries {
		name := model.GroupName(e.MediaID)
		groups[name] = append(groups[name], e)
	}

	stats := make([]types.GroupStat, 0, len(groups))
	for name, members := range groups {
		stat := types.GroupStat{
			Name:      name,
			Items:     len(members),
			MinRating: members[0].Rating,
			MaxRating: members[0].Rating,
		}
		var sum float64
		for _, m := range members {
			stat.Comparisons += m.Count
			sum += m.Rating
			if m.Rating < stat.MinRating {
				stat.MinRating = m.Rating
			}
			if m.Rating > stat.MaxRating {
				stat.MaxRating = m.Rating
			}
		}
		stat.AvgRating = sum / float64(len(members))

		var sq float64
		for _, m := range members {
			d := m.Rating - stat.AvgRating
			sq += d * d
		}
		stat.StdDev = math.Sqrt(sq / float64(len(members)))
		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].AvgRating != stats[j].AvgRating {
			return stats[i].AvgRating > stats[j].AvgRating
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":            s.started,
		"selectionSize":      s.selectionSize,
		"maxSubmissionItems": s.maxSubmissionItems,
		"dedupeSize":         s.dedupeSize,
	}

	if !s.started {
		return stats
	}

	if n, err := s.store.MediaCount(ctx); err == nil {
		stats["mediaCount"] = n
		metrics.UpdateMediaTotal(n)
	}
	if total, perUser, err := s.store.SubmissionCounts(ctx); err == nil {
		stats["submissions"] = total
		stats["submissionsByUser"] = perUser
	}
	stats["dedupeEntries"] = s.deduper.Size()

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func validateSubmission(user string, order []string, maxItems int) error {
	if user == "" {
		return fmt.Errorf("%w: user must not be empty", ErrValidation)
	}
	if len(order) < 2 {
		return fmt.Errorf("%w: order needs at least 2 items", ErrValidation)
	}
	if len(order) > maxItems {
		return fmt.Errorf("%w: order exceeds %d items", ErrValidation, maxItems)
	}
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if id == "" {
			return fmt.Errorf("%w: empty media id in order", ErrValidation)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: media id %q repeated in order", ErrValidation, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func toEntries(entries []repository.Entry) []types.Entry {
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = types.Entry{
			MediaID:    e.MediaID,
			Rating:     e.Rating,
			Count:      e.Count,
			UserRating: e.UserRating,
			UserCount:  e.UserCount,
		}
	}
	return out
}
