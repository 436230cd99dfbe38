// Package repository defines the ranking store interface and errors.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/mediarank/internal/domain/model"
	"github.com/okian/mediarank/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultBusyTimeout = 5 * time.Second
)

// SQLiteStore implements Store on an embedded SQLite database.
//
// The connection pool is capped at one connection, so every
// transaction runs against a single writer: concurrent submissions
// touching the same items are serialized and each ApplyFunc sees
// ratings read inside its own transaction, never stale ones.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
}

// NewSQLiteStore opens (or creates) the database at path and prepares
// the schema.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		busyTimeout: defaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(FULL)",
		path, s.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s.db = db
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media (
		filename TEXT PRIMARY KEY,
		elo REAL NOT NULL DEFAULT 1000,
		rating_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS rankings (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		item_order TEXT NOT NULL,
		rated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rankings_username ON rankings(username);

	CREATE TABLE IF NOT EXISTS user_media (
		username TEXT NOT NULL,
		filename TEXT NOT NULL,
		elo REAL NOT NULL DEFAULT 1000,
		rating_count INTEGER NOT NULL DEFAULT 0,
		last_rated_at INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (username, filename)
	);

	CREATE TABLE IF NOT EXISTS combo_seen (
		username TEXT NOT NULL,
		combo_key TEXT NOT NULL,
		last_shown_at INTEGER NOT NULL,
		PRIMARY KEY (username, combo_key)
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RegisterMedia implements Store.RegisterMedia.
func (s *SQLiteStore) RegisterMedia(ctx context.Context, mediaIDs []string) error {
	if len(mediaIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("register media", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range mediaIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO media (filename) VALUES (?)`, id); err != nil {
			return s.wrap("register media", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return s.wrap("register media", err)
	}
	return nil
}

// MediaState implements Store.MediaState with get-or-create semantics.
func (s *SQLiteStore) MediaState(ctx context.Context, mediaID string) (model.MediaState, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO media (filename) VALUES (?)`, mediaID); err != nil {
		return model.MediaState{}, s.wrap("media state", err)
	}
	var st model.MediaState
	err := s.db.QueryRowContext(ctx,
		`SELECT elo, rating_count FROM media WHERE filename = ?`, mediaID).
		Scan(&st.Rating, &st.Count)
	if err != nil {
		return model.MediaState{}, s.wrap("media state", err)
	}
	return st, nil
}

// UserMediaState implements Store.UserMediaState with get-or-create semantics.
func (s *SQLiteStore) UserMediaState(ctx context.Context, user, mediaID string) (model.MediaState, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_media (username, filename) VALUES (?, ?)`, user, mediaID); err != nil {
		return model.MediaState{}, s.wrap("user media state", err)
	}
	var st model.MediaState
	err := s.db.QueryRowContext(ctx,
		`SELECT elo, rating_count FROM user_media WHERE username = ? AND filename = ?`, user, mediaID).
		Scan(&st.Rating, &st.Count)
	if err != nil {
		return model.MediaState{}, s.wrap("user media state", err)
	}
	return st, nil
}

// ApplyRanking implements Store.ApplyRanking. Steps run in one
// transaction: the submission either commits in full or leaves no
// trace.
func (s *SQLiteStore) ApplyRanking(ctx context.Context, sub model.Submission, apply ApplyFunc) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreCommitLatency(float64(time.Since(start).Milliseconds()))
	}()

	orderJSON, err := json.Marshal(sub.Order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("apply ranking", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Append-only history row doubles as the durable idempotency check.
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO rankings (id, username, item_order, rated_at) VALUES (?, ?, ?, ?)`,
		sub.ID, sub.User, string(orderJSON), sub.RatedAt.UnixNano())
	if err != nil {
		return s.wrap("apply ranking", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		metrics.RecordErrorByComponent("repository", "duplicate")
		return ErrDuplicate
	}

	global := make(map[string]model.MediaState, len(sub.Order))
	personal := make(map[string]model.MediaState, len(sub.Order))
	for _, id := range sub.Order {
		g, p, err := s.statesInTx(ctx, tx, sub.User, id)
		if err != nil {
			return s.wrap("apply ranking", err)
		}
		global[id] = g
		personal[id] = p
	}

	newGlobal, newPersonal, err := apply(global, personal)
	if err != nil {
		return err
	}

	for id, st := range newGlobal {
		if _, err := tx.ExecContext(ctx,
			`UPDATE media SET elo = ?, rating_count = ? WHERE filename = ?`,
			st.Rating, st.Count, id); err != nil {
			return s.wrap("apply ranking", err)
		}
	}
	for id, st := range newPersonal {
		if _, err := tx.ExecContext(ctx,
			`UPDATE user_media SET elo = ?, rating_count = ?, last_rated_at = ?
			 WHERE username = ? AND filename = ?`,
			st.Rating, st.Count, sub.RatedAt.UnixNano(), sub.User, id); err != nil {
			return s.wrap("apply ranking", err)
		}
	}

	if err := s.upsertComboInTx(ctx, tx, sub.User, model.ComboKey(sub.Order), sub.RatedAt); err != nil {
		return s.wrap("apply ranking", err)
	}

	if err := tx.Commit(); err != nil {
		return s.wrap("apply ranking", err)
	}
	return nil
}

// statesInTx reads, creating if absent, the global and per-user state
// of one item inside the submission's transaction.
func (s *SQLiteStore) statesInTx(ctx context.Context, tx *sql.Tx, user, mediaID string) (model.MediaState, model.MediaState, error) {
	var g, p model.MediaState
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO media (filename) VALUES (?)`, mediaID); err != nil {
		return g, p, err
	}
	if err := tx.QueryRowContext(ctx,
		`SELECT elo, rating_count FROM media WHERE filename = ?`, mediaID).
		Scan(&g.Rating, &g.Count); err != nil {
		return g, p, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_media (username, filename) VALUES (?, ?)`, user, mediaID); err != nil {
		return g, p, err
	}
	if err := tx.QueryRowContext(ctx,
		`SELECT elo, rating_count FROM user_media WHERE username = ? AND filename = ?`, user, mediaID).
		Scan(&p.Rating, &p.Count); err != nil {
		return g, p, err
	}
	return g, p, nil
}

func (s *SQLiteStore) upsertComboInTx(ctx context.Context, tx *sql.Tx, user, comboKey string, shownAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO combo_seen (username, combo_key, last_shown_at) VALUES (?, ?, ?)
		 ON CONFLICT(username, combo_key) DO UPDATE SET last_shown_at = excluded.last_shown_at`,
		user, comboKey, shownAt.UnixNano())
	return err
}

// Leaderboard implements Store.Leaderboard.
func (s *SQLiteStore) Leaderboard(ctx context.Context, user string, limit int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	query := `
	SELECT m.filename, m.elo, m.rating_count, um.elo, um.rating_count
	FROM media m
	LEFT JOIN user_media um ON um.filename = m.filename AND um.username = ?
	ORDER BY m.elo DESC, m.filename ASC`
	args := []any{user}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrap("leaderboard", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var uRating sql.NullFloat64
		var uCount sql.NullInt64
		if err := rows.Scan(&e.MediaID, &e.Rating, &e.Count, &uRating, &uCount); err != nil {
			return nil, s.wrap("leaderboard", err)
		}
		if user != "" && uRating.Valid {
			e.UserRating = &uRating.Float64
			e.UserCount = &uCount.Int64
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("leaderboard", err)
	}
	return entries, nil
}

// Candidates implements Store.Candidates.
func (s *SQLiteStore) Candidates(ctx context.Context, user string) ([]model.Candidate, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, `
	SELECT m.filename, m.elo, COALESCE(um.last_rated_at, 0)
	FROM media m
	LEFT JOIN user_media um ON um.filename = m.filename AND um.username = ?`, user)
	if err != nil {
		return nil, s.wrap("candidates", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []model.Candidate
	for rows.Next() {
		var c model.Candidate
		var lastRated int64
		if err := rows.Scan(&c.MediaID, &c.Rating, &lastRated); err != nil {
			return nil, s.wrap("candidates", err)
		}
		if lastRated > 0 {
			c.LastRatedAt = time.Unix(0, lastRated)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("candidates", err)
	}
	return candidates, nil
}

// ComboSeen implements Store.ComboSeen.
func (s *SQLiteStore) ComboSeen(ctx context.Context, user, comboKey string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM combo_seen WHERE username = ? AND combo_key = ?`, user, comboKey).
		Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, s.wrap("combo seen", err)
	}
	return true, nil
}

// RecordExposure implements Store.RecordExposure.
func (s *SQLiteStore) RecordExposure(ctx context.Context, user, comboKey string, shownAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO combo_seen (username, combo_key, last_shown_at) VALUES (?, ?, ?)
		 ON CONFLICT(username, combo_key) DO UPDATE SET last_shown_at = excluded.last_shown_at`,
		user, comboKey, shownAt.UnixNano())
	if err != nil {
		return s.wrap("record exposure", err)
	}
	return nil
}

// PersonalBests implements Store.PersonalBests.
func (s *SQLiteStore) PersonalBests(ctx context.Context, user string, limit int) ([]Entry, []Entry, error) {
	highest, err := s.personalSlice(ctx, user, limit, "DESC")
	if err != nil {
		return nil, nil, err
	}
	lowest, err := s.personalSlice(ctx, user, limit, "ASC")
	if err != nil {
		return nil, nil, err
	}
	return highest, lowest, nil
}

func (s *SQLiteStore) personalSlice(ctx context.Context, user string, limit int, direction string) ([]Entry, error) {
	query := fmt.Sprintf(`
	SELECT um.filename, m.elo, m.rating_count, um.elo, um.rating_count
	FROM user_media um
	JOIN media m ON m.filename = um.filename
	WHERE um.username = ? AND um.rating_count > 0
	ORDER BY um.elo %s, um.filename ASC
	LIMIT ?`, direction)

	rows, err := s.db.QueryContext(ctx, query, user, limit)
	if err != nil {
		return nil, s.wrap("personal bests", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var uRating float64
		var uCount int64
		if err := rows.Scan(&e.MediaID, &e.Rating, &e.Count, &uRating, &uCount); err != nil {
			return nil, s.wrap("personal bests", err)
		}
		e.UserRating = &uRating
		e.UserCount = &uCount
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("personal bests", err)
	}
	return entries, nil
}

// MediaCount implements Store.MediaCount.
func (s *SQLiteStore) MediaCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&n); err != nil {
		return 0, s.wrap("media count", err)
	}
	return n, nil
}

// SubmissionCounts implements Store.SubmissionCounts.
func (s *SQLiteStore) SubmissionCounts(ctx context.Context) (int64, map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, COUNT(*) FROM rankings GROUP BY username`)
	if err != nil {
		return 0, nil, s.wrap("submission counts", err)
	}
	defer func() { _ = rows.Close() }()

	perUser := make(map[string]int64)
	var total int64
	for rows.Next() {
		var user string
		var n int64
		if err := rows.Scan(&user, &n); err != nil {
			return 0, nil, s.wrap("submission counts", err)
		}
		perUser[user] = n
		total += n
	}
	if err := rows.Err(); err != nil {
		return 0, nil, s.wrap("submission counts", err)
	}
	return total, perUser, nil
}

// wrap maps driver errors to sentinel kinds and records the failure.
func (s *SQLiteStore) wrap(op string, err error) error {
	if isBusy(err) {
		metrics.RecordErrorByComponent("repository", "busy")
		return fmt.Errorf("%s: %w", op, ErrBusy)
	}
	metrics.RecordErrorByComponent("repository", "storage")
	return fmt.Errorf("%s: %w", op, err)
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
