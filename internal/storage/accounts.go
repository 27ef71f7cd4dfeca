package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vovakirdan/speed2048/internal/speedrun"
)

// User is an account row.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	TOTPSecret   string
	TOTPEnabled  bool
	CreatedAt    time.Time
}

// UserResults holds a user's personal bests.
type UserResults struct {
	BestScore        int
	BestSpeedrunTime *int64 // nil until the first won speedrun
	BestBlockTimes   speedrun.Milestones
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Rank      int
	Username  string
	BestScore int
	BestTime  int64 // milliseconds, speedrun leaderboard only
}

// Leaderboard modes.
const (
	LeaderboardClassic  = "classic"
	LeaderboardSpeedrun = "speedrun"
)

const userColumns = `id, username, email, password_hash, totp_secret, totp_enabled, created_at`

// CreateUser inserts a new account. Returns ErrConflict when the username
// or email is taken.
func (s *Store) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("storage: user %q: %w", u.Username, ErrConflict)
		}
		return fmt.Errorf("storage: cannot create user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// UserExists reports whether the username or email is already registered.
func (s *Store) UserExists(ctx context.Context, username, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username = ? OR email = ?",
		username, email,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage: cannot check user: %w", err)
	}
	return n > 0, nil
}

// UserByName looks up an account by username.
func (s *Store) UserByName(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

// UserByID looks up an account by id.
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var createdAt any
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.TOTPSecret, &u.TOTPEnabled, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// CreateSession stores a login token for the user.
func (s *Store) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot create session: %w", err)
	}
	return nil
}

// UserBySession resolves a login token to its user.
// Expired or unknown tokens return ErrNotFound.
func (s *Store) UserBySession(ctx context.Context, token string, now time.Time) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT u.id, u.username, u.email, u.password_hash, u.totp_secret, u.totp_enabled, u.created_at
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.token = ? AND s.expires_at > ?`,
		token, now.Unix(),
	)
	return scanUser(row)
}

// DeleteSession removes a login token.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("storage: cannot delete session: %w", err)
	}
	return nil
}

// PurgeSessions deletes tokens that expired before now.
func (s *Store) PurgeSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("storage: cannot purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// SetTOTPSecret stores a pending (not yet enabled) TOTP secret.
// It returns ErrNotFound once two-factor login is enabled; an active
// secret is never replaced.
func (s *Store) SetTOTPSecret(ctx context.Context, userID, secret string) error {
	return s.updateUser(ctx, "UPDATE users SET totp_secret = ? WHERE id = ? AND totp_enabled = 0", secret, userID)
}

// EnableTOTP turns on two-factor login for the user.
func (s *Store) EnableTOTP(ctx context.Context, userID string) error {
	return s.updateUser(ctx, "UPDATE users SET totp_enabled = 1 WHERE id = ? AND totp_secret != ''", userID)
}

func (s *Store) updateUser(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("storage: cannot update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: cannot update user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateBestScore replaces the stored best score only when score is greater.
// Returns whether it was updated and the resulting best.
func (s *Store) UpdateBestScore(ctx context.Context, userID string, score int) (bool, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("storage: cannot begin: %w", err)
	}
	defer tx.Rollback()

	var best int
	err = tx.QueryRowContext(ctx, "SELECT best_score FROM users WHERE id = ?", userID).Scan(&best)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, ErrNotFound
	}
	if err != nil {
		return false, 0, fmt.Errorf("storage: cannot query best score: %w", err)
	}

	if score <= best {
		return false, best, nil
	}
	if _, err := tx.ExecContext(ctx, "UPDATE users SET best_score = ? WHERE id = ?", score, userID); err != nil {
		return false, 0, fmt.Errorf("storage: cannot update best score: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("storage: cannot commit: %w", err)
	}
	return true, score, nil
}

// UpdateSpeedrunBest reconciles a finished speedrun with the stored bests.
// bestTime replaces the stored time only when smaller or unset; a nil
// bestTime (a lost run) never touches it. Block times merge per value by
// minimum. Returns whether anything changed.
func (s *Store) UpdateSpeedrunBest(ctx context.Context, userID string, bestTime *int64, blocks speedrun.Milestones) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("storage: cannot begin: %w", err)
	}
	defer tx.Rollback()

	var current sql.NullInt64
	var rawBlocks string
	err = tx.QueryRowContext(ctx,
		"SELECT best_speedrun_time, best_block_times FROM users WHERE id = ?", userID,
	).Scan(&current, &rawBlocks)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("storage: cannot query speedrun best: %w", err)
	}

	stored, err := decodeMilestones(rawBlocks)
	if err != nil {
		return false, err
	}
	merged, blocksImproved := speedrun.MergeBest(stored, blocks)

	newTime := current
	timeImproved := bestTime != nil && (!current.Valid || *bestTime < current.Int64)
	if timeImproved {
		newTime = sql.NullInt64{Int64: *bestTime, Valid: true}
	}

	if !timeImproved && !blocksImproved {
		return false, nil
	}

	encoded, err := json.Marshal(merged)
	if err != nil {
		return false, fmt.Errorf("storage: cannot encode milestones: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET best_speedrun_time = ?, best_block_times = ? WHERE id = ?",
		newTime, string(encoded), userID,
	); err != nil {
		return false, fmt.Errorf("storage: cannot update speedrun best: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("storage: cannot commit: %w", err)
	}
	return true, nil
}

// UserResults returns the user's personal bests.
func (s *Store) UserResults(ctx context.Context, userID string) (*UserResults, error) {
	var r UserResults
	var bestTime sql.NullInt64
	var rawBlocks string
	err := s.db.QueryRowContext(ctx,
		"SELECT best_score, best_speedrun_time, best_block_times FROM users WHERE id = ?", userID,
	).Scan(&r.BestScore, &bestTime, &rawBlocks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query results: %w", err)
	}

	if bestTime.Valid {
		t := bestTime.Int64
		r.BestSpeedrunTime = &t
	}
	if r.BestBlockTimes, err = decodeMilestones(rawBlocks); err != nil {
		return nil, err
	}
	return &r, nil
}

// Leaderboard returns one page of ranked users and the total number of
// ranked users. Classic ranks by best score descending, speedrun by best
// time ascending. Users without a result in the mode are not ranked.
func (s *Store) Leaderboard(ctx context.Context, mode string, limit, offset int) ([]LeaderboardEntry, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	var where, order string
	switch mode {
	case LeaderboardClassic:
		where, order = "best_score > 0", "best_score DESC, created_at ASC, username ASC"
	case LeaderboardSpeedrun:
		where, order = "best_speedrun_time IS NOT NULL", "best_speedrun_time ASC, created_at ASC, username ASC"
	default:
		return nil, 0, fmt.Errorf("storage: unknown leaderboard mode %q", mode)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE "+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("storage: cannot count leaderboard: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT username, best_score, COALESCE(best_speedrun_time, 0) FROM users WHERE "+where+
			" ORDER BY "+order+" LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: cannot query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	rank := offset
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.BestScore, &e.BestTime); err != nil {
			return nil, 0, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		rank++
		e.Rank = rank
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return entries, total, nil
}
