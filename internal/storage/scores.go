package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/speed2048/internal/speedrun"
)

// ScoreEntry represents a single local run record.
type ScoreEntry struct {
	ID        int64
	GameID    string
	Score     int
	MaxTile   int
	CreatedAt time.Time
}

// SpeedrunEntry represents a finished local speedrun.
type SpeedrunEntry struct {
	ID         int64
	RunID      string
	ElapsedMS  int64
	Won        bool
	Score      int
	Milestones speedrun.Milestones
	CreatedAt  time.Time
}

// GameStats contains aggregated statistics for a game.
type GameStats struct {
	GameID     string
	GamesCount int
	HighScore  int
	AvgScore   float64
	TotalScore int64
	LastPlayed time.Time
}

// SaveScore records a new score for the given game.
// Returns the ID of the inserted record.
func (s *Store) SaveScore(gameID string, score, maxTile int) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO scores (game_id, score, max_tile) VALUES (?, ?, ?)",
		gameID, score, maxTile,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save score: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// TopScores retrieves the top N scores for the given game.
// Results are ordered by score descending.
func (s *Store) TopScores(gameID string, limit int) ([]ScoreEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, game_id, score, max_tile, created_at
		 FROM scores
		 WHERE game_id = ?
		 ORDER BY score DESC, id ASC
		 LIMIT ?`,
		gameID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query scores: %w", err)
	}
	return scanScores(rows)
}

// AllScores retrieves all scores for the given game (no limit).
func (s *Store) AllScores(gameID string) ([]ScoreEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, game_id, score, max_tile, created_at
		 FROM scores
		 WHERE game_id = ?
		 ORDER BY score DESC, id ASC`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query scores: %w", err)
	}
	return scanScores(rows)
}

func scanScores(rows *sql.Rows) ([]ScoreEntry, error) {
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		var createdAt any
		if err := rows.Scan(&e.ID, &e.GameID, &e.Score, &e.MaxTile, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return entries, nil
}

// HighScore returns the highest score for the given game.
// Returns 0 if no scores exist.
func (s *Store) HighScore(gameID string) (int, error) {
	var score sql.NullInt64
	err := s.db.QueryRow(
		"SELECT MAX(score) FROM scores WHERE game_id = ?",
		gameID,
	).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot query high score: %w", err)
	}

	if !score.Valid {
		return 0, nil
	}
	return int(score.Int64), nil
}

// ClearScores deletes all scores for the given game.
// Clearing the speedrun game also drops the local speedrun history.
func (s *Store) ClearScores(gameID string) error {
	if _, err := s.db.Exec("DELETE FROM scores WHERE game_id = ?", gameID); err != nil {
		return fmt.Errorf("storage: cannot clear scores: %w", err)
	}
	if gameID == SpeedrunGameID {
		if _, err := s.db.Exec("DELETE FROM speedrun_runs"); err != nil {
			return fmt.Errorf("storage: cannot clear speedruns: %w", err)
		}
	}
	return nil
}

// SpeedrunGameID is the game id under which speedrun scores are stored.
const SpeedrunGameID = "2048_speedrun"

// SaveSpeedrun records a finished speedrun with its milestone times.
// Saving the same run id twice is a no-op.
func (s *Store) SaveSpeedrun(e SpeedrunEntry) (int64, error) {
	milestones, err := json.Marshal(e.Milestones.Clone())
	if err != nil {
		return 0, fmt.Errorf("storage: cannot encode milestones: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO speedrun_runs (run_id, elapsed_ms, won, score, milestones)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO NOTHING`,
		e.RunID, e.ElapsedMS, e.Won, e.Score, string(milestones),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save speedrun: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

// TopSpeedruns returns the fastest winning runs, fastest first.
func (s *Store) TopSpeedruns(limit int) ([]SpeedrunEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, elapsed_ms, won, score, milestones, created_at
		 FROM speedrun_runs
		 WHERE won = 1
		 ORDER BY elapsed_ms ASC, id ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query speedruns: %w", err)
	}
	defer rows.Close()

	var entries []SpeedrunEntry
	for rows.Next() {
		var e SpeedrunEntry
		var milestones string
		var createdAt any
		if err := rows.Scan(&e.ID, &e.RunID, &e.ElapsedMS, &e.Won, &e.Score, &milestones, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		if e.Milestones, err = decodeMilestones(milestones); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return entries, nil
}

// BestMilestones returns the fastest time ever recorded locally for each
// milestone value, across won and lost runs.
func (s *Store) BestMilestones() (speedrun.Milestones, error) {
	rows, err := s.db.Query("SELECT milestones FROM speedrun_runs")
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query milestones: %w", err)
	}
	defer rows.Close()

	best := speedrun.Milestones{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		run, err := decodeMilestones(raw)
		if err != nil {
			return nil, err
		}
		best, _ = speedrun.MergeBest(best, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return best, nil
}

func decodeMilestones(raw string) (speedrun.Milestones, error) {
	m := speedrun.Milestones{}
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("storage: cannot decode milestones: %w", err)
	}
	return m, nil
}

// GetGameStats retrieves aggregated statistics for a specific game.
func (s *Store) GetGameStats(gameID string) (*GameStats, error) {
	stats := &GameStats{GameID: gameID}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MAX(score), 0), COALESCE(AVG(score), 0), COALESCE(SUM(score), 0)
		 FROM scores WHERE game_id = ?`,
		gameID,
	).Scan(&stats.GamesCount, &stats.HighScore, &stats.AvgScore, &stats.TotalScore)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get game stats: %w", err)
	}

	var lastPlayed any
	err = s.db.QueryRow(
		`SELECT created_at FROM scores WHERE game_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		gameID,
	).Scan(&lastPlayed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: cannot get last played: %w", err)
	}
	if err == nil {
		stats.LastPlayed = parseTime(lastPlayed)
	}

	return stats, nil
}
