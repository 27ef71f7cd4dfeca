// Package session orchestrates one run of 2048: it owns a grid engine, a
// speedrun tracker and the score accumulator, and produces the end-of-run
// result handed to persistence.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/speed2048/internal/grid"
	"github.com/vovakirdan/speed2048/internal/speedrun"
)

// ErrRunOver is returned by Move once the run has been won or lost.
var ErrRunOver = errors.New("session: run is over")

// Mode represents the game mode.
type Mode string

const (
	ModeClassic  Mode = "classic"
	ModeSpeedrun Mode = "speedrun"
)

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeClassic, ModeSpeedrun:
		return Mode(s), nil
	}
	return "", fmt.Errorf("session: unknown mode %q", s)
}

// Config holds the run parameters read at construction.
type Config struct {
	Mode       Mode
	Grid       grid.Config
	Milestones []int
}

// Outcome is the result of one Move call.
type Outcome struct {
	grid.MoveResult
	Gained        int   // Score added by this move
	NewMilestones []int // Milestone values first reached by this move
}

// RunResult is the end-of-run snapshot handed to persistence.
type RunResult struct {
	RunID         string
	Mode          Mode
	Score         int
	MaxTile       int
	Moves         int
	Won           bool
	Lost          bool
	ElapsedMillis int64
	Milestones    speedrun.Milestones
	EndedAt       time.Time
}

// Session is one active run. It is not safe for concurrent use;
// a host serving several players creates one Session per player.
type Session struct {
	id      uuid.UUID
	mode    Mode
	engine  *grid.Engine
	tracker *speedrun.Tracker

	score   int
	moves   int
	over    bool
	won     bool
	lost    bool
	elapsed int64 // Frozen elapsed time once the run is over
	endedAt time.Time
}

// New creates a session. Call Start to place the opening tiles.
func New(cfg Config, rnd grid.RandomSource, clock speedrun.Clock) (*Session, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeClassic
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}

	gcfg := cfg.Grid
	gcfg.CheckWin = cfg.Mode == ModeSpeedrun

	engine, err := grid.New(gcfg, rnd)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if clock == nil {
		clock = speedrun.NewSystemClock()
	}

	return &Session{
		id:      uuid.New(),
		mode:    cfg.Mode,
		engine:  engine,
		tracker: speedrun.NewTracker(clock, cfg.Milestones),
	}, nil
}

// Start begins a fresh run.
func (s *Session) Start() {
	s.Reset()
	s.engine.Start()
}

// Reset clears score, timer and terminal state and empties the board.
func (s *Session) Reset() {
	s.id = uuid.New()
	s.score = 0
	s.moves = 0
	s.over = false
	s.won = false
	s.lost = false
	s.elapsed = 0
	s.endedAt = time.Time{}
	s.tracker.Reset()
	s.engine.Clear()
}

// Load replaces the board. Used for tests and replays.
func (s *Session) Load(rows [][]int) error {
	return s.engine.Load(rows)
}

// Move applies one directional command.
func (s *Session) Move(dir grid.Direction) (Outcome, error) {
	if s.over {
		return Outcome{}, ErrRunOver
	}

	res, err := s.engine.ApplyMove(dir)
	if err != nil {
		return Outcome{}, err
	}
	if !res.Changed {
		return Outcome{MoveResult: res}, nil
	}

	s.moves++
	if s.mode == ModeSpeedrun {
		s.tracker.OnFirstMove()
	}

	out := Outcome{MoveResult: res, Gained: res.Gained()}
	s.score += out.Gained

	if s.mode == ModeSpeedrun {
		for _, m := range res.Merges {
			recorded, err := s.tracker.OnMergeEvent(m.Value)
			if err != nil {
				return out, err
			}
			if recorded {
				out.NewMilestones = append(out.NewMilestones, m.Value)
			}
		}
	}

	switch {
	case res.Won:
		s.finish(true)
	case res.Lost:
		s.finish(false)
	}

	return out, nil
}

func (s *Session) finish(won bool) {
	s.over = true
	s.won = won
	s.lost = !won
	s.endedAt = time.Now()
	if elapsed, err := s.tracker.Sample(); err == nil {
		s.elapsed = elapsed
	}
}

// Elapsed returns the run time for display: 0 before the first move,
// live while running, frozen once the run is over.
func (s *Session) Elapsed() int64 {
	if s.over {
		return s.elapsed
	}
	elapsed, err := s.tracker.Sample()
	if err != nil {
		return 0
	}
	return elapsed
}

// Result returns the run snapshot used for end-of-run reconciliation.
func (s *Session) Result() RunResult {
	r := RunResult{
		RunID:   s.id.String(),
		Mode:    s.mode,
		Score:   s.score,
		MaxTile: s.engine.MaxTile(),
		Moves:   s.moves,
		Won:     s.won,
		Lost:    s.lost,
		EndedAt: s.endedAt,
	}
	if s.mode == ModeSpeedrun {
		r.ElapsedMillis = s.Elapsed()
		r.Milestones = s.tracker.Milestones()
	}
	return r
}

// ID returns the run identifier.
func (s *Session) ID() string { return s.id.String() }

// Mode returns the session mode.
func (s *Session) Mode() Mode { return s.mode }

// Score returns the accumulated score.
func (s *Session) Score() int { return s.score }

// Moves returns the number of accepted moves.
func (s *Session) Moves() int { return s.moves }

// Over reports whether the run has ended.
func (s *Session) Over() bool { return s.over }

// Won reports whether the run ended by reaching the win tile.
func (s *Session) Won() bool { return s.won }

// Lost reports whether the run ended with no moves left.
func (s *Session) Lost() bool { return s.lost }

// Started reports whether the speedrun timer is running.
func (s *Session) Started() bool { return s.tracker.Started() }

// Cells returns a copy of the board.
func (s *Session) Cells() [][]int { return s.engine.Cells() }

// Size returns the board dimension.
func (s *Session) Size() int { return s.engine.Size() }

// MaxTile returns the highest tile on the board.
func (s *Session) MaxTile() int { return s.engine.MaxTile() }

// Milestones returns a snapshot of the milestone record.
func (s *Session) Milestones() speedrun.Milestones { return s.tracker.Milestones() }
