package t2048

import "github.com/vovakirdan/speed2048/internal/speedrun"

// GameStateType represents the current game state.
type GameStateType string

const (
	StatePlaying     GameStateType = "playing"
	StatePaused      GameStateType = "paused"
	StateGameOver    GameStateType = "game_over"
	StateWin         GameStateType = "win"
	StatePausedSmall GameStateType = "paused_small_window"
)

// Snapshot captures the complete game state for determinism testing and replay.
type Snapshot struct {
	Tick          uint64
	Mode          string // "classic" or "speedrun"
	Score         int
	Moves         int
	Board         [][]int
	MaxTile       int
	ElapsedMillis int64
	Milestones    speedrun.Milestones
	State         GameStateType
}

// Snapshot returns the current game snapshot for determinism verification.
func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:  g.tick,
		Mode:  string(g.mode),
		State: StatePlaying,
	}
	if g.sess == nil {
		snap.State = StateGameOver
		return snap
	}

	switch {
	case g.tooSmall:
		snap.State = StatePausedSmall
	case g.sess.Won():
		snap.State = StateWin
	case g.sess.Lost():
		snap.State = StateGameOver
	case g.paused:
		snap.State = StatePaused
	}

	snap.Score = g.sess.Score()
	snap.Moves = g.sess.Moves()
	snap.Board = g.sess.Cells()
	snap.MaxTile = g.sess.MaxTile()
	snap.ElapsedMillis = g.sess.Elapsed()
	snap.Milestones = g.sess.Milestones()
	return snap
}

// LoadBoard replaces the board of the current run. Used for tests and replays.
func (g *Game) LoadBoard(rows [][]int) error {
	return g.sess.Load(rows)
}
