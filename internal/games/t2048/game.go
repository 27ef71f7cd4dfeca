// Package t2048 adapts a 2048 session to the platform's fixed-tick game loop.
// Two modes are registered: classic ("2048") and speedrun ("2048_speedrun").
package t2048

import (
	"math/rand"
	"slices"
	"sync"

	"github.com/vovakirdan/speed2048/internal/config"
	"github.com/vovakirdan/speed2048/internal/core"
	"github.com/vovakirdan/speed2048/internal/grid"
	"github.com/vovakirdan/speed2048/internal/registry"
	"github.com/vovakirdan/speed2048/internal/session"
	"github.com/vovakirdan/speed2048/internal/speedrun"
)

// Game IDs used for registration and score storage.
const (
	ClassicID  = "2048"
	SpeedrunID = "2048_speedrun"
)

// Settings are the engine parameters applied on every Reset.
type Settings struct {
	Grid       grid.Config
	Milestones []int
	Clock      speedrun.Clock // nil uses a fresh system clock per run
}

// DefaultSettings returns the standard 4x4 setup with the default milestones.
func DefaultSettings() Settings {
	return Settings{
		Grid:       grid.DefaultConfig(),
		Milestones: speedrun.DefaultMilestones,
	}
}

// SettingsFromConfig converts the game section of the configuration.
func SettingsFromConfig(cfg config.GameConfig) Settings {
	return Settings{
		Grid: grid.Config{
			Size:       cfg.Size,
			WinTile:    cfg.WinTile,
			Spawn4Prob: cfg.Spawn4Prob,
		},
		Milestones: cfg.Milestones,
	}
}

// Package-level settings used by the registered factories.
var (
	settingsMu sync.RWMutex
	settings   = DefaultSettings()
)

// Configure sets the settings used by games created through the registry.
func Configure(s Settings) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settings = s
}

func currentSettings() Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

// milestoneFlashSeconds is how long a new milestone banner stays on the HUD.
const milestoneFlashSeconds = 2

// Game implements the 2048 puzzle on top of a session.
type Game struct {
	mode     session.Mode
	settings Settings
	sess     *session.Session
	err      error // Session construction failure, shown instead of the board
	tick     uint64
	tickRate int

	// Screen dimensions
	screenW int
	screenH int

	paused   bool
	tooSmall bool

	highlights   highlights
	flashValue   int    // Last milestone reached
	flashUntil   uint64 // Tick at which the banner disappears
	personalBest speedrun.Milestones
}

// New creates a classic game with the registry settings.
func New() *Game {
	return NewWithSettings(session.ModeClassic, currentSettings())
}

// NewSpeedrun creates a speedrun game with the registry settings.
func NewSpeedrun() *Game {
	return NewWithSettings(session.ModeSpeedrun, currentSettings())
}

// NewWithSettings creates a game for mode. Call Reset before stepping it.
func NewWithSettings(mode session.Mode, s Settings) *Game {
	return &Game{
		mode:     mode,
		settings: s,
	}
}

func init() {
	registry.Register(ClassicID, func() registry.Game {
		return New()
	})
	registry.Register(SpeedrunID, func() registry.Game {
		return NewSpeedrun()
	})
}

// ID returns the game identifier.
func (g *Game) ID() string {
	if g.mode == session.ModeSpeedrun {
		return SpeedrunID
	}
	return ClassicID
}

// Title returns the display name.
func (g *Game) Title() string {
	if g.mode == session.ModeSpeedrun {
		return "2048 (Speedrun)"
	}
	return "2048"
}

// Mode returns the session mode of the game.
func (g *Game) Mode() session.Mode {
	return g.mode
}

// SetPersonalBest sets the stored best milestone times shown next to the run.
func (g *Game) SetPersonalBest(best speedrun.Milestones) {
	g.personalBest = best.Clone()
}

// Reset starts a fresh run seeded from cfg.
func (g *Game) Reset(cfg core.RuntimeConfig) {
	g.tick = 0
	g.tickRate = cfg.TickRate
	if g.tickRate <= 0 {
		g.tickRate = core.DefaultConfig().TickRate
	}
	g.paused = false
	g.flashValue = 0
	g.flashUntil = 0
	g.highlights.clear()

	rng := rand.New(rand.NewSource(cfg.Seed))
	sess, err := session.New(session.Config{
		Mode:       g.mode,
		Grid:       g.settings.Grid,
		Milestones: g.settings.Milestones,
	}, rng, g.settings.Clock)
	g.sess, g.err = sess, err
	if err == nil {
		g.sess.Start()
	}

	g.Resize(cfg.ScreenW, cfg.ScreenH)
}

// Resize adapts the layout to new screen dimensions. The run is kept.
func (g *Game) Resize(w, h int) {
	g.screenW = w
	g.screenH = h
	g.checkScreenSize()
}

// restart begins a new run on the current session and generator.
func (g *Game) restart() {
	g.paused = false
	g.flashValue = 0
	g.highlights.clear()
	g.sess.Start()
}

// checkScreenSize checks if the screen is large enough.
func (g *Game) checkScreenSize() {
	minW, minH := g.minScreenSize()
	g.tooSmall = g.screenW < minW || g.screenH < minH
}

// minScreenSize returns the smallest screen that fits HUD, board,
// the milestone panel (speedrun only) and the control line.
func (g *Game) minScreenSize() (int, int) {
	boardW, boardH := g.boardDims()
	w := boardW + 4
	h := hudHeight + 1 + boardH + 1
	if g.mode == session.ModeSpeedrun {
		w += panelGap + panelWidth
		h = max(h, hudHeight+1+len(g.milestoneValues())+1+1)
	}
	return w, h
}

// Step advances the game by one tick.
// Every directional action of the frame is applied in arrival order.
func (g *Game) Step(in core.InputFrame) core.StepResult {
	g.tick++
	g.highlights.step()

	if g.sess == nil || g.tooSmall {
		return core.StepResult{State: g.State()}
	}

	if in.Has(core.ActionPause) && !g.sess.Over() {
		g.paused = !g.paused
	}
	if g.paused {
		return core.StepResult{State: g.State()}
	}

	if in.Has(core.ActionRestart) {
		g.restart()
		return core.StepResult{State: g.State()}
	}

	moved := false
	for _, a := range in.Directions() {
		if g.sess.Over() {
			break
		}
		out, err := g.sess.Move(directionFor(a))
		if err != nil || !out.Changed {
			continue
		}
		moved = true
		g.highlights.set(out.MoveResult)
		if n := len(out.NewMilestones); n > 0 {
			g.flashValue = out.NewMilestones[n-1]
			g.flashUntil = g.tick + uint64(milestoneFlashSeconds*g.tickRate)
		}
	}

	return core.StepResult{State: g.State(), Moved: moved}
}

// directionFor maps a directional action to a board direction.
func directionFor(a core.Action) grid.Direction {
	switch a {
	case core.ActionUp:
		return grid.DirUp
	case core.ActionDown:
		return grid.DirDown
	case core.ActionLeft:
		return grid.DirLeft
	default:
		return grid.DirRight
	}
}

// State returns the current game state.
func (g *Game) State() core.GameState {
	if g.sess == nil {
		return core.GameState{GameOver: true}
	}
	return core.GameState{
		Score:    g.sess.Score(),
		GameOver: g.sess.Over(),
		Won:      g.sess.Won(),
		Paused:   g.paused || g.tooSmall,
	}
}

// Result returns the end-of-run snapshot of the current session.
func (g *Game) Result() session.RunResult {
	if g.sess == nil {
		return session.RunResult{Mode: g.mode}
	}
	return g.sess.Result()
}

// Err returns the error that prevented the session from being created.
func (g *Game) Err() error {
	return g.err
}

// milestoneValues returns the tracked milestones in ascending order.
func (g *Game) milestoneValues() []int {
	values := g.settings.Milestones
	if len(values) == 0 {
		values = speedrun.DefaultMilestones
	}
	out := make([]int, 0, len(values))
	for _, v := range values {
		if v > 4 {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
