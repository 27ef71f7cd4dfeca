package t2048

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vovakirdan/speed2048/internal/config"
	"github.com/vovakirdan/speed2048/internal/core"
	"github.com/vovakirdan/speed2048/internal/grid"
	"github.com/vovakirdan/speed2048/internal/registry"
	"github.com/vovakirdan/speed2048/internal/session"
	"github.com/vovakirdan/speed2048/internal/speedrun"
)

func testRuntime() core.RuntimeConfig {
	return core.RuntimeConfig{ScreenW: 80, ScreenH: 24, TickRate: 30, Seed: 42}
}

func frame(actions ...core.Action) core.InputFrame {
	f := core.NewInputFrame()
	for _, a := range actions {
		f.Set(a)
	}
	return f
}

func newTestGame(t *testing.T, mode session.Mode, winTile int) (*Game, *speedrun.ManualClock) {
	t.Helper()
	clock := &speedrun.ManualClock{}
	s := DefaultSettings()
	s.Grid.WinTile = winTile
	s.Clock = clock
	g := NewWithSettings(mode, s)
	g.Reset(testRuntime())
	if err := g.Err(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	return g, clock
}

func load(t *testing.T, g *Game, rows [][]int) {
	t.Helper()
	if err := g.LoadBoard(rows); err != nil {
		t.Fatalf("LoadBoard failed: %v", err)
	}
}

func countTiles(board [][]int) int {
	n := 0
	for _, row := range board {
		for _, v := range row {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

func render(g *Game) string {
	screen := core.NewScreen(80, 24)
	g.Render(screen)
	return screen.String()
}

func TestRegistered(t *testing.T) {
	for id, title := range map[string]string{ClassicID: "2048", SpeedrunID: "2048 (Speedrun)"} {
		if !registry.Exists(id) {
			t.Fatalf("game %q not registered", id)
		}
		g, err := registry.Create(id)
		if err != nil {
			t.Fatalf("Create(%q) failed: %v", id, err)
		}
		if g.ID() != id {
			t.Errorf("ID() = %q, want %q", g.ID(), id)
		}
		if g.Title() != title {
			t.Errorf("Title() = %q, want %q", g.Title(), title)
		}
	}
}

func TestResetPlacesTwoTiles(t *testing.T) {
	g, _ := newTestGame(t, session.ModeClassic, 2048)

	snap := g.Snapshot()
	if got := countTiles(snap.Board); got != 2 {
		t.Errorf("tiles after Reset = %d, want 2", got)
	}
	if snap.State != StatePlaying {
		t.Errorf("State = %q, want %q", snap.State, StatePlaying)
	}
	if snap.Score != 0 || snap.Moves != 0 {
		t.Errorf("fresh run has score %d moves %d", snap.Score, snap.Moves)
	}
}

func TestDeterministicSpawn(t *testing.T) {
	g1, _ := newTestGame(t, session.ModeSpeedrun, 2048)
	g2, _ := newTestGame(t, session.ModeSpeedrun, 2048)

	inputs := []core.Action{
		core.ActionLeft, core.ActionUp, core.ActionRight, core.ActionDown,
		core.ActionLeft, core.ActionLeft, core.ActionUp, core.ActionRight,
	}
	for _, a := range inputs {
		g1.Step(frame(a))
		g2.Step(frame(a))
	}

	if diff := cmp.Diff(g1.Snapshot(), g2.Snapshot()); diff != "" {
		t.Errorf("same seed produced different runs (-g1 +g2):\n%s", diff)
	}
}

func TestMoveMergesAndScores(t *testing.T) {
	g, _ := newTestGame(t, session.ModeClassic, 2048)
	load(t, g, [][]int{
		{2, 2, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})

	res := g.Step(frame(core.ActionLeft))
	if !res.Moved {
		t.Fatal("Left should move the board")
	}
	if res.State.Score != 4 {
		t.Errorf("Score = %d, want 4", res.State.Score)
	}

	snap := g.Snapshot()
	if snap.Board[0][0] != 4 {
		t.Errorf("Board[0][0] = %d, want 4", snap.Board[0][0])
	}
	if got := countTiles(snap.Board); got != 2 {
		t.Errorf("tiles after merge = %d, want merged tile plus spawn", got)
	}
	if g.highlights.at(0, 0) != highlightMerge {
		t.Error("merged cell should be highlighted")
	}
}

func TestNoChangeNoSpawn(t *testing.T) {
	g, _ := newTestGame(t, session.ModeClassic, 2048)
	rows := [][]int{
		{2, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}
	load(t, g, rows)

	res := g.Step(frame(core.ActionLeft))
	if res.Moved {
		t.Error("Left on a packed tile should not move")
	}
	if diff := cmp.Diff(rows, g.Snapshot().Board); diff != "" {
		t.Errorf("board changed (-want +got):\n%s", diff)
	}
	if g.Snapshot().Moves != 0 {
		t.Error("a no-op move must not be counted")
	}
}

func TestMultipleDirectionsPerTick(t *testing.T) {
	g, _ := newTestGame(t, session.ModeClassic, 2048)
	load(t, g, [][]int{
		{2, 2, 4, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})

	// Left gives [4 4 0 0], Right then merges the two 4s whatever spawned.
	res := g.Step(frame(core.ActionLeft, core.ActionRight))
	if got := g.Snapshot().Moves; got != 2 {
		t.Errorf("Moves = %d, want 2", got)
	}
	if res.State.Score != 12 {
		t.Errorf("Score = %d, want 12", res.State.Score)
	}
}

func TestSpeedrunMilestonesAndWin(t *testing.T) {
	g, clock := newTestGame(t, session.ModeSpeedrun, 16)
	load(t, g, [][]int{
		{4, 4, 0, 0},
		{8, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})

	clock.Set(10000)
	g.Step(frame(core.ActionLeft))
	clock.Advance(2500)
	res := g.Step(frame(core.ActionUp))

	if !res.State.GameOver || !res.State.Won {
		t.Fatalf("State = %+v, want won", res.State)
	}

	snap := g.Snapshot()
	if snap.State != StateWin {
		t.Errorf("Snapshot state = %q, want %q", snap.State, StateWin)
	}
	want := speedrun.Milestones{8: 0, 16: 2500}
	if diff := cmp.Diff(want, snap.Milestones); diff != "" {
		t.Errorf("milestones (-want +got):\n%s", diff)
	}

	result := g.Result()
	if result.ElapsedMillis != 2500 {
		t.Errorf("ElapsedMillis = %d, want 2500", result.ElapsedMillis)
	}

	clock.Advance(9000)
	g.Step(frame(core.ActionDown))
	if g.Snapshot().Moves != 2 {
		t.Error("moves after a win must be ignored")
	}
	if g.Result().ElapsedMillis != 2500 {
		t.Error("timer must freeze on win")
	}

	out := render(g)
	if !strings.Contains(out, "16 REACHED!") {
		t.Errorf("win overlay missing:\n%s", out)
	}
	if !strings.Contains(out, "00:02.500") {
		t.Errorf("final time missing:\n%s", out)
	}
}

func TestClassicNeverWins(t *testing.T) {
	g, _ := newTestGame(t, session.ModeClassic, 16)
	load(t, g, [][]int{
		{8, 8, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})

	res := g.Step(frame(core.ActionLeft))
	if res.State.GameOver {
		t.Error("classic mode must not end on the win tile")
	}
	if g.Result().ElapsedMillis != 0 || len(g.Result().Milestones) != 0 {
		t.Error("classic results carry no timing")
	}
}

func TestGameOver(t *testing.T) {
	g, _ := newTestGame(t, session.ModeClassic, 2048)
	load(t, g, [][]int{
		{2, 4, 2, 4},
		{4, 2, 4, 2},
		{2, 4, 2, 64},
		{0, 8, 16, 32},
	})

	// The slide fills the last cell next to 64 and 32; no merge is left.
	res := g.Step(frame(core.ActionLeft))
	if !res.State.GameOver || res.State.Won {
		t.Fatalf("State = %+v, want lost", res.State)
	}
	if g.Snapshot().State != StateGameOver {
		t.Errorf("Snapshot state = %q, want %q", g.Snapshot().State, StateGameOver)
	}
	if out := render(g); !strings.Contains(out, "GAME OVER") {
		t.Errorf("game over overlay missing:\n%s", out)
	}
}

func TestPauseBlocksMoves(t *testing.T) {
	g, _ := newTestGame(t, session.ModeClassic, 2048)
	load(t, g, [][]int{
		{2, 2, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})

	if res := g.Step(frame(core.ActionPause)); !res.State.Paused {
		t.Fatal("P should pause")
	}
	if res := g.Step(frame(core.ActionLeft)); res.Moved {
		t.Error("moves must be ignored while paused")
	}
	if !strings.Contains(render(g), "PAUSED") {
		t.Error("pause overlay missing")
	}

	g.Step(frame(core.ActionPause))
	if res := g.Step(frame(core.ActionLeft)); !res.Moved {
		t.Error("moves should apply after resuming")
	}
}

func TestRestart(t *testing.T) {
	g, _ := newTestGame(t, session.ModeSpeedrun, 2048)
	load(t, g, [][]int{
		{2, 2, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})
	g.Step(frame(core.ActionLeft))
	before := g.Result().RunID

	g.Step(frame(core.ActionRestart))

	snap := g.Snapshot()
	if snap.Moves != 0 || snap.Score != 0 {
		t.Errorf("restart kept moves %d score %d", snap.Moves, snap.Score)
	}
	if got := countTiles(snap.Board); got != 2 {
		t.Errorf("tiles after restart = %d, want 2", got)
	}
	if g.Result().RunID == before {
		t.Error("restart should start a new run id")
	}
	if snap.ElapsedMillis != 0 {
		t.Error("restart should stop the timer")
	}
}

func TestTooSmall(t *testing.T) {
	g, _ := newTestGame(t, session.ModeSpeedrun, 2048)
	board := g.Snapshot().Board

	g.Resize(30, 10)
	if !g.State().Paused {
		t.Error("small window should pause")
	}
	if g.Snapshot().State != StatePausedSmall {
		t.Errorf("Snapshot state = %q, want %q", g.Snapshot().State, StatePausedSmall)
	}
	if res := g.Step(frame(core.ActionLeft, core.ActionRight)); res.Moved {
		t.Error("moves must be ignored in a small window")
	}

	screen := core.NewScreen(30, 10)
	g.Render(screen)
	if !strings.Contains(screen.String(), "Window too small") {
		t.Errorf("too small message missing:\n%s", screen.String())
	}

	g.Resize(80, 24)
	if g.State().Paused {
		t.Error("large window should resume")
	}
	if diff := cmp.Diff(board, g.Snapshot().Board); diff != "" {
		t.Errorf("Resize changed the board (-want +got):\n%s", diff)
	}
}

func TestInvalidSettings(t *testing.T) {
	s := DefaultSettings()
	s.Grid.Size = 1
	g := NewWithSettings(session.ModeClassic, s)
	g.Reset(testRuntime())

	if g.Err() == nil {
		t.Fatal("size 1 should fail")
	}
	if !g.State().GameOver {
		t.Error("a game without a session is over")
	}
	g.Step(frame(core.ActionLeft))
	if !strings.Contains(render(g), "Cannot start game") {
		t.Error("error screen missing")
	}
}

func TestPersonalBestPanel(t *testing.T) {
	g, _ := newTestGame(t, session.ModeSpeedrun, 2048)
	g.SetPersonalBest(speedrun.Milestones{8: 1234})

	out := render(g)
	for _, want := range []string{"Tile", "Best", "00:01.234", noTime} {
		if !strings.Contains(out, want) {
			t.Errorf("panel missing %q:\n%s", want, out)
		}
	}
}

func TestHighlightsExpire(t *testing.T) {
	g, _ := newTestGame(t, session.ModeClassic, 2048)
	load(t, g, [][]int{
		{2, 2, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})
	g.Step(frame(core.ActionLeft))
	if len(g.highlights) < 2 {
		t.Fatalf("highlights = %d, want merge and spawn", len(g.highlights))
	}

	for range mergeHighlightTicks {
		g.Step(core.NewInputFrame())
	}
	if len(g.highlights) != 0 {
		t.Errorf("highlights left after %d ticks: %v", mergeHighlightTicks, g.highlights)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Game
	cfg.Size = 5
	cfg.WinTile = 1024
	cfg.Milestones = []int{64, 8}

	s := SettingsFromConfig(cfg)
	want := grid.Config{Size: 5, WinTile: 1024, Spawn4Prob: cfg.Spawn4Prob}
	if s.Grid != want {
		t.Errorf("Grid = %+v, want %+v", s.Grid, want)
	}

	g := NewWithSettings(session.ModeSpeedrun, s)
	if diff := cmp.Diff([]int{8, 64}, g.milestoneValues()); diff != "" {
		t.Errorf("milestoneValues (-want +got):\n%s", diff)
	}
}
