package tui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/speed2048/internal/core"
	"github.com/vovakirdan/speed2048/internal/games/t2048"
	"github.com/vovakirdan/speed2048/internal/session"
	"github.com/vovakirdan/speed2048/internal/speedrun"
	"github.com/vovakirdan/speed2048/internal/storage"
)

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

type fakeSubmitter struct {
	mu   sync.Mutex
	runs []session.RunResult
	err  error
}

func (f *fakeSubmitter) SubmitRun(_ context.Context, res session.RunResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, res)
	return f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMapKey(t *testing.T) {
	km := NewKeyMapper()
	tests := []struct {
		key    tea.KeyMsg
		action core.Action
		quit   bool
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, core.ActionUp, false},
		{runeKey("w"), core.ActionUp, false},
		{runeKey("k"), core.ActionUp, false},
		{tea.KeyMsg{Type: tea.KeyDown}, core.ActionDown, false},
		{runeKey("j"), core.ActionDown, false},
		{tea.KeyMsg{Type: tea.KeyLeft}, core.ActionLeft, false},
		{runeKey("a"), core.ActionLeft, false},
		{runeKey("h"), core.ActionLeft, false},
		{tea.KeyMsg{Type: tea.KeyRight}, core.ActionRight, false},
		{runeKey("l"), core.ActionRight, false},
		{runeKey("p"), core.ActionPause, false},
		{runeKey("r"), core.ActionRestart, false},
		{tea.KeyMsg{Type: tea.KeyEsc}, core.ActionBack, false},
		{runeKey("q"), core.ActionQuit, true},
		{tea.KeyMsg{Type: tea.KeyCtrlC}, core.ActionQuit, true},
		{runeKey("x"), core.ActionNone, false},
	}

	for _, tt := range tests {
		action, quit := km.MapKey(tt.key)
		if action != tt.action || quit != tt.quit {
			t.Errorf("MapKey(%q) = %v, %v; want %v, %v", tt.key.String(), action, quit, tt.action, tt.quit)
		}
	}
}

func TestMapKeyToFrameKeepsOrder(t *testing.T) {
	km := NewKeyMapper()
	frame := core.NewInputFrame()

	km.MapKeyToFrame(runeKey("a"), &frame)
	km.MapKeyToFrame(runeKey("w"), &frame)
	if quit := km.MapKeyToFrame(runeKey("q"), &frame); !quit {
		t.Error("q should request quit")
	}

	got := frame.Directions()
	if len(got) != 2 || got[0] != core.ActionLeft || got[1] != core.ActionUp {
		t.Errorf("Directions = %v, want [Left Up]", got)
	}
	if frame.Has(core.ActionQuit) {
		t.Error("quit must not be queued as a game action")
	}
}

func TestMenuActions(t *testing.T) {
	km := NewKeyMapper()
	if got := km.MapKeyToMenuAction(tea.KeyMsg{Type: tea.KeyTab}); got != MenuActionScoreboard {
		t.Errorf("tab = %v, want scoreboard", got)
	}
	if got := km.MapKeyToMenuAction(tea.KeyMsg{Type: tea.KeyEnter}); got != MenuActionSelect {
		t.Errorf("enter = %v, want select", got)
	}
}

func TestRecorderSavesOnce(t *testing.T) {
	store := openStore(t)
	remote := &fakeSubmitter{}
	rec := NewRecorder(store, remote, time.Second, nil)

	res := session.RunResult{RunID: "run-1", Mode: session.ModeClassic, Score: 512, MaxTile: 64, Moves: 40, Lost: true}
	rec.Record(t2048.ClassicID, res)
	rec.Record(t2048.ClassicID, res)
	rec.Wait()

	scores, err := store.TopScores(t2048.ClassicID, 10)
	if err != nil {
		t.Fatalf("TopScores failed: %v", err)
	}
	if len(scores) != 1 || scores[0].Score != 512 || scores[0].MaxTile != 64 {
		t.Errorf("scores = %+v, want one 512/64 entry", scores)
	}
	if remote.count() != 1 {
		t.Errorf("remote submissions = %d, want 1", remote.count())
	}
}

func TestRecorderSpeedrun(t *testing.T) {
	store := openStore(t)
	rec := NewRecorder(store, nil, 0, nil)

	rec.Record(t2048.SpeedrunID, session.RunResult{
		RunID:         "sr-1",
		Mode:          session.ModeSpeedrun,
		Score:         20000,
		Moves:         900,
		Won:           true,
		ElapsedMillis: 95000,
		Milestones:    speedrun.Milestones{8: 300, 2048: 95000},
	})
	rec.Record(t2048.SpeedrunID, session.RunResult{
		RunID:         "sr-2",
		Mode:          session.ModeSpeedrun,
		Moves:         100,
		Lost:          true,
		ElapsedMillis: 30000,
		Milestones:    speedrun.Milestones{8: 200},
	})

	runs, err := store.TopSpeedruns(10)
	if err != nil {
		t.Fatalf("TopSpeedruns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ElapsedMS != 95000 {
		t.Errorf("runs = %+v, want only the won run", runs)
	}

	best := rec.PersonalBest()
	if best[8] != 200 || best[2048] != 95000 {
		t.Errorf("PersonalBest = %v, want 8:200 2048:95000", best)
	}
}

func TestRecorderSkipsUnplayedRuns(t *testing.T) {
	store := openStore(t)
	remote := &fakeSubmitter{}
	rec := NewRecorder(store, remote, time.Second, nil)

	rec.Record(t2048.ClassicID, session.RunResult{RunID: "idle", Mode: session.ModeClassic})
	rec.Record(t2048.ClassicID, session.RunResult{Mode: session.ModeClassic, Moves: 3})
	rec.Wait()

	if scores, _ := store.TopScores(t2048.ClassicID, 10); len(scores) != 0 {
		t.Errorf("scores = %+v, want none", scores)
	}
	if remote.count() != 0 {
		t.Error("unplayed runs must not be submitted")
	}
}

func TestRecorderLogsRemoteFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	remote := &fakeSubmitter{err: errors.New("connection refused")}
	rec := NewRecorder(nil, remote, time.Second, logger)

	rec.Record(t2048.ClassicID, session.RunResult{RunID: "r", Mode: session.ModeClassic, Score: 8, Moves: 2})
	rec.Wait()

	if !strings.Contains(buf.String(), "cannot submit run") {
		t.Errorf("log = %q, want submit failure", buf.String())
	}
}

func TestRecorderNilSafe(t *testing.T) {
	var rec *Recorder
	rec.Record(t2048.ClassicID, session.RunResult{RunID: "r", Moves: 1})
	rec.Wait()
	if rec.PersonalBest() != nil || rec.Store() != nil {
		t.Error("nil recorder has no data")
	}
}

func newTestGameModel(t *testing.T, rec *Recorder) (GameModel, *t2048.Game) {
	t.Helper()
	s := t2048.DefaultSettings()
	s.Clock = &speedrun.ManualClock{}
	game := t2048.NewWithSettings(session.ModeClassic, s)
	m := NewGameModel(game, rec, core.RuntimeConfig{ScreenW: 80, ScreenH: 24, TickRate: 30, Seed: 7})
	return m, game
}

func TestGameModelRecordsOnGameOver(t *testing.T) {
	store := openStore(t)
	rec := NewRecorder(store, nil, 0, nil)
	m, game := newTestGameModel(t, rec)

	if err := game.LoadBoard([][]int{
		{2, 4, 2, 4},
		{4, 2, 4, 2},
		{2, 4, 2, 64},
		{0, 8, 16, 32},
	}); err != nil {
		t.Fatalf("LoadBoard failed: %v", err)
	}

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = model.(GameModel)
	model, cmd := m.Update(TickMsg{Loop: m.loop})
	m = model.(GameModel)

	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	if !m.gameState.GameOver {
		t.Fatal("the move should end the run")
	}

	scores, err := store.TopScores(t2048.ClassicID, 10)
	if err != nil {
		t.Fatalf("TopScores failed: %v", err)
	}
	if len(scores) != 1 || scores[0].MaxTile != 64 {
		t.Errorf("scores = %+v, want one entry with max tile 64", scores)
	}

	// Further ticks of the finished run must not store it again
	model, _ = m.Update(TickMsg{Loop: m.loop})
	m = model.(GameModel)
	if scores, _ := store.TopScores(t2048.ClassicID, 10); len(scores) != 1 {
		t.Errorf("run stored %d times, want once", len(scores))
	}

	// Back to menu is allowed once the run is over
	model, _ = m.Update(runeKey("b"))
	if !model.(GameModel).BackToMenu() {
		t.Error("b after game over should return to menu")
	}
}

func TestGameModelIgnoresStaleTicks(t *testing.T) {
	m, _ := newTestGameModel(t, nil)

	_, cmd := m.Update(TickMsg{Loop: m.loop + 1})
	if cmd != nil {
		t.Error("a tick from another loop must not schedule ticks")
	}
}

func TestGameModelBackIgnoredWhilePlaying(t *testing.T) {
	m, _ := newTestGameModel(t, nil)

	model, _ := m.Update(runeKey("b"))
	if model.(GameModel).BackToMenu() {
		t.Error("b during a running game should be ignored")
	}
}

func TestMenuListsModes(t *testing.T) {
	m := NewMenuModel(core.RuntimeConfig{ScreenW: 80, ScreenH: 24})
	if len(m.items) != 2 {
		t.Fatalf("menu items = %d, want 2", len(m.items))
	}

	view := m.View()
	for _, want := range []string{"2048", "2048 (Speedrun)", "race the clock"} {
		if !strings.Contains(view, want) {
			t.Errorf("menu view missing %q", want)
		}
	}

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	model, cmd := model.(MenuModel).Update(tea.KeyMsg{Type: tea.KeyEnter})
	sel := model.(MenuModel).Selected()
	if sel == nil || sel.GameID != t2048.SpeedrunID {
		t.Errorf("Selected = %+v, want speedrun", sel)
	}
	if cmd == nil {
		t.Error("standalone menu should quit after selection")
	}
}

func TestEmbeddedMenuDoesNotQuit(t *testing.T) {
	m := newEmbeddedMenu(core.RuntimeConfig{ScreenW: 80, ScreenH: 24})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("embedded menu must not end the program")
	}
}

func TestSessionModelFlow(t *testing.T) {
	store := openStore(t)
	rec := NewRecorder(store, nil, 0, nil)
	var model tea.Model = NewSessionModel(rec, core.RuntimeConfig{ScreenW: 80, ScreenH: 24, TickRate: 30})

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	sm := model.(SessionModel)
	if sm.screen != screenGame {
		t.Fatalf("screen = %v, want game", sm.screen)
	}

	model, _ = model.Update(runeKey("p"))
	model, _ = model.Update(TickMsg{Loop: model.(SessionModel).gameModel.loop})
	model, _ = model.Update(runeKey("b"))
	if sm := model.(SessionModel); sm.screen != screenMenu {
		t.Fatalf("screen = %v, want menu after back from pause", sm.screen)
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
	if sm := model.(SessionModel); sm.screen != screenScores {
		t.Fatalf("screen = %v, want scores", sm.screen)
	}
	if view := model.View(); !strings.Contains(view, "HIGH SCORES") {
		t.Errorf("scoreboard view missing title:\n%s", view)
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if sm := model.(SessionModel); sm.screen != screenMenu {
		t.Errorf("screen = %v, want menu after esc", sm.screen)
	}

	_, cmd := model.Update(runeKey("q"))
	if cmd == nil {
		t.Error("q in the menu should quit the session")
	}
}

func TestRenderScreenPlain(t *testing.T) {
	s := core.NewScreen(10, 2)
	s.DrawText(0, 0, "2048")

	if got, want := RenderScreen(s), s.String(); got != want {
		t.Errorf("RenderScreen = %q, want %q", got, want)
	}
}

func TestRenderScreenColoredKeepsText(t *testing.T) {
	s := core.NewScreen(12, 1)
	s.DrawTextColored(0, 0, "2048", core.TileColor(2048))
	s.DrawTextColored(5, 0, "16", core.TileColor(16))

	out := RenderScreen(s)
	for _, want := range []string{"2048", "16"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderScreen lost %q: %q", want, out)
		}
	}
}
