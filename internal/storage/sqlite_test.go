package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/speed2048/internal/speedrun"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStoreOpenMemory(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer store.Close()

	if _, err := store.SaveScore("2048", 10, 8); err != nil {
		t.Fatalf("SaveScore() on memory db failed: %v", err)
	}
}

func TestStoreSaveAndRetrieve(t *testing.T) {
	store := openTestStore(t)

	for _, s := range []int{100, 50, 200} {
		if _, err := store.SaveScore("2048", s, 16); err != nil {
			t.Fatalf("SaveScore() failed: %v", err)
		}
	}
	if _, err := store.SaveScore(SpeedrunGameID, 500, 64); err != nil {
		t.Fatalf("SaveScore() failed: %v", err)
	}

	scores, err := store.TopScores("2048", 10)
	if err != nil {
		t.Fatalf("TopScores() failed: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("Expected 3 scores, got %d", len(scores))
	}

	// Should be sorted descending
	if scores[0].Score != 200 || scores[1].Score != 100 || scores[2].Score != 50 {
		t.Errorf("Scores not in expected order: %v", scores)
	}
	if scores[0].MaxTile != 16 {
		t.Errorf("MaxTile = %d, want 16", scores[0].MaxTile)
	}

	speedrunScores, err := store.TopScores(SpeedrunGameID, 10)
	if err != nil {
		t.Fatalf("TopScores() failed: %v", err)
	}
	if len(speedrunScores) != 1 {
		t.Errorf("Expected 1 speedrun score, got %d", len(speedrunScores))
	}
}

func TestStoreTopScoresLimit(t *testing.T) {
	store := openTestStore(t)

	for i := range 5 {
		store.SaveScore("2048", (i+1)*100, 0)
	}

	scores, err := store.TopScores("2048", 3)
	if err != nil {
		t.Fatalf("TopScores() failed: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("Expected 3 scores with limit, got %d", len(scores))
	}
	if scores[0].Score != 500 || scores[1].Score != 400 || scores[2].Score != 300 {
		t.Errorf("Scores not in expected order: %v", scores)
	}
}

func TestStoreHighScore(t *testing.T) {
	store := openTestStore(t)

	high, err := store.HighScore("2048")
	if err != nil {
		t.Fatalf("HighScore() failed: %v", err)
	}
	if high != 0 {
		t.Errorf("Expected high score of 0 for empty game, got %d", high)
	}

	store.SaveScore("2048", 100, 0)
	store.SaveScore("2048", 300, 0)
	store.SaveScore("2048", 200, 0)

	high, err = store.HighScore("2048")
	if err != nil {
		t.Fatalf("HighScore() failed: %v", err)
	}
	if high != 300 {
		t.Errorf("Expected high score of 300, got %d", high)
	}
}

func TestStoreClearScores(t *testing.T) {
	store := openTestStore(t)

	store.SaveScore("2048", 100, 0)
	store.SaveScore(SpeedrunGameID, 300, 0)
	store.SaveSpeedrun(SpeedrunEntry{RunID: "r1", ElapsedMS: 1000, Won: true})

	if err := store.ClearScores("2048"); err != nil {
		t.Fatalf("ClearScores() failed: %v", err)
	}
	if scores, _ := store.TopScores("2048", 10); len(scores) != 0 {
		t.Errorf("Expected 0 classic scores after clear, got %d", len(scores))
	}
	if scores, _ := store.TopScores(SpeedrunGameID, 10); len(scores) != 1 {
		t.Error("Speedrun scores should not be affected by clearing classic")
	}
	if runs, _ := store.TopSpeedruns(10); len(runs) != 1 {
		t.Error("Speedrun history should not be affected by clearing classic")
	}

	if err := store.ClearScores(SpeedrunGameID); err != nil {
		t.Fatalf("ClearScores() failed: %v", err)
	}
	if runs, _ := store.TopSpeedruns(10); len(runs) != 0 {
		t.Error("Clearing speedrun should drop the speedrun history")
	}
}

func TestStoreAllScores(t *testing.T) {
	store := openTestStore(t)

	for i := range 20 {
		store.SaveScore("2048", i*10, 0)
	}

	scores, err := store.AllScores("2048")
	if err != nil {
		t.Fatalf("AllScores() failed: %v", err)
	}
	if len(scores) != 20 {
		t.Errorf("Expected 20 scores, got %d", len(scores))
	}
}

func TestStoreNestedPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "deep", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() with nested path failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
}

func TestStoreSpeedruns(t *testing.T) {
	store := openTestStore(t)

	runs := []SpeedrunEntry{
		{RunID: "slow", ElapsedMS: 300_000, Won: true, Milestones: speedrun.Milestones{8: 900, 2048: 300_000}},
		{RunID: "fast", ElapsedMS: 200_000, Won: true, Milestones: speedrun.Milestones{8: 1200, 2048: 200_000}},
		{RunID: "lost", ElapsedMS: 50_000, Won: false, Milestones: speedrun.Milestones{8: 400, 16: 2000}},
	}
	for _, r := range runs {
		if _, err := store.SaveSpeedrun(r); err != nil {
			t.Fatalf("SaveSpeedrun(%s) failed: %v", r.RunID, err)
		}
	}
	// Duplicate run ids are ignored
	if _, err := store.SaveSpeedrun(runs[0]); err != nil {
		t.Fatalf("duplicate SaveSpeedrun failed: %v", err)
	}

	top, err := store.TopSpeedruns(10)
	if err != nil {
		t.Fatalf("TopSpeedruns() failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Expected 2 won runs, got %d", len(top))
	}
	if top[0].RunID != "fast" || top[1].RunID != "slow" {
		t.Errorf("runs not fastest first: %s, %s", top[0].RunID, top[1].RunID)
	}
	if top[0].Milestones[2048] != 200_000 {
		t.Errorf("milestones not decoded: %v", top[0].Milestones)
	}

	best, err := store.BestMilestones()
	if err != nil {
		t.Fatalf("BestMilestones() failed: %v", err)
	}
	want := speedrun.Milestones{8: 400, 16: 2000, 2048: 200_000}
	for k, v := range want {
		if best[k] != v {
			t.Errorf("best[%d] = %d, want %d", k, best[k], v)
		}
	}
}

func TestStoreGameStats(t *testing.T) {
	store := openTestStore(t)

	stats, err := store.GetGameStats("2048")
	if err != nil {
		t.Fatalf("GetGameStats() failed: %v", err)
	}
	if stats.GamesCount != 0 || !stats.LastPlayed.IsZero() {
		t.Errorf("empty stats = %+v", stats)
	}

	store.SaveScore("2048", 100, 0)
	store.SaveScore("2048", 300, 0)

	stats, err = store.GetGameStats("2048")
	if err != nil {
		t.Fatalf("GetGameStats() failed: %v", err)
	}
	if stats.GamesCount != 2 || stats.HighScore != 300 || stats.TotalScore != 400 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.AvgScore != 200 {
		t.Errorf("AvgScore = %g, want 200", stats.AvgScore)
	}
}
