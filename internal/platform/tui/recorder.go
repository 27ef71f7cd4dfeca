package tui

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/speed2048/internal/session"
	"github.com/vovakirdan/speed2048/internal/speedrun"
	"github.com/vovakirdan/speed2048/internal/storage"
)

// RunSubmitter relays finished runs to a remote account.
// *account.Client satisfies it.
type RunSubmitter interface {
	SubmitRun(ctx context.Context, res session.RunResult) error
}

// Recorder persists finished runs: locally in the store and, when a
// submitter is set, to the account service in the background.
// Remote failures are logged and never block the game.
type Recorder struct {
	store   *storage.Store
	remote  RunSubmitter
	timeout time.Duration
	logger  *log.Logger

	mu       sync.Mutex
	recorded map[string]bool
	wg       sync.WaitGroup
}

// NewRecorder creates a recorder. store and remote may be nil.
func NewRecorder(store *storage.Store, remote RunSubmitter, timeout time.Duration, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recorder{
		store:    store,
		remote:   remote,
		timeout:  timeout,
		logger:   logger,
		recorded: make(map[string]bool),
	}
}

// Record persists a finished run once. Later calls with the same run id
// are ignored. Runs without a single move are not stored.
func (r *Recorder) Record(gameID string, res session.RunResult) {
	if r == nil || res.RunID == "" {
		return
	}

	r.mu.Lock()
	if r.recorded[res.RunID] {
		r.mu.Unlock()
		return
	}
	r.recorded[res.RunID] = true
	r.mu.Unlock()

	if res.Moves == 0 {
		return
	}

	r.saveLocal(gameID, res)

	if r.remote != nil {
		r.wg.Add(1)
		go r.submit(res)
	}
}

func (r *Recorder) saveLocal(gameID string, res session.RunResult) {
	if r.store == nil {
		return
	}

	if res.Mode == session.ModeSpeedrun {
		_, err := r.store.SaveSpeedrun(storage.SpeedrunEntry{
			RunID:      res.RunID,
			ElapsedMS:  res.ElapsedMillis,
			Won:        res.Won,
			Score:      res.Score,
			Milestones: res.Milestones,
		})
		if err != nil {
			r.logger.Warn("cannot save speedrun", "run", res.RunID, "error", err)
		}
		return
	}

	if _, err := r.store.SaveScore(gameID, res.Score, res.MaxTile); err != nil {
		r.logger.Warn("cannot save score", "game", gameID, "error", err)
	}
}

func (r *Recorder) submit(res session.RunResult) {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.remote.SubmitRun(ctx, res); err != nil {
		r.logger.Warn("cannot submit run", "run", res.RunID, "mode", res.Mode, "error", err)
		return
	}
	r.logger.Debug("run submitted", "run", res.RunID, "mode", res.Mode)
}

// PersonalBest returns the best local milestone times, or nil without a store.
func (r *Recorder) PersonalBest() speedrun.Milestones {
	if r == nil || r.store == nil {
		return nil
	}
	best, err := r.store.BestMilestones()
	if err != nil {
		r.logger.Warn("cannot load milestone bests", "error", err)
		return nil
	}
	return best
}

// Store returns the local store, which may be nil.
func (r *Recorder) Store() *storage.Store {
	if r == nil {
		return nil
	}
	return r.store
}

// Wait blocks until every background submission has finished.
func (r *Recorder) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
