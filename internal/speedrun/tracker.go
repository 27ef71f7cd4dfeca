// Package speedrun times a race-to-2048 run and records the first time each
// milestone tile value appears.
package speedrun

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrNotStarted is returned when the tracker is used before the first move.
var ErrNotStarted = errors.New("speedrun: tracker not started")

// DefaultMilestones are the tile values whose first appearance is timed.
// 2 and 4 are spawn values and never count.
var DefaultMilestones = []int{8, 16, 32, 64, 128, 256, 512, 1024, 2048}

// Milestones maps a tile value to the elapsed milliseconds of its first appearance.
type Milestones map[int]int64

// Values returns the recorded tile values in ascending order.
func (m Milestones) Values() []int {
	return slices.Sorted(maps.Keys(m))
}

// Clone returns an independent copy.
func (m Milestones) Clone() Milestones {
	if m == nil {
		return Milestones{}
	}
	return maps.Clone(m)
}

// Tracker is the speedrun timer state machine:
// NotStarted -> (OnFirstMove) -> Running -> (Reset) -> NotStarted.
// It is not safe for concurrent use.
type Tracker struct {
	clock      Clock
	tracked    map[int]bool
	started    bool
	start      int64
	milestones Milestones
}

// NewTracker creates a tracker for the given milestone values.
// A nil or empty list uses DefaultMilestones.
func NewTracker(clock Clock, milestones []int) *Tracker {
	if len(milestones) == 0 {
		milestones = DefaultMilestones
	}
	tracked := make(map[int]bool, len(milestones))
	for _, v := range milestones {
		if v > 4 {
			tracked[v] = true
		}
	}

	return &Tracker{
		clock:      clock,
		tracked:    tracked,
		milestones: Milestones{},
	}
}

// OnFirstMove starts the timer. Calls after the first are ignored until Reset.
func (t *Tracker) OnFirstMove() {
	if t.started {
		return
	}
	t.started = true
	t.start = t.clock.NowMillis()
}

// Started reports whether the timer is running.
func (t *Tracker) Started() bool {
	return t.started
}

// OnMergeEvent records value if it is a tracked milestone seen for the first time.
// Reports whether a new milestone was recorded.
func (t *Tracker) OnMergeEvent(value int) (bool, error) {
	if !t.started {
		return false, fmt.Errorf("merge %d: %w", value, ErrNotStarted)
	}
	if !t.tracked[value] {
		return false, nil
	}
	if _, seen := t.milestones[value]; seen {
		return false, nil
	}

	t.milestones[value] = t.elapsed()
	return true, nil
}

// Sample returns the milliseconds elapsed since the first move.
func (t *Tracker) Sample() (int64, error) {
	if !t.started {
		return 0, ErrNotStarted
	}
	return t.elapsed(), nil
}

func (t *Tracker) elapsed() int64 {
	d := t.clock.NowMillis() - t.start
	if d < 0 {
		return 0
	}
	return d
}

// Milestones returns a snapshot of the milestone record.
func (t *Tracker) Milestones() Milestones {
	return t.milestones.Clone()
}

// Reset returns the tracker to NotStarted and clears the record.
func (t *Tracker) Reset() {
	t.started = false
	t.start = 0
	t.milestones = Milestones{}
}
