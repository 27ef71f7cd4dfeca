package t2048

import "github.com/vovakirdan/speed2048/internal/grid"

// Highlight durations in ticks (~266ms and ~200ms at 30 FPS).
const (
	mergeHighlightTicks = 8
	spawnHighlightTicks = 6
)

// highlightKind tells the renderer how to tint a cell.
type highlightKind int

const (
	highlightNone highlightKind = iota
	highlightMerge
	highlightSpawn
)

// highlight marks a recently changed cell.
type highlight struct {
	row, col int
	kind     highlightKind
	ticks    int // Remaining ticks
}

// highlights holds the cells changed by the last accepted move.
type highlights []highlight

// set replaces the highlights with the merges and spawn of res.
func (h *highlights) set(res grid.MoveResult) {
	*h = (*h)[:0]
	for _, m := range res.Merges {
		*h = append(*h, highlight{row: m.Row, col: m.Col, kind: highlightMerge, ticks: mergeHighlightTicks})
	}
	if res.Spawned != nil {
		*h = append(*h, highlight{row: res.Spawned.Row, col: res.Spawned.Col, kind: highlightSpawn, ticks: spawnHighlightTicks})
	}
}

// step ages every highlight by one tick and drops the expired ones.
func (h *highlights) step() {
	kept := (*h)[:0]
	for _, hl := range *h {
		hl.ticks--
		if hl.ticks > 0 {
			kept = append(kept, hl)
		}
	}
	*h = kept
}

// at returns the highlight active on a cell.
func (h highlights) at(row, col int) highlightKind {
	for _, hl := range h {
		if hl.row == row && hl.col == col {
			return hl.kind
		}
	}
	return highlightNone
}

// clear drops every highlight.
func (h *highlights) clear() {
	*h = (*h)[:0]
}
