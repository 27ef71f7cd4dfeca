// Package grid implements the 2048 grid engine: deterministic tile movement
// and merging over an N x N board, random tile spawning and terminal-state
// detection. It performs no I/O, timing or persistence.
package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDirection is returned for a direction outside up/down/left/right.
	ErrInvalidDirection = errors.New("invalid direction")
	// ErrInvalidTile is returned when a cell value is neither empty nor a power of two >= 2.
	ErrInvalidTile = errors.New("invalid tile value")
	// ErrInvalidSize is returned for a board size below 2 or mismatched rows.
	ErrInvalidSize = errors.New("invalid board size")
)

// DefaultSize is the board dimension of a standard game.
const DefaultSize = 4

// DefaultWinTile is the tile value that ends a speedrun.
const DefaultWinTile = 2048

// DefaultSpawn4Prob is the probability that a spawned tile is a 4.
const DefaultSpawn4Prob = 0.10

// RandomSource yields uniform values in [0, 1).
// *math/rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Config holds construction-time engine parameters.
type Config struct {
	Size       int     // Board dimension (Size x Size)
	WinTile    int     // Tile value that wins when CheckWin is set
	Spawn4Prob float64 // Probability of spawning 4 instead of 2 (0.0-1.0)
	CheckWin   bool    // Evaluate the win condition after each move
}

// DefaultConfig returns the standard 4x4 configuration without win checking.
func DefaultConfig() Config {
	return Config{
		Size:       DefaultSize,
		WinTile:    DefaultWinTile,
		Spawn4Prob: DefaultSpawn4Prob,
	}
}

// Cell addresses a board position.
type Cell struct {
	Row, Col int
}

// MergeEvent describes one merge produced by a move.
// Row and Col address the cell that holds the merged tile after the move.
type MergeEvent struct {
	Value    int
	Row      int
	Col      int
	Vertical bool
}

// MoveResult is returned by ApplyMove.
type MoveResult struct {
	Changed bool
	Merges  []MergeEvent
	Spawned *Cell // nil when no tile was spawned
	Won     bool
	Lost    bool
}

// Gained returns the sum of all merge results of the move.
func (r MoveResult) Gained() int {
	total := 0
	for _, m := range r.Merges {
		total += m.Value
	}
	return total
}

// Engine owns a board and applies moves to it.
// It is not safe for concurrent use.
type Engine struct {
	cfg   Config
	rnd   RandomSource
	cells [][]int
}

// New creates an engine with an empty board.
func New(cfg Config, rnd RandomSource) (*Engine, error) {
	if cfg.Size < 2 {
		return nil, fmt.Errorf("grid: size %d: %w", cfg.Size, ErrInvalidSize)
	}
	if cfg.CheckWin && !isTile(cfg.WinTile) {
		return nil, fmt.Errorf("grid: win tile %d: %w", cfg.WinTile, ErrInvalidTile)
	}
	if rnd == nil {
		return nil, errors.New("grid: nil random source")
	}

	return &Engine{
		cfg:   cfg,
		rnd:   rnd,
		cells: newCells(cfg.Size),
	}, nil
}

func newCells(size int) [][]int {
	cells := make([][]int, size)
	for i := range cells {
		cells[i] = make([]int, size)
	}
	return cells
}

// Size returns the board dimension.
func (e *Engine) Size() int {
	return e.cfg.Size
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Start clears the board and places the two opening tiles.
func (e *Engine) Start() {
	e.Clear()
	e.spawn()
	e.spawn()
}

// Clear empties the board without spawning.
func (e *Engine) Clear() {
	e.cells = newCells(e.cfg.Size)
}

// Load replaces the board with the given rows.
// Every value must be 0 or a power of two >= 2.
func (e *Engine) Load(rows [][]int) error {
	if len(rows) != e.cfg.Size {
		return fmt.Errorf("grid: %d rows for size %d: %w", len(rows), e.cfg.Size, ErrInvalidSize)
	}

	cells := newCells(e.cfg.Size)
	for r, row := range rows {
		if len(row) != e.cfg.Size {
			return fmt.Errorf("grid: row %d has %d cells: %w", r, len(row), ErrInvalidSize)
		}
		for c, v := range row {
			if v != 0 && !isTile(v) {
				return fmt.Errorf("grid: cell (%d,%d)=%d: %w", r, c, v, ErrInvalidTile)
			}
			cells[r][c] = v
		}
	}

	e.cells = cells
	return nil
}

// Cells returns a copy of the board rows.
func (e *Engine) Cells() [][]int {
	out := newCells(e.cfg.Size)
	for r := range e.cells {
		copy(out[r], e.cells[r])
	}
	return out
}

// At returns the value at the given position (0 for empty).
func (e *Engine) At(row, col int) int {
	return e.cells[row][col]
}

// ApplyMove slides the board in the given direction.
// A move that leaves every cell unchanged is a no-op: nothing spawns and
// the zero MoveResult is returned.
func (e *Engine) ApplyMove(dir Direction) (MoveResult, error) {
	if !dir.Valid() {
		return MoveResult{}, fmt.Errorf("grid: %v: %w", dir, ErrInvalidDirection)
	}

	n := e.cfg.Size
	next := newCells(n)
	var merges []MergeEvent

	for i := range n {
		line := e.line(dir, i)

		// Right and down reuse the left merge on a reversed line
		if dir.reversed() {
			line = reverseLine(line)
		}
		result, merged := MergeLine(line)
		if dir.reversed() {
			result = reverseLine(result)
			for k := range merged {
				merged[k] = n - 1 - merged[k]
			}
		}

		setLine(next, dir, i, result)
		for _, p := range merged {
			row, col := lineCell(dir, i, p)
			merges = append(merges, MergeEvent{
				Value:    result[p],
				Row:      row,
				Col:      col,
				Vertical: dir.Vertical(),
			})
		}
	}

	if equalCells(e.cells, next) {
		return MoveResult{}, nil
	}

	e.cells = next
	e.assertValid()

	res := MoveResult{
		Changed: true,
		Merges:  merges,
		Spawned: e.spawn(),
	}

	if e.cfg.CheckWin && e.Contains(e.cfg.WinTile) {
		res.Won = true
	}
	res.Lost = !e.CanMove()

	return res, nil
}

// line extracts row i (horizontal moves) or column i (vertical moves).
func (e *Engine) line(dir Direction, i int) []int {
	n := e.cfg.Size
	out := make([]int, n)
	for p := range n {
		row, col := lineCell(dir, i, p)
		out[p] = e.cells[row][col]
	}
	return out
}

func setLine(cells [][]int, dir Direction, i int, line []int) {
	for p, v := range line {
		row, col := lineCell(dir, i, p)
		cells[row][col] = v
	}
}

// lineCell maps position p of line i to board coordinates.
func lineCell(dir Direction, i, p int) (row, col int) {
	if dir.Vertical() {
		return p, i
	}
	return i, p
}

func equalCells(a, b [][]int) bool {
	for r := range a {
		for c := range a[r] {
			if a[r][c] != b[r][c] {
				return false
			}
		}
	}
	return true
}

// assertValid panics if the board holds an illegal value.
// Merging can only double legal tiles, so a failure is a programming error.
func (e *Engine) assertValid() {
	for r, row := range e.cells {
		for c, v := range row {
			if v != 0 && !isTile(v) {
				panic(fmt.Sprintf("grid: invariant violated at (%d,%d): %d", r, c, v))
			}
		}
	}
}

// spawn places a 2 or 4 on a uniformly chosen empty cell.
func (e *Engine) spawn() *Cell {
	empty := e.EmptyCells()
	if len(empty) == 0 {
		return nil
	}

	// Pick random empty cell
	idx := int(e.rnd.Float64() * float64(len(empty)))
	if idx >= len(empty) {
		idx = len(empty) - 1
	}
	cell := empty[idx]

	// Determine value (90% 2, 10% 4 by default)
	value := 2
	if e.rnd.Float64() < e.cfg.Spawn4Prob {
		value = 4
	}

	e.cells[cell.Row][cell.Col] = value
	return &cell
}

// EmptyCells returns coordinates of all empty cells in row-major order.
func (e *Engine) EmptyCells() []Cell {
	var cells []Cell
	for r, row := range e.cells {
		for c, v := range row {
			if v == 0 {
				cells = append(cells, Cell{Row: r, Col: c})
			}
		}
	}
	return cells
}

// HasEmptyCell returns true if there's at least one empty cell.
func (e *Engine) HasEmptyCell() bool {
	for _, row := range e.cells {
		for _, v := range row {
			if v == 0 {
				return true
			}
		}
	}
	return false
}

// HasPossibleMerge returns true if any adjacent tiles can merge.
func (e *Engine) HasPossibleMerge() bool {
	n := e.cfg.Size
	for r := range n {
		for c := range n {
			val := e.cells[r][c]
			if val == 0 {
				continue
			}
			// Check right neighbor
			if c < n-1 && e.cells[r][c+1] == val {
				return true
			}
			// Check bottom neighbor
			if r < n-1 && e.cells[r+1][c] == val {
				return true
			}
		}
	}
	return false
}

// CanMove returns true if any move is possible.
func (e *Engine) CanMove() bool {
	return e.HasEmptyCell() || e.HasPossibleMerge()
}

// Contains reports whether any cell holds value.
func (e *Engine) Contains(value int) bool {
	for _, row := range e.cells {
		for _, v := range row {
			if v == value {
				return true
			}
		}
	}
	return false
}

// MaxTile returns the maximum tile value on the board.
func (e *Engine) MaxTile() int {
	maxVal := 0
	for _, row := range e.cells {
		for _, v := range row {
			if v > maxVal {
				maxVal = v
			}
		}
	}
	return maxVal
}

// Sum returns the total of all tile values.
func (e *Engine) Sum() int {
	total := 0
	for _, row := range e.cells {
		for _, v := range row {
			total += v
		}
	}
	return total
}
