package t2048

import (
	"fmt"
	"strconv"

	"github.com/vovakirdan/speed2048/internal/core"
	"github.com/vovakirdan/speed2048/internal/session"
	"github.com/vovakirdan/speed2048/internal/speedrun"
)

const (
	cellWidth  = 6 // Width of each cell (including left border)
	cellHeight = 2 // Height of each cell (including top border)
	hudHeight  = 3

	panelGap   = 3
	panelWidth = 25 // "%5s %9s %9s"
)

const noTime = "--:--.---"

// boardDims returns the board size in screen cells, borders included.
func (g *Game) boardDims() (int, int) {
	size := g.settings.Grid.Size
	if g.sess != nil {
		size = g.sess.Size()
	}
	return size*cellWidth + 1, size*cellHeight + 1
}

// Render draws the game state to the screen.
func (g *Game) Render(dst *core.Screen) {
	dst.Clear()

	if g.err != nil {
		g.renderError(dst)
		return
	}
	if g.tooSmall {
		g.renderTooSmall(dst)
		return
	}
	if g.sess == nil {
		return
	}

	boardW, boardH := g.boardDims()
	layoutW := boardW
	if g.mode == session.ModeSpeedrun {
		layoutW += panelGap + panelWidth
	}
	boardX := (g.screenW - layoutW) / 2
	boardY := hudHeight + 1

	g.renderHUD(dst, boardX, layoutW)
	g.renderBoard(dst, boardX, boardY)
	if g.mode == session.ModeSpeedrun {
		g.renderMilestones(dst, boardX+boardW+panelGap, boardY)
	}
	dst.DrawTextCenteredColored(g.screenH-1, g.Controls(), core.ColorGray)

	g.renderOverlays(dst, boardX, boardY, boardW, boardH)
}

func (g *Game) renderError(dst *core.Screen) {
	y := g.screenH / 2
	dst.DrawTextCenteredColored(y, "Cannot start game", core.ColorBrightRed)
	dst.DrawTextCentered(y+1, g.err.Error())
}

// renderTooSmall shows a "window too small" message.
func (g *Game) renderTooSmall(dst *core.Screen) {
	y := g.screenH / 2
	dst.DrawTextCentered(y, "Window too small")

	minW, minH := g.minScreenSize()
	dst.DrawTextCentered(y+1, fmt.Sprintf("Need %dx%d, have %dx%d", minW, minH, g.screenW, g.screenH))
}

// renderHUD draws title, score and the timer or max tile.
func (g *Game) renderHUD(dst *core.Screen, x, w int) {
	title := "2048"
	if g.mode == session.ModeSpeedrun {
		title = "2048 SPEEDRUN"
	}
	dst.DrawTextColored(x+(w-len(title))/2, 0, title, core.ColorBrightYellow)

	dst.DrawText(x, 1, fmt.Sprintf("Score: %d", g.sess.Score()))

	var info string
	if g.mode == session.ModeSpeedrun {
		info = "Time: " + speedrun.FormatMillis(g.sess.Elapsed())
	} else {
		info = fmt.Sprintf("Max: %d", g.sess.MaxTile())
	}
	dst.DrawText(max(x, x+w-len(info)), 1, info)

	status := fmt.Sprintf("Moves: %d", g.sess.Moves())
	color := core.ColorGray
	if g.flashValue > 0 && g.tick < g.flashUntil {
		ms := g.sess.Milestones()[g.flashValue]
		status = fmt.Sprintf("%d reached at %s", g.flashValue, speedrun.FormatMillis(ms))
		color = core.TileColor(g.flashValue)
	}
	dst.DrawTextColored(x+(w-len(status))/2, 2, status, color)
}

// renderBoard draws the grid lines and tiles.
func (g *Game) renderBoard(dst *core.Screen, boardX, boardY int) {
	cells := g.sess.Cells()
	size := len(cells)

	for y := range size + 1 {
		for x := range size + 1 {
			px := boardX + x*cellWidth
			py := boardY + y*cellHeight

			var corner rune
			switch {
			case y == 0 && x == 0:
				corner = '┌'
			case y == 0 && x == size:
				corner = '┐'
			case y == size && x == 0:
				corner = '└'
			case y == size && x == size:
				corner = '┘'
			case y == 0:
				corner = '┬'
			case y == size:
				corner = '┴'
			case x == 0:
				corner = '├'
			case x == size:
				corner = '┤'
			default:
				corner = '┼'
			}
			dst.SetColored(px, py, corner, core.ColorGray)

			if x < size {
				for i := 1; i < cellWidth; i++ {
					dst.SetColored(px+i, py, '─', core.ColorGray)
				}
			}
			if y < size {
				for i := 1; i < cellHeight; i++ {
					dst.SetColored(px, py+i, '│', core.ColorGray)
				}
			}
		}
	}

	for row := range size {
		for col := range size {
			val := cells[row][col]
			if val == 0 {
				continue
			}

			valStr := strconv.Itoa(val)
			padLeft := max(0, (cellWidth-1-len(valStr))/2)

			color := core.TileColor(val)
			switch g.highlights.at(row, col) {
			case highlightMerge:
				color = core.ColorBrightYellow
			case highlightSpawn:
				color = core.ColorBrightGreen
			}

			cellX := boardX + col*cellWidth + 1
			cellY := boardY + row*cellHeight + 1
			dst.DrawTextColored(cellX+padLeft, cellY, valStr, color)
		}
	}
}

// renderMilestones draws the per-tile split table of a speedrun.
// Splits slower than the personal best are shown in red.
func (g *Game) renderMilestones(dst *core.Screen, x, y int) {
	dst.DrawTextColored(x, y, fmt.Sprintf("%5s %9s %9s", "Tile", "Run", "Best"), core.ColorBrightWhite)

	run := g.sess.Milestones()
	for i, v := range g.milestoneValues() {
		row := y + 1 + i

		runStr, color := noTime, core.ColorGray
		ms, reached := run[v]
		if reached {
			runStr = speedrun.FormatMillis(ms)
			color = core.TileColor(v)
		}

		bestStr := noTime
		if best, ok := g.personalBest[v]; ok {
			bestStr = speedrun.FormatMillis(best)
			if reached && ms > best {
				color = core.ColorRed
			}
		}

		dst.DrawTextColored(x, row, fmt.Sprintf("%5d", v), core.TileColor(v))
		dst.DrawTextColored(x+6, row, fmt.Sprintf("%9s", runStr), color)
		dst.DrawTextColored(x+16, row, fmt.Sprintf("%9s", bestStr), core.ColorGray)
	}
}

// renderOverlays draws pause and end-of-run overlays.
func (g *Game) renderOverlays(dst *core.Screen, boardX, boardY, boardW, boardH int) {
	centerX := boardX + boardW/2
	centerY := boardY + boardH/2

	switch {
	case g.paused:
		g.drawOverlay(dst, centerX, centerY, core.ColorBrightYellow, "PAUSED", "Press P to resume")
	case g.sess.Won():
		timeStr := "Time: " + speedrun.FormatMillis(g.sess.Elapsed())
		g.drawOverlay(dst, centerX, centerY, core.ColorBrightGreen,
			fmt.Sprintf("%d REACHED!", g.settings.Grid.WinTile), timeStr, "Press R to restart")
	case g.sess.Lost():
		maxStr := fmt.Sprintf("Max tile: %d", g.sess.MaxTile())
		scoreStr := fmt.Sprintf("Score: %d", g.sess.Score())
		g.drawOverlay(dst, centerX, centerY, core.ColorBrightRed, "GAME OVER", scoreStr, maxStr, "Press R to restart")
	}
}

// drawOverlay draws a centered text box.
func (g *Game) drawOverlay(dst *core.Screen, centerX, centerY int, border core.Color, lines ...string) {
	maxLen := 0
	for _, line := range lines {
		maxLen = max(maxLen, len(line))
	}

	boxW := maxLen + 4
	boxH := len(lines) + 2
	box := core.NewRect(centerX-boxW/2, centerY-boxH/2, boxW, boxH)

	dst.DrawRect(box, ' ')
	dst.DrawBoxColored(box, border)

	for i, line := range lines {
		dst.DrawText(centerX-len(line)/2, box.Y+1+i, line)
	}
}

// Controls returns the control hints for the game.
func (g *Game) Controls() string {
	return "Arrows/WASD/HJKL: Move | P: Pause | R: Restart | B: Menu | Q: Quit"
}
