package core

// Color represents a foreground color for a screen cell.
// Uses ANSI 256-color codes for terminal compatibility.
type Color uint8

// Predefined colors for game elements.
const (
	ColorDefault Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightBlue
	ColorBrightMagenta
	ColorBrightCyan
	ColorBrightWhite
	ColorOrange
	ColorGray
)

// TileColor returns the display color for a 2048 tile value.
// Colors climb from cool to warm as tiles grow; 0 (empty) is gray.
func TileColor(value int) Color {
	switch value {
	case 0:
		return ColorGray
	case 2:
		return ColorWhite
	case 4:
		return ColorBrightWhite
	case 8:
		return ColorCyan
	case 16:
		return ColorBrightCyan
	case 32:
		return ColorBlue
	case 64:
		return ColorBrightBlue
	case 128:
		return ColorGreen
	case 256:
		return ColorBrightGreen
	case 512:
		return ColorYellow
	case 1024:
		return ColorOrange
	case 2048:
		return ColorBrightRed
	default:
		return ColorBrightMagenta
	}
}
