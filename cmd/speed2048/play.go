package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/speed2048/internal/platform/tui"
	"github.com/vovakirdan/speed2048/internal/registry"
	"github.com/vovakirdan/speed2048/internal/session"
)

var playCmd = &cobra.Command{
	Use:   "play [classic|speedrun]",
	Short: "Play a game mode",
	Long: `Start a game directly, without the menu. The mode defaults to classic.

Controls:
  Arrows/WASD/HJKL - Slide tiles
  P/Space          - Pause
  R                - Restart
  Ctrl+S           - Save a screenshot
  Q/Ctrl+C         - Quit

Finished runs are saved to the local database and, when logged in,
relayed to the account service.

Examples:
  speed2048 play
  speed2048 play speedrun --seed 42
  speed2048 play speedrun --api http://localhost:3000`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(session.ModeClassic), string(session.ModeSpeedrun)},
	RunE:      runPlay,
}

func runPlay(_ *cobra.Command, args []string) error {
	mode := session.ModeClassic
	if len(args) > 0 {
		m, err := session.ParseMode(args[0])
		if err != nil {
			return fmt.Errorf("%w (run 'speed2048 list' to see modes)", err)
		}
		mode = m
	}

	game, err := registry.Create(gameIDFor(mode))
	if err != nil {
		return err
	}

	store := openLocalStore()
	if store != nil {
		defer store.Close()
	}

	return tui.Run(game, newLocalRecorder(store), runtimeConfig())
}
