package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/speed2048/internal/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the game modes",
	Long:  `Shows every registered game mode with the engine settings in effect.`,
	Run:   runList,
}

func runList(_ *cobra.Command, _ []string) {
	games := registry.List()

	if len(games) == 0 {
		fmt.Println("No games available.")
		return
	}

	fmt.Println("Available modes:")
	fmt.Println()

	maxIDLen := 2 // "ID" header
	for _, g := range games {
		maxIDLen = max(maxIDLen, len(g.ID))
	}

	fmt.Printf("  %-*s  %s\n", maxIDLen, "ID", "Title")
	fmt.Printf("  %-*s  %s\n", maxIDLen, "--", "-----")
	for _, g := range games {
		fmt.Printf("  %-*s  %s\n", maxIDLen, g.ID, g.Title)
	}

	g := appConfig.Game
	fmt.Println()
	fmt.Printf("Board %dx%d, win tile %d, milestones %v\n", g.Size, g.Size, g.WinTile, g.Milestones)
	fmt.Println("Run 'speed2048 play classic' or 'speed2048 play speedrun' to play.")
}
