package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/speed2048/internal/session"
	"github.com/vovakirdan/speed2048/internal/speedrun"
	"github.com/vovakirdan/speed2048/internal/storage"
)

var (
	flagScoresGlobal bool
	flagScoresLimit  int
	flagScoresPage   int
)

var scoresCmd = &cobra.Command{
	Use:   "scores [classic|speedrun]",
	Short: "Show high scores",
	Long: `Display the best local results of a mode, or the global leaderboard
of the account service with --global.

Examples:
  speed2048 scores
  speed2048 scores speedrun
  speed2048 scores classic --global --page 2`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(session.ModeClassic), string(session.ModeSpeedrun)},
	RunE:      runScores,
}

func init() {
	scoresCmd.Flags().BoolVar(&flagScoresGlobal, "global", false, "Show the account service leaderboard")
	scoresCmd.Flags().IntVar(&flagScoresLimit, "limit", 10, "Number of entries to show")
	scoresCmd.Flags().IntVar(&flagScoresPage, "page", 1, "Leaderboard page (with --global)")
}

func runScores(_ *cobra.Command, args []string) error {
	mode := session.ModeClassic
	if len(args) > 0 {
		m, err := session.ParseMode(args[0])
		if err != nil {
			return err
		}
		mode = m
	}

	if flagScoresGlobal {
		return showLeaderboard(mode)
	}

	store, err := storage.Open(appConfig.Storage.Path)
	if err != nil {
		return fmt.Errorf("cannot open scores database: %w", err)
	}
	defer store.Close()

	if mode == session.ModeSpeedrun {
		return showSpeedruns(store)
	}
	return showClassic(store)
}

func showClassic(store *storage.Store) error {
	scores, err := store.TopScores(gameIDFor(session.ModeClassic), flagScoresLimit)
	if err != nil {
		return err
	}

	fmt.Println("High Scores - 2048")
	fmt.Println()

	if len(scores) == 0 {
		fmt.Println("No scores recorded yet.")
		fmt.Println()
		fmt.Println("Play 'speed2048 play classic' to set the first high score!")
		return nil
	}

	fmt.Printf("  %-4s  %-10s  %-8s  %s\n", "Rank", "Score", "Max tile", "Date")
	fmt.Printf("  %-4s  %-10s  %-8s  %s\n", "----", "-----", "--------", "----")
	for i, entry := range scores {
		fmt.Printf("  %-4d  %-10d  %-8d  %s\n", i+1, entry.Score, entry.MaxTile, entry.CreatedAt.Format("2006-01-02 15:04"))
	}

	if stats, err := store.GetGameStats(gameIDFor(session.ModeClassic)); err == nil {
		fmt.Println()
		fmt.Printf("Best: %d over %d games\n", stats.HighScore, stats.GamesCount)
	}
	return nil
}

func showSpeedruns(store *storage.Store) error {
	runs, err := store.TopSpeedruns(flagScoresLimit)
	if err != nil {
		return err
	}

	fmt.Println("Fastest Runs - 2048 Speedrun")
	fmt.Println()

	if len(runs) == 0 {
		fmt.Println("No finished speedruns yet.")
	} else {
		fmt.Printf("  %-4s  %-10s  %-8s  %s\n", "Rank", "Time", "Score", "Date")
		fmt.Printf("  %-4s  %-10s  %-8s  %s\n", "----", "----", "-----", "----")
		for i, r := range runs {
			fmt.Printf("  %-4d  %-10s  %-8d  %s\n", i+1, speedrun.FormatMillis(r.ElapsedMS), r.Score, r.CreatedAt.Format("2006-01-02 15:04"))
		}
	}

	best, err := store.BestMilestones()
	if err != nil || len(best) == 0 {
		return err
	}
	fmt.Println()
	fmt.Println("Best splits:")
	for _, v := range best.Values() {
		fmt.Printf("  %5d  %s\n", v, speedrun.FormatMillis(best[v]))
	}
	return nil
}

func showLeaderboard(mode session.Mode) error {
	client, err := requireClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	board := storage.LeaderboardClassic
	if mode == session.ModeSpeedrun {
		board = storage.LeaderboardSpeedrun
	}
	resp, err := client.Leaderboard(ctx, board, flagScoresPage, flagScoresLimit)
	if err != nil {
		return err
	}

	fmt.Printf("Leaderboard - %s (page %d, %d players)\n", resp.Mode, resp.Page, resp.Total)
	fmt.Println()
	if len(resp.Entries) == 0 {
		fmt.Println("No entries on this page.")
		return nil
	}

	for _, e := range resp.Entries {
		if board == storage.LeaderboardSpeedrun {
			fmt.Printf("  %-4d  %-20s  %s\n", e.Rank, e.Username, speedrun.FormatMillis(e.BestTime))
		} else {
			fmt.Printf("  %-4d  %-20s  %d\n", e.Rank, e.Username, e.BestScore)
		}
	}
	return nil
}
