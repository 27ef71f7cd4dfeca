// speed2048 is a terminal 2048 with a speedrun mode and an account service.
//
// Usage:
//
//	speed2048 list                  - List game modes
//	speed2048 play [mode]           - Play classic or speedrun
//	speed2048 menu                  - Pick a mode interactively
//	speed2048 scores [mode]         - Show local or global scores
//	speed2048 serve                 - Start SSH server for remote play
//	speed2048 api                   - Start the account service
//	speed2048 account <command>     - Register, log in and manage 2FA
//
// Global flags:
//
//	--config <path> - Configuration file (default: search path)
//	--fps <rate>    - Set tick rate (default: 30)
//	--seed <value>  - Set RNG seed for reproducible gameplay
//	--db <path>     - Set database path (default: ~/.speed2048/scores.db)
//	--api <url>     - Account service URL for result relay
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/speed2048/internal/account"
	"github.com/vovakirdan/speed2048/internal/config"
	"github.com/vovakirdan/speed2048/internal/core"
	"github.com/vovakirdan/speed2048/internal/games/t2048"
	"github.com/vovakirdan/speed2048/internal/platform/tui"
	"github.com/vovakirdan/speed2048/internal/session"
	"github.com/vovakirdan/speed2048/internal/storage"
)

var (
	// Global flags
	flagConfig  string
	flagFPS     int
	flagSeed    int64
	flagDBPath  string
	flagAPIURL  string
	flagVerbose bool

	// appConfig is loaded once before any subcommand runs.
	appConfig config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "speed2048",
	Short: "speed2048 - 2048 in your terminal, against the clock",
	Long: `speed2048 is a terminal 2048 with two modes:

  classic   - play until no move is left, chase the best score
  speedrun  - reach the win tile as fast as possible, every milestone is timed

Available commands:
  list      - Show the game modes
  play      - Play a mode directly
  menu      - Interactive mode picker
  scores    - View local or global scores
  serve     - Start SSH server for remote play
  api       - Start the account service
  account   - Manage your account

Examples:
  speed2048 play speedrun
  speed2048 menu --fps 60
  speed2048 scores speedrun --global
  speed2048 serve --ssh :2222`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().IntVar(&flagFPS, "fps", 30, "Tick rate (frames per second)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to scores database")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api", "", "Account service URL")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(accountCmd)
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("fps") {
		cfg.TUI.FPS = flagFPS
	}
	if flags.Changed("seed") {
		cfg.Game.Seed = flagSeed
	}
	if flags.Changed("db") {
		cfg.Storage.Path = flagDBPath
	}
	if flags.Changed("api") {
		cfg.Account.URL = flagAPIURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	appConfig = cfg
	t2048.Configure(t2048.SettingsFromConfig(cfg.Game))
	return nil
}

// newLogger creates a stderr logger with the given prefix.
func newLogger(prefix string) *log.Logger {
	level := log.InfoLevel
	if flagVerbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
		Level:           level,
	})
}

// runtimeConfig builds the runtime config from the terminal size and flags.
func runtimeConfig() core.RuntimeConfig {
	width, height := 80, 24
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width = w
		height = h
	}

	return core.RuntimeConfig{
		ScreenW:  width,
		ScreenH:  height,
		TickRate: appConfig.TUI.FPS,
		Seed:     appConfig.Game.Seed,
	}
}

// openLocalStore opens the score database, warning instead of failing.
// Games still run without it; results are simply not kept.
func openLocalStore() *storage.Store {
	store, err := storage.Open(appConfig.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open scores database: %v\n", err)
		return nil
	}
	return store
}

// newLocalRecorder creates a recorder that relays results to the account
// service when a URL and a login token are available.
func newLocalRecorder(store *storage.Store) *tui.Recorder {
	var remote tui.RunSubmitter
	if client := accountClient(); client != nil && client.Token() != "" {
		remote = client
	}
	return tui.NewRecorder(store, remote, appConfig.Account.Timeout, newLogger("speed2048"))
}

// accountClient returns a client for the configured account service, or
// nil when no URL is set.
func accountClient() *account.Client {
	if appConfig.Account.URL == "" {
		return nil
	}
	token := appConfig.Account.Token
	if token == "" {
		token = readToken()
	}
	return account.NewClient(appConfig.Account.URL, token, appConfig.Account.Timeout)
}

// requireClient is accountClient for commands that cannot work offline.
func requireClient() (*account.Client, error) {
	client := accountClient()
	if client == nil {
		return nil, errors.New("no account service configured: set account.url or pass --api")
	}
	return client, nil
}

// tokenPath is where `account login` keeps the session token.
func tokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".speed2048", "token")
}

func readToken() string {
	path := tokenPath()
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func writeToken(token string) error {
	path := tokenPath()
	if path == "" {
		return errors.New("cannot locate home directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

// commandContext returns a context bounded by the client timeout.
func commandContext() (context.Context, context.CancelFunc) {
	timeout := appConfig.Account.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// gameIDFor returns the registry id of a mode.
func gameIDFor(mode session.Mode) string {
	if mode == session.ModeSpeedrun {
		return t2048.SpeedrunID
	}
	return t2048.ClassicID
}
