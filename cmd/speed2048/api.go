package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/speed2048/internal/account"
	"github.com/vovakirdan/speed2048/internal/storage"
)

var (
	flagListen     string
	flagPurgeEvery time.Duration
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the account service",
	Long: `Start the HTTP account service: registration, login with optional
TOTP two-factor authentication, personal bests and the leaderboard.

Examples:
  speed2048 api
  speed2048 api --listen :8080 --db ./accounts.db`,
	RunE: runAPI,
}

func init() {
	apiCmd.Flags().StringVar(&flagListen, "listen", "", "HTTP listen address (default: account.listen)")
	apiCmd.Flags().DurationVar(&flagPurgeEvery, "purge-every", time.Hour, "Interval between expired session sweeps")
}

func runAPI(_ *cobra.Command, _ []string) error {
	logger := newLogger("speed2048-api")

	addr := appConfig.Account.Listen
	if flagListen != "" {
		addr = flagListen
	}

	store, err := storage.Open(appConfig.Storage.Path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer store.Close()

	server := account.NewServer(store, account.Options{
		SessionTTL:   appConfig.Account.SessionTTL,
		ChallengeTTL: appConfig.Account.ChallengeTTL,
		Issuer:       appConfig.Account.Issuer,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go purgeSessions(ctx, store, flagPurgeEvery, logger)

	return server.ListenAndServe(ctx, addr)
}

type sessionPurger interface {
	PurgeSessions(ctx context.Context, now time.Time) (int64, error)
}

// purgeSessions deletes expired login tokens until ctx is cancelled.
func purgeSessions(ctx context.Context, store sessionPurger, every time.Duration, logger *log.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeSessions(ctx, now)
			if err != nil {
				logger.Warn("cannot purge sessions", "err", err)
				continue
			}
			logger.Debug("purged sessions", "count", n)
		}
	}
}
