package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/speed2048/internal/platform/tui"
)

var (
	flagSSHAddr     string
	flagHostKey     string
	flagIdleTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SSH server",
	Long: `Start an SSH server that lets users connect and play.

Each SSH connection gets its own session with the mode picker menu.
Scores are stored per server (all users share the same local table).

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise uses ssh.host_key_path from the config, generated on first start

Examples:
  speed2048 serve                           # Listen on ssh.host:ssh.port
  speed2048 serve --ssh :2222               # Listen on port 2222
  speed2048 serve --host-key ./my_host_key  # Use specific host key
  speed2048 serve --db ./scores.db          # Use specific database

Users can connect with:
  ssh localhost -p 2222`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH server address (host:port)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Idle timeout in minutes before disconnecting")
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := newLogger("speed2048-ssh")

	cfg := tui.SSHServerConfig{
		Address:     appConfig.SSH.Address(),
		HostKeyPath: appConfig.SSH.HostKeyPath,
		TickRate:    appConfig.TUI.FPS,
		IdleTimeout: time.Duration(flagIdleTimeout) * time.Minute,
	}
	if flagSSHAddr != "" {
		cfg.Address = flagSSHAddr
	}
	if flagHostKey != "" {
		cfg.HostKeyPath = flagHostKey
	}

	store := openLocalStore()
	if store != nil {
		defer store.Close()
	}

	// Connections are anonymous, so results stay local
	recorder := tui.NewRecorder(store, nil, 0, logger)

	server, err := tui.NewSSHServer(cfg, recorder, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Connect with: ssh localhost -p %s\n", portOf(cfg.Address))
	fmt.Println("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.ListenAndServe(ctx)
}

// portOf returns the port part of a host:port address.
func portOf(addr string) string {
	if _, port, err := net.SplitHostPort(addr); err == nil {
		return port
	}
	return addr
}
