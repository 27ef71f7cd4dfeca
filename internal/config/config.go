// Package config provides YAML-based configuration loading for the
// game engine, the terminal client and the account service.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the full speed2048 configuration.
type Config struct {
	Game    GameConfig    `yaml:"game"`
	TUI     TUIConfig     `yaml:"tui"`
	Storage StorageConfig `yaml:"storage"`
	Account AccountConfig `yaml:"account"`
	SSH     SSHConfig     `yaml:"ssh"`
}

// GameConfig holds the engine parameters read at session construction.
type GameConfig struct {
	Size       int     `yaml:"size"`        // Board dimension
	WinTile    int     `yaml:"win_tile"`    // Tile value that ends a speedrun
	Spawn4Prob float64 `yaml:"spawn4_prob"` // Probability of spawning a 4 (0.0-1.0)
	Milestones []int   `yaml:"milestones"`  // Tile values timed in speedrun mode
	Seed       int64   `yaml:"seed"`        // 0 picks a random seed per run
}

// TUIConfig holds terminal client parameters.
type TUIConfig struct {
	FPS int `yaml:"fps"`
}

// StorageConfig holds the local database location.
type StorageConfig struct {
	Path string `yaml:"path"` // Supports a leading ~
}

// AccountConfig configures both the account HTTP service and the client
// that relays results to it.
type AccountConfig struct {
	Listen       string        `yaml:"listen"`        // Server listen address
	URL          string        `yaml:"url"`           // Client base URL; empty disables relay
	Token        string        `yaml:"token"`         // Client bearer token
	SessionTTL   time.Duration `yaml:"session_ttl"`   // Lifetime of login tokens
	ChallengeTTL time.Duration `yaml:"challenge_ttl"` // Lifetime of pending 2FA challenges
	Issuer       string        `yaml:"issuer"`        // TOTP issuer name
	Timeout      time.Duration `yaml:"timeout"`       // Client request timeout
}

// SSHConfig configures the multi-user SSH server.
type SSHConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	HostKeyPath string `yaml:"host_key_path"`
}

// Address returns host:port for the SSH listener.
func (c SSHConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate reports every invalid field of the configuration.
func (c Config) Validate() error {
	var errs []error

	g := c.Game
	if g.Size < 2 {
		errs = append(errs, fmt.Errorf("game.size must be at least 2, got %d", g.Size))
	}
	if !isPowerOfTwo(g.WinTile) {
		errs = append(errs, fmt.Errorf("game.win_tile must be a power of two >= 2, got %d", g.WinTile))
	}
	if g.Spawn4Prob < 0 || g.Spawn4Prob > 1 {
		errs = append(errs, fmt.Errorf("game.spawn4_prob must be within [0, 1], got %g", g.Spawn4Prob))
	}
	for _, m := range g.Milestones {
		if !isPowerOfTwo(m) {
			errs = append(errs, fmt.Errorf("game.milestones: %d is not a power of two", m))
		}
	}

	if c.TUI.FPS <= 0 {
		errs = append(errs, fmt.Errorf("tui.fps must be positive, got %d", c.TUI.FPS))
	}
	if c.SSH.Port < 0 || c.SSH.Port > 65535 {
		errs = append(errs, fmt.Errorf("ssh.port out of range: %d", c.SSH.Port))
	}
	if c.Account.SessionTTL < 0 || c.Account.ChallengeTTL < 0 {
		errs = append(errs, errors.New("account ttl values must not be negative"))
	}

	return errors.Join(errs...)
}

func isPowerOfTwo(v int) bool {
	return v >= 2 && v&(v-1) == 0
}
