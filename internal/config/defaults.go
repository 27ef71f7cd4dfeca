package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/speed2048.yaml
var defaultYAML []byte

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Game: GameConfig{
			Size:       4,
			WinTile:    2048,
			Spawn4Prob: 0.1,
			Milestones: []int{8, 16, 32, 64, 128, 256, 512, 1024, 2048},
		},
		TUI: TUIConfig{
			FPS: 30,
		},
		Storage: StorageConfig{
			Path: "~/.speed2048/scores.db",
		},
		Account: AccountConfig{
			Listen:       ":3000",
			SessionTTL:   720 * time.Hour,
			ChallengeTTL: 5 * time.Minute,
			Issuer:       "speed2048",
			Timeout:      5 * time.Second,
		},
		SSH: SSHConfig{
			Host:        "0.0.0.0",
			Port:        2222,
			HostKeyPath: ".ssh/speed2048_ed25519",
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultYAML
}
