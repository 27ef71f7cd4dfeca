package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestEmbeddedDefaultsMatchHardcoded(t *testing.T) {
	cfg, err := parse(DefaultYAML())
	if err != nil {
		t.Fatalf("embedded defaults invalid: %v", err)
	}
	def := DefaultConfig()

	if cfg.Game.Size != def.Game.Size || cfg.Game.WinTile != def.Game.WinTile {
		t.Errorf("game = %+v, want %+v", cfg.Game, def.Game)
	}
	if cfg.Game.Spawn4Prob != def.Game.Spawn4Prob {
		t.Errorf("spawn4_prob = %g, want %g", cfg.Game.Spawn4Prob, def.Game.Spawn4Prob)
	}
	if len(cfg.Game.Milestones) != len(def.Game.Milestones) {
		t.Errorf("milestones = %v, want %v", cfg.Game.Milestones, def.Game.Milestones)
	}
	if cfg.Account.ChallengeTTL != 5*time.Minute {
		t.Errorf("challenge_ttl = %v, want 5m", cfg.Account.ChallengeTTL)
	}
	if cfg.SSH.Address() != "0.0.0.0:2222" {
		t.Errorf("ssh address = %q", cfg.SSH.Address())
	}
}

func TestLoadCustomPathOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
game:
  size: 5
  milestones: [64, 128]
tui:
  fps: 60
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Game.Size != 5 {
		t.Errorf("size = %d, want 5", cfg.Game.Size)
	}
	if cfg.Game.WinTile != 2048 {
		t.Errorf("win_tile = %d, want default 2048", cfg.Game.WinTile)
	}
	if len(cfg.Game.Milestones) != 2 || cfg.Game.Milestones[0] != 64 {
		t.Errorf("milestones = %v, want [64 128]", cfg.Game.Milestones)
	}
	if cfg.TUI.FPS != 60 {
		t.Errorf("fps = %d, want 60", cfg.TUI.FPS)
	}
}

func TestLoadMissingCustomPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing custom config")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "game:\n  win_tile: 2000\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "win_tile") {
		t.Errorf("error %q should name win_tile", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"size too small", func(c *Config) { c.Game.Size = 1 }, "game.size"},
		{"win tile not power of two", func(c *Config) { c.Game.WinTile = 3 }, "game.win_tile"},
		{"probability above one", func(c *Config) { c.Game.Spawn4Prob = 1.5 }, "game.spawn4_prob"},
		{"probability negative", func(c *Config) { c.Game.Spawn4Prob = -0.1 }, "game.spawn4_prob"},
		{"bad milestone", func(c *Config) { c.Game.Milestones = []int{8, 12} }, "game.milestones"},
		{"zero fps", func(c *Config) { c.TUI.FPS = 0 }, "tui.fps"},
		{"port out of range", func(c *Config) { c.SSH.Port = 70000 }, "ssh.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should mention %s", err, tt.field)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
