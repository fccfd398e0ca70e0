package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ConfigFileName))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load = %v, want ErrNotFound", err)
	}
}

func TestLoadMissingForumID(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{"guild_id": "g1"}`)
	_, err := Load(path)
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("Load = %v, want ErrMissingField", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{
		// the managed forum
		"forum_id": "123",
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TrackerDir != dir {
		t.Errorf("TrackerDir = %q, want %q", cfg.TrackerDir, dir)
	}
	if want := filepath.Join(dir, ".beads", "issues.jsonl"); cfg.ChangeFile != want {
		t.Errorf("ChangeFile = %q, want %q", cfg.ChangeFile, want)
	}
	if cfg.NoThreadLabel != DefaultNoThreadLabel {
		t.Errorf("NoThreadLabel = %q, want %q", cfg.NoThreadLabel, DefaultNoThreadLabel)
	}
	if cfg.SyncIntervalDuration() != DefaultSyncInterval {
		t.Errorf("SyncIntervalDuration = %v, want default", cfg.SyncIntervalDuration())
	}
	if cfg.DebounceDuration() != DefaultDebounce {
		t.Errorf("DebounceDuration = %v, want default", cfg.DebounceDuration())
	}
}

func TestLoadExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{
		"forum_id": "123",
		"guild_id": "g1",
		"tracker_dir": "/work",
		"sync_interval": "90s",
		"debounce": "500ms",
		"no_thread_label": "quiet"
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TrackerDir != "/work" {
		t.Errorf("TrackerDir = %q", cfg.TrackerDir)
	}
	if cfg.SyncIntervalDuration() != 90*time.Second {
		t.Errorf("SyncIntervalDuration = %v, want 90s", cfg.SyncIntervalDuration())
	}
	if cfg.DebounceDuration() != 500*time.Millisecond {
		t.Errorf("DebounceDuration = %v, want 500ms", cfg.DebounceDuration())
	}
	if cfg.NoThreadLabel != "quiet" {
		t.Errorf("NoThreadLabel = %q, want quiet", cfg.NoThreadLabel)
	}
}

func TestTokenFromEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	token, err := Token(t.TempDir())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "env-token" {
		t.Errorf("token = %q, want env-token", token)
	}
}

func TestTokenFromMCPConfig(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	dir := t.TempDir()
	mcp := `{"mcpServers": {"discord-mcp": {"env": {"DISCORD_TOKEN": "file-token"}}}}`
	if err := os.WriteFile(filepath.Join(dir, ".mcp.json"), []byte(mcp), 0600); err != nil {
		t.Fatal(err)
	}

	token, err := Token(dir)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "file-token" {
		t.Errorf("token = %q, want file-token", token)
	}
}

func TestTokenMissingEverywhere(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	_, err := Token(t.TempDir())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Token = %v, want ErrNoToken", err)
	}
}
