// Package config loads threadbridge configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"
)

var (
	// ErrNotFound indicates the config file does not exist.
	ErrNotFound = errors.New("config file not found")

	// ErrMissingField indicates a required field is missing.
	ErrMissingField = errors.New("missing required field")
)

// ConfigFileName is the default config file name, looked up in the
// tracker root.
const ConfigFileName = "bridge.json"

// Config holds bridge configuration. The JSON file may carry comments.
type Config struct {
	// GuildID is the Discord guild the managed forum lives in.
	GuildID string `json:"guild_id"`

	// ForumID is the managed forum channel. Required.
	ForumID string `json:"forum_id"`

	// TrackerDir is the working directory for bd commands. Defaults to
	// the directory containing the config file.
	TrackerDir string `json:"tracker_dir,omitempty"`

	// ChangeFile is the tracker's change indicator observed by the
	// watcher. Defaults to <TrackerDir>/.beads/issues.jsonl.
	ChangeFile string `json:"change_file,omitempty"`

	// TagMapFile maps tracker labels to forum tag IDs. Optional.
	TagMapFile string `json:"tag_map_file,omitempty"`

	// NoThreadLabel exempts an issue from thread creation.
	NoThreadLabel string `json:"no_thread_label,omitempty"`

	// SyncInterval is the periodic pass interval, e.g. "5m".
	SyncInterval string `json:"sync_interval,omitempty"`

	// Debounce is the watcher debounce window, e.g. "2s".
	Debounce string `json:"debounce,omitempty"`
}

// Defaults applied after loading.
const (
	DefaultNoThreadLabel = "no-thread"
	DefaultSyncInterval  = 5 * time.Minute
	DefaultDebounce      = 2 * time.Second
)

// Load reads and validates a bridge config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is from trusted config location
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.ForumID == "" {
		return nil, fmt.Errorf("%w: forum_id", ErrMissingField)
	}

	if cfg.TrackerDir == "" {
		cfg.TrackerDir = filepath.Dir(path)
	}
	if cfg.ChangeFile == "" {
		cfg.ChangeFile = filepath.Join(cfg.TrackerDir, ".beads", "issues.jsonl")
	}
	if cfg.NoThreadLabel == "" {
		cfg.NoThreadLabel = DefaultNoThreadLabel
	}

	return &cfg, nil
}

// SyncIntervalDuration parses SyncInterval, falling back to the default
// on absence or a malformed value.
func (c *Config) SyncIntervalDuration() time.Duration {
	if d, err := time.ParseDuration(c.SyncInterval); err == nil && d > 0 {
		return d
	}
	return DefaultSyncInterval
}

// DebounceDuration parses Debounce, falling back to the default.
func (c *Config) DebounceDuration() time.Duration {
	if d, err := time.ParseDuration(c.Debounce); err == nil && d > 0 {
		return d
	}
	return DefaultDebounce
}
