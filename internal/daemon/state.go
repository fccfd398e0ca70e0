// Package daemon provides the threadbridge background service.
//
// The daemon is a plain Go process that keeps the tracker and the managed
// Discord forum converged: it runs the reconciliation pass on tracker
// changes and on a periodic timer, and hosts the invariant guard's event
// handlers. All reconciliation semantics live in the reconcile package;
// the daemon is process plumbing.
package daemon

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/forgekeep/threadbridge/internal/reconcile"
)

// RuntimeDirName is the daemon's runtime directory under the tracker root.
const RuntimeDirName = ".threadbridge"

// RuntimeDir returns the daemon's runtime directory.
func RuntimeDir(root string) string {
	return filepath.Join(root, RuntimeDirName)
}

// LogFile returns the daemon log file path.
func LogFile(root string) string {
	return filepath.Join(RuntimeDir(root), "bridge.log")
}

// PidFile returns the PID file path.
func PidFile(root string) string {
	return filepath.Join(RuntimeDir(root), "bridge.pid")
}

// LockFile returns the single-instance lock file path.
func LockFile(root string) string {
	return filepath.Join(RuntimeDir(root), "bridge.lock")
}

// StateFile returns the state file path.
func StateFile(root string) string {
	return filepath.Join(RuntimeDir(root), "state.json")
}

// State represents the daemon's runtime state.
type State struct {
	// Running indicates if the daemon is running.
	Running bool `json:"running"`

	// PID is the process ID of the daemon.
	PID int `json:"pid"`

	// StartedAt is when the daemon started.
	StartedAt time.Time `json:"started_at"`

	// LastPass is when the last reconciliation pass completed.
	LastPass time.Time `json:"last_pass"`

	// PassCount is how many passes have completed.
	PassCount int64 `json:"pass_count"`

	// Totals accumulates counters across all passes of this run.
	Totals reconcile.Counters `json:"totals"`
}

// LoadState loads daemon state from disk. A missing file yields a zero
// state, not an error.
func LoadState(root string) (*State, error) {
	data, err := os.ReadFile(StateFile(root))
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveState saves daemon state to disk using an atomic write.
func SaveState(root string, state *State) error {
	if err := os.MkdirAll(RuntimeDir(root), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(StateFile(root), bytes.NewReader(data))
}
