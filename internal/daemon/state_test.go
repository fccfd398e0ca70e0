package daemon

import (
	"testing"
	"time"

	"github.com/forgekeep/threadbridge/internal/reconcile"
)

func TestLoadStateMissing(t *testing.T) {
	state, err := LoadState(t.TempDir())
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if state.Running || state.PassCount != 0 {
		t.Errorf("missing state file should yield zero state, got %+v", state)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	want := &State{
		Running:   true,
		PID:       4242,
		StartedAt: time.Now().Truncate(time.Second),
		PassCount: 7,
		Totals:    reconcile.Counters{ThreadsCreated: 3, ThreadsArchived: 1},
	}
	if err := SaveState(root, want); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got, err := LoadState(root)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if got.PID != want.PID || got.PassCount != want.PassCount {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if got.Totals != want.Totals {
		t.Errorf("Totals = %+v, want %+v", got.Totals, want.Totals)
	}
}

func TestIsRunningNoPidFile(t *testing.T) {
	running, pid, err := IsRunning(t.TempDir())
	if err != nil {
		t.Fatalf("IsRunning: %v", err)
	}
	if running || pid != 0 {
		t.Errorf("IsRunning = %v/%d, want false/0", running, pid)
	}
}

func TestRuntimePaths(t *testing.T) {
	if got := LogFile("/root/dir"); got != "/root/dir/.threadbridge/bridge.log" {
		t.Errorf("LogFile = %q", got)
	}
	if got := StateFile("/root/dir"); got != "/root/dir/.threadbridge/state.json" {
		t.Errorf("StateFile = %q", got)
	}
}
