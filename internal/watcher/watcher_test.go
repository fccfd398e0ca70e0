package watcher

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func waitForCount(t *testing.T, counter *atomic.Int64, want int64, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if counter.Load() >= want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("trigger count = %d, want >= %d", counter.Load(), want)
}

func TestStartupTrigger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "issues.jsonl")

	var count atomic.Int64
	w := New(path, 50*time.Millisecond, func() { count.Add(1) }, testLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if count.Load() != 1 {
		t.Errorf("startup triggers = %d, want 1", count.Load())
	}
}

func TestChangeTriggersAfterDebounce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "issues.jsonl")

	var count atomic.Int64
	w := New(path, 50*time.Millisecond, func() { count.Add(1) }, testLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	waitForCount(t, &count, 2, 3*time.Second)
}

func TestBurstCollapsesToOneTrigger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "issues.jsonl")

	var count atomic.Int64
	w := New(path, 150*time.Millisecond, func() { count.Add(1) }, testLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// A burst of writes inside the debounce window.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	waitForCount(t, &count, 2, 3*time.Second)
	time.Sleep(300 * time.Millisecond)
	if got := count.Load(); got != 2 {
		t.Errorf("triggers = %d, want 2 (startup + one debounced)", got)
	}
}

func TestIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "issues.jsonl")

	var count atomic.Int64
	w := New(path, 50*time.Millisecond, func() { count.Add(1) }, testLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("triggers = %d, want 1 (unrelated file must not trigger)", got)
	}
}

func TestStopPreventsFurtherTriggers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "issues.jsonl")

	var count atomic.Int64
	w := New(path, 50*time.Millisecond, func() { count.Add(1) }, testLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()

	if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("triggers after Stop = %d, want 1 (startup only)", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := New(filepath.Join(dir, "f"), 50*time.Millisecond, func() {}, testLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
	w.Stop() // must not panic
}
