package daemon

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
	"time"
)

// shutdownNotifyDelay is how long Stop waits for a graceful exit before
// escalating to SIGKILL.
const shutdownNotifyDelay = 2 * time.Second

// IsRunning checks if a daemon is running for the given tracker root.
func IsRunning(root string) (bool, int, error) {
	data, err := os.ReadFile(PidFile(root))
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return false, 0, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0, nil
	}

	// On Unix, FindProcess always succeeds. Send signal 0 to check if alive.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		// Process not running, clean up stale PID file (best-effort).
		_ = os.Remove(PidFile(root))
		return false, 0, nil
	}

	return true, pid, nil
}

// Stop stops the running daemon for the given tracker root.
func Stop(root string) error {
	running, pid, err := IsRunning(root)
	if err != nil {
		return err
	}
	if !running {
		return fmt.Errorf("daemon is not running")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process: %w", err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending SIGTERM: %w", err)
	}

	time.Sleep(shutdownNotifyDelay)

	// Still running? Force kill (best-effort).
	if err := process.Signal(syscall.Signal(0)); err == nil {
		_ = process.Signal(syscall.SIGKILL)
	}

	_ = os.Remove(PidFile(root)) // best-effort cleanup
	return nil
}
