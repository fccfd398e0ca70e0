package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgekeep/threadbridge/internal/daemon"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	running, pid, err := daemon.IsRunning(cfg.TrackerDir)
	if err != nil {
		return err
	}
	if !running {
		fmt.Println("daemon: not running")
		return nil
	}
	fmt.Printf("daemon: running (PID %d)\n", pid)

	state, err := daemon.LoadState(cfg.TrackerDir)
	if err != nil {
		return err
	}
	if !state.LastPass.IsZero() {
		fmt.Printf("last pass: %s (%d total)\n", state.LastPass.Format("2006-01-02 15:04:05"), state.PassCount)
		fmt.Printf("totals: created=%d renamed=%d archived=%d status_fixed=%d failures=%d\n",
			state.Totals.ThreadsCreated, state.Totals.NamesUpdated, state.Totals.ThreadsArchived,
			state.Totals.StatusFixed, state.Totals.Failures)
	}
	return nil
}
