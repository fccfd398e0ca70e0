package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgekeep/threadbridge/internal/daemon"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := daemon.Stop(cfg.TrackerDir); err != nil {
		return err
	}
	fmt.Println("daemon stopped")
	return nil
}
