package cmd

import (
	"github.com/spf13/cobra"

	"github.com/forgekeep/threadbridge/internal/daemon"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge daemon",
	Long: `Run the bridge daemon in the foreground.

The daemon reconciles on tracker changes (debounced), on a periodic
timer, and once at startup. Logs go to .threadbridge/bridge.log in the
tracker root.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}
	return d.Run()
}
