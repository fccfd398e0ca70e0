// Package cmd implements the threadbridge CLI.
package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forgekeep/threadbridge/internal/config"
)

var rootDir string

var rootCmd = &cobra.Command{
	Use:   "threadbridge",
	Short: "Bridge a beads task tracker to a Discord forum",
	Long: `threadbridge keeps one Discord forum thread per active tracker issue:
threads are created when issues appear, renamed as status and titles
change, and archived when issues close. A guard rejects manually
created threads in the managed forum.

Configuration lives in bridge.json in the tracker root.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", ".", "tracker root directory")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads bridge.json from the tracker root flag.
func loadConfig() (*config.Config, error) {
	dir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	return config.Load(filepath.Join(dir, config.ConfigFileName))
}
