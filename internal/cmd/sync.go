package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/forgekeep/threadbridge/internal/config"
	"github.com/forgekeep/threadbridge/internal/discord"
	"github.com/forgekeep/threadbridge/internal/reconcile"
	"github.com/forgekeep/threadbridge/internal/tracker"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation pass and exit",
	Long: `Run one full four-phase reconciliation pass against the configured
forum and print what changed. Useful for converging manually or from
cron without the daemon.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	token, err := config.Token(cfg.TrackerDir)
	if err != nil {
		return err
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("creating Discord session: %w", err)
	}
	// A one-shot pass only needs REST; no gateway connection.

	logger := log.New(os.Stderr, "", log.LstdFlags)
	threads := discord.New(session, cfg.ForumID, logger)
	trk := tracker.New(cfg.TrackerDir)

	coord := reconcile.New(trk, threads, reconcile.Config{
		TagMapPath:    cfg.TagMapFile,
		NoThreadLabel: cfg.NoThreadLabel,
	}, logger)

	counters := coord.Pass()
	fmt.Printf("created=%d renamed=%d archived=%d status_fixed=%d failures=%d\n",
		counters.ThreadsCreated, counters.NamesUpdated, counters.ThreadsArchived,
		counters.StatusFixed, counters.Failures)

	if counters.Failures > 0 {
		return fmt.Errorf("%d item(s) failed; see log output", counters.Failures)
	}
	return nil
}
