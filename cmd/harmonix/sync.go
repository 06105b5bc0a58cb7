package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var forceSync bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Publish slash command definitions and exit",
	Long:  "Publishes slash command definitions to the guilds in DISCORD_GUILDS, or globally when PUBLIC_APP is set, without connecting to the gateway.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, log, closer, err := setup()
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(withBackground(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report := b.SyncCommands(ctx, forceSync)
		out := cmd.OutOrStdout()
		for _, res := range report.Results {
			target := res.GuildID
			if target == "" {
				target = "global"
			}
			switch {
			case res.Err != nil:
				fmt.Fprintf(out, "%-20s failed: %v\n", target, res.Err)
			case res.Skipped:
				fmt.Fprintf(out, "%-20s unchanged\n", target)
			default:
				fmt.Fprintf(out, "%-20s %d commands\n", target, res.Commands)
			}
		}
		log.Info().Int("targets", len(report.Results)).Int("synced", report.Synced()).Msg("command sync finished")
		return report.Err()
	},
}

func init() {
	syncCmd.Flags().BoolVar(&forceSync, "force", false, "publish even if definitions look unchanged")
	rootCmd.AddCommand(syncCmd)
}
