package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/keshon/harmonix/internal/bot"
	"github.com/keshon/harmonix/internal/commands"
	"github.com/keshon/harmonix/internal/config"
	"github.com/keshon/harmonix/internal/logging"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:           "harmonix",
	Short:         "Discord bot with slash and prefix commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the gateway and serve commands",
	RunE:  runBot,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "dotenv files to load (default .env)")
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads config and builds the logger and the bot.
func setup() (*bot.Bot, zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}

	log, closer, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("init logger: %w", err)
	}

	b, err := bot.New(cfg, commands.Units(), log)
	if err != nil {
		closer.Close()
		return nil, zerolog.Nop(), nil, err
	}
	return b, log, closer, nil
}

func runBot(cmd *cobra.Command, _ []string) error {
	b, log, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(withBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Strs("plugins", b.Plugins()).Msg("starting bot")
	if err := b.Run(ctx); err != nil {
		log.Error().Err(err).Msg("bot stopped")
		return err
	}
	log.Info().Msg("bot exited cleanly")
	return nil
}

func withBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
