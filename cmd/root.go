package main

import (
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/luca-patrignani/hangouts/config"
)

// rootOptions is filled before any subcommand runs.
type rootOptions struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewRootCommand creates the hangouts command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "hangouts",
		Short: "Claim squares on a shared board with up to four players",
		Long: `Every player keeps its own copy of a 16x16 board. Moves are signed,
broadcast to everyone and applied only by the player whose turn it is.

Settings are read from HANGOUTS_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level, err := cfg.Level()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			// Create a new slog handler with the default PTerm logger
			handler := pterm.NewSlogHandler(pterm.DefaultLogger.WithLevel(ptermLevel(level)).WithWriter(cmd.ErrOrStderr()))
			opts.logger = slog.New(handler)
			return nil
		},
	}

	cmd.AddCommand(newSimulateCommand(opts))
	cmd.AddCommand(newPlayCommand(opts))

	return cmd
}

func ptermLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case level <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case level <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}
