package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "leadctl",
		Short: "BANT lead scoring tools",
		Long: `leadctl works with BANT lead scores.

Use "score" to rank a JSON file of prospects without a server, and
"loadtest" to drive a running server and check its leaderboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(
				logger.WithFormat(opts.logFormat),
				logger.WithOutput(cmd.ErrOrStderr()),
				logger.WithSource(false),
			); err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}
			return logger.SetLevelString(opts.logLevel)
		},
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")

	root.AddCommand(newScoreCmd(), newLoadtestCmd())
	return root
}
