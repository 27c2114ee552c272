package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/samwel-gachiri/digital-sales-agent/internal/loadtest"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

func newLoadtestCmd() *cobra.Command {
	cfg := &loadtest.Config{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive a running server and verify its leaderboard",
		Long: `Loadtest creates generated prospects on a running server, submits
conversation notes for each of them, waits for scoring to finish and
checks every score and the /leads ordering against locally computed
values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Verbose {
				_ = logger.SetLevelString("debug")
			}
			log := logger.Named("loadtest")
			_, err := loadtest.Run(cmd.Context(), cfg, log)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVarP(&cfg.NumProspects, "prospects", "n", 1000, "number of prospects to generate")
	f.IntVar(&cfg.TopN, "top", 20, "number of leads to fetch from /leads")
	f.IntVarP(&cfg.Workers, "workers", "w", 16, "number of concurrent HTTP workers")
	f.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "HTTP request timeout")
	f.DurationVar(&cfg.DrainTimeout, "drain-timeout", 30*time.Second, "how long to wait for scoring to finish")
	f.IntVar(&cfg.DuplicateEvery, "duplicate-every", 0, "resubmit every Nth score request; 0 disables")
	f.Uint64Var(&cfg.Seed, "seed", 0, "generator seed; 0 picks one from the clock")
	f.StringVar(&cfg.OutputFile, "save", "", "write generated prospects to this file")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every failed request")
	return cmd
}
