package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/scoring"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

var errUnknownFormat = errors.New("unknown output format")

type scoreOptions struct {
	format string
	top    int
}

func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score FILE",
		Short: "Score and rank prospects from a JSON file",
		Long: `Score reads prospects from FILE ("-" for stdin) and prints them ranked
by overall BANT score. The file holds either an array of prospects or an
object with a "prospects" array. Each prospect may carry "id",
"company_data", "primary_contact" and "conversation_data".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "output", "o", "table", "output format (table, json)")
	cmd.Flags().IntVar(&opts.top, "top", 0, "print only the N best prospects; 0 prints all")
	return cmd
}

func runScore(cmd *cobra.Command, path string, opts *scoreOptions) error {
	data, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}
	prospects, err := decodeProspects(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	log := logger.Named("score")
	scorer := scoring.New(scoring.WithLogger(log))
	ranked := scorer.BatchScoreMaps(cmd.Context(), prospects)
	log.Info(cmd.Context(), "prospects scored", logger.Int("count", len(ranked)))

	if opts.top > 0 && opts.top < len(ranked) {
		ranked = ranked[:opts.top]
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(opts.format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	case "table":
		return writeTable(out, ranked)
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, opts.format)
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// decodeProspects accepts a bare array or a {"prospects": [...]} wrapper.
func decodeProspects(data []byte) ([]map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []map[string]any
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var wrapped struct {
		Prospects []map[string]any `json:"prospects"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Prospects, nil
}

func writeTable(w io.Writer, ranked []scoring.Ranked) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tBUDGET\tAUTHORITY\tNEED\tTIMELINE\tOVERALL\tCATEGORY")
	for i, r := range ranked {
		s := r.Score
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.2f\t%s\n",
			i+1, r.ID, s.Budget(), s.Authority(), s.Need(), s.Timeline(), s.Overall(), s.Category())
	}
	return tw.Flush()
}
