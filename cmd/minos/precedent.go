package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/minos/pkg/config"
	"mercator-hq/minos/pkg/decision"
	"mercator-hq/minos/pkg/precedent"
	"mercator-hq/minos/pkg/precedent/search"
	"mercator-hq/minos/pkg/verdict"
)

var precedentFlags struct {
	verdict       string
	minConfidence float64
	since         string
	limit         int
	offset        int
	output        string

	topK          int
	minSimilarity float64
	mode          string
}

var precedentCmd = &cobra.Command{
	Use:   "precedent",
	Short: "Query the precedent store",
	Long: `Query and export stored precedents.

Subcommands:
  query    - List precedents matching filters
  similar  - Find precedents similar to an input
  get      - Show one precedent by id

Examples:
  # Recent blocks
  minos precedent query --verdict BLOCK --limit 20

  # High-confidence decisions since a date
  minos precedent query --min-confidence 0.8 --since 2026-01-01

  # Semantic neighbors of an input
  minos precedent similar "delete the customer database" --top-k 5`,
}

var precedentQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List precedents matching filters",
	RunE:  runPrecedentQuery,
}

var precedentSimilarCmd = &cobra.Command{
	Use:   "similar [text]",
	Short: "Find precedents similar to an input",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrecedentSimilar,
}

var precedentGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one precedent by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrecedentGet,
}

func init() {
	rootCmd.AddCommand(precedentCmd)
	precedentCmd.AddCommand(precedentQueryCmd, precedentSimilarCmd, precedentGetCmd)

	precedentQueryCmd.Flags().StringVar(&precedentFlags.verdict, "verdict", "", "filter by verdict (ALLOW, BLOCK, REVIEW, ESCALATE)")
	precedentQueryCmd.Flags().Float64Var(&precedentFlags.minConfidence, "min-confidence", 0, "minimum confidence")
	precedentQueryCmd.Flags().StringVar(&precedentFlags.since, "since", "", "only precedents on or after this date (RFC 3339 or YYYY-MM-DD)")
	precedentQueryCmd.Flags().IntVar(&precedentFlags.limit, "limit", 50, "maximum results")
	precedentQueryCmd.Flags().IntVar(&precedentFlags.offset, "offset", 0, "skip the first N results")
	precedentQueryCmd.Flags().StringVarP(&precedentFlags.output, "output", "o", "", "write JSON to file instead of stdout")

	precedentSimilarCmd.Flags().IntVar(&precedentFlags.topK, "top-k", 10, "maximum results")
	precedentSimilarCmd.Flags().Float64Var(&precedentFlags.minSimilarity, "min-similarity", 0.5, "minimum semantic similarity")
	precedentSimilarCmd.Flags().StringVar(&precedentFlags.mode, "mode", "", "search mode (exact, semantic, hybrid)")
	precedentSimilarCmd.Flags().StringArrayVar(&decideFlags.context, "ctx", nil, "request context attribute as key=value (repeatable)")
}

// openSystem builds the precedent service against the configured store.
func openSystem() (*decision.System, *config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(cfg)
	system, err := decision.Build(cfg, nil, nil, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return system, cfg, logger, nil
}

func runPrecedentQuery(cmd *cobra.Command, args []string) error {
	system, _, _, err := openSystem()
	if err != nil {
		return err
	}
	defer system.Close()

	q := &precedent.Query{
		MinConfidence: precedentFlags.minConfidence,
		Limit:         precedentFlags.limit,
		Offset:        precedentFlags.offset,
	}
	if precedentFlags.verdict != "" {
		v, err := verdict.ParseVerdict(precedentFlags.verdict)
		if err != nil {
			return err
		}
		q.Verdict = v
	}
	if precedentFlags.since != "" {
		since, err := parseDate(precedentFlags.since)
		if err != nil {
			return err
		}
		q.Since = since
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := system.Precedents.Query(ctx, q)
	if err != nil {
		return err
	}
	return writeJSON(results, precedentFlags.output)
}

func runPrecedentSimilar(cmd *cobra.Command, args []string) error {
	system, _, _, err := openSystem()
	if err != nil {
		return err
	}
	defer system.Close()

	reqContext, err := parseContextFlags(decideFlags.context)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := system.Precedents.RebuildIndex(ctx); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	results, err := system.Precedents.FindSimilar(ctx, &search.Case{
		InputText: args[0],
		Context:   reqContext,
	}, precedentFlags.topK, precedentFlags.minSimilarity, search.Mode(precedentFlags.mode))
	if err != nil {
		return err
	}
	return writeJSON(results, "")
}

func runPrecedentGet(cmd *cobra.Command, args []string) error {
	system, _, _, err := openSystem()
	if err != nil {
		return err
	}
	defer system.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := system.Precedents.Get(ctx, args[0])
	if err != nil {
		return err
	}
	return writeJSON(p, "")
}

// parseDate accepts RFC 3339 timestamps and bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func writeJSON(v any, path string) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
