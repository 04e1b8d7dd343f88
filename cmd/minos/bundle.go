package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/minos/pkg/precedent"
	"mercator-hq/minos/pkg/privacy"
	"mercator-hq/minos/pkg/verdict"
)

var bundleFlags struct {
	k       int
	verdict string
	since   string
	limit   int
	output  string
}

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Export a k-anonymous precedent bundle",
	Long: `Build a k-anonymous bundle from stored precedents for external sharing.

Direct identifiers are redacted and quasi-identifiers (date, location, age)
are generalized until every record is indistinguishable from at least k-1
others in its cluster.

Examples:
  # Bundle everything with k=5
  minos bundle --k 5

  # Bundle recent blocks into a file
  minos bundle --k 10 --verdict BLOCK --since 2026-06-01 -o bundle.json`,
	RunE: runBundle,
}

func init() {
	rootCmd.AddCommand(bundleCmd)

	bundleCmd.Flags().IntVar(&bundleFlags.k, "k", 5, "anonymity parameter")
	bundleCmd.Flags().StringVar(&bundleFlags.verdict, "verdict", "", "filter by verdict")
	bundleCmd.Flags().StringVar(&bundleFlags.since, "since", "", "only precedents on or after this date")
	bundleCmd.Flags().IntVar(&bundleFlags.limit, "limit", 0, "maximum precedents to bundle (0 = all)")
	bundleCmd.Flags().StringVarP(&bundleFlags.output, "output", "o", "", "write JSON to file instead of stdout")
}

func runBundle(cmd *cobra.Command, args []string) error {
	system, cfg, logger, err := openSystem()
	if err != nil {
		return err
	}
	defer system.Close()

	q := &precedent.Query{Limit: bundleFlags.limit}
	if bundleFlags.verdict != "" {
		v, err := verdict.ParseVerdict(bundleFlags.verdict)
		if err != nil {
			return err
		}
		q.Verdict = v
	}
	if bundleFlags.since != "" {
		since, err := parseDate(bundleFlags.since)
		if err != nil {
			return err
		}
		q.Since = since
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	precedents, err := system.Precedents.Query(ctx, q)
	if err != nil {
		return err
	}

	bundler := privacy.NewBundler(&cfg.Privacy, logger.With("component", "privacy"))
	bundle, err := bundler.CreateAnonymousBundle(precedents, bundleFlags.k)
	if err != nil {
		return err
	}

	return writeJSON(bundle, bundleFlags.output)
}
