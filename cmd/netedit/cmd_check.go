package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netedit/pkg/cli"
	"github.com/newtron-network/netedit/pkg/health"
)

var checkCmd = &cobra.Command{
	Use:   "check [check-name]",
	Short: "Check a node's snapshot for inconsistencies",
	Long: `Check a node for dangling references, address conflicts, malformed
bonds and bridges, and boot interface problems.

Checks: references, addresses, composites, boot

Examples:
  netedit -N abc123 check
  netedit -N abc123 check addresses`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		b, err := app.connect(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		snap, err := b.Source.Snapshot(ctx, app.nodeID)
		if err != nil {
			return err
		}

		checker := health.NewChecker()
		var results []health.Result
		if len(args) == 1 {
			result, err := checker.RunCheck(snap, args[0])
			if err != nil {
				return err
			}
			results = []health.Result{*result}
		} else {
			report := checker.Run(snap)
			if app.jsonOutput {
				return writeJSON(os.Stdout, report)
			}
			results = report.Results
		}
		if app.jsonOutput {
			return writeJSON(os.Stdout, results)
		}

		for _, r := range results {
			fmt.Printf("%s %s\n", cli.DotPad(r.Check, 20), cli.Severity(string(r.Status)))
			if len(r.Problems) > 0 {
				fmt.Println("  " + strings.Join(r.Problems, "\n  "))
			}
		}
		return nil
	},
}
