package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netedit/pkg/audit"
	"github.com/newtron-network/netedit/pkg/auth"
	"github.com/newtron-network/netedit/pkg/cli"
)

var (
	auditUser     string
	auditSince    string
	auditLast     int
	auditLimit    int
	auditFailures bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the commit audit log",
	Long: `View the audit log of commits. Every commit attempt is recorded with
the user, node, operation, changes and outcome.

Examples:
  netedit audit --last 20
  netedit -N abc123 audit --since 24h
  netedit audit --user alice --failures`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Only an explicit -N filters; the settings default does not.
		var auditNode string
		if cmd.Flags().Changed("node") {
			auditNode = app.nodeID
		}
		if err := app.checker.Check(auth.PermAuditView, auth.NewContext().WithNode(auditNode)); err != nil {
			return err
		}

		filter := audit.Filter{
			Node:        auditNode,
			User:        auditUser,
			Last:        auditLast,
			Limit:       auditLimit,
			FailureOnly: auditFailures,
		}
		if auditSince != "" {
			d, err := time.ParseDuration(auditSince)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditSince)
			}
			filter.StartTime = time.Now().Add(-d)
		}

		events, err := audit.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}
		if app.jsonOutput {
			return writeJSON(os.Stdout, events)
		}
		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "USER", "NODE", "OPERATION", "CHANGES", "STATUS")
		for _, e := range events {
			status := cli.Green("ok")
			switch {
			case e.DryRun:
				status = cli.Yellow("dry-run")
			case !e.Success:
				status = cli.Red("failed: " + e.Error)
			}
			t.Row(e.Timestamp.Format("2006-01-02 15:04:05"), e.User, e.Node, e.Operation,
				fmt.Sprint(len(e.Changes)), status)
		}
		t.Flush()
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditUser, "user", "", "Filter by user")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "Show events from the last duration (e.g., 24h)")
	auditCmd.Flags().IntVar(&auditLast, "last", 0, "Show only the newest N events")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed commits")
}
