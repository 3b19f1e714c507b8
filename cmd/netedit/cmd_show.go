package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netedit/pkg/cli"
	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/topology"
)

var showMembers bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the interface rows of a node",
	Long: `Show the flattened rows of a node: one per link, or one per interface
without links. Aliases appear as <name>:<n>; bond and bridge members are
listed under their parent with --members.

Examples:
  netedit -N abc123 show
  netedit -f lab.yaml show --members
  netedit -N abc123 show --json`,
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
		g := topology.Flatten(snap)
		if app.jsonOutput {
			return writeJSON(os.Stdout, g.Rows())
		}

		fmt.Printf("Node: %s (%s)\n\n", cli.Bold(snap.Node.Hostname), snap.Node.SystemID)
		printRows(os.Stdout, g.Rows(), nil)
		return nil
	},
}

var vlansCmd = &cobra.Command{
	Use:   "vlans",
	Short: "Show the VLAN summary of a controller",
	Long: `Show every VLAN used by a controller's interfaces with its fabric and
subnets. The table is empty for nodes that are not controllers.`,
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
		table := topology.Flatten(snap).VLANTable()
		if app.jsonOutput {
			return writeJSON(os.Stdout, table)
		}
		if !snap.Node.IsController {
			fmt.Printf("%s is not a controller; no VLAN table.\n", snap.Node.Hostname)
			return nil
		}
		printVLANTable(os.Stdout, table)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showMembers, "members", false, "List bond and bridge members")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRows renders rows as a table. Selected rows are marked with '*'.
func printRows(w io.Writer, rows []*topology.Row, selected map[topology.RowKey]bool) {
	t := cli.NewTable("", "KEY", "NAME", "TYPE", "FABRIC", "VLAN", "SUBNET", "MODE", "IP ADDRESS")
	if w != os.Stdout {
		t.WithWriter(w)
	}
	for _, r := range rows {
		mark := ""
		if selected[r.Key()] {
			mark = cli.Bold("*")
		}
		name := r.Name
		if r.IsBoot {
			name += " " + cli.Dim("(boot)")
		}
		t.Row(mark, string(r.Key()), name, r.Type.Text(), fabricText(r.Fabric),
			cli.Or(r.VLAN.Text()), subnetText(r.Subnet), r.Mode.Text(), cli.Or(r.IPAddress))
		if showMembers {
			for _, m := range r.Members {
				t.Row("", "", "  "+cli.Dim("└ ")+m.Name, m.Type.Text(), "", cli.Or(m.VLAN.Text()), "", "", "")
			}
		}
	}
	t.Flush()
}

func printVLANTable(w io.Writer, table []topology.VLANTableEntry) {
	t := cli.NewTable("FABRIC", "VLAN", "SUBNETS")
	if w != os.Stdout {
		t.WithWriter(w)
	}
	for _, e := range table {
		cidrs := make([]string, 0, len(e.Subnets))
		for _, s := range e.Subnets {
			cidrs = append(cidrs, s.CIDR)
		}
		t.Row(fabricText(e.Fabric), e.VLAN.Text(), cli.Or(strings.Join(cidrs, ", ")))
	}
	t.Flush()
}

func fabricText(f *model.Fabric) string {
	if f == nil {
		return cli.Or("")
	}
	return f.Name
}

func subnetText(s *model.Subnet) string {
	if s == nil {
		return cli.Or("")
	}
	return s.CIDR
}
