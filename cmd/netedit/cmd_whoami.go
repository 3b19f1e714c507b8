package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netedit/pkg/auth"
	"github.com/newtron-network/netedit/pkg/cli"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current user's groups and permissions",
	Long: `Show who netedit acts as, the policy groups they are in, and which
permissions they hold. With -N, node-specific grants are included.

Examples:
  netedit whoami
  netedit -N abc123 whoami --policy /etc/netedit/policy.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user := app.checker.CurrentUser()
		ctx := auth.NewContext()
		if app.nodeID != "" {
			ctx.WithNode(app.nodeID)
		}

		type grant struct {
			Permission  auth.Permission `json:"permission"`
			Description string          `json:"description"`
			Granted     bool            `json:"granted"`
		}
		grants := make([]grant, 0, len(auth.Permissions))
		for _, p := range auth.Permissions {
			grants = append(grants, grant{
				Permission:  p.Permission,
				Description: p.Description,
				Granted:     app.checker.CheckUser(user, p.Permission, ctx) == nil,
			})
		}

		if app.jsonOutput {
			return writeJSON(os.Stdout, map[string]any{
				"user":       user,
				"node":       ctx.Node,
				"super_user": app.checker.IsSuperUser(),
				"groups":     app.checker.GetUserGroups(user),
				"grants":     grants,
			})
		}

		fmt.Printf("User:   %s\n", cli.Bold(user))
		if app.checker.IsSuperUser() {
			fmt.Printf("Groups: %s\n", cli.Green("superuser"))
		} else {
			fmt.Printf("Groups: %s\n", cli.Or(strings.Join(app.checker.GetUserGroups(user), ", ")))
		}
		if ctx.Node != "" {
			fmt.Printf("Node:   %s\n", ctx.Node)
		}
		fmt.Println()

		t := cli.NewTable("PERMISSION", "GRANTED", "ALLOWS")
		for _, g := range grants {
			t.Row(string(g.Permission), cli.Check(g.Granted), g.Description)
		}
		t.Flush()
		return nil
	},
}
