package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netedit/pkg/source"
)

var seedCmd = &cobra.Command{
	Use:   "seed <fixture.yaml>",
	Short: "Load a fixture into Redis",
	Long: `Write the node, interfaces, VLANs, fabrics and subnets of a YAML
fixture into Redis, replacing what the node had there. Useful for labs and
for tests against a real Redis.

Examples:
  netedit seed testdata/node.yaml
  netedit --redis 10.0.0.5:6379 seed lab.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		snap, err := source.LoadFixture(args[0])
		if err != nil {
			return err
		}

		db := source.NewRedisDB(app.redisAddr, app.redisDB)
		if err := db.Connect(ctx); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", app.redisAddr, err)
		}
		defer db.Close()

		if err := db.WriteSnapshot(ctx, snap); err != nil {
			return err
		}
		fmt.Printf("Seeded %s (%s): %d interfaces\n", snap.Node.Hostname, snap.Node.SystemID, len(snap.Interfaces))
		return nil
	},
}
