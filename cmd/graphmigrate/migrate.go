package main

import (
	"context"
	"fmt"

	"github.com/loykin/graphmigrate"
	"github.com/loykin/graphmigrate/internal/pool"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply all pending schema migrations to a backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		side := backendFlag(cmd)

		doc, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		mgr := pool.NewManager()
		defer mgr.CloseAll()

		ad, closeFn, err := openSide(ctx, mgr, doc, side)
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := graphmigrate.MigrateUp(ctx, ad)
		if err != nil {
			if res.Applied > 0 {
				fmt.Printf("applied %d migration(s) before failure, now at v%d\n", res.Applied, res.NewVersion)
			}
			return err
		}
		if res.Applied == 0 {
			fmt.Printf("%s backend already at v%d, nothing to apply\n", side, res.NewVersion)
			return nil
		}
		for _, m := range res.AppliedList {
			fmt.Printf("applied v%d: %s\n", m.Version, m.Description)
		}
		fmt.Printf("%s backend migrated to v%d\n", side, res.NewVersion)
		return nil
	},
}
