package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/loykin/graphmigrate"
	"github.com/loykin/graphmigrate/internal/pool"
	"github.com/spf13/cobra"
)

// rollbackTarget resolves the destination version from the positional
// argument, falling back to the --to flag when none is given.
func rollbackTarget(cmd *cobra.Command, args []string) (int, error) {
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid rollback version %q (want a non-negative integer)", args[0])
		}
		return n, nil
	}
	return cmd.Flags().GetInt("to")
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback [version]",
	Short: "Roll back applied migrations down to a target version",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		side := backendFlag(cmd)
		to, err := rollbackTarget(cmd, args)
		if err != nil {
			return err
		}

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

		res, err := graphmigrate.MigrateDown(ctx, ad, to)
		if err != nil {
			if res.RolledBack > 0 {
				fmt.Printf("rolled back %d migration(s) before failure, now at v%d\n", res.RolledBack, res.NewVersion)
			}
			return err
		}
		if res.RolledBack == 0 {
			fmt.Printf("%s backend already at v%d, nothing to roll back\n", side, res.NewVersion)
			return nil
		}
		for _, m := range res.RolledBackList {
			fmt.Printf("rolled back v%d: %s\n", m.Version, m.Description)
		}
		fmt.Printf("%s backend rolled back to v%d\n", side, res.NewVersion)
		return nil
	},
}
