package main

import (
	"context"
	"fmt"

	"github.com/loykin/graphmigrate"
	"github.com/loykin/graphmigrate/internal/pool"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a backend's current version and pending migrations",
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

		info, err := graphmigrate.Status(ctx, ad)
		if err != nil {
			return err
		}

		fmt.Printf("backend: %s (%s)\n", side, info.Backend)
		fmt.Printf("current version: v%d\n", info.CurrentVersion)
		if len(info.Applied) == 0 {
			fmt.Println("applied: none")
		} else {
			fmt.Println("applied:")
			for _, e := range info.Applied {
				fmt.Printf("  v%d  %s  (%s)\n", e.Version, e.Description, e.AppliedAt.Format("2006-01-02 15:04:05 MST"))
			}
		}
		if len(info.Pending) == 0 {
			fmt.Println("pending: none")
		} else {
			fmt.Println("pending:")
			for _, p := range info.Pending {
				fmt.Printf("  v%d  %s\n", p.Version, p.Description)
			}
		}
		return nil
	},
}
