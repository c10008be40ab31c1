package main

import (
	"context"
	"fmt"
	"time"

	"github.com/loykin/graphmigrate"
	"github.com/loykin/graphmigrate/internal/pool"
	"github.com/spf13/cobra"
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Copy nodes, edges, documents and vector chunks from source to target",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		mgr := pool.NewManager()
		defer mgr.CloseAll()

		source, closeSrc, err := openSide(ctx, mgr, doc, "source")
		if err != nil {
			return err
		}
		defer closeSrc()

		target, closeTgt, err := openSide(ctx, mgr, doc, "target")
		if err != nil {
			return err
		}
		defer closeTgt()

		results := graphmigrate.Transfer(ctx, source, target, nil)

		failed := 0
		for _, r := range results {
			state := "ok"
			if !r.Success {
				state = "failed"
				failed++
			}
			fmt.Printf("%-10s %-6s records=%d duration=%s\n", r.Operation, state, r.RecordsTransferred, r.Duration.Round(time.Millisecond))
			for _, e := range r.Errors {
				fmt.Printf("  error: %s\n", e)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d transfer operations failed", failed, len(results))
		}
		fmt.Println("transfer completed successfully")
		return nil
	},
}
