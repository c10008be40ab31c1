package main

import (
	"context"
	"fmt"

	"github.com/loykin/graphmigrate"
	"github.com/loykin/graphmigrate/internal/pool"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compare record counts between the source and target backends",
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

		report, err := graphmigrate.Validate(ctx, source, target)
		if err != nil {
			return err
		}

		fmt.Printf("source: nodes=%d edges=%d documents=%d chunks=%d\n",
			report.SourceStats.Nodes, report.SourceStats.Edges, report.SourceStats.Documents, report.SourceStats.Chunks)
		fmt.Printf("target: nodes=%d edges=%d documents=%d chunks=%d\n",
			report.TargetStats.Nodes, report.TargetStats.Edges, report.TargetStats.Documents, report.TargetStats.Chunks)
		for _, w := range report.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		for _, e := range report.Errors {
			fmt.Printf("error: %s\n", e)
		}
		if !report.Valid {
			return fmt.Errorf("validation failed with %d error(s)", len(report.Errors))
		}
		fmt.Println("validation passed")
		return nil
	},
}
