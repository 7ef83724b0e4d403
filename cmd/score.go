package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridwise/streetquality/internal/pipeline"
	"github.com/gridwise/streetquality/internal/scoring"
	"github.com/gridwise/streetquality/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score <source>",
	Short: "Flag narrow quality streets by rule",
	Long: `Extracts a street network and scores every edge against the
narrowness criteria: width under 6, a single lane, a minor highway class,
alley service type, and maxspeed under 30. An edge meeting any criterion
is flagged quality; the score is the fraction of criteria met.

Examples:
  score "Fulton, Missouri" --output scored.csv
  score streets.shp --type shapefile`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("type", "", "adapter name, overriding source pattern detection")
	f.String("config-json", "", "adapter configuration as inline JSON")
	f.String("output", "", "write scored edges to this CSV path")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := args[0]
	adapterType, _ := cmd.Flags().GetString("type")
	output, _ := cmd.Flags().GetString("output")

	rawCfg, err := adapterConfigJSON(cmd, adapterType)
	if err != nil {
		return err
	}

	rec := startRun(ctx, "score", "", source, adapterType)

	table, err := newRegistryExtract(ctx, source, adapterType, rawCfg)
	if err != nil {
		rec.finish(ctx, nil, err)
		return err
	}

	labels := scoring.Score(table)
	quality := len(scoring.QualityIndices(labels))

	summary := &store.RunSummary{Edges: table.Len(), QualityCount: quality}
	if output != "" {
		if err := pipeline.ExportScored(table, labels, output); err != nil {
			rec.finish(ctx, nil, err)
			return err
		}
		summary.OutputPath = output
		zap.L().Info("scored edges written", zap.String("path", output))
	}
	rec.finish(ctx, summary, nil)

	fmt.Printf("Flagged %d quality streets out of %d edges\n", quality, table.Len())
	return nil
}
