package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridwise/streetquality/internal/adapter"
	"github.com/gridwise/streetquality/internal/pipeline"
	"github.com/gridwise/streetquality/internal/store"
)

var transferCmd = &cobra.Command{
	Use:   "transfer <region>",
	Short: "Transfer a trained model to a new region",
	Long: `Applies an existing model to a region it was not trained on and
writes the predicted quality streets to
<output-dir>/predicted_quality_<region>.csv.

By default the region name itself is the source, resolved as an OSM place
query; use --source to read the new region from a file or database
instead.

Examples:
  transfer "Moscow, Idaho" --model-region "Fulton, Missouri"
  transfer Bellingham --model models/street_quality_Fulton_Missouri.gob --source bellingham.shp`,
	Args: cobra.ExactArgs(1),
	RunE: runTransfer,
}

func init() {
	f := transferCmd.Flags()
	f.String("model", "", "path to a saved model bundle")
	f.String("model-region", "", "region of a saved model under the model directory")
	f.String("source", "", "data source for the new region (default: the region as a place query)")
	f.String("type", "", "adapter name, overriding source pattern detection")
	f.String("config-json", "", "adapter configuration as inline JSON")
	f.String("network-type", "", "street network type for OSM sources: drive, walk, bike, all")
	f.Float64("threshold", 0, "probability threshold for the quality class (default 0.5)")

	rootCmd.AddCommand(transferCmd)
}

func runTransfer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	region := args[0]
	source, _ := cmd.Flags().GetString("source")
	adapterType, _ := cmd.Flags().GetString("type")
	networkType, _ := cmd.Flags().GetString("network-type")
	threshold, _ := cmd.Flags().GetFloat64("threshold")

	modelPath, err := resolveModelPath(cmd)
	if err != nil {
		return err
	}

	rawCfg, err := adapterConfigJSON(cmd, adapterType)
	if err != nil {
		return err
	}

	rec := startRun(ctx, "transfer", region, source, adapterType)

	result, err := pipeline.Transfer(ctx, adapter.NewDefaultRegistry(), pipeline.TransferOptions{
		ModelPath:     modelPath,
		Region:        region,
		Source:        source,
		AdapterType:   adapterType,
		AdapterConfig: rawCfg,
		NetworkType:   networkType,
		Threshold:     threshold,
		OutputDir:     cfg.Output.Dir,
	})
	if err != nil {
		rec.finish(ctx, nil, err)
		return err
	}

	quality := 0
	for _, p := range result.Predictions {
		if p.Predicted == 1 {
			quality++
		}
	}
	rec.finish(ctx, &store.RunSummary{
		Edges:        result.Table.Len(),
		QualityCount: quality,
		ModelPath:    modelPath,
		OutputPath:   result.OutputPath,
	}, nil)

	fmt.Printf("Predicted %d quality streets out of %d edges in %s\n", quality, result.Table.Len(), region)
	fmt.Printf("Results written to %s\n", result.OutputPath)
	return nil
}
