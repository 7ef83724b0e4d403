package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridwise/streetquality/internal/pipeline"
	"github.com/gridwise/streetquality/internal/store"
)

var applyCmd = &cobra.Command{
	Use:   "apply <source>",
	Short: "Apply a trained model to a street network",
	Long: `Extracts a street network and scores every edge with a previously
trained model. Pass the model by path, or by the region it was trained on
to resolve it under the model directory.

Examples:
  apply streets.geojson --model models/street_quality_Fulton_Missouri.gob
  apply "Moscow, Idaho" --model-region "Fulton, Missouri" --threshold 0.6`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	f := applyCmd.Flags()
	f.String("model", "", "path to a saved model bundle")
	f.String("model-region", "", "region of a saved model under the model directory")
	f.String("type", "", "adapter name, overriding source pattern detection")
	f.String("config-json", "", "adapter configuration as inline JSON")
	f.Float64("threshold", 0, "probability threshold for the quality class (default 0.5)")
	f.String("output", "", "write predicted quality edges to this CSV path")

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := args[0]
	adapterType, _ := cmd.Flags().GetString("type")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	output, _ := cmd.Flags().GetString("output")

	modelPath, err := resolveModelPath(cmd)
	if err != nil {
		return err
	}

	rawCfg, err := adapterConfigJSON(cmd, adapterType)
	if err != nil {
		return err
	}

	rec := startRun(ctx, "apply", "", source, adapterType)
	runErr := func() error {
		bundle, err := pipeline.LoadModel(modelPath)
		if err != nil {
			return err
		}

		table, err := newRegistryExtract(ctx, source, adapterType, rawCfg)
		if err != nil {
			return err
		}

		preds, err := pipeline.Apply(bundle, table, threshold)
		if err != nil {
			return err
		}

		quality := 0
		for _, p := range preds {
			if p.Predicted == 1 {
				quality++
			}
		}

		summary := &store.RunSummary{Edges: table.Len(), QualityCount: quality, ModelPath: modelPath}
		if output != "" {
			if err := pipeline.ExportPredictions(table, preds, output); err != nil {
				return err
			}
			summary.OutputPath = output
		}
		rec.finish(ctx, summary, nil)

		fmt.Printf("Predicted %d quality streets out of %d edges\n", quality, table.Len())
		return nil
	}()
	if runErr != nil {
		rec.finish(ctx, nil, runErr)
	}
	return runErr
}

func resolveModelPath(cmd *cobra.Command) (string, error) {
	modelPath, _ := cmd.Flags().GetString("model")
	modelRegion, _ := cmd.Flags().GetString("model-region")

	switch {
	case modelPath != "" && modelRegion != "":
		return "", fmt.Errorf("--model and --model-region are mutually exclusive")
	case modelPath != "":
		return modelPath, nil
	case modelRegion != "":
		return filepath.Join(cfg.Model.Dir, pipeline.ModelFilename(modelRegion)), nil
	}
	return "", fmt.Errorf("one of --model or --model-region is required")
}
