package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridwise/streetquality/internal/pipeline"
	"github.com/gridwise/streetquality/internal/scoring"
	"github.com/gridwise/streetquality/internal/store"
)

var trainCmd = &cobra.Command{
	Use:   "train <source>",
	Short: "Train a street-quality classifier on a region",
	Long: `Extracts a street network, derives rule-based quality labels, and
trains a random forest to reproduce them from the available features. The
model is evaluated on a held-out split and saved under the model
directory as street_quality_<region>.gob.

Examples:
  train "Fulton, Missouri" --region "Fulton, Missouri"
  train streets.shp --region Bellingham --trees 200 --analyze-features`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

func init() {
	f := trainCmd.Flags()
	f.String("region", "", "region name embedded in model metadata (required)")
	f.String("type", "", "adapter name, overriding source pattern detection")
	f.String("config-json", "", "adapter configuration as inline JSON")
	f.Int("trees", 0, "forest size (0=use config default)")
	f.Float64("test-fraction", 0, "held-out fraction (0=use config default)")
	f.Int64("seed", 0, "split seed (0=use config default)")
	f.Bool("analyze-features", false, "print per-class feature statistics")
	_ = trainCmd.MarkFlagRequired("region")

	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := args[0]
	region, _ := cmd.Flags().GetString("region")
	adapterType, _ := cmd.Flags().GetString("type")
	analyze, _ := cmd.Flags().GetBool("analyze-features")

	opts := trainOptions(cmd)

	rawCfg, err := adapterConfigJSON(cmd, adapterType)
	if err != nil {
		return err
	}

	rec := startRun(ctx, "train", region, source, adapterType)
	runErr := func() error {
		table, err := newRegistryExtract(ctx, source, adapterType, rawCfg)
		if err != nil {
			return err
		}

		labels := scoring.Score(table)
		ds := pipeline.Prepare(table, labels, "is_quality")

		if analyze {
			printFeatureSummaries(pipeline.AnalyzeFeatures(ds), ds.Features)
		}

		m, testRows, testY, err := pipeline.Train(ds, opts)
		if err != nil {
			return err
		}

		metrics, err := pipeline.Evaluate(m, testRows, testY, opts.Seed)
		if err != nil {
			return err
		}
		printMetrics(metrics, m.Features)

		path, err := pipeline.SaveModel(m, region, cfg.Model.Dir)
		if err != nil {
			return err
		}
		fmt.Printf("Model saved to %s\n", path)

		rec.finish(ctx, &store.RunSummary{
			Edges:        table.Len(),
			QualityCount: len(scoring.QualityIndices(labels)),
			Accuracy:     &metrics.Accuracy,
			ROCAUC:       metrics.ROCAUC,
			ModelPath:    path,
			Features:     m.Features,
		}, nil)
		return nil
	}()
	if runErr != nil {
		rec.finish(ctx, nil, runErr)
	}
	return runErr
}

func trainOptions(cmd *cobra.Command) pipeline.TrainOptions {
	opts := pipeline.TrainOptions{
		Trees:        cfg.Model.Trees,
		TestFraction: cfg.Model.TestFraction,
		Seed:         cfg.Model.Seed,
	}
	if v, _ := cmd.Flags().GetInt("trees"); v > 0 {
		opts.Trees = v
	}
	if v, _ := cmd.Flags().GetFloat64("test-fraction"); v > 0 {
		opts.TestFraction = v
	}
	if v, _ := cmd.Flags().GetInt64("seed"); v != 0 {
		opts.Seed = v
	}
	return opts
}

func printMetrics(m *pipeline.Metrics, features []string) {
	fmt.Printf("Accuracy: %.3f\n", m.Accuracy)
	if m.ROCAUC != nil {
		fmt.Printf("ROC-AUC:  %.3f\n", *m.ROCAUC)
	}
	for _, class := range []int{0, 1} {
		cm := m.PerClass[class]
		fmt.Printf("Class %d: precision %.3f, recall %.3f, f1 %.3f (n=%d)\n",
			class, cm.Precision, cm.Recall, cm.F1, cm.Support)
	}
	fmt.Println("Feature importance:")
	for _, f := range features {
		fmt.Printf("  %-10s %+.4f\n", f, m.FeatureImportance[f])
	}
}

func printFeatureSummaries(summaries map[string]pipeline.FeatureSummary, features []string) {
	for _, f := range features {
		s := summaries[f]
		fmt.Printf("%s:\n", f)
		if s.Numeric {
			for _, class := range []int{0, 1} {
				if st, ok := s.ByClass[class]; ok {
					fmt.Printf("  class %d: n=%d mean=%.2f median=%.2f std=%.2f\n",
						class, st.Count, st.Mean, st.Median, st.Std)
				}
			}
			continue
		}
		vals := make([]string, 0, len(s.Frequencies))
		for v := range s.Frequencies {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		for _, v := range vals {
			fmt.Printf("  %-16s class0=%d class1=%d\n", v, s.Frequencies[v][0], s.Frequencies[v][1])
		}
	}
}
