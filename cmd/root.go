package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridwise/streetquality/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "streetquality",
	Short: "Street network quality analysis pipeline",
	Long:  "Extracts street networks from OSM, shapefiles, GeoJSON, or PostGIS into a canonical edge table, flags narrow quality streets by rule, and trains models that transfer those labels to new regions.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
