package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gridwise/streetquality/internal/pipeline"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List trained models in the model directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		infos, err := pipeline.DiscoverModels(cfg.Model.Dir)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Fprintln(os.Stderr, "No models found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "REGION\tCREATED\tFEATURES\tFILE")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				info.Region, info.CreationDate, strings.Join(info.Features, ","), info.Filename)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
