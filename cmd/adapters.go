package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gridwise/streetquality/internal/adapter"
)

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List registered geodata adapters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg := adapter.NewDefaultRegistry()
		list := reg.List()

		names := make([]string, 0, len(list))
		for name := range list {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFORMATS")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\n", name, strings.Join(list[name], ", "))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(adaptersCmd)
}
