package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facefilter/pkg/filter"
)

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List available filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		printFilters(catalog.List())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filtersCmd)
}

func printFilters(filters []*filter.Filter) {
	if len(filters) == 0 {
		fmt.Println("No filters found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tOVERLAYS\tASSETS")
	fmt.Fprintln(w, "--\t----\t--------\t------")

	for _, f := range filters {
		assets := lo.Map(lo.Uniq(f.Sources()), func(src string, _ int) string {
			if len(src) > 40 {
				return src[:37] + "..."
			}
			return src
		})
		fmt.Fprintf(w, "%s\t%s %s\t%d\t%s\n", f.ID, f.Icon, f.Name, len(f.Overlays), strings.Join(assets, ", "))
	}
	w.Flush()
}
