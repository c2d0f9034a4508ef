package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samirrijal/mileage/internal/core/usecases"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the regions of a dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadRegions()
		if err != nil {
			return err
		}
		summaries, err := usecases.NewRegionService(store).List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPOLYGONS\tHOLES\tVERTICES\tAREA_KM2")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.1f\n", s.Name, s.Polygons, s.Holes, s.Vertices, s.AreaKm2)
		}
		return w.Flush()
	},
}
