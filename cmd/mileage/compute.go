package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	geojsonadapter "github.com/samirrijal/mileage/internal/adapters/geojson"
	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/core/segmenter"
	"github.com/samirrijal/mileage/internal/core/usecases"
	"github.com/samirrijal/mileage/internal/pkg/geospatial"
)

var computeOpts struct {
	Unit        string
	Regions     []string
	Segments    bool
	GeoJSON     bool
	Policy      string
	Parallelism int
}

var computeCmd = &cobra.Command{
	Use:     "compute [LINE.geojson]",
	Short:   "Compute the mileage of a line inside each region",
	Example: "  mileage compute -r regions.geojson --unit km route.geojson",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) > 0 {
			path = args[0]
		}
		return runCompute(cmd, path)
	},
}

func init() {

	computeCmd.Flags().StringVarP(&computeOpts.Unit, "unit", "u", string(domain.UnitKilometers), "Length unit: m, km, mi, nmi or deg")
	computeCmd.Flags().StringSliceVar(&computeOpts.Regions, "regions", nil, "Regions to measure (default all)")
	computeCmd.Flags().BoolVar(&computeOpts.Segments, "segments", false, "Include crossing points and sub-segments")
	computeCmd.Flags().BoolVar(&computeOpts.GeoJSON, "geojson", false, "Write the sub-segments as a GeoJSON FeatureCollection")
	computeCmd.Flags().StringVar(&computeOpts.Policy, "missing", string(domain.MissingRegionSkip), "Missing region policy: skip or fail")
	computeCmd.Flags().IntVarP(&computeOpts.Parallelism, "parallelism", "p", 4, "Regions evaluated concurrently")

}

func runCompute(cmd *cobra.Command, path string) error {
	unit, err := domain.ParseUnit(computeOpts.Unit)
	if err != nil {
		return err
	}
	policy, err := domain.ParseMissingRegionPolicy(computeOpts.Policy)
	if err != nil {
		return err
	}

	store, err := loadRegions()
	if err != nil {
		return err
	}

	data, err := readInput(cmd, path)
	if err != nil {
		return fmt.Errorf("read line: %w", err)
	}
	line, err := geojsonadapter.DecodeLine(data)
	if err != nil {
		return err
	}

	seg := segmenter.New(geospatial.NewEngine(opts.Epsilon),
		segmenter.WithEpsilon(opts.Epsilon),
		segmenter.WithParallelism(computeOpts.Parallelism),
		segmenter.WithSegments(true),
	)
	svc := usecases.NewMileageService(store, nil, nil, nil, nil, seg, usecases.MileageOptions{
		Policy:      policy,
		DefaultUnit: unit,
	})

	res, err := svc.Compute(cmd.Context(), usecases.ComputeRequest{
		Line:            line,
		Regions:         trimAll(computeOpts.Regions),
		Unit:            unit,
		IncludeSegments: computeOpts.Segments || computeOpts.GeoJSON,
	})
	if err != nil {
		return err
	}

	var out []byte
	if computeOpts.GeoJSON {
		out, err = geojsonadapter.EncodeSegments(res)
	} else {
		out, err = json.MarshalIndent(res, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

func trimAll(names []string) []string {
	var out []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
