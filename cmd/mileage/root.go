package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	geojsonadapter "github.com/samirrijal/mileage/internal/adapters/geojson"
	"github.com/samirrijal/mileage/internal/pkg/geospatial"
	"github.com/samirrijal/mileage/internal/pkg/logging"
)

var opts struct {
	RegionsFile  string
	NameProperty string
	Epsilon      float64
	LogLevel     string
}

var mainCmd = &cobra.Command{
	Use:           "mileage",
	Short:         "Measure how much of a line lies inside each region",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(logging.New(os.Stderr, opts.LogLevel, "text"))
	},
}

func init() {

	mainCmd.AddCommand(
		computeCmd,
		regionsCmd,
		agencyCmd,
	)

	mainCmd.PersistentFlags().StringVarP(&opts.RegionsFile, "regions-file", "r", "", "GeoJSON FeatureCollection of region boundaries")
	mainCmd.PersistentFlags().StringVar(&opts.NameProperty, "name-property", geojsonadapter.DefaultNameProperty, "Feature property holding the region name")
	mainCmd.PersistentFlags().Float64Var(&opts.Epsilon, "epsilon", geospatial.DefaultEpsilon, "Coordinate tolerance in degrees")
	mainCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "Log level: debug, info, warn or error")

}

// loadRegions reads the --regions-file dataset.
func loadRegions() (*geojsonadapter.RegionStore, error) {
	if opts.RegionsFile == "" {
		return nil, fmt.Errorf("--regions-file is required")
	}
	regions, err := geojsonadapter.LoadRegionsFile(opts.RegionsFile, opts.NameProperty)
	if err != nil {
		return nil, err
	}
	slog.Debug("regions loaded", "file", opts.RegionsFile, "regions", len(regions))
	return geojsonadapter.NewRegionStore(regions...), nil
}

// readInput reads a file, or stdin when path is "-" or empty.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// Run runs the cli app
func Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := mainCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
