package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	geojsonadapter "github.com/samirrijal/mileage/internal/adapters/geojson"
	"github.com/samirrijal/mileage/internal/adapters/postgres"
	"github.com/samirrijal/mileage/internal/pkg/config"
	"github.com/samirrijal/mileage/internal/pkg/logging"
)

const usage = `usage:
  ingestor regions FILE.geojson...      load region boundaries
  ingestor gtfs [manifest.json] [slugs] load agencies and route shapes from GTFS feeds`

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

type Manifest struct {
	Source   string        `json:"source"`
	Agencies []AgencyEntry `json:"agencies"`
}

type AgencyEntry struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	GTFSURL  string `json:"gtfs_url"`
	Timezone string `json:"timezone,omitempty"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	cfg, err := config.Load("mileage-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "regions":
		if len(os.Args) < 3 {
			log.Fatal(usage)
		}
		err = ingestRegions(ctx, postgres.NewRegionRepo(db), cfg.Mileage.RegionNameProperty, os.Args[2:])
	case "gtfs":
		manifestPath := "manifest.json"
		if len(os.Args) > 2 {
			manifestPath = os.Args[2]
		}
		var slugs string
		if len(os.Args) > 3 {
			slugs = os.Args[3]
		}
		err = ingestGTFS(ctx, db, manifestPath, slugs)
	default:
		log.Fatal(usage)
	}
	if err != nil {
		log.Fatalf("ingest: %v", err)
	}
	slog.Info("ingestion complete")
}

// ---------------------------------------------------------------------------
// Regions
// ---------------------------------------------------------------------------

func ingestRegions(ctx context.Context, repo *postgres.RegionRepo, nameProp string, files []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, path := range files {
		g.Go(func() error {
			regions, err := geojsonadapter.LoadRegionsFile(path, nameProp)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := repo.UpsertBatch(ctx, regions); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			slog.Info("regions loaded", "file", path, "regions", len(regions))
			return nil
		})
	}
	return g.Wait()
}

// ---------------------------------------------------------------------------
// GTFS
// ---------------------------------------------------------------------------

func ingestGTFS(ctx context.Context, db *postgres.DB, manifestPath, slugs string) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	slog.Info("GTFS ingest", "agencies", len(manifest.Agencies), "source", manifest.Source)

	// Filter agencies (optional slug list)
	slugFilter := map[string]bool{}
	if slugs != "" {
		for _, s := range strings.Split(slugs, ",") {
			slugFilter[strings.TrimSpace(s)] = true
		}
	}

	client := &http.Client{Timeout: 120 * time.Second}
	agencies := postgres.NewAgencyRepo(db)
	routes := postgres.NewRouteRepo(db)

	var g errgroup.Group
	g.SetLimit(4) // max 4 concurrent downloads

	for _, agency := range manifest.Agencies {
		if len(slugFilter) > 0 && !slugFilter[agency.Slug] {
			continue
		}
		g.Go(func() error {
			if err := ingestAgency(ctx, agencies, routes, client, agency); err != nil {
				slog.Error("agency ingest failed", "agency", agency.Slug, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}
