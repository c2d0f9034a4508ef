package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/mileage/internal/adapters/cache"
	geojsonadapter "github.com/samirrijal/mileage/internal/adapters/geojson"
	natsadapter "github.com/samirrijal/mileage/internal/adapters/nats"
	"github.com/samirrijal/mileage/internal/adapters/postgres"
	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/core/ports"
	"github.com/samirrijal/mileage/internal/core/segmenter"
	"github.com/samirrijal/mileage/internal/core/usecases"
	"github.com/samirrijal/mileage/internal/pkg/config"
	"github.com/samirrijal/mileage/internal/pkg/geospatial"
	"github.com/samirrijal/mileage/internal/pkg/logging"
	"github.com/samirrijal/mileage/internal/pkg/telemetry"
	"github.com/samirrijal/mileage/internal/workflows"
)

func main() {
	cfg, err := config.Load("mileage-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var regionRepo ports.RegionRepository = postgres.NewRegionRepo(db)
	if cfg.Mileage.RegionsFile != "" {
		regions, err := geojsonadapter.LoadRegionsFile(cfg.Mileage.RegionsFile, cfg.Mileage.RegionNameProperty)
		if err != nil {
			log.Fatalf("regions file: %v", err)
		}
		regionRepo = geojsonadapter.NewRegionStore(regions...)
	}

	var cacheSvc ports.CacheService
	if backend, err := cache.Open(cfg.Cache); err != nil {
		slog.Warn("cache unavailable", "backend", cfg.Cache.Backend, "error", err)
	} else {
		defer backend.Close()
		cacheSvc = backend
	}

	// Results are announced so WebSocket clients see worker computations too.
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()
	publisher = pub

	agencyRepo := postgres.NewAgencyRepo(db)
	routeRepo := postgres.NewRouteRepo(db)
	mileageRepo := postgres.NewMileageRepo(db)

	seg := segmenter.New(geospatial.NewEngine(cfg.Mileage.Epsilon),
		segmenter.WithEpsilon(cfg.Mileage.Epsilon),
		segmenter.WithParallelism(cfg.Mileage.Parallelism),
		segmenter.WithSegments(true),
	)
	mileageSvc := usecases.NewMileageService(regionRepo, routeRepo, mileageRepo, cacheSvc, publisher, seg, usecases.MileageOptions{
		Policy:          cfg.Mileage.Policy(),
		DefaultUnit:     cfg.Mileage.Unit(),
		CacheTTLSeconds: cfg.Cache.TTLSeconds,
		KeepSegments:    cfg.Mileage.KeepSegments,
	})

	// Queued refresh requests
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()
	err = sub.SubscribeMileageRequests(ctx, func(ctx context.Context, req *domain.MileageRequest) error {
		return mileageSvc.HandleRequest(ctx, req)
	})
	if err != nil {
		log.Fatalf("subscribe mileage requests: %v", err)
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.AgencyMileageWorkflow)
	w.RegisterActivity(&workflows.MileageActivities{
		Mileage:  mileageSvc,
		Routes:   usecases.NewRouteService(routeRepo, agencyRepo),
		Agencies: usecases.NewAgencyService(agencyRepo, routeRepo, mileageRepo),
	})

	slog.Info("mileage worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
