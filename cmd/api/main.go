package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/mileage/internal/adapters/cache"
	geojsonadapter "github.com/samirrijal/mileage/internal/adapters/geojson"
	"github.com/samirrijal/mileage/internal/adapters/http"
	natsadapter "github.com/samirrijal/mileage/internal/adapters/nats"
	"github.com/samirrijal/mileage/internal/adapters/postgres"
	"github.com/samirrijal/mileage/internal/core/ports"
	"github.com/samirrijal/mileage/internal/core/segmenter"
	"github.com/samirrijal/mileage/internal/core/usecases"
	"github.com/samirrijal/mileage/internal/pkg/config"
	"github.com/samirrijal/mileage/internal/pkg/geospatial"
	"github.com/samirrijal/mileage/internal/pkg/logging"
	"github.com/samirrijal/mileage/internal/pkg/metrics"
	"github.com/samirrijal/mileage/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("mileage-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Region dataset: a GeoJSON file when configured, else the regions table
	var regionRepo ports.RegionRepository = postgres.NewRegionRepo(db)
	if cfg.Mileage.RegionsFile != "" {
		regions, err := geojsonadapter.LoadRegionsFile(cfg.Mileage.RegionsFile, cfg.Mileage.RegionNameProperty)
		if err != nil {
			log.Fatalf("regions file: %v", err)
		}
		regionRepo = geojsonadapter.NewRegionStore(regions...)
		slog.Info("region dataset loaded", "file", cfg.Mileage.RegionsFile, "regions", len(regions))
	}

	// Cache
	var cacheSvc ports.CacheService
	backend, err := cache.Open(cfg.Cache)
	if err != nil {
		slog.Warn("cache unavailable", "backend", cfg.Cache.Backend, "error", err)
	} else {
		defer backend.Close()
		cacheSvc = backend
	}

	// NATS
	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, refreshes run inline", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// Repos
	agencyRepo := postgres.NewAgencyRepo(db)
	routeRepo := postgres.NewRouteRepo(db)
	mileageRepo := postgres.NewMileageRepo(db)

	// Segmenter
	seg := segmenter.New(geospatial.NewEngine(cfg.Mileage.Epsilon),
		segmenter.WithEpsilon(cfg.Mileage.Epsilon),
		segmenter.WithParallelism(cfg.Mileage.Parallelism),
		segmenter.WithSegments(true),
	)

	// Use cases
	mileageSvc := usecases.NewMileageService(regionRepo, routeRepo, mileageRepo, cacheSvc, publisher, seg, usecases.MileageOptions{
		Policy:          cfg.Mileage.Policy(),
		DefaultUnit:     cfg.Mileage.Unit(),
		CacheTTLSeconds: cfg.Cache.TTLSeconds,
		KeepSegments:    cfg.Mileage.KeepSegments,
	})

	deps := &http.Dependencies{
		Mileage:  mileageSvc,
		Regions:  usecases.NewRegionService(regionRepo),
		Routes:   usecases.NewRouteService(routeRepo, agencyRepo),
		Agencies: usecases.NewAgencyService(agencyRepo, routeRepo, mileageRepo),
		NATS:     natsConn,
		DB:       db,
	}
	if backend != nil {
		deps.Cache = backend
	}

	// Pool metrics
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    8 * 1024 * 1024, // 8 MB max request body, long polylines
		AppName:      "Region Mileage API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
