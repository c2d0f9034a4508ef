package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("mileage-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Telemetry.ServiceName != "mileage-test" {
		t.Errorf("expected service name mileage-test, got %s", cfg.Telemetry.ServiceName)
	}
	if cfg.Mileage.Epsilon != 1e-9 {
		t.Errorf("expected epsilon 1e-9, got %g", cfg.Mileage.Epsilon)
	}
	if cfg.Mileage.Unit() != domain.UnitKilometers {
		t.Errorf("expected kilometers, got %s", cfg.Mileage.Unit())
	}
	if cfg.Mileage.Policy() != domain.MissingRegionSkip {
		t.Errorf("expected skip policy, got %s", cfg.Mileage.Policy())
	}
	if cfg.Database.DSN() != "postgres://mileage:@localhost:5432/mileage?sslmode=disable" {
		t.Errorf("unexpected DSN %s", cfg.Database.DSN())
	}
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MILEAGE_SERVER_PORT", "9090")
	t.Setenv("MILEAGE_CACHE_BACKEND", "memory")
	t.Setenv("MILEAGE_MILEAGE_DEFAULT_UNIT", "miles")
	t.Setenv("MILEAGE_MILEAGE_MISSING_REGION_POLICY", "fail")

	cfg, err := config.Load("mileage-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.Cache.Backend)
	}
	if cfg.Mileage.Unit() != domain.UnitMiles {
		t.Errorf("expected miles, got %s", cfg.Mileage.Unit())
	}
	if cfg.Mileage.Policy() != domain.MissingRegionFail {
		t.Errorf("expected fail policy, got %s", cfg.Mileage.Policy())
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MILEAGE_MILEAGE_DEFAULT_UNIT", "furlongs")

	if _, err := config.Load("mileage-test"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := &config.Config{
		Cache: config.CacheConfig{Backend: "memcached"},
		Mileage: config.MileageConfig{
			DefaultUnit:         "furlongs",
			MissingRegionPolicy: "ignore",
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{
		"server.port",
		"database.host",
		"cache.backend",
		"mileage.epsilon",
		"mileage.default_unit",
		"mileage.missing_region_policy",
		"mileage.parallelism",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got:\n%v", want, err)
		}
	}
}
