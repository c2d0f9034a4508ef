package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Mileage   MileageConfig   `mapstructure:"mileage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// CacheConfig selects the result cache backend.
// Backend is "valkey", "redis" or "memory". MaxCost bounds the in-memory
// backend, in bytes.
type CacheConfig struct {
	Backend    string `mapstructure:"backend"`
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	MaxCost    int64  `mapstructure:"max_cost"`
}

// MileageConfig tunes the mileage computation. RegionsFile is a GeoJSON
// FeatureCollection; when empty, regions are read from the database.
type MileageConfig struct {
	Epsilon             float64 `mapstructure:"epsilon"`
	DefaultUnit         string  `mapstructure:"default_unit"`
	MissingRegionPolicy string  `mapstructure:"missing_region_policy"`
	Parallelism         int     `mapstructure:"parallelism"`
	RegionsFile         string  `mapstructure:"regions_file"`
	RegionNameProperty  string  `mapstructure:"region_name_property"`
	KeepSegments        bool    `mapstructure:"keep_segments"`
}

// Unit returns the parsed default unit.
func (m MileageConfig) Unit() domain.Unit {
	u, err := domain.ParseUnit(m.DefaultUnit)
	if err != nil {
		return domain.UnitKilometers
	}
	return u
}

// Policy returns the parsed missing region policy.
func (m MileageConfig) Policy() domain.MissingRegionPolicy {
	p, err := domain.ParseMissingRegionPolicy(m.MissingRegionPolicy)
	if err != nil {
		return domain.MissingRegionSkip
	}
	return p
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. A .env file
// in the working directory is loaded into the environment first.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mileage")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "mileage")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("cache.backend", "valkey")
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("cache.max_cost", 64<<20)
	v.SetDefault("mileage.epsilon", 1e-9)
	v.SetDefault("mileage.default_unit", string(domain.UnitKilometers))
	v.SetDefault("mileage.missing_region_policy", string(domain.MissingRegionSkip))
	v.SetDefault("mileage.parallelism", 4)
	v.SetDefault("mileage.regions_file", "")
	v.SetDefault("mileage.region_name_property", "name")
	v.SetDefault("mileage.keep_segments", false)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "mileage")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: MILEAGE_DATABASE_HOST → database.host
	v.SetEnvPrefix("MILEAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	switch c.Cache.Backend {
	case "valkey", "redis":
		if c.Cache.Addr == "" {
			errs = append(errs, fmt.Sprintf("cache.addr is required for the %s backend", c.Cache.Backend))
		}
	case "memory":
		if c.Cache.MaxCost <= 0 {
			errs = append(errs, "cache.max_cost must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("cache.backend must be valkey, redis or memory, got %q", c.Cache.Backend))
	}
	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, "cache.ttl_seconds must not be negative")
	}
	if c.Mileage.Epsilon <= 0 {
		errs = append(errs, "mileage.epsilon must be positive")
	}
	if _, err := domain.ParseUnit(c.Mileage.DefaultUnit); err != nil {
		errs = append(errs, fmt.Sprintf("mileage.default_unit: unknown unit %q", c.Mileage.DefaultUnit))
	}
	if _, err := domain.ParseMissingRegionPolicy(c.Mileage.MissingRegionPolicy); err != nil {
		errs = append(errs, fmt.Sprintf("mileage.missing_region_policy must be skip or fail, got %q", c.Mileage.MissingRegionPolicy))
	}
	if c.Mileage.Parallelism <= 0 {
		errs = append(errs, "mileage.parallelism must be positive")
	}
	if c.Mileage.RegionNameProperty == "" {
		errs = append(errs, "mileage.region_name_property is required")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
