package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FI_"

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file over DefaultConfig,
// loads .env if present, applies FI_* environment overrides and validates.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
			}
		case ".toml":
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse TOML: %w", err)
			}
		default:
			return nil, fmt.Errorf("config.Load: unsupported config extension %q", ext)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// solver
	setFloat64(&cfg.Solver.Tolerance, "SOLVER_TOLERANCE")
	setInt(&cfg.Solver.MaxNewtonIterations, "SOLVER_MAX_NEWTON_ITERATIONS")
	setInt(&cfg.Solver.MaxBisectionIterations, "SOLVER_MAX_BISECTION_ITERATIONS")
	setFloat64(&cfg.Solver.Floor, "SOLVER_FLOOR")
	setFloat64(&cfg.Solver.Ceiling, "SOLVER_CEILING")

	// schedule
	setBool(&cfg.Schedule.EndOfMonth, "SCHEDULE_END_OF_MONTH")
	setInt(&cfg.Schedule.MaxPeriods, "SCHEDULE_MAX_PERIODS")
	setInt(&cfg.Schedule.StubMergeDays, "SCHEDULE_STUB_MERGE_DAYS")

	// classifier
	setStringSlice(&cfg.Classifier.IdentifierPrefixes, "CLASSIFIER_IDENTIFIER_PREFIXES")

	// resolver
	setBool(&cfg.Resolver.IssuerFallback, "RESOLVER_ISSUER_FALLBACK")
	setStr(&cfg.Resolver.DefaultCalendar, "RESOLVER_DEFAULT_CALENDAR")
	setBool(&cfg.Resolver.DayFirst, "RESOLVER_DAY_FIRST")
	setInt(&cfg.Resolver.PivotYear, "RESOLVER_PIVOT_YEAR")
	setStr(&cfg.Resolver.Settlement, "RESOLVER_SETTLEMENT")

	// reference data
	setStr(&cfg.Catalog.Path, "CATALOG_PATH")
	setStr(&cfg.Catalog.DSN, "CATALOG_DSN")
	setStr(&cfg.Curve.Path, "CURVE_PATH")
	setStr(&cfg.Curve.Name, "CURVE_NAME")
	setStr(&cfg.Curve.RedisAddr, "CURVE_REDIS_ADDR")
	setStr(&cfg.Curve.RedisPassword, "CURVE_REDIS_PASSWORD")
	setInt(&cfg.Curve.RedisDB, "CURVE_REDIS_DB")
	setStr(&cfg.Curve.RedisPrefix, "CURVE_REDIS_PREFIX")
	setBool(&cfg.Curve.RedisTLS, "CURVE_REDIS_TLS")

	setInt(&cfg.Batch.Workers, "BATCH_WORKERS")
	setStr(&cfg.Batch.Timeout, "BATCH_TIMEOUT")
	setStr(&cfg.Log.Level, "LOG_LEVEL")
	setStr(&cfg.Log.Format, "LOG_FORMAT")
	setStr(&cfg.Metrics.Textfile, "METRICS_TEXTFILE")
}

// ---------------------------------------------------------------------------
// env helpers: the target changes only when FI_<key> is set and parses.
// ---------------------------------------------------------------------------

func lookup(key string) (string, bool) {
	v := os.Getenv(EnvPrefix + key)
	return v, v != ""
}

func setStr(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v, ok := lookup(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v, ok := lookup(key); ok {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		*dst = cleaned
	}
}
