// Package config holds the engine's tunables: solver and schedule parameters,
// classifier marker lists, reference data locations, batch and logging options.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/calendar"
	"github.com/meenmo/fixedincome/classify"
	"github.com/meenmo/fixedincome/description"
	"github.com/meenmo/fixedincome/resolve"
	"github.com/meenmo/fixedincome/schedule"
	"github.com/meenmo/fixedincome/spread"
	"github.com/meenmo/fixedincome/valuation"
)

// Config is the full configuration. Field names double as YAML and TOML keys.
type Config struct {
	Solver     SolverConfig     `yaml:"solver" toml:"solver"`
	Schedule   ScheduleConfig   `yaml:"schedule" toml:"schedule"`
	Spread     SpreadConfig     `yaml:"spread" toml:"spread"`
	Classifier ClassifierConfig `yaml:"classifier" toml:"classifier"`
	Resolver   ResolverConfig   `yaml:"resolver" toml:"resolver"`
	Catalog    CatalogConfig    `yaml:"catalog" toml:"catalog"`
	Curve      CurveConfig      `yaml:"curve" toml:"curve"`
	Batch      BatchConfig      `yaml:"batch" toml:"batch"`
	Log        LogConfig        `yaml:"log" toml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics"`
}

// SolverConfig mirrors bond.SolverConfig.
type SolverConfig struct {
	// Tolerance is the absolute dirty price residual per 100 face.
	Tolerance              float64 `yaml:"tolerance" toml:"tolerance"`
	MaxNewtonIterations    int     `yaml:"max_newton_iterations" toml:"max_newton_iterations"`
	MaxBisectionIterations int     `yaml:"max_bisection_iterations" toml:"max_bisection_iterations"`
	// Floor and Ceiling bracket the semiannual yield as decimal fractions.
	Floor               float64 `yaml:"floor" toml:"floor"`
	Ceiling             float64 `yaml:"ceiling" toml:"ceiling"`
	DerivativeThreshold float64 `yaml:"derivative_threshold" toml:"derivative_threshold"`
}

type ScheduleConfig struct {
	EndOfMonth    bool `yaml:"end_of_month" toml:"end_of_month"`
	MaxPeriods    int  `yaml:"max_periods" toml:"max_periods"`
	StubMergeDays int  `yaml:"stub_merge_days" toml:"stub_merge_days"`
}

// SpreadConfig bounds the flat spread search.
type SpreadConfig struct {
	Tolerance     float64 `yaml:"tolerance" toml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations" toml:"max_iterations"`
	Floor         float64 `yaml:"floor" toml:"floor"`
	Ceiling       float64 `yaml:"ceiling" toml:"ceiling"`
}

// ClassifierConfig overrides the sovereign marker lists. Empty keeps the built-in list.
type ClassifierConfig struct {
	IdentifierPrefixes []string `yaml:"identifier_prefixes" toml:"identifier_prefixes"`
	LeadingTokens      []string `yaml:"leading_tokens" toml:"leading_tokens"`
	Keywords           []string `yaml:"keywords" toml:"keywords"`
	IssuerFragments    []string `yaml:"issuer_fragments" toml:"issuer_fragments"`
}

type ResolverConfig struct {
	IssuerFallback  bool   `yaml:"issuer_fallback" toml:"issuer_fallback"`
	DefaultCalendar string `yaml:"default_calendar" toml:"default_calendar"`
	// DayFirst reads ambiguous numeric dates as dd/mm.
	DayFirst  bool `yaml:"day_first" toml:"day_first"`
	PivotYear int  `yaml:"pivot_year" toml:"pivot_year"`
	// Settlement is the default policy: "prior-month-end" or "spot".
	Settlement string `yaml:"settlement" toml:"settlement"`
}

// CatalogConfig locates the convention catalog: a YAML file or an SQL DSN.
type CatalogConfig struct {
	Path string `yaml:"path" toml:"path"`
	DSN  string `yaml:"dsn" toml:"dsn"`
}

// CurveConfig locates the benchmark curve: a YAML file, or Redis when Addr is set.
type CurveConfig struct {
	Path          string `yaml:"path" toml:"path"`
	Name          string `yaml:"name" toml:"name"`
	RedisAddr     string `yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword string `yaml:"redis_password" toml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" toml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" toml:"redis_prefix"`
	RedisTLS      bool   `yaml:"redis_tls" toml:"redis_tls"`
}

type BatchConfig struct {
	Workers int `yaml:"workers" toml:"workers"`
	// Timeout is a Go duration string; empty means none.
	Timeout string `yaml:"timeout" toml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug | info | warn | error
	Format string `yaml:"format" toml:"format"` // text | json
}

// MetricsConfig names the textfile the CLI writes metrics to; empty disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" toml:"textfile"`
}

// DefaultConfig matches the package defaults of every component.
var DefaultConfig = Config{
	Solver: SolverConfig{
		Tolerance:              bond.DefaultSolverConfig.Tolerance,
		MaxNewtonIterations:    bond.DefaultSolverConfig.MaxNewtonIterations,
		MaxBisectionIterations: bond.DefaultSolverConfig.MaxBisectionIterations,
		Floor:                  bond.DefaultSolverConfig.Floor,
		Ceiling:                bond.DefaultSolverConfig.Ceiling,
		DerivativeThreshold:    bond.DefaultSolverConfig.DerivativeThreshold,
	},
	Schedule: ScheduleConfig{
		EndOfMonth:    schedule.DefaultConfig.EndOfMonth,
		MaxPeriods:    schedule.DefaultConfig.MaxPeriods,
		StubMergeDays: schedule.DefaultConfig.StubMergeDays,
	},
	Spread: SpreadConfig{
		Tolerance:     spread.DefaultCalculator.Tolerance,
		MaxIterations: spread.DefaultCalculator.MaxIterations,
		Floor:         spread.DefaultCalculator.Floor,
		Ceiling:       spread.DefaultCalculator.Ceiling,
	},
	Resolver: ResolverConfig{
		IssuerFallback:  false,
		DefaultCalendar: string(calendar.USD),
		DayFirst:        description.DefaultParser.DayFirst,
		PivotYear:       description.DefaultParser.PivotYear,
		Settlement:      SettlementPriorMonthEnd,
	},
	Curve: CurveConfig{
		Name:        "UST",
		RedisPrefix: "curve",
	},
	Batch: BatchConfig{Workers: 4},
	Log:   LogConfig{Level: "info", Format: "text"},
}

const (
	SettlementPriorMonthEnd = "prior-month-end"
	SettlementSpot          = "spot"
)

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.Solver.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("solver.tolerance must be positive, got %v", c.Solver.Tolerance))
	}
	if c.Solver.MaxNewtonIterations < 0 || c.Solver.MaxBisectionIterations <= 0 {
		errs = append(errs, errors.New("solver iteration limits must be positive"))
	}
	if !(c.Solver.Floor < c.Solver.Ceiling) || c.Solver.Floor <= -2 {
		errs = append(errs, fmt.Errorf("solver bracket [%v, %v] is invalid", c.Solver.Floor, c.Solver.Ceiling))
	}
	if c.Schedule.MaxPeriods <= 0 {
		errs = append(errs, errors.New("schedule.max_periods must be positive"))
	}
	if c.Schedule.StubMergeDays < 0 {
		errs = append(errs, errors.New("schedule.stub_merge_days must not be negative"))
	}
	if !(c.Spread.Floor < c.Spread.Ceiling) {
		errs = append(errs, fmt.Errorf("spread bracket [%v, %v] is invalid", c.Spread.Floor, c.Spread.Ceiling))
	}
	if _, err := calendar.Parse(c.Resolver.DefaultCalendar); err != nil {
		errs = append(errs, err)
	}
	if c.Resolver.PivotYear < 0 || c.Resolver.PivotYear > 99 {
		errs = append(errs, fmt.Errorf("resolver.pivot_year %d outside [0, 99]", c.Resolver.PivotYear))
	}
	if _, err := c.SettlementPolicy(); err != nil {
		errs = append(errs, err)
	}
	if c.Catalog.Path != "" && c.Catalog.DSN != "" {
		errs = append(errs, errors.New("catalog.path and catalog.dsn are mutually exclusive"))
	}
	if c.Batch.Workers <= 0 {
		errs = append(errs, errors.New("batch.workers must be positive"))
	}
	if _, err := c.Batch.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config.Validate: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) SolverConfig() bond.SolverConfig {
	return bond.SolverConfig{
		Tolerance:              c.Solver.Tolerance,
		MaxNewtonIterations:    c.Solver.MaxNewtonIterations,
		MaxBisectionIterations: c.Solver.MaxBisectionIterations,
		Floor:                  c.Solver.Floor,
		Ceiling:                c.Solver.Ceiling,
		DerivativeThreshold:    c.Solver.DerivativeThreshold,
	}
}

func (c Config) ScheduleConfig() schedule.Config {
	return schedule.Config{
		EndOfMonth:    c.Schedule.EndOfMonth,
		MaxPeriods:    c.Schedule.MaxPeriods,
		StubMergeDays: c.Schedule.StubMergeDays,
	}
}

func (c Config) SpreadCalculator() spread.Calculator {
	return spread.Calculator{
		Tolerance:     c.Spread.Tolerance,
		MaxIterations: c.Spread.MaxIterations,
		Floor:         c.Spread.Floor,
		Ceiling:       c.Spread.Ceiling,
	}
}

// NewClassifier builds a classifier; empty lists keep the built-in markers.
func (c Config) NewClassifier() *classify.Classifier {
	orNil := func(s []string) []string {
		if len(s) == 0 {
			return nil
		}
		return s
	}
	return classify.New(classify.Options{
		IdentifierPrefixes: orNil(c.Classifier.IdentifierPrefixes),
		LeadingTokens:      orNil(c.Classifier.LeadingTokens),
		Keywords:           orNil(c.Classifier.Keywords),
		IssuerFragments:    orNil(c.Classifier.IssuerFragments),
	})
}

func (c Config) Parser() description.Parser {
	return description.Parser{DayFirst: c.Resolver.DayFirst, PivotYear: c.Resolver.PivotYear}
}

// SettlementPolicy maps resolver.settlement to a valuation policy.
func (c Config) SettlementPolicy() (valuation.SettlementPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(c.Resolver.Settlement)) {
	case "", SettlementPriorMonthEnd:
		return valuation.PriorMonthEnd, nil
	case SettlementSpot:
		return valuation.Spot, nil
	default:
		return nil, fmt.Errorf("resolver.settlement %q must be %s or %s",
			c.Resolver.Settlement, SettlementPriorMonthEnd, SettlementSpot)
	}
}

// EngineOptions translates the configuration into valuation options.
func (c Config) EngineOptions() ([]valuation.Option, error) {
	cal, err := calendar.Parse(c.Resolver.DefaultCalendar)
	if err != nil {
		return nil, err
	}
	policy, err := c.SettlementPolicy()
	if err != nil {
		return nil, err
	}
	return []valuation.Option{
		valuation.WithSolverConfig(c.SolverConfig()),
		valuation.WithScheduleConfig(c.ScheduleConfig()),
		valuation.WithSpreadCalculator(c.SpreadCalculator()),
		valuation.WithSettlementPolicy(policy),
		valuation.WithWorkers(c.Batch.Workers),
		valuation.WithResolveOptions(
			resolve.WithClassifier(c.NewClassifier()),
			resolve.WithParser(c.Parser()),
			resolve.WithDefaultCalendar(cal),
			resolve.WithIssuerFallback(c.Resolver.IssuerFallback),
		),
	}, nil
}

// TimeoutDuration parses Timeout; zero means no timeout.
func (b BatchConfig) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(b.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(b.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("batch.timeout %q is not a valid duration", b.Timeout)
	}
	return d, nil
}
