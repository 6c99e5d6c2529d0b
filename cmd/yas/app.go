package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/meenmo/fixedincome/catalog"
	"github.com/meenmo/fixedincome/catalog/sqlstore"
	"github.com/meenmo/fixedincome/config"
	"github.com/meenmo/fixedincome/curve"
	"github.com/meenmo/fixedincome/curve/redisstore"
	"github.com/meenmo/fixedincome/metrics"
	"github.com/meenmo/fixedincome/utils"
	"github.com/meenmo/fixedincome/valuation"
)

// app carries what every subcommand shares: flags, config, logger, metrics.
type app struct {
	configPath  string
	logLevel    string
	catalogPath string
	curvePath   string

	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.catalogPath != "" {
		cfg.Catalog.Path, cfg.Catalog.DSN = a.catalogPath, ""
	}
	if a.curvePath != "" {
		cfg.Curve.Path, cfg.Curve.RedisAddr = a.curvePath, ""
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(a.logger)

	a.registry = prometheus.NewRegistry()
	if a.metrics, err = metrics.New(a.registry); err != nil {
		return err
	}
	return nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// engine loads the reference data snapshots and builds the valuation engine.
func (a *app) engine(ctx context.Context) (*valuation.Engine, error) {
	cat, err := a.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := a.cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, valuation.WithLogger(a.logger), valuation.WithMetrics(a.metrics))

	c, err := a.loadCurve(ctx)
	switch {
	case err == nil:
		opts = append(opts, valuation.WithCurve(c))
	case errors.Is(err, errNoCurve):
		a.logger.Debug("no benchmark curve configured; spreads will be null")
	default:
		return nil, err
	}
	return valuation.New(cat, opts...), nil
}

func (a *app) loadCatalog(ctx context.Context) (catalog.Catalog, error) {
	switch {
	case a.cfg.Catalog.Path != "":
		snap, err := catalog.LoadYAML(a.cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("catalog loaded", "path", a.cfg.Catalog.Path, "records", snap.Len())
		return snap, nil
	case a.cfg.Catalog.DSN != "":
		store, err := sqlstore.Open(a.cfg.Catalog.DSN)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		snap, err := store.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("catalog loaded from database", "records", snap.Len())
		return snap, nil
	default:
		a.logger.Warn("no convention catalog configured; bonds resolve from descriptions only")
		return nil, nil
	}
}

var errNoCurve = errors.New("no benchmark curve configured")

// loadCurve reads the curve file, or the latest Redis snapshot on or before today.
func (a *app) loadCurve(ctx context.Context) (*curve.Tenor, error) {
	cc := a.cfg.Curve
	switch {
	case cc.Path != "":
		return curve.LoadYAML(cc.Path)
	case cc.RedisAddr != "":
		store, err := a.dialCurveStore(ctx)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		c, err := store.LoadOnOrBefore(ctx, cc.Name, utils.Truncate(time.Now()))
		if err != nil {
			return nil, fmt.Errorf("load curve %s: %w", cc.Name, err)
		}
		a.logger.Debug("curve loaded from redis", "name", cc.Name, "date", c.Date().Format(utils.DateLayout))
		return c, nil
	default:
		return nil, errNoCurve
	}
}

func (a *app) dialCurveStore(ctx context.Context) (*redisstore.Store, error) {
	cc := a.cfg.Curve
	return redisstore.Dial(ctx, redisstore.ClientConfig{
		Addr:       cc.RedisAddr,
		Password:   cc.RedisPassword,
		DB:         cc.RedisDB,
		TLSEnabled: cc.RedisTLS,
	}, cc.RedisPrefix)
}

// flushMetrics writes the metrics textfile when one is configured.
func (a *app) flushMetrics() {
	if a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile, a.registry); err != nil {
		a.logger.Warn("write metrics", "error", err)
	}
}

// readInput reads path, or stdin when path is empty or "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path != "" && path != "-" {
		return os.ReadFile(path)
	}
	return io.ReadAll(stdin)
}
