// Package redisstore keeps benchmark curve snapshots in Redis. Each snapshot is a
// hash at "{prefix}:{name}:{YYYY-MM-DD}" mapping tenor to percent quote; a sorted
// set "{prefix}:{name}:dates" scored by YYYYMMDD indexes the available dates.
package redisstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meenmo/fixedincome/curve"
	"github.com/meenmo/fixedincome/utils"
)

// ErrNotFound is returned when no snapshot exists for the requested date.
var ErrNotFound = errors.New("redisstore: curve snapshot not found")

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	TLSEnabled bool
}

// Store reads and writes curve snapshots.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// Dial connects, pings, and returns a Store.
func Dial(ctx context.Context, cfg ClientConfig, prefix string) (*Store, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return New(rdb, prefix), nil
}

// New wraps an existing client. An empty prefix defaults to "curve".
func New(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "curve"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Save writes a curve snapshot and indexes its date.
func (s *Store) Save(ctx context.Context, name string, date time.Time, quotes map[string]float64) error {
	if len(quotes) == 0 {
		return fmt.Errorf("redisstore: save %s: no quotes", name)
	}
	if _, err := curve.NewTenor(date, quotes); err != nil {
		return fmt.Errorf("redisstore: save %s: %w", name, err)
	}

	pipe := s.rdb.TxPipeline()
	key := s.snapshotKey(name, date)
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, EncodeQuotes(quotes))
	pipe.ZAdd(ctx, s.datesKey(name), redis.Z{Score: DateScore(date), Member: date.Format(utils.DateLayout)})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: save %s %s: %w", name, date.Format(utils.DateLayout), err)
	}
	return nil
}

// Load reads the snapshot for exactly date.
func (s *Store) Load(ctx context.Context, name string, date time.Time) (*curve.Tenor, error) {
	vals, err := s.rdb.HGetAll(ctx, s.snapshotKey(name, date)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: load %s %s: %w", name, date.Format(utils.DateLayout), err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	quotes, err := DecodeQuotes(vals)
	if err != nil {
		return nil, fmt.Errorf("redisstore: load %s %s: %w", name, date.Format(utils.DateLayout), err)
	}
	return curve.NewTenor(date, quotes)
}

// LoadOnOrBefore reads the latest snapshot dated on or before date, the usual
// way a valuation date picks its benchmark curve.
func (s *Store) LoadOnOrBefore(ctx context.Context, name string, date time.Time) (*curve.Tenor, error) {
	members, err := s.rdb.ZRevRangeByScore(ctx, s.datesKey(name), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatFloat(DateScore(date), 'f', 0, 64),
		Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: index %s: %w", name, err)
	}
	if len(members) == 0 {
		return nil, ErrNotFound
	}
	found, err := utils.ParseDate(members[0])
	if err != nil {
		return nil, fmt.Errorf("redisstore: index %s: %w", name, err)
	}
	return s.Load(ctx, name, found)
}

func (s *Store) snapshotKey(name string, date time.Time) string {
	return s.prefix + ":" + name + ":" + date.Format(utils.DateLayout)
}

func (s *Store) datesKey(name string) string {
	return s.prefix + ":" + name + ":dates"
}

// DateScore maps a date to YYYYMMDD for sorted set ordering.
func DateScore(date time.Time) float64 {
	return float64(date.Year()*10000 + int(date.Month())*100 + date.Day())
}

// EncodeQuotes renders quotes as hash fields.
func EncodeQuotes(quotes map[string]float64) map[string]interface{} {
	fields := make(map[string]interface{}, len(quotes))
	for tenor, v := range quotes {
		fields[tenor] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fields
}

// DecodeQuotes parses hash fields back into quotes.
func DecodeQuotes(vals map[string]string) (map[string]float64, error) {
	quotes := make(map[string]float64, len(vals))
	for tenor, raw := range vals {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("tenor %s: %w", tenor, err)
		}
		quotes[tenor] = v
	}
	return quotes, nil
}
