// Package sqlstore persists convention records in SQLite (pure Go, no CGo) or
// PostgreSQL and materializes them into read-only catalog snapshots.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/meenmo/fixedincome/calendar"
	"github.com/meenmo/fixedincome/catalog"
	"github.com/meenmo/fixedincome/convention"
	"github.com/meenmo/fixedincome/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS bond_conventions (
    identifier          TEXT PRIMARY KEY,
    description         TEXT NOT NULL DEFAULT '',
    issuer              TEXT NOT NULL DEFAULT '',
    coupon_rate         DOUBLE PRECISION,
    maturity_date       TEXT NOT NULL DEFAULT '',
    issue_date          TEXT NOT NULL DEFAULT '',
    day_count           TEXT NOT NULL DEFAULT '',
    frequency_months    INTEGER NOT NULL DEFAULT 0,
    business_day        TEXT NOT NULL DEFAULT '',
    settlement_lag_days INTEGER,
    calendar            TEXT NOT NULL DEFAULT '',
    instrument_class    TEXT NOT NULL DEFAULT '',
    updated_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bond_conventions_issuer ON bond_conventions(issuer);
`

const upsertSQL = `
INSERT INTO bond_conventions (
    identifier, description, issuer, coupon_rate, maturity_date, issue_date,
    day_count, frequency_months, business_day, settlement_lag_days, calendar,
    instrument_class, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (identifier) DO UPDATE SET
    description = excluded.description,
    issuer = excluded.issuer,
    coupon_rate = excluded.coupon_rate,
    maturity_date = excluded.maturity_date,
    issue_date = excluded.issue_date,
    day_count = excluded.day_count,
    frequency_months = excluded.frequency_months,
    business_day = excluded.business_day,
    settlement_lag_days = excluded.settlement_lag_days,
    calendar = excluded.calendar,
    instrument_class = excluded.instrument_class,
    updated_at = excluded.updated_at
`

const selectSQL = `
SELECT identifier, description, issuer, coupon_rate, maturity_date, issue_date,
       day_count, frequency_months, business_day, settlement_lag_days, calendar,
       instrument_class
FROM bond_conventions
ORDER BY identifier
`

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Store is a convention table behind database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to dsn and applies the schema. DSNs starting with postgres:// or
// postgresql:// use lib/pq; anything else is a SQLite path (":memory:" allowed).
func Open(dsn string) (*Store, error) {
	driver, d := "sqlite", dialectSQLite
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver, d = "postgres", dialectPostgres
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.Open: open %s: %w", driver, err)
	}
	if d == dialectSQLite {
		db.SetMaxOpenConns(1) // SQLite is single-writer
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore.Open: apply schema: %w", err)
	}
	return &Store{db: db, dialect: d}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces records in one transaction.
func (s *Store) Upsert(ctx context.Context, records ...catalog.Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("sqlstore.Upsert: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore.Upsert: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, s.bind(upsertSQL))
	if err != nil {
		return fmt.Errorf("sqlstore.Upsert: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		var coupon sql.NullFloat64
		if r.CouponRate != nil {
			coupon = sql.NullFloat64{Float64: *r.CouponRate, Valid: true}
		}
		var lag sql.NullInt64
		if r.SettlementLagDays >= 0 {
			lag = sql.NullInt64{Int64: int64(r.SettlementLagDays), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			catalog.NormalizeKey(r.Identifier),
			r.Description,
			r.Issuer,
			coupon,
			formatDate(r.MaturityDate),
			formatDate(r.IssueDate),
			string(r.DayCount),
			int(r.Frequency),
			string(r.BusinessDay),
			lag,
			string(r.Calendar),
			string(r.Class),
			now,
		); err != nil {
			return fmt.Errorf("sqlstore.Upsert: %s: %w", r.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore.Upsert: commit: %w", err)
	}
	return nil
}

// Delete removes a record; missing identifiers return catalog.ErrNotFound.
func (s *Store) Delete(ctx context.Context, identifier string) error {
	res, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM bond_conventions WHERE identifier = ?`), catalog.NormalizeKey(identifier))
	if err != nil {
		return fmt.Errorf("sqlstore.Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore.Delete: rows affected: %w", err)
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// Snapshot reads every record and returns an immutable in-memory catalog.
func (s *Store) Snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.Snapshot: query: %w", err)
	}
	defer rows.Close()

	var records []catalog.Record
	for rows.Next() {
		var (
			r                         catalog.Record
			coupon                    sql.NullFloat64
			lag                       sql.NullInt64
			maturity, issue           string
			dayCount, bdc, cal, class string
			freq                      int
		)
		if err := rows.Scan(&r.Identifier, &r.Description, &r.Issuer, &coupon, &maturity, &issue,
			&dayCount, &freq, &bdc, &lag, &cal, &class); err != nil {
			return nil, fmt.Errorf("sqlstore.Snapshot: scan: %w", err)
		}
		if coupon.Valid {
			c := coupon.Float64
			r.CouponRate = &c
		}
		r.SettlementLagDays = -1
		if lag.Valid {
			r.SettlementLagDays = int(lag.Int64)
		}
		if r.MaturityDate, err = parseDate(maturity); err != nil {
			return nil, fmt.Errorf("sqlstore.Snapshot: %s maturity: %w", r.Identifier, err)
		}
		if r.IssueDate, err = parseDate(issue); err != nil {
			return nil, fmt.Errorf("sqlstore.Snapshot: %s issue date: %w", r.Identifier, err)
		}
		r.DayCount = convention.DayCount(dayCount)
		r.Frequency = convention.Frequency(freq)
		r.BusinessDay = convention.BusinessDayConvention(bdc)
		r.Calendar = calendar.CalendarID(cal)
		r.Class = convention.InstrumentClass(class)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore.Snapshot: rows: %w", err)
	}
	return catalog.NewSnapshot(records)
}

// bind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) bind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(utils.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return utils.ParseDate(s)
}
