// Package catalog holds the read-only convention reference data the valuation core
// consumes. Lookups never guess: a miss is reported as ErrNotFound.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/meenmo/fixedincome/calendar"
	"github.com/meenmo/fixedincome/convention"
)

// ErrNotFound is returned when no record matches the key.
var ErrNotFound = errors.New("catalog: not found")

// Catalog is the lookup surface the resolver depends on.
type Catalog interface {
	Lookup(identifier string) (Record, error)
	LookupIssuer(issuer string) (Record, error)
}

// Record is one instrument's reference data. Zero values mean "not recorded":
// nil CouponRate, zero dates, empty enums and a negative SettlementLagDays.
type Record struct {
	Identifier        string
	Description       string
	Issuer            string
	CouponRate        *float64 // decimal fraction, 0.03 == 3%
	MaturityDate      time.Time
	IssueDate         time.Time
	DayCount          convention.DayCount
	Frequency         convention.Frequency
	BusinessDay       convention.BusinessDayConvention
	SettlementLagDays int
	Calendar          calendar.CalendarID
	Class             convention.InstrumentClass
}

// Conventions returns the record's convention fields, unset ones left zero.
func (r Record) Conventions() convention.Conventions {
	return convention.Conventions{
		DayCount:          r.DayCount,
		Frequency:         r.Frequency,
		BusinessDay:       r.BusinessDay,
		SettlementLagDays: r.SettlementLagDays,
	}
}

// HasTerms reports whether the record carries its own coupon and maturity.
func (r Record) HasTerms() bool {
	return r.CouponRate != nil && !r.MaturityDate.IsZero()
}

// HasConventions reports whether the record defines day count and frequency,
// the minimum needed to lend its conventions to another bond of the same issuer.
func (r Record) HasConventions() bool {
	return r.DayCount != "" && r.Frequency != 0
}

// Validate rejects records whose populated fields are outside the supported enums.
func (r Record) Validate() error {
	if NormalizeKey(r.Identifier) == "" {
		return fmt.Errorf("record: identifier is required")
	}
	if r.DayCount != "" && !r.DayCount.Valid() {
		return fmt.Errorf("record %s: unsupported day count %q", r.Identifier, r.DayCount)
	}
	if r.Frequency != 0 && !r.Frequency.Valid() {
		return fmt.Errorf("record %s: unsupported frequency %d", r.Identifier, int(r.Frequency))
	}
	if r.BusinessDay != "" && !r.BusinessDay.Valid() {
		return fmt.Errorf("record %s: unsupported business day convention %q", r.Identifier, r.BusinessDay)
	}
	if r.CouponRate != nil && (*r.CouponRate < 0 || *r.CouponRate >= 1) {
		return fmt.Errorf("record %s: coupon rate %.6f outside [0, 1)", r.Identifier, *r.CouponRate)
	}
	if !r.IssueDate.IsZero() && !r.MaturityDate.IsZero() && !r.IssueDate.Before(r.MaturityDate) {
		return fmt.Errorf("record %s: issue date not before maturity", r.Identifier)
	}
	return nil
}

// NormalizeKey upper-cases and trims an identifier or issuer name.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// Snapshot is an immutable in-memory catalog. It is safe for concurrent reads.
type Snapshot struct {
	byID     map[string]Record
	byIssuer map[string]Record
	ids      []string
}

// NewSnapshot indexes records by identifier and by issuer. Duplicate identifiers
// are rejected. For the issuer index the first record (by identifier order) that
// carries conventions wins.
func NewSnapshot(records []Record) (*Snapshot, error) {
	s := &Snapshot{
		byID:     make(map[string]Record, len(records)),
		byIssuer: make(map[string]Record),
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("catalog.NewSnapshot: %w", err)
		}
		key := NormalizeKey(r.Identifier)
		if _, dup := s.byID[key]; dup {
			return nil, fmt.Errorf("catalog.NewSnapshot: duplicate identifier %q", r.Identifier)
		}
		s.byID[key] = r
		s.ids = append(s.ids, key)
	}
	sort.Strings(s.ids)

	for _, key := range s.ids {
		r := s.byID[key]
		issuer := NormalizeKey(r.Issuer)
		if issuer == "" || !r.HasConventions() {
			continue
		}
		if _, ok := s.byIssuer[issuer]; !ok {
			s.byIssuer[issuer] = r
		}
	}
	return s, nil
}

// Lookup returns the record for identifier or ErrNotFound.
func (s *Snapshot) Lookup(identifier string) (Record, error) {
	if s == nil {
		return Record{}, ErrNotFound
	}
	r, ok := s.byID[NormalizeKey(identifier)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// LookupIssuer returns the convention-bearing record for an issuer or ErrNotFound.
func (s *Snapshot) LookupIssuer(issuer string) (Record, error) {
	if s == nil {
		return Record{}, ErrNotFound
	}
	r, ok := s.byIssuer[NormalizeKey(issuer)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Records returns a copy of all records ordered by identifier.
func (s *Snapshot) Records() []Record {
	if s == nil {
		return nil
	}
	out := make([]Record, 0, len(s.ids))
	for _, key := range s.ids {
		out = append(out, s.byID[key])
	}
	return out
}
