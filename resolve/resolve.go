// Package resolve turns an identifier and/or a free-text description into one
// fully specified bond. There is exactly one pipeline and each resolution path
// produces its bond atomically: terms and conventions never come from two
// different instruments unless the source says so (CatalogFallbackByIssuer).
package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meenmo/fixedincome/calendar"
	"github.com/meenmo/fixedincome/catalog"
	"github.com/meenmo/fixedincome/classify"
	"github.com/meenmo/fixedincome/convention"
	"github.com/meenmo/fixedincome/description"
)

var (
	// ErrInsufficientInput means neither identifier nor description was given.
	ErrInsufficientInput = errors.New("resolve: identifier or description required")
	// ErrIdentifierNotFound means the identifier missed and there was no description to fall back to.
	ErrIdentifierNotFound = errors.New("resolve: identifier not found")
	// ErrIncompleteRecord means a catalog record has neither terms nor a description to read them from.
	ErrIncompleteRecord = errors.New("resolve: catalog record lacks coupon or maturity")
)

// Source records which path produced a ResolvedBond.
type Source string

const (
	CatalogExact              Source = "CatalogExact"
	CatalogFallbackByIssuer   Source = "CatalogFallbackByIssuer"
	ParsedDescriptionDefaults Source = "ParsedDescriptionDefaults"
)

// ResolvedBond is the canonical bond handed to scheduling and pricing.
// IssueDate is zero when unknown.
type ResolvedBond struct {
	Identifier        string                           `json:"identifier,omitempty"`
	Description       string                           `json:"description,omitempty"`
	Issuer            string                           `json:"issuer,omitempty"`
	CouponRate        float64                          `json:"coupon_rate"`
	MaturityDate      time.Time                        `json:"maturity_date"`
	IssueDate         time.Time                        `json:"issue_date,omitempty"`
	Frequency         convention.Frequency             `json:"frequency_months"`
	DayCount          convention.DayCount              `json:"day_count"`
	BusinessDay       convention.BusinessDayConvention `json:"business_day_convention"`
	SettlementLagDays int                              `json:"settlement_lag_days"`
	Calendar          calendar.CalendarID              `json:"calendar"`
	Class             convention.InstrumentClass       `json:"instrument_class"`
	ClassifiedBy      classify.Method                  `json:"classified_by"`
	Source            Source                           `json:"source_of_truth"`
	Note              string                           `json:"resolution_note,omitempty"`
}

// Conventions returns the bond's convention set.
func (b ResolvedBond) Conventions() convention.Conventions {
	return convention.Conventions{
		DayCount:          b.DayCount,
		Frequency:         b.Frequency,
		BusinessDay:       b.BusinessDay,
		SettlementLagDays: b.SettlementLagDays,
	}
}

// Validate checks the terms and conventions are usable for pricing.
func (b ResolvedBond) Validate() error {
	if b.CouponRate < 0 || b.CouponRate >= 1 {
		return fmt.Errorf("coupon rate %.6f outside [0, 1)", b.CouponRate)
	}
	if b.MaturityDate.IsZero() {
		return fmt.Errorf("maturity date is required")
	}
	if !b.IssueDate.IsZero() && !b.IssueDate.Before(b.MaturityDate) {
		return fmt.Errorf("issue date %s not before maturity %s",
			b.IssueDate.Format("2006-01-02"), b.MaturityDate.Format("2006-01-02"))
	}
	return b.Conventions().Validate()
}

// Resolver runs the resolution pipeline against a read-only catalog.
type Resolver struct {
	catalog         catalog.Catalog
	classifier      *classify.Classifier
	parser          description.Parser
	defaultCalendar calendar.CalendarID
	issuerFallback  bool
	logger          *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClassifier replaces classify.Default.
func WithClassifier(c *classify.Classifier) Option {
	return func(r *Resolver) { r.classifier = c }
}

// WithParser replaces description.DefaultParser.
func WithParser(p description.Parser) Option {
	return func(r *Resolver) { r.parser = p }
}

// WithDefaultCalendar sets the calendar used when a record names none.
func WithDefaultCalendar(id calendar.CalendarID) Option {
	return func(r *Resolver) { r.defaultCalendar = id }
}

// WithIssuerFallback toggles borrowing conventions from another bond of the same
// issuer when an identifier misses. Off by default: a miss resolves from the
// description with class defaults.
func WithIssuerFallback(enabled bool) Option {
	return func(r *Resolver) { r.issuerFallback = enabled }
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New builds a Resolver. A nil catalog behaves as an empty one.
func New(cat catalog.Catalog, opts ...Option) *Resolver {
	if cat == nil {
		cat = (*catalog.Snapshot)(nil)
	}
	r := &Resolver{
		catalog:         cat,
		classifier:      classify.Default,
		parser:          description.DefaultParser,
		defaultCalendar: calendar.USD,
		issuerFallback:  false,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve applies, first match wins: catalog hit, description fallback,
// IdentifierNotFound, InsufficientInput.
func (r *Resolver) Resolve(identifier, desc string) (ResolvedBond, error) {
	identifier = strings.TrimSpace(identifier)
	desc = strings.TrimSpace(desc)

	if identifier == "" && desc == "" {
		return ResolvedBond{}, ErrInsufficientInput
	}

	if identifier != "" {
		rec, err := r.catalog.Lookup(identifier)
		switch {
		case err == nil:
			return r.fromRecord(identifier, rec)
		case !errors.Is(err, catalog.ErrNotFound):
			return ResolvedBond{}, fmt.Errorf("Resolve: catalog lookup %s: %w", identifier, err)
		case desc == "":
			return ResolvedBond{}, fmt.Errorf("Resolve: %s: %w", identifier, ErrIdentifierNotFound)
		}
	}

	return r.fromDescription(identifier, desc)
}

// fromRecord builds the bond from one catalog record only. Terms the record lacks
// are read from the record's own description.
func (r *Resolver) fromRecord(identifier string, rec catalog.Record) (ResolvedBond, error) {
	b := ResolvedBond{
		Identifier:  identifier,
		Description: rec.Description,
		Issuer:      rec.Issuer,
		IssueDate:   rec.IssueDate,
		Calendar:    rec.Calendar,
		Source:      CatalogExact,
	}
	var notes []string

	if rec.CouponRate != nil {
		b.CouponRate = *rec.CouponRate
	}
	b.MaturityDate = rec.MaturityDate
	if !rec.HasTerms() {
		if rec.Description == "" {
			return ResolvedBond{}, fmt.Errorf("Resolve: %s: %w", identifier, ErrIncompleteRecord)
		}
		parsed, err := r.parser.Parse(rec.Description)
		if err != nil {
			return ResolvedBond{}, fmt.Errorf("Resolve: %s catalog description: %w", identifier, err)
		}
		if rec.CouponRate == nil {
			b.CouponRate = parsed.CouponRate
		}
		if rec.MaturityDate.IsZero() {
			b.MaturityDate = parsed.MaturityDate
		}
		if b.Issuer == "" {
			b.Issuer = parsed.IssuerHint
		}
		notes = append(notes, fmt.Sprintf("coupon/maturity read from catalog description %q", rec.Description))
	}

	cls := r.classifier.Classify(classify.Evidence{
		Identifier:   identifier,
		Description:  rec.Description,
		Issuer:       rec.Issuer,
		CatalogClass: rec.Class,
	})
	b.Class, b.ClassifiedBy = cls.Class, cls.Method

	conv, filled := rec.Conventions().FillMissing(convention.DefaultsFor(cls.Class))
	b.applyConventions(conv)
	if len(filled) > 0 {
		notes = append(notes, fmt.Sprintf("catalog record lacks %s; %s defaults applied",
			strings.Join(filled, ", "), strings.ToLower(string(cls.Class))))
	}
	if b.Calendar == "" {
		b.Calendar = r.defaultCalendar
	}
	b.Note = strings.Join(notes, "; ")

	if err := b.Validate(); err != nil {
		return ResolvedBond{}, fmt.Errorf("Resolve: %s: %w", identifier, err)
	}
	if b.Note != "" {
		r.logger.Warn("catalog record incomplete", "identifier", identifier, "note", b.Note)
	}
	return b, nil
}

// fromDescription builds the bond from the parsed description, with conventions
// from the issuer's catalog record when issuer fallback is enabled and one
// exists, else class defaults.
func (r *Resolver) fromDescription(identifier, desc string) (ResolvedBond, error) {
	parsed, err := r.parser.Parse(desc)
	if err != nil {
		return ResolvedBond{}, fmt.Errorf("Resolve: %w", err)
	}

	cls := r.classifier.Classify(classify.Evidence{
		Identifier:  identifier,
		Description: desc,
		Issuer:      parsed.IssuerHint,
	})

	b := ResolvedBond{
		Identifier:   identifier,
		Description:  desc,
		Issuer:       parsed.IssuerHint,
		CouponRate:   parsed.CouponRate,
		MaturityDate: parsed.MaturityDate,
		Class:        cls.Class,
		ClassifiedBy: cls.Method,
		Calendar:     r.defaultCalendar,
		Source:       ParsedDescriptionDefaults,
	}

	lead := "no identifier supplied"
	if identifier != "" {
		lead = fmt.Sprintf("identifier %s not found in catalog", identifier)
	}

	defaults := convention.DefaultsFor(cls.Class)
	if issuerRec, ok := r.issuerRecord(parsed.IssuerHint); ok {
		conv, _ := issuerRec.Conventions().FillMissing(defaults)
		b.applyConventions(conv)
		if issuerRec.Calendar != "" {
			b.Calendar = issuerRec.Calendar
		}
		b.Source = CatalogFallbackByIssuer
		b.Note = fmt.Sprintf("%s; terms parsed from description, conventions taken from issuer %s catalog record %s",
			lead, parsed.IssuerHint, issuerRec.Identifier)
	} else {
		b.applyConventions(defaults)
		b.Note = fmt.Sprintf("%s; terms parsed from description, %s default conventions applied",
			lead, strings.ToLower(string(cls.Class)))
	}

	if err := b.Validate(); err != nil {
		return ResolvedBond{}, fmt.Errorf("Resolve: description %q: %w", desc, err)
	}
	r.logger.Warn("resolution fell back to description",
		"identifier", identifier,
		"description", desc,
		"source", b.Source,
		"class", b.Class,
		"classified_by", b.ClassifiedBy,
	)
	return b, nil
}

func (r *Resolver) issuerRecord(issuer string) (catalog.Record, bool) {
	if !r.issuerFallback || strings.TrimSpace(issuer) == "" {
		return catalog.Record{}, false
	}
	rec, err := r.catalog.LookupIssuer(issuer)
	if err != nil || !rec.HasConventions() {
		return catalog.Record{}, false
	}
	return rec, true
}

func (b *ResolvedBond) applyConventions(c convention.Conventions) {
	b.DayCount = c.DayCount
	b.Frequency = c.Frequency
	b.BusinessDay = c.BusinessDay
	b.SettlementLagDays = c.SettlementLagDays
}
