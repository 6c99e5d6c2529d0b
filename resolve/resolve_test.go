package resolve

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/fixedincome/calendar"
	"github.com/meenmo/fixedincome/catalog"
	"github.com/meenmo/fixedincome/classify"
	"github.com/meenmo/fixedincome/convention"
	"github.com/meenmo/fixedincome/description"
)

func ptr(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testCatalog(t *testing.T) *catalog.Snapshot {
	t.Helper()
	snap, err := catalog.NewSnapshot([]catalog.Record{
		{
			Identifier:        "US912810TL26",
			Description:       "T 3 15/08/52",
			Issuer:            "US TREASURY",
			CouponRate:        ptr(0.03),
			MaturityDate:      date(2052, time.August, 15),
			IssueDate:         date(2022, time.August, 15),
			DayCount:          convention.ActActICMA,
			Frequency:         convention.Semiannual,
			BusinessDay:       convention.Unadjusted,
			SettlementLagDays: 1,
			Calendar:          calendar.USD,
			Class:             convention.Treasury,
		},
		{
			Identifier:        "XS0000000ACME",
			Description:       "ACME CORP, 5%, 2035-06-15",
			Issuer:            "ACME CORP",
			CouponRate:        ptr(0.05),
			MaturityDate:      date(2035, time.June, 15),
			DayCount:          convention.Act365F,
			Frequency:         convention.Annual,
			BusinessDay:       convention.ModifiedFollowing,
			SettlementLagDays: 3,
			Calendar:          calendar.TARGET,
		},
		{
			Identifier:        "US0378331005",
			Description:       "AAPL 3.45 09/02/45",
			SettlementLagDays: -1,
		},
		{
			Identifier:        "XSBROKEN",
			SettlementLagDays: -1,
		},
	})
	require.NoError(t, err)
	return snap
}

func newResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(testCatalog(t), opts...)
}

func TestResolve_CatalogExact(t *testing.T) {
	t.Parallel()

	b, err := newResolver(t).Resolve("us912810tl26", "ignored description 9% 2099-01-01")
	require.NoError(t, err)

	assert.Equal(t, CatalogExact, b.Source)
	assert.InDelta(t, 0.03, b.CouponRate, 1e-12)
	assert.Equal(t, date(2052, time.August, 15), b.MaturityDate)
	assert.Equal(t, date(2022, time.August, 15), b.IssueDate)
	assert.Equal(t, convention.ActActICMA, b.DayCount)
	assert.Equal(t, convention.Treasury, b.Class)
	assert.Equal(t, classify.MethodIdentifierPrefix, b.ClassifiedBy)
	assert.Equal(t, 1, b.SettlementLagDays)
	assert.Empty(t, b.Note)
}

func TestResolve_CatalogRecordWithoutTermsUsesOwnDescription(t *testing.T) {
	t.Parallel()

	b, err := newResolver(t).Resolve("US0378331005", "")
	require.NoError(t, err)

	assert.Equal(t, CatalogExact, b.Source)
	assert.InDelta(t, 0.0345, b.CouponRate, 1e-12)
	assert.Equal(t, date(2045, time.February, 9), b.MaturityDate)
	assert.Equal(t, "AAPL", b.Issuer)
	assert.Equal(t, convention.Corporate, b.Class)
	assert.Equal(t, convention.DefaultsFor(convention.Corporate), b.Conventions())
	assert.Equal(t, calendar.USD, b.Calendar)
	assert.Contains(t, b.Note, "catalog description")
	assert.Contains(t, b.Note, "day count, frequency, business day convention, settlement lag")
}

func TestResolve_IncompleteRecord(t *testing.T) {
	t.Parallel()

	_, err := newResolver(t).Resolve("XSBROKEN", "")
	assert.ErrorIs(t, err, ErrIncompleteRecord)
}

func TestResolve_DescriptionDefaults(t *testing.T) {
	t.Parallel()

	b, err := newResolver(t).Resolve("US912810ZZ99", "T 4 1/4 15/05/35")
	require.NoError(t, err)

	assert.Equal(t, ParsedDescriptionDefaults, b.Source)
	assert.Equal(t, convention.Treasury, b.Class)
	assert.Equal(t, classify.MethodIdentifierPrefix, b.ClassifiedBy)
	assert.InDelta(t, 0.0425, b.CouponRate, 1e-12)
	assert.Equal(t, date(2035, time.May, 15), b.MaturityDate)
	assert.True(t, b.IssueDate.IsZero())
	assert.Equal(t, convention.DefaultsFor(convention.Treasury), b.Conventions())
	assert.Contains(t, b.Note, "US912810ZZ99 not found")
}

func TestResolve_DescriptionOnlyCorporate(t *testing.T) {
	t.Parallel()

	b, err := newResolver(t).Resolve("", "GALAXY PIPELINE, 3.25%, 30-Sep-2040")
	require.NoError(t, err)

	assert.Equal(t, ParsedDescriptionDefaults, b.Source)
	assert.Equal(t, convention.Corporate, b.Class)
	assert.Equal(t, convention.Thirty360, b.DayCount)
	assert.Equal(t, 2, b.SettlementLagDays)
	assert.Contains(t, b.Note, "no identifier supplied")
}

func TestResolve_UnknownIdentifierIgnoresIssuerRecord(t *testing.T) {
	t.Parallel()

	// ACME CORP is in the catalog under another identifier; its conventions
	// must not leak into a bond resolved from the description.
	b, err := newResolver(t).Resolve("XS9999999999", "ACME CORP, 6%, 2040-01-15")
	require.NoError(t, err)

	assert.Equal(t, ParsedDescriptionDefaults, b.Source)
	assert.InDelta(t, 0.06, b.CouponRate, 1e-12)
	assert.Equal(t, date(2040, time.January, 15), b.MaturityDate)
	assert.Equal(t, convention.Thirty360, b.DayCount)
	assert.Equal(t, convention.Semiannual, b.Frequency)
	assert.Equal(t, calendar.USD, b.Calendar)
	assert.Contains(t, b.Note, "XS9999999999 not found")
	assert.NotContains(t, b.Note, "XS0000000ACME")
}

func TestResolve_IssuerFallbackOptIn(t *testing.T) {
	t.Parallel()

	b, err := newResolver(t, WithIssuerFallback(true)).Resolve("XS9999999999", "ACME CORP, 6%, 2040-01-15")
	require.NoError(t, err)

	assert.Equal(t, CatalogFallbackByIssuer, b.Source)
	assert.InDelta(t, 0.06, b.CouponRate, 1e-12)
	assert.Equal(t, convention.Act365F, b.DayCount)
	assert.Equal(t, convention.Annual, b.Frequency)
	assert.Equal(t, calendar.TARGET, b.Calendar)
	assert.Contains(t, b.Note, "XS0000000ACME")
}

func TestResolve_Failures(t *testing.T) {
	t.Parallel()

	r := newResolver(t)

	_, err := r.Resolve("", "  ")
	assert.ErrorIs(t, err, ErrInsufficientInput)

	_, err = r.Resolve("XS0000000000", "")
	assert.ErrorIs(t, err, ErrIdentifierNotFound)

	_, err = r.Resolve("XS0000000000", "not a bond")
	assert.True(t, errors.Is(err, description.ErrParseFailure))
}

func TestResolve_NilCatalog(t *testing.T) {
	t.Parallel()

	r := New(nil, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err := r.Resolve("US912810TL26", "")
	assert.ErrorIs(t, err, ErrIdentifierNotFound)

	b, err := r.Resolve("US912810TL26", "T 3 15/08/52")
	require.NoError(t, err)
	assert.Equal(t, ParsedDescriptionDefaults, b.Source)
}
