package valuation

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/calendar"
	"github.com/meenmo/fixedincome/catalog"
	"github.com/meenmo/fixedincome/convention"
	"github.com/meenmo/fixedincome/curve"
	"github.com/meenmo/fixedincome/description"
	"github.com/meenmo/fixedincome/metrics"
	"github.com/meenmo/fixedincome/resolve"
	"github.com/meenmo/fixedincome/schedule"
)

const ust52 = "US912810TL26"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	snap, err := catalog.LoadYAML("../catalog/testdata/catalog.yaml")
	require.NoError(t, err)
	return New(snap, append([]Option{WithLogger(quiet)}, opts...)...)
}

func benchmarkCurve(t *testing.T) *curve.Tenor {
	t.Helper()
	c, err := curve.LoadYAML("../curve/testdata/ust_par.yaml")
	require.NoError(t, err)
	return c
}

func TestValue_Treasury2052(t *testing.T) {
	t.Parallel()

	e := newEngine(t, WithCurve(benchmarkCurve(t)))
	res, err := e.Value(Request{Identifier: ust52, Price: 71.66, SettlementDate: date(2025, time.June, 30)})
	require.NoError(t, err)

	assert.Equal(t, resolve.CatalogExact, res.Bond.Source)
	assert.Nil(t, res.ResolutionNote)
	assert.True(t, res.Converged)

	assert.Greater(t, res.YieldSemiannual, 4.5)
	assert.Less(t, res.YieldSemiannual, 5.5)
	assert.Greater(t, res.ModifiedDurationSemiannual, 15.0)
	assert.Less(t, res.ModifiedDurationSemiannual, 17.0)
	assert.Greater(t, res.YieldAnnual, res.YieldSemiannual)
	assert.Less(t, res.ModifiedDurationAnnual, res.ModifiedDurationSemiannual)
	assert.Greater(t, res.PVBP, 0.0)
	assert.Greater(t, res.Convexity, 0.0)

	assert.Equal(t, res.CleanPrice, res.DirtyPrice-res.AccruedInterest)
	assert.InDelta(t, 71.66, res.CleanPrice, 1e-12)
	assert.InDelta(t, res.AccruedInterest*10000, res.AccruedPerMillion, 1e-9)

	// the benchmark itself has no spread, even with a curve supplied
	assert.Nil(t, res.SpreadToBenchmark)
	assert.Contains(t, res.SpreadNote, "benchmark instrument")

	assert.Equal(t, date(2025, time.February, 15), res.PreviousCouponDate)
	assert.Equal(t, date(2025, time.August, 15), res.NextCouponDate)
	assert.False(t, res.IssueSynthesized)
	assert.Equal(t, date(2022, time.August, 15), res.Bond.IssueDate)
}

func TestValue_DescriptionFallback(t *testing.T) {
	t.Parallel()

	e := newEngine(t, WithCurve(benchmarkCurve(t)))
	res, err := e.Value(Request{
		Identifier:     "XS0000000001",
		Description:    "GALAXY PIPELINE, 3.25%, 30-Sep-2040",
		Price:          80,
		SettlementDate: date(2025, time.June, 30),
	})
	require.NoError(t, err)

	assert.Equal(t, resolve.ParsedDescriptionDefaults, res.Bond.Source)
	require.NotNil(t, res.ResolutionNote)
	assert.Contains(t, *res.ResolutionNote, "XS0000000001 not found")
	assert.True(t, res.IssueSynthesized)

	// the synthesized issue date is reported and sits on the coupon cycle
	issue := res.Bond.IssueDate
	require.False(t, issue.IsZero())
	assert.True(t, issue.Before(res.SettlementDate))
	assert.Contains(t, []time.Month{time.March, time.September}, issue.Month())

	require.NotNil(t, res.SpreadToBenchmark)
	require.NotNil(t, res.ZSpreadApprox)
	assert.Greater(t, *res.SpreadToBenchmark, 0.0)
	assert.NotEmpty(t, res.SpreadMethod)
}

func TestValue_UnknownIdentifierWithCatalogIssuer(t *testing.T) {
	t.Parallel()

	// GALAXY PIPELINE ASSETS is catalogued as XS2241090088; an unknown
	// identifier with a description still resolves on class defaults.
	res, err := newEngine(t).Value(Request{
		Identifier:     "XS0000000001",
		Description:    "GALAXY PIPELINE ASSETS, 3.25%, 30-Sep-2040",
		Price:          80,
		SettlementDate: date(2025, time.June, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, resolve.ParsedDescriptionDefaults, res.Bond.Source)
	assert.Equal(t, convention.Thirty360, res.Bond.DayCount)
	assert.Equal(t, calendar.USD, res.Bond.Calendar)
	require.NotNil(t, res.ResolutionNote)
	assert.Contains(t, *res.ResolutionNote, "XS0000000001 not found")
	assert.NotContains(t, *res.ResolutionNote, "XS2241090088")

	// no curve configured: spread is null with a reason
	assert.Nil(t, res.SpreadToBenchmark)
	assert.Contains(t, res.SpreadNote, "not supplied")
}

func TestValue_IssuerFallbackOptIn(t *testing.T) {
	t.Parallel()

	e := newEngine(t, WithResolveOptions(resolve.WithIssuerFallback(true)))
	res, err := e.Value(Request{
		Description:    "GALAXY PIPELINE ASSETS, 3.25%, 30-Sep-2040",
		Price:          80,
		SettlementDate: date(2025, time.June, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, resolve.CatalogFallbackByIssuer, res.Bond.Source)
	require.NotNil(t, res.ResolutionNote)
	assert.Contains(t, *res.ResolutionNote, "XS2241090088")
}

func TestValue_CatalogRecordTermsFromDescription(t *testing.T) {
	t.Parallel()

	// the fixture record carries only a day-first description
	res, err := newEngine(t).Value(Request{Identifier: "US0378331005", Price: 85, SettlementDate: date(2025, time.June, 30)})
	require.NoError(t, err)
	assert.Equal(t, resolve.CatalogExact, res.Bond.Source)
	assert.Equal(t, date(2045, time.February, 9), res.Bond.MaturityDate)
	assert.InDelta(t, 0.0345, res.Bond.CouponRate, 1e-12)
}

func TestValue_Errors(t *testing.T) {
	t.Parallel()

	settle := date(2025, time.June, 30)
	tests := []struct {
		name     string
		req      Request
		kind     Kind
		sentinel error
	}{
		{"no input", Request{Price: 100, SettlementDate: settle}, KindInsufficientInput, resolve.ErrInsufficientInput},
		{"unknown identifier", Request{Identifier: "XS0000000001", Price: 100, SettlementDate: settle}, KindIdentifierNotFound, resolve.ErrIdentifierNotFound},
		{"unparseable", Request{Description: "call me maybe", Price: 100, SettlementDate: settle}, KindDescriptionParseFailure, description.ErrParseFailure},
		{"matured", Request{Identifier: ust52, Price: 100, SettlementDate: date(2052, time.August, 15)}, KindMaturedInstrument, schedule.ErrMatured},
		{"zero price", Request{Identifier: ust52, Price: 0, SettlementDate: settle}, KindInvalidPrice, bond.ErrInvalidPrice},
		{"negative price", Request{Identifier: ust52, Price: -3, SettlementDate: settle}, KindInvalidPrice, bond.ErrInvalidPrice},
	}

	e := newEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Value(tt.req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestValue_ConvergenceFailureCarriesBestEffort(t *testing.T) {
	t.Parallel()

	_, err := newEngine(t).Value(Request{Identifier: ust52, Price: 250, SettlementDate: date(2025, time.June, 30)})
	require.Error(t, err)
	assert.Equal(t, KindYieldConvergenceFailure, KindOf(err))
	assert.ErrorIs(t, err, bond.ErrNoConvergence)

	var ve *Error
	require.True(t, errors.As(err, &ve))
	require.NotNil(t, ve.BestEffort)
	assert.False(t, ve.BestEffort.Converged)
	assert.Equal(t, 0.0, ve.BestEffort.YieldSemiannual)
}

func TestValue_YieldToPriceRoundTrip(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	settle := date(2025, time.June, 30)
	fromPrice, err := e.Value(Request{Identifier: ust52, Price: 71.66, SettlementDate: settle})
	require.NoError(t, err)

	y := fromPrice.YieldSemiannual
	fromYield, err := e.Value(Request{Identifier: ust52, Yield: &y, SettlementDate: settle})
	require.NoError(t, err)

	assert.InDelta(t, 71.66, fromYield.CleanPrice, 1e-6)
	assert.InDelta(t, fromPrice.ModifiedDurationSemiannual, fromYield.ModifiedDurationSemiannual, 1e-6)
	assert.Equal(t, fromYield.CleanPrice, fromYield.DirtyPrice-fromYield.AccruedInterest)
}

func TestValue_SettlementPrecedence(t *testing.T) {
	t.Parallel()

	e := newEngine(t, WithClock(func() time.Time { return time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC) }))

	// explicit date wins over trade date
	res, err := e.Value(Request{Identifier: ust52, Price: 72, SettlementDate: date(2025, time.June, 2), TradeDate: date(2025, time.June, 27)})
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.June, 2), res.SettlementDate)

	// Friday trade, T+1 lands on Monday
	res, err = e.Value(Request{Identifier: ust52, Price: 72, TradeDate: date(2025, time.June, 27)})
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.June, 30), res.SettlementDate)

	// neither: prior month end
	res, err = e.Value(Request{Identifier: ust52, Price: 72})
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.June, 30), res.SettlementDate)
}

func TestPriorMonthEnd(t *testing.T) {
	t.Parallel()

	b := resolve.ResolvedBond{Calendar: calendar.USD}
	// Aug 30-31 2025 is a weekend
	assert.Equal(t, date(2025, time.August, 29), PriorMonthEnd(date(2025, time.September, 10), b))
	assert.Equal(t, date(2024, time.December, 31), PriorMonthEnd(date(2025, time.January, 1), b))
}

func TestSpot(t *testing.T) {
	t.Parallel()

	b := resolve.ResolvedBond{Calendar: calendar.USD, SettlementLagDays: 2}
	// Thursday 2025-07-03, Independence Day on Friday
	assert.Equal(t, date(2025, time.July, 8), Spot(time.Date(2025, 7, 3, 16, 0, 0, 0, time.UTC), b))
}

func TestValue_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	e := newEngine(t, WithMetrics(m))
	_, err = e.Value(Request{Identifier: ust52, Price: 71.66, SettlementDate: date(2025, time.June, 30)})
	require.NoError(t, err)
	_, err = e.Value(Request{Identifier: ust52, Price: -1, SettlementDate: date(2025, time.June, 30)})
	require.Error(t, err)

	n, err := testutil.GatherAndCount(reg, "fixedincome_valuations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = testutil.GatherAndCount(reg, "fixedincome_resolutions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResult_JSONNulls(t *testing.T) {
	t.Parallel()

	res, err := newEngine(t).Value(Request{Identifier: ust52, Price: 71.66, SettlementDate: date(2025, time.June, 30)})
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"spread_to_benchmark":null`)
	assert.Contains(t, string(raw), `"resolution_note":null`)
}
