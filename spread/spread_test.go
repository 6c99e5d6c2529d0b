package spread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/calendar"
	"github.com/meenmo/fixedincome/convention"
	"github.com/meenmo/fixedincome/curve"
	"github.com/meenmo/fixedincome/resolve"
	"github.com/meenmo/fixedincome/schedule"
)

var settle = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func input(t *testing.T, class convention.InstrumentClass, y float64) Input {
	t.Helper()
	b := resolve.ResolvedBond{
		CouponRate:   0.0325,
		MaturityDate: time.Date(2040, 9, 30, 0, 0, 0, 0, time.UTC),
		Frequency:    convention.Semiannual,
		DayCount:     convention.Thirty360,
		BusinessDay:  convention.Unadjusted,
		Calendar:     calendar.USD,
		Class:        class,
	}
	s, err := schedule.Build(b, settle, schedule.DefaultConfig)
	require.NoError(t, err)
	p, err := bond.NewPricer(b, s)
	require.NoError(t, err)

	return Input{
		Class:           class,
		YieldSemiannual: y,
		DirtyPrice:      p.DirtyPrice(y),
		Settlement:      settle,
		Maturity:        b.MaturityDate,
		PerYear:         2,
		Cashflows:       p.Cashflows(),
	}
}

func flat(t *testing.T, pct float64) *curve.Tenor {
	t.Helper()
	c, err := curve.NewTenor(settle, map[string]float64{"1Y": pct, "30Y": pct})
	require.NoError(t, err)
	return c
}

type failingCurve struct{}

func (failingCurve) RateAt(float64) (float64, error) { return 0, curve.ErrNotAvailable }

func TestCalculate_BenchmarkIsNull(t *testing.T) {
	t.Parallel()

	res := Calculate(input(t, convention.Treasury, 0.05), flat(t, 4))
	assert.Nil(t, res.GSpread)
	assert.Nil(t, res.ZSpreadApprox)
	assert.Contains(t, res.Note, "benchmark instrument")
}

func TestCalculate_FlatCurve(t *testing.T) {
	t.Parallel()

	res := Calculate(input(t, convention.Corporate, 0.055), flat(t, 4))
	require.NotNil(t, res.GSpread)
	require.NotNil(t, res.ZSpreadApprox)
	assert.InDelta(t, 150.0, *res.GSpread, 1e-9)
	// on a flat curve the flat spread equals the yield difference
	assert.InDelta(t, 150.0, *res.ZSpreadApprox, 1e-4)
	assert.Equal(t, MethodGSpread, res.Method)
	assert.InDelta(t, 15.26, res.Tenor, 0.01)
}

func TestCalculate_SignFollowsYieldDifferential(t *testing.T) {
	t.Parallel()

	c, err := curve.NewTenor(settle, map[string]float64{"2Y": 3.7, "10Y": 4.2, "20Y": 4.8})
	require.NoError(t, err)

	above := Calculate(input(t, convention.Corporate, 0.06), c)
	require.NotNil(t, above.GSpread)
	assert.Greater(t, *above.GSpread, 0.0)
	assert.Greater(t, *above.ZSpreadApprox, 0.0)

	below := Calculate(input(t, convention.Corporate, 0.03), c)
	require.NotNil(t, below.GSpread)
	assert.Less(t, *below.GSpread, 0.0)
}

func TestCalculate_CurveMissing(t *testing.T) {
	t.Parallel()

	res := Calculate(input(t, convention.Corporate, 0.05), nil)
	assert.Nil(t, res.GSpread)
	assert.Contains(t, res.Note, "not supplied")

	res = Calculate(input(t, convention.Corporate, 0.05), failingCurve{})
	assert.Nil(t, res.GSpread)
	assert.Contains(t, res.Note, "unavailable")
}
