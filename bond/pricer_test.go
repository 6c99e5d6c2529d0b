package bond

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/fixedincome/convention"
	"github.com/meenmo/fixedincome/schedule"
)

func TestAnalytics_ConversionLaws(t *testing.T) {
	t.Parallel()

	p := mustPricer(t, ust52(), date(2025, time.June, 30))

	for _, y := range []float64{0.001, 0.02, 0.049, 0.08, 0.2} {
		a, err := p.PriceFromYield(y)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, a.MacaulayDurationSemiannual, a.ModifiedDurationSemiannual)
		assert.GreaterOrEqual(t, a.MacaulayDurationAnnual, a.ModifiedDurationAnnual)
		assert.InDelta(t, a.ModifiedDurationSemiannual*(1+y/2), a.MacaulayDurationSemiannual, 1e-12)
		assert.InDelta(t, a.ModifiedDurationSemiannual/(1+y/2), a.ModifiedDurationAnnual, 1e-12)
		assert.InDelta(t, a.MacaulayDurationSemiannual/(1+y/2), a.MacaulayDurationAnnual, 1e-12)
		assert.InDelta(t, math.Pow(1+y/2, 2)-1, a.YieldAnnual, 1e-15)

		// the historical defect was annual = semiannual / 2
		assert.Greater(t, math.Abs(a.ModifiedDurationAnnual-a.ModifiedDurationSemiannual/2), 1.0)
	}
}

func TestAnalytics_DirtyMinusAccruedIsClean(t *testing.T) {
	t.Parallel()

	for _, b := range []struct {
		name string
		p    *Pricer
	}{
		{"treasury", mustPricer(t, ust52(), date(2025, time.June, 30))},
		{"corporate", mustPricer(t, corporate(), date(2025, time.May, 13))},
	} {
		for _, clean := range []float64{71.66, 99.999, 100.015625, 123.456789} {
			res, err := b.p.SolveYield(clean, 0.03, DefaultSolverConfig)
			require.NoError(t, err)
			a, err := b.p.Analytics(res.Yield, clean)
			require.NoError(t, err)
			assert.Equal(t, a.CleanPrice, a.DirtyPrice-a.AccruedInterest, "%s %v", b.name, clean)
			assert.InDelta(t, clean, a.CleanPrice, 1e-12)
		}
	}
}

func TestAnalytics_ClosedFormMatchesFiniteDifference(t *testing.T) {
	t.Parallel()

	p := mustPricer(t, corporate(), date(2025, time.June, 30))
	y := 0.055
	a, err := p.PriceFromYield(y)
	require.NoError(t, err)

	h := 1e-5
	up, down, mid := p.DirtyPrice(y+h), p.DirtyPrice(y-h), p.DirtyPrice(y)
	assert.InDelta(t, (down-up)/(2*h*mid), a.ModifiedDurationSemiannual, 1e-6)
	assert.InDelta(t, (up+down-2*mid)/(h*h*mid), a.Convexity, 1e-3)

	// PVBP by repricing agrees with the duration approximation to first order
	assert.InDelta(t, a.ModifiedDurationSemiannual*a.DirtyPrice*1e-4, a.PVBP, 1e-6)
}

func TestAnalytics_ZeroCouponMacaulayIsTimeToMaturity(t *testing.T) {
	t.Parallel()

	b := ust52()
	b.CouponRate = 0
	settle := date(2025, time.February, 15)
	p := mustPricer(t, b, settle)

	a, err := p.PriceFromYield(0.04)
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.AccruedInterest)
	// 55 half-years from a coupon date
	assert.InDelta(t, 27.5, a.MacaulayDurationSemiannual, 1e-9)
	assert.InDelta(t, 100*math.Pow(1.02, -55), a.DirtyPrice, 1e-9)
}

func TestNewPricer_AnnualFrequency(t *testing.T) {
	t.Parallel()

	b := corporate()
	b.Frequency = convention.Annual
	b.DayCount = convention.Act365F
	b.MaturityDate = date(2030, time.June, 15)
	b.BusinessDay = convention.Unadjusted

	settle := date(2025, time.December, 15)
	s, err := schedule.Build(b, settle, schedule.DefaultConfig)
	require.NoError(t, err)
	p, err := NewPricer(b, s)
	require.NoError(t, err)

	cfs := p.Cashflows()
	require.Len(t, cfs, 5)
	assert.InDelta(t, 3.25, cfs[0].Coupon, 1e-12)
	assert.InDelta(t, 100.0, cfs[4].Principal, 1e-12)
	assert.InDelta(t, 0.5, cfs[0].Periods, 0.01)

	// an annual-pay bond priced at an annual yield ya has semiannual yield 2(sqrt(1+ya)-1)
	ys := AnnualToSemiannual(0.0325)
	a, err := p.PriceFromYield(ys)
	require.NoError(t, err)
	assert.InDelta(t, 0.0325, SemiannualToFrequency(ys, 1), 1e-14)
	assert.InDelta(t, 0.0325, a.YieldAnnual, 1e-14)

	// Macaulay uses the semiannual factor regardless of payment frequency
	assert.InDelta(t, a.ModifiedDurationSemiannual*(1+ys/2), a.MacaulayDurationSemiannual, 1e-12)
	assert.NotEqual(t, a.ModifiedDurationSemiannual*(1+ys), a.MacaulayDurationSemiannual)
}

func TestNewPricer_StubCoupon(t *testing.T) {
	t.Parallel()

	b := ust52()
	b.IssueDate = date(2025, time.March, 1)
	b.MaturityDate = date(2030, time.June, 15)

	p := mustPricer(t, b, date(2025, time.April, 1))
	cfs := p.Cashflows()
	// short first coupon: 106 of 182 days of a regular 1.5 coupon
	assert.InDelta(t, 1.5*106.0/182.0, cfs[0].Coupon, 1e-12)
	assert.InDelta(t, 1.5, cfs[1].Coupon, 1e-12)
	assert.InDelta(t, 1.5*31.0/182.0, p.AccruedInterest(), 1e-12)
}

func TestAnalytics_InvalidInputs(t *testing.T) {
	t.Parallel()

	p := mustPricer(t, ust52(), date(2025, time.June, 30))

	_, err := p.Analytics(0.05, 0)
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = p.Analytics(math.NaN(), 90)
	assert.ErrorIs(t, err, ErrInvalidYield)
	_, err = p.PriceFromYield(-3)
	assert.ErrorIs(t, err, ErrInvalidYield)
}
