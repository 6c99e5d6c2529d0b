// Package spread measures a bond's yield against the benchmark curve.
package spread

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/convention"
	"github.com/meenmo/fixedincome/curve"
	"github.com/meenmo/fixedincome/utils"
)

const (
	// MethodGSpread is the bond yield minus the benchmark yield interpolated at maturity.
	MethodGSpread = "g-spread (interpolated benchmark yield at maturity)"
	// MethodZSpreadApprox labels the flat spread estimate. It discounts with
	// par yields as if they were zero rates and is not a true Z-spread.
	MethodZSpreadApprox = "z-spread approximation (flat spread over par curve)"
)

// Input is what the calculator needs from one valuation.
type Input struct {
	Class           convention.InstrumentClass
	YieldSemiannual float64
	DirtyPrice      float64
	Settlement      time.Time
	Maturity        time.Time
	PerYear         int
	Cashflows       []bond.Cashflow
}

// Result holds spreads in basis points. Nil means not computed; for the
// benchmark (Treasury class) instrument both are nil by definition.
type Result struct {
	GSpread        *float64
	ZSpreadApprox  *float64
	BenchmarkYield *float64
	Tenor          float64
	Method         string
	Note           string
}

// Calculator holds the Z-spread search parameters.
type Calculator struct {
	Tolerance     float64
	MaxIterations int
	Floor         float64
	Ceiling       float64
}

// DefaultCalculator searches flat spreads in [-50%, +100%].
var DefaultCalculator = Calculator{
	Tolerance:     1e-10,
	MaxIterations: 200,
	Floor:         -0.5,
	Ceiling:       1.0,
}

// Calculate computes the G-spread and the labelled Z-spread approximation.
// A nil or failing curve yields nil spreads with the reason in Note.
func (calc Calculator) Calculate(in Input, c curve.Curve) Result {
	tenor := utils.YearsBetween(in.Settlement, in.Maturity)
	res := Result{Tenor: tenor}

	if in.Class == convention.Treasury {
		res.Note = "benchmark instrument: spread to benchmark is not applicable"
		return res
	}
	if c == nil {
		res.Note = "benchmark curve not supplied; spread not computed"
		return res
	}

	bench, err := c.RateAt(tenor)
	if err != nil {
		res.Note = fmt.Sprintf("benchmark curve unavailable at %.2fy: %v", tenor, err)
		return res
	}
	g := (in.YieldSemiannual - bench) * 1e4
	res.GSpread = &g
	res.BenchmarkYield = &bench
	res.Method = MethodGSpread

	if z, err := calc.zSpread(in, c); err == nil {
		zbp := z * 1e4
		res.ZSpreadApprox = &zbp
	} else {
		res.Note = fmt.Sprintf("%s not computed: %v", MethodZSpreadApprox, err)
	}
	return res
}

// Calculate runs DefaultCalculator.
func Calculate(in Input, c curve.Curve) Result {
	return DefaultCalculator.Calculate(in, c)
}

// zSpread finds the flat z with sum CF * (1 + (r(t)+z)/2)^(-2t) = dirty, t in years.
func (calc Calculator) zSpread(in Input, c curve.Curve) (float64, error) {
	if len(in.Cashflows) == 0 || in.PerYear <= 0 || in.DirtyPrice <= 0 {
		return 0, fmt.Errorf("no cashflows to discount")
	}

	years := make([]float64, len(in.Cashflows))
	rates := make([]float64, len(in.Cashflows))
	for i, cf := range in.Cashflows {
		years[i] = cf.Periods / float64(in.PerYear)
		r, err := c.RateAt(years[i])
		if err != nil {
			return 0, err
		}
		rates[i] = r
	}

	pv := func(z float64) float64 {
		var sum float64
		for i, cf := range in.Cashflows {
			sum += cf.Amount() * math.Pow(1.0+(rates[i]+z)/2.0, -2.0*years[i])
		}
		return sum
	}

	lo, hi := calc.Floor, calc.Ceiling
	fLo, fHi := pv(lo)-in.DirtyPrice, pv(hi)-in.DirtyPrice
	if fLo < 0 || fHi > 0 {
		return 0, fmt.Errorf("price outside spread bracket [%v, %v]", lo, hi)
	}
	for i := 0; i < calc.MaxIterations; i++ {
		mid := 0.5 * (lo + hi)
		f := pv(mid) - in.DirtyPrice
		if math.Abs(f) < calc.Tolerance {
			return mid, nil
		}
		if f > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi), nil
}
