package bond

import (
	"errors"
	"fmt"
	"math"

	"github.com/meenmo/fixedincome/resolve"
	"github.com/meenmo/fixedincome/schedule"
)

var (
	// ErrInvalidPrice is returned for non-positive or non-finite prices.
	ErrInvalidPrice = errors.New("bond: invalid price")
	// ErrInvalidYield is returned for yields at which the bond cannot be priced.
	ErrInvalidYield = errors.New("bond: invalid yield")
)

// Pricer discounts the remaining cashflows of one bond as of the schedule's
// settlement date. It is immutable once built.
type Pricer struct {
	cashflows []Cashflow
	accrued   float64
	perYear   int
}

// NewPricer lays out the remaining cashflows and the accrued interest.
//
// Regular coupons pay 100*c/f. A stub coupon is scaled by the share of its
// reference period it covers. Accrued interest is 100*c times the day count
// year fraction from the start of the current period to settlement.
func NewPricer(b resolve.ResolvedBond, s *schedule.Schedule) (*Pricer, error) {
	if s == nil || len(s.Periods) == 0 {
		return nil, fmt.Errorf("NewPricer: empty schedule: %w", schedule.ErrInvalidSchedule)
	}
	f := b.Frequency.PerYear()
	if f == 0 {
		return nil, fmt.Errorf("NewPricer: unsupported frequency %d", int(b.Frequency))
	}
	dc := b.DayCount
	regular := 100.0 * b.CouponRate / float64(f)

	remaining := s.Remaining()
	cur := remaining[0]

	w, err := dc.PeriodFraction(s.Settlement, cur.End, cur.Reference(b.Frequency))
	if err != nil {
		return nil, fmt.Errorf("NewPricer: %w", err)
	}
	elapsed, err := dc.YearFraction(cur.Start, s.Settlement, cur.Reference(b.Frequency))
	if err != nil {
		return nil, fmt.Errorf("NewPricer: %w", err)
	}

	cfs := make([]Cashflow, 0, len(remaining))
	for k, p := range remaining {
		coupon := regular
		if p.Stub {
			frac, err := dc.PeriodFraction(p.Start, p.End, p.Reference(b.Frequency))
			if err != nil {
				return nil, fmt.Errorf("NewPricer: stub: %w", err)
			}
			coupon *= frac
		}
		cf := Cashflow{
			Date:    p.PayDate,
			Coupon:  coupon,
			Periods: w + float64(k),
		}
		if k == len(remaining)-1 {
			cf.Principal = 100.0
		}
		cfs = append(cfs, cf)
	}

	return &Pricer{
		cashflows: cfs,
		accrued:   100.0 * b.CouponRate * elapsed,
		perYear:   f,
	}, nil
}

// Cashflows returns a copy of the remaining cashflows.
func (p *Pricer) Cashflows() []Cashflow {
	return append([]Cashflow(nil), p.cashflows...)
}

// AccruedInterest is the accrued coupon at settlement per 100 face.
func (p *Pricer) AccruedInterest() float64 {
	return p.accrued
}

// DirtyPrice discounts the cashflows at the semiannual-equivalent yield y.
func (p *Pricer) DirtyPrice(y float64) float64 {
	price, _, _ := p.priceDerivs(y)
	return price
}

// priceDerivs returns (P, dP/dy, d2P/dy2) with y semiannual-equivalent.
//
// Compounding at frequency f with y_f = f[(1+y/2)^(2/f) - 1] gives
//
//	(1 + y_f/f)^t = (1 + y/2)^tau,   tau = t*2/f (half-years)
//	P     = sum CF * (1+y/2)^-tau
//	P'    = sum -(tau/2) * CF * (1+y/2)^-(tau+1)
//	P''   = sum (tau/2)((tau+1)/2) * CF * (1+y/2)^-(tau+2)
func (p *Pricer) priceDerivs(y float64) (float64, float64, float64) {
	base := 1.0 + y/2.0
	scale := 2.0 / float64(p.perYear)

	var price, d1, d2 float64
	for _, cf := range p.cashflows {
		tau := cf.Periods * scale
		pv := cf.Amount() * math.Pow(base, -tau)
		price += pv
		d1 += -(tau / 2.0) * pv / base
		d2 += (tau / 2.0) * ((tau + 1.0) / 2.0) * pv / (base * base)
	}
	return price, d1, d2
}

// Analytics computes every measure at the semiannual-equivalent yield y for a
// quoted clean price. Durations and convexity use the closed form derivatives;
// PVBP reprices at y -/+ 0.5bp.
//
// Macaulay duration is modified × (1 + y/2) for every payment frequency: y is
// always the semiannual-equivalent yield, so the compounding factor is the
// semiannual one even for annual or quarterly payers.
func (p *Pricer) Analytics(y, cleanPrice float64) (Analytics, error) {
	if !validPrice(cleanPrice) {
		return Analytics{}, fmt.Errorf("Analytics: clean price %v: %w", cleanPrice, ErrInvalidPrice)
	}
	if !validYield(y) {
		return Analytics{}, fmt.Errorf("Analytics: yield %v: %w", y, ErrInvalidYield)
	}

	model, d1, d2 := p.priceDerivs(y)
	if model <= 0 {
		return Analytics{}, fmt.Errorf("Analytics: model price %v at yield %v: %w", model, y, ErrInvalidYield)
	}

	dirty := cleanPrice + p.accrued
	modSemi := -d1 / model
	macSemi := modSemi * (1.0 + y/2.0)

	return Analytics{
		CleanPrice:                 dirty - p.accrued,
		DirtyPrice:                 dirty,
		AccruedInterest:            p.accrued,
		AccruedPerMillion:          p.accrued * 10000.0,
		YieldSemiannual:            y,
		YieldAnnual:                SemiannualToAnnual(y),
		ModifiedDurationSemiannual: modSemi,
		ModifiedDurationAnnual:     DurationToAnnual(modSemi, y),
		MacaulayDurationSemiannual: macSemi,
		MacaulayDurationAnnual:     DurationToAnnual(macSemi, y),
		Convexity:                  d2 / model,
		PVBP:                       p.DirtyPrice(y-0.00005) - p.DirtyPrice(y+0.00005),
	}, nil
}

// PriceFromYield prices the bond at the semiannual-equivalent yield y and
// returns the full analytics at the resulting clean price.
func (p *Pricer) PriceFromYield(y float64) (Analytics, error) {
	if !validYield(y) {
		return Analytics{}, fmt.Errorf("PriceFromYield: yield %v: %w", y, ErrInvalidYield)
	}
	dirty := p.DirtyPrice(y)
	clean := dirty - p.accrued
	if !validPrice(clean) {
		return Analytics{}, fmt.Errorf("PriceFromYield: clean price %v at yield %v: %w", clean, y, ErrInvalidPrice)
	}
	return p.Analytics(y, clean)
}

// Compute builds a pricer and returns the analytics at yield y and clean price.
func Compute(b resolve.ResolvedBond, s *schedule.Schedule, y, cleanPrice float64) (Analytics, error) {
	p, err := NewPricer(b, s)
	if err != nil {
		return Analytics{}, err
	}
	return p.Analytics(y, cleanPrice)
}

// PriceFromYield builds a pricer and prices the bond at yield y.
func PriceFromYield(b resolve.ResolvedBond, s *schedule.Schedule, y float64) (Analytics, error) {
	p, err := NewPricer(b, s)
	if err != nil {
		return Analytics{}, err
	}
	return p.PriceFromYield(y)
}

// ---------------------------------------------------------------------------
// unit conversion
// ---------------------------------------------------------------------------

// SemiannualToAnnual converts a semiannual-equivalent yield to annual
// compounding: (1 + y/2)^2 - 1.
func SemiannualToAnnual(y float64) float64 {
	return math.Pow(1.0+y/2.0, 2) - 1.0
}

// AnnualToSemiannual inverts SemiannualToAnnual.
func AnnualToSemiannual(ya float64) float64 {
	return 2.0 * (math.Sqrt(1.0+ya) - 1.0)
}

// SemiannualToFrequency converts a semiannual-equivalent yield to the
// equivalent rate compounded perYear times a year.
func SemiannualToFrequency(y float64, perYear int) float64 {
	f := float64(perYear)
	return f * (math.Pow(1.0+y/2.0, 2.0/f) - 1.0)
}

// DurationToAnnual converts a semiannual-basis duration to the annual basis:
// d / (1 + y/2). This is not d/2.
func DurationToAnnual(d, ySemi float64) float64 {
	return d / (1.0 + ySemi/2.0)
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

func validYield(y float64) bool {
	return !math.IsNaN(y) && !math.IsInf(y, 0) && 1.0+y/2.0 > 0
}
