package bond

import "time"

// Cashflow is a single dated payment per 100 face value.
//
// Periods is the discounting time from settlement in coupon periods of the
// bond's own frequency.
type Cashflow struct {
	Date      time.Time
	Coupon    float64
	Principal float64
	Periods   float64
}

func (c Cashflow) Amount() float64 {
	return c.Coupon + c.Principal
}

// SolverMethod names the root finder that produced a yield.
type SolverMethod string

const (
	MethodNewton    SolverMethod = "newton"
	MethodBisection SolverMethod = "bisection"
)

// YieldResult is the outcome of a yield solve. Yield is a semiannual-equivalent
// decimal fraction. When Converged is false, Yield is the best iterate found.
type YieldResult struct {
	Yield      float64
	Iterations int
	Method     SolverMethod
	Converged  bool
	Residual   float64
}

// Analytics are the price/yield measures of one bond at one settlement date.
// Prices are per 100 face; yields are decimal fractions; durations are in years
// and convexity in years squared.
type Analytics struct {
	CleanPrice                 float64
	DirtyPrice                 float64
	AccruedInterest            float64
	AccruedPerMillion          float64
	YieldSemiannual            float64
	YieldAnnual                float64
	ModifiedDurationSemiannual float64
	ModifiedDurationAnnual     float64
	MacaulayDurationSemiannual float64
	MacaulayDurationAnnual     float64
	Convexity                  float64
	PVBP                       float64
}
