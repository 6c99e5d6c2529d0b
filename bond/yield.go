package bond

import (
	"errors"
	"fmt"
	"math"

	"github.com/meenmo/fixedincome/resolve"
	"github.com/meenmo/fixedincome/schedule"
)

// ErrNoConvergence is returned alongside a best-effort YieldResult when neither
// Newton-Raphson nor bisection met the tolerance.
var ErrNoConvergence = errors.New("bond: yield did not converge")

// SolverConfig holds the root finder parameters.
type SolverConfig struct {
	// Tolerance is the absolute dirty price residual, per 100 face.
	Tolerance float64
	// MaxNewtonIterations bounds the Newton phase before bisection takes over.
	MaxNewtonIterations int
	// MaxBisectionIterations bounds the fallback.
	MaxBisectionIterations int
	// Floor and Ceiling bracket the semiannual yield for bisection and bound Newton steps.
	Floor   float64
	Ceiling float64
	// DerivativeThreshold stops Newton when |dP/dy| falls below it.
	DerivativeThreshold float64
}

// DefaultSolverConfig brackets yields in [0%, 100%] with a 1e-8 price tolerance.
var DefaultSolverConfig = SolverConfig{
	Tolerance:              1e-8,
	MaxNewtonIterations:    50,
	MaxBisectionIterations: 200,
	Floor:                  0.0,
	Ceiling:                1.0,
	DerivativeThreshold:    1e-15,
}

// SolveYield finds the semiannual-equivalent yield at which the bond's dirty
// price equals cleanPrice plus accrued interest.
func SolveYield(cleanPrice float64, b resolve.ResolvedBond, s *schedule.Schedule, cfg SolverConfig) (YieldResult, error) {
	p, err := NewPricer(b, s)
	if err != nil {
		return YieldResult{}, err
	}
	return p.SolveYield(cleanPrice, b.CouponRate, cfg)
}

// SolveYield runs Newton-Raphson from the current yield (coupon/price) and falls
// back to bisection on [Floor, Ceiling] when Newton stalls, leaves the bracket
// or runs out of iterations. It never retries with other parameters.
func (p *Pricer) SolveYield(cleanPrice, couponRate float64, cfg SolverConfig) (YieldResult, error) {
	if !validPrice(cleanPrice) {
		return YieldResult{}, fmt.Errorf("SolveYield: clean price %v: %w", cleanPrice, ErrInvalidPrice)
	}
	if cfg.Tolerance <= 0 {
		cfg = DefaultSolverConfig
	}
	if !(cfg.Floor < cfg.Ceiling) || !validYield(cfg.Floor) {
		return YieldResult{}, fmt.Errorf("SolveYield: invalid bracket [%v, %v]", cfg.Floor, cfg.Ceiling)
	}
	target := cleanPrice + p.accrued

	best := YieldResult{Residual: math.Inf(1)}
	track := func(y, f float64, iters int, m SolverMethod) {
		if math.Abs(f) < math.Abs(best.Residual) {
			best = YieldResult{Yield: y, Iterations: iters, Method: m, Residual: f}
		}
	}

	// Newton-Raphson from the current yield.
	y := clamp(couponRate*100.0/cleanPrice, cfg.Floor, cfg.Ceiling)
	iters := 0
	for iters < cfg.MaxNewtonIterations {
		iters++
		price, dPdy, _ := p.priceDerivs(y)
		f := price - target
		track(y, f, iters, MethodNewton)

		if math.Abs(f) < cfg.Tolerance {
			return YieldResult{Yield: y, Iterations: iters, Method: MethodNewton, Converged: true, Residual: f}, nil
		}
		if math.Abs(dPdy) < cfg.DerivativeThreshold {
			break
		}
		next := y - f/dPdy
		if next < cfg.Floor || next > cfg.Ceiling || math.IsNaN(next) {
			break
		}
		y = next
	}

	// Bisection; price is strictly decreasing in yield.
	lo, hi := cfg.Floor, cfg.Ceiling
	fLo := p.DirtyPrice(lo) - target
	fHi := p.DirtyPrice(hi) - target
	track(lo, fLo, iters, MethodBisection)
	track(hi, fHi, iters, MethodBisection)
	if fLo < 0 || fHi > 0 {
		best.Iterations = iters
		return best, fmt.Errorf("SolveYield: price %.6f outside yield bracket [%v, %v]: %w",
			cleanPrice, cfg.Floor, cfg.Ceiling, ErrNoConvergence)
	}

	for i := 0; i < cfg.MaxBisectionIterations; i++ {
		iters++
		mid := 0.5 * (lo + hi)
		f := p.DirtyPrice(mid) - target
		track(mid, f, iters, MethodBisection)

		if math.Abs(f) < cfg.Tolerance {
			return YieldResult{Yield: mid, Iterations: iters, Method: MethodBisection, Converged: true, Residual: f}, nil
		}
		if f > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}

	best.Iterations = iters
	return best, fmt.Errorf("SolveYield: residual %.3g after %d iterations: %w", best.Residual, iters, ErrNoConvergence)
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
