// Package valuation is the façade over resolution, scheduling, yield solving,
// analytics and spreads. Reference data (catalog snapshot, benchmark curve) is
// injected at construction and only read, so one Engine serves concurrent calls.
package valuation

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/calendar"
	"github.com/meenmo/fixedincome/catalog"
	"github.com/meenmo/fixedincome/curve"
	"github.com/meenmo/fixedincome/metrics"
	"github.com/meenmo/fixedincome/resolve"
	"github.com/meenmo/fixedincome/schedule"
	"github.com/meenmo/fixedincome/spread"
	"github.com/meenmo/fixedincome/utils"
)

// Request is one valuation. Price is the clean price per 100 face. When Yield
// (semiannual-equivalent, percent) is set the bond is priced from it and Price
// is ignored.
type Request struct {
	Identifier     string
	Description    string
	Price          float64
	Yield          *float64
	SettlementDate time.Time
	TradeDate      time.Time
}

// Result is a successful valuation. Yields are percent, durations years,
// convexity years squared, spreads basis points, prices per 100 face.
type Result struct {
	CleanPrice                 float64  `json:"clean_price"`
	DirtyPrice                 float64  `json:"dirty_price"`
	AccruedInterest            float64  `json:"accrued_interest"`
	AccruedPerMillion          float64  `json:"accrued_per_million"`
	YieldSemiannual            float64  `json:"yield_semiannual"`
	YieldAnnual                float64  `json:"yield_annual"`
	ModifiedDurationSemiannual float64  `json:"modified_duration_semiannual"`
	ModifiedDurationAnnual     float64  `json:"modified_duration_annual"`
	MacaulayDurationSemiannual float64  `json:"macaulay_duration_semiannual"`
	MacaulayDurationAnnual     float64  `json:"macaulay_duration_annual"`
	Convexity                  float64  `json:"convexity"`
	PVBP                       float64  `json:"pvbp"`
	SpreadToBenchmark          *float64 `json:"spread_to_benchmark"`
	ResolutionNote             *string  `json:"resolution_note"`

	ZSpreadApprox      *float64             `json:"z_spread_approx"`
	BenchmarkYield     *float64             `json:"benchmark_yield,omitempty"`
	SpreadMethod       string               `json:"spread_method,omitempty"`
	SpreadNote         string               `json:"spread_note,omitempty"`
	Bond               resolve.ResolvedBond `json:"bond"`
	SettlementDate     time.Time            `json:"settlement_date"`
	PreviousCouponDate time.Time            `json:"previous_coupon_date"`
	NextCouponDate     time.Time            `json:"next_coupon_date"`
	YearsToMaturity    float64              `json:"years_to_maturity"`
	IssueSynthesized   bool                 `json:"issue_date_synthesized"`
	Converged          bool                 `json:"converged"`
	SolverMethod       bond.SolverMethod    `json:"solver_method,omitempty"`
	Iterations         int                  `json:"iterations"`
}

// SettlementPolicy supplies the settlement date when a request carries neither
// a settlement nor a trade date.
type SettlementPolicy func(now time.Time, b resolve.ResolvedBond) time.Time

// PriorMonthEnd settles on the last business day of the month before now, on
// the bond's calendar.
func PriorMonthEnd(now time.Time, b resolve.ResolvedBond) time.Time {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return calendar.LastBusinessDayOfMonth(b.Calendar, firstOfMonth.AddDate(0, 0, -1))
}

// Spot settles the bond's settlement lag in business days after now.
func Spot(now time.Time, b resolve.ResolvedBond) time.Time {
	return calendar.AddBusinessDays(b.Calendar, utils.Truncate(now), b.SettlementLagDays)
}

// Engine values bonds against one catalog snapshot and one benchmark curve.
type Engine struct {
	resolver    *resolve.Resolver
	resolveOpts []resolve.Option
	curve       curve.Curve
	spread      spread.Calculator
	solver      bond.SolverConfig
	schedule    schedule.Config
	settlement  SettlementPolicy
	now         func() time.Time
	logger      *slog.Logger
	metrics     *metrics.Metrics
	workers     int
}

type Option func(*Engine)

// WithCurve sets the benchmark curve. Without one spreads are null with a note.
func WithCurve(c curve.Curve) Option {
	return func(e *Engine) { e.curve = c }
}

func WithSolverConfig(cfg bond.SolverConfig) Option {
	return func(e *Engine) { e.solver = cfg }
}

func WithScheduleConfig(cfg schedule.Config) Option {
	return func(e *Engine) { e.schedule = cfg }
}

func WithSpreadCalculator(c spread.Calculator) Option {
	return func(e *Engine) { e.spread = c }
}

func WithSettlementPolicy(p SettlementPolicy) Option {
	return func(e *Engine) { e.settlement = p }
}

// WithClock replaces time.Now for the settlement policy.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithWorkers bounds ValueAll concurrency.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithResolveOptions passes options through to the resolver.
func WithResolveOptions(opts ...resolve.Option) Option {
	return func(e *Engine) { e.resolveOpts = append(e.resolveOpts, opts...) }
}

// New builds an Engine over cat. A nil catalog resolves descriptions only.
func New(cat catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		spread:     spread.DefaultCalculator,
		solver:     bond.DefaultSolverConfig,
		schedule:   schedule.DefaultConfig,
		settlement: PriorMonthEnd,
		now:        time.Now,
		logger:     slog.Default(),
		workers:    4,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	ropts := append([]resolve.Option{resolve.WithLogger(e.logger)}, e.resolveOpts...)
	e.resolver = resolve.New(cat, ropts...)
	return e
}

// Value resolves the bond, fixes settlement, builds the schedule, solves the
// yield (or prices from a given yield) and computes analytics and spreads.
// Every failure is an *Error.
func (e *Engine) Value(req Request) (res *Result, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(KindOf(err))
		}
		e.metrics.ObserveValuation(outcome, time.Since(start))
	}()

	if strings.TrimSpace(req.Identifier) == "" && strings.TrimSpace(req.Description) == "" {
		return nil, &Error{Kind: KindInsufficientInput, Op: "Value", Err: resolve.ErrInsufficientInput}
	}
	if req.Yield == nil && (!(req.Price > 0) || math.IsInf(req.Price, 0)) {
		return nil, &Error{Kind: KindInvalidPrice, Op: "Value",
			Err: fmt.Errorf("clean price %v: %w", req.Price, bond.ErrInvalidPrice)}
	}

	b, err := e.resolver.Resolve(req.Identifier, req.Description)
	if err != nil {
		return nil, wrap("Value", err)
	}
	e.metrics.ObserveResolution(string(b.Source))

	settle := e.settlementDate(req, b)
	s, err := schedule.Build(b, settle, e.schedule)
	if err != nil {
		return nil, wrap("Value", err)
	}
	p, err := bond.NewPricer(b, s)
	if err != nil {
		return nil, wrap("Value", err)
	}

	if req.Yield != nil {
		an, err := p.PriceFromYield(*req.Yield / 100.0)
		if err != nil {
			return nil, wrap("Value", err)
		}
		res = e.result(b, s, p, an)
		res.Converged = true
		e.logValuation(res)
		return res, nil
	}

	yr, solveErr := p.SolveYield(req.Price, b.CouponRate, e.solver)
	if solveErr != nil && !errors.Is(solveErr, bond.ErrNoConvergence) {
		return nil, wrap("Value", solveErr)
	}
	e.metrics.ObserveSolver(string(yr.Method), yr.Iterations)

	an, err := p.Analytics(yr.Yield, req.Price)
	if err != nil {
		if solveErr != nil {
			return nil, wrap("Value", solveErr)
		}
		return nil, wrap("Value", err)
	}
	res = e.result(b, s, p, an)
	res.Converged = yr.Converged
	res.SolverMethod = yr.Method
	res.Iterations = yr.Iterations

	if solveErr != nil {
		e.logger.Warn("yield did not converge",
			"identifier", b.Identifier,
			"price", req.Price,
			"best_yield", res.YieldSemiannual,
			"residual", yr.Residual,
			"iterations", yr.Iterations,
		)
		return nil, &Error{Kind: KindYieldConvergenceFailure, Op: "Value", Err: solveErr, BestEffort: res}
	}
	e.logValuation(res)
	return res, nil
}

// settlementDate applies: explicit date, trade date plus the bond's settlement
// lag in business days, then the engine's policy.
func (e *Engine) settlementDate(req Request, b resolve.ResolvedBond) time.Time {
	switch {
	case !req.SettlementDate.IsZero():
		return utils.Truncate(req.SettlementDate)
	case !req.TradeDate.IsZero():
		return calendar.AddBusinessDays(b.Calendar, utils.Truncate(req.TradeDate), b.SettlementLagDays)
	default:
		return utils.Truncate(e.settlement(e.now(), b))
	}
}

func (e *Engine) result(b resolve.ResolvedBond, s *schedule.Schedule, p *bond.Pricer, an bond.Analytics) *Result {
	res := &Result{
		CleanPrice:                 an.CleanPrice,
		DirtyPrice:                 an.DirtyPrice,
		AccruedInterest:            an.AccruedInterest,
		AccruedPerMillion:          an.AccruedPerMillion,
		YieldSemiannual:            an.YieldSemiannual * 100.0,
		YieldAnnual:                an.YieldAnnual * 100.0,
		ModifiedDurationSemiannual: an.ModifiedDurationSemiannual,
		ModifiedDurationAnnual:     an.ModifiedDurationAnnual,
		MacaulayDurationSemiannual: an.MacaulayDurationSemiannual,
		MacaulayDurationAnnual:     an.MacaulayDurationAnnual,
		Convexity:                  an.Convexity,
		PVBP:                       an.PVBP,
		Bond:                       b,
		SettlementDate:             s.Settlement,
		PreviousCouponDate:         s.PreviousCouponDate(),
		NextCouponDate:             s.NextCouponDate(),
		YearsToMaturity:            utils.YearsBetween(s.Settlement, b.MaturityDate),
		IssueSynthesized:           s.IssueSynthesized,
	}
	if s.IssueSynthesized {
		res.Bond.IssueDate = s.Issue
	}
	if b.Note != "" {
		note := b.Note
		res.ResolutionNote = &note
	}

	sp := e.spread.Calculate(spread.Input{
		Class:           b.Class,
		YieldSemiannual: an.YieldSemiannual,
		DirtyPrice:      an.DirtyPrice,
		Settlement:      s.Settlement,
		Maturity:        b.MaturityDate,
		PerYear:         b.Frequency.PerYear(),
		Cashflows:       p.Cashflows(),
	}, e.curve)
	res.SpreadToBenchmark = sp.GSpread
	res.ZSpreadApprox = sp.ZSpreadApprox
	res.SpreadMethod = sp.Method
	res.SpreadNote = sp.Note
	if sp.BenchmarkYield != nil {
		pct := *sp.BenchmarkYield * 100.0
		res.BenchmarkYield = &pct
	}
	return res
}

func (e *Engine) logValuation(res *Result) {
	e.logger.Debug("valued bond",
		"identifier", res.Bond.Identifier,
		"source", res.Bond.Source,
		"settlement", res.SettlementDate.Format(utils.DateLayout),
		"clean", res.CleanPrice,
		"yield", res.YieldSemiannual,
		"mod_duration", res.ModifiedDurationSemiannual,
		"method", res.SolverMethod,
		"iterations", res.Iterations,
	)
}
