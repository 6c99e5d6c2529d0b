// Package schedule generates coupon schedules for resolved bonds.
package schedule

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meenmo/fixedincome/calendar"
	"github.com/meenmo/fixedincome/convention"
	"github.com/meenmo/fixedincome/resolve"
	"github.com/meenmo/fixedincome/utils"
)

var (
	// ErrMatured is returned when maturity is on or before settlement.
	ErrMatured = errors.New("schedule: instrument matured")
	// ErrInvalidSchedule is returned when the generated periods are unusable.
	ErrInvalidSchedule = errors.New("schedule: invalid schedule")
)

// Config holds the generation parameters.
type Config struct {
	// EndOfMonth keeps month-end maturities on month ends when rolling back.
	EndOfMonth bool
	// MaxPeriods caps generation; 600 covers 50 years of monthly coupons.
	MaxPeriods int
	// StubMergeDays merges a front stub shorter than this into a long first period.
	StubMergeDays int
}

// DefaultConfig rolls end-of-month and merges front stubs of a week or less.
var DefaultConfig = Config{
	EndOfMonth:    true,
	MaxPeriods:    600,
	StubMergeDays: 7,
}

// Period is one accrual period. Start and End are business-day adjusted;
// RefStart and RefEnd are the unadjusted regular coupon period the accrual is
// measured against (they differ from Start/End only for stubs).
type Period struct {
	Start    time.Time
	End      time.Time
	RefStart time.Time
	RefEnd   time.Time
	PayDate  time.Time
	Stub     bool
}

// Reference returns the day count reference period.
func (p Period) Reference(freq convention.Frequency) convention.Period {
	return convention.Period{Start: p.RefStart, End: p.RefEnd, Frequency: freq}
}

// Schedule is the coupon schedule as of one settlement date. It is not shared
// between valuations.
type Schedule struct {
	Issue            time.Time
	Maturity         time.Time
	Settlement       time.Time
	Frequency        convention.Frequency
	DayCount         convention.DayCount
	Periods          []Period
	IssueSynthesized bool

	current int
}

// Current returns the accrual period containing settlement.
func (s *Schedule) Current() Period {
	return s.Periods[s.current]
}

// Remaining returns the periods whose coupon is paid after settlement, the
// current period first.
func (s *Schedule) Remaining() []Period {
	return s.Periods[s.current:]
}

// PreviousCouponDate is the start of the current accrual period.
func (s *Schedule) PreviousCouponDate() time.Time {
	return s.Current().Start
}

// NextCouponDate is the end of the current accrual period.
func (s *Schedule) NextCouponDate() time.Time {
	return s.Current().End
}

// Build generates the schedule backward from maturity until a boundary reaches
// or passes the issue date. An unknown issue date is synthesized from the time
// to maturity and snapped to the rolled coupon date.
func Build(b resolve.ResolvedBond, settlement time.Time, cfg Config) (*Schedule, error) {
	settlement = utils.Truncate(settlement)
	maturity := utils.Truncate(b.MaturityDate)

	if !maturity.After(settlement) {
		return nil, fmt.Errorf("Build: maturity %s on or before settlement %s: %w",
			maturity.Format(utils.DateLayout), settlement.Format(utils.DateLayout), ErrMatured)
	}
	if !b.Frequency.Valid() {
		return nil, fmt.Errorf("Build: unsupported frequency %d: %w", int(b.Frequency), ErrInvalidSchedule)
	}
	if cfg.MaxPeriods <= 0 {
		cfg.MaxPeriods = DefaultConfig.MaxPeriods
	}

	issue := utils.Truncate(b.IssueDate)
	synthesized := issue.IsZero()
	if synthesized {
		issue = SynthesizeIssueDate(settlement, maturity)
	} else if issue.After(settlement) {
		return nil, fmt.Errorf("Build: issue date %s after settlement %s: %w",
			issue.Format(utils.DateLayout), settlement.Format(utils.DateLayout), ErrInvalidSchedule)
	}

	months := b.Frequency.Months()
	roll := func(k int) time.Time {
		return utils.AddMonthEOM(maturity, -k*months, cfg.EndOfMonth)
	}

	// Roll from maturity by multiples of the period so day-of-month never drifts.
	coupons := []time.Time{maturity}
	var before time.Time
	for k := 1; ; k++ {
		d := roll(k)
		if !d.After(issue) {
			before = d
			break
		}
		coupons = append(coupons, d)
		if len(coupons) > cfg.MaxPeriods {
			return nil, fmt.Errorf("Build: more than %d periods: %w", cfg.MaxPeriods, ErrInvalidSchedule)
		}
	}
	utils.SortDates(coupons)

	if synthesized {
		issue = before
	} else if len(coupons) > 1 && cfg.StubMergeDays > 0 {
		// a front stub of a few days is folded into a long first period
		if gap := utils.Days(issue, coupons[0]); gap > 0 && gap <= float64(cfg.StubMergeDays) {
			coupons = coupons[1:]
		}
	}

	// regular start of the first coupon period; a real issue date off it is a stub
	firstRegular := roll(len(coupons))

	boundaries := append([]time.Time{issue}, coupons...)
	periods := make([]Period, 0, len(boundaries)-1)
	for i := 0; i+1 < len(boundaries); i++ {
		startUnadj, endUnadj := boundaries[i], boundaries[i+1]

		start := startUnadj
		if i > 0 {
			var err error
			if start, err = calendar.Adjust(b.Calendar, startUnadj, b.BusinessDay); err != nil {
				return nil, fmt.Errorf("Build: %w", err)
			}
		}
		end, err := calendar.Adjust(b.Calendar, endUnadj, b.BusinessDay)
		if err != nil {
			return nil, fmt.Errorf("Build: %w", err)
		}

		p := Period{
			Start:    start,
			End:      end,
			RefStart: startUnadj,
			RefEnd:   endUnadj,
			PayDate:  end,
		}
		if i == 0 && !firstRegular.Equal(startUnadj) {
			p.RefStart = firstRegular
			p.Stub = true
		}
		periods = append(periods, p)
	}

	if len(periods) == 0 {
		return nil, fmt.Errorf("Build: no coupon periods: %w", ErrInvalidSchedule)
	}

	s := &Schedule{
		Issue:            issue,
		Maturity:         maturity,
		Settlement:       settlement,
		Frequency:        b.Frequency,
		DayCount:         b.DayCount,
		Periods:          periods,
		IssueSynthesized: synthesized,
		current:          -1,
	}
	for i, p := range periods {
		if !settlement.Before(p.Start) && settlement.Before(p.End) {
			s.current = i
			break
		}
	}
	if s.current < 0 {
		// settlement falls between an unadjusted coupon date and its adjusted payment date
		for i, p := range periods {
			if settlement.Before(p.End) {
				s.current = i
				break
			}
		}
	}
	if s.current < 0 {
		return nil, fmt.Errorf("Build: settlement %s outside schedule: %w", settlement.Format(utils.DateLayout), ErrInvalidSchedule)
	}
	return s, nil
}

// SynthesizeIssueDate guesses an issue date for a bond known only by its
// description: 10 years back from settlement when more than 10 years remain,
// 5 years when more than 5 remain, else 80% of the remaining life. The result
// is always strictly before settlement.
func SynthesizeIssueDate(settlement, maturity time.Time) time.Time {
	var issue time.Time
	switch {
	case maturity.After(utils.AddMonth(settlement, 120)):
		issue = utils.AddMonth(settlement, -120)
	case maturity.After(utils.AddMonth(settlement, 60)):
		issue = utils.AddMonth(settlement, -60)
	default:
		lookback := int(math.Round(0.8 * utils.Days(settlement, maturity)))
		issue = settlement.AddDate(0, 0, -lookback)
	}
	if !issue.Before(settlement) {
		issue = settlement.AddDate(0, 0, -1)
	}
	return issue
}
