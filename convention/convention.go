package convention

import (
	"fmt"
	"strings"
)

// Frequency enumerates coupon payment frequencies in months.
type Frequency int

const (
	Annual     Frequency = 12
	Semiannual Frequency = 6
	Quarterly  Frequency = 3
	Monthly    Frequency = 1
)

// Months returns the number of months between two regular coupon dates.
func (f Frequency) Months() int {
	return int(f)
}

// PerYear returns the number of coupon payments per year.
func (f Frequency) PerYear() int {
	switch f {
	case Annual:
		return 1
	case Semiannual:
		return 2
	case Quarterly:
		return 4
	case Monthly:
		return 12
	default:
		return 0
	}
}

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	return f.PerYear() > 0
}

func (f Frequency) String() string {
	switch f {
	case Annual:
		return "Annual"
	case Semiannual:
		return "Semiannual"
	case Quarterly:
		return "Quarterly"
	case Monthly:
		return "Monthly"
	default:
		return fmt.Sprintf("Frequency(%d)", int(f))
	}
}

// ParseFrequency accepts names ("Semiannual", "S/A"), payments per year ("2") and
// Bloomberg-style codes ("SA", "A", "Q", "M").
func ParseFrequency(s string) (Frequency, error) {
	switch normalize(s) {
	case "ANNUAL", "A", "1", "ANN", "YEARLY":
		return Annual, nil
	case "SEMIANNUAL", "SEMI-ANNUAL", "SEMI", "S/A", "SA", "2":
		return Semiannual, nil
	case "QUARTERLY", "Q", "QTR", "4":
		return Quarterly, nil
	case "MONTHLY", "M", "MTH", "12":
		return Monthly, nil
	default:
		return 0, fmt.Errorf("ParseFrequency: unsupported frequency %q", s)
	}
}

// FrequencyFromPerYear maps payments per year to a Frequency.
func FrequencyFromPerYear(n int) (Frequency, error) {
	switch n {
	case 1:
		return Annual, nil
	case 2:
		return Semiannual, nil
	case 4:
		return Quarterly, nil
	case 12:
		return Monthly, nil
	default:
		return 0, fmt.Errorf("FrequencyFromPerYear: unsupported payments per year %d", n)
	}
}

// BusinessDayConvention selects how period boundaries falling on non-business days move.
type BusinessDayConvention string

const (
	Unadjusted        BusinessDayConvention = "UNADJUSTED"
	Following         BusinessDayConvention = "FOLLOWING"
	ModifiedFollowing BusinessDayConvention = "MODIFIED_FOLLOWING"
)

// Valid reports whether c is one of the supported conventions.
func (c BusinessDayConvention) Valid() bool {
	switch c {
	case Unadjusted, Following, ModifiedFollowing:
		return true
	default:
		return false
	}
}

// ParseBusinessDayConvention accepts canonical names and common abbreviations.
func ParseBusinessDayConvention(s string) (BusinessDayConvention, error) {
	switch normalize(s) {
	case "UNADJUSTED", "NONE", "NO ADJUST", "U":
		return Unadjusted, nil
	case "FOLLOWING", "F", "FOL":
		return Following, nil
	case "MODIFIED_FOLLOWING", "MODIFIED FOLLOWING", "MODFOLLOWING", "MF":
		return ModifiedFollowing, nil
	default:
		return "", fmt.Errorf("ParseBusinessDayConvention: unsupported convention %q", s)
	}
}

// InstrumentClass drives convention defaults when no explicit record exists.
type InstrumentClass string

const (
	Treasury  InstrumentClass = "TREASURY"
	Corporate InstrumentClass = "CORPORATE"
)

// ParseInstrumentClass accepts "Treasury"/"Govt"/"Sovereign" and "Corporate"/"Corp".
func ParseInstrumentClass(s string) (InstrumentClass, error) {
	switch normalize(s) {
	case "TREASURY", "GOVT", "GOVERNMENT", "SOVEREIGN":
		return Treasury, nil
	case "CORPORATE", "CORP":
		return Corporate, nil
	default:
		return "", fmt.Errorf("ParseInstrumentClass: unsupported class %q", s)
	}
}

// Conventions is the set of market conventions a bond is priced under.
type Conventions struct {
	DayCount          DayCount
	Frequency         Frequency
	BusinessDay       BusinessDayConvention
	SettlementLagDays int
}

// DefaultsFor returns the market defaults for an instrument class.
//
// Treasuries: ACT/ACT ICMA, semiannual, unadjusted, T+1.
// Corporates: 30/360 bond basis, semiannual, following, T+2.
func DefaultsFor(class InstrumentClass) Conventions {
	switch class {
	case Treasury:
		return Conventions{
			DayCount:          ActActICMA,
			Frequency:         Semiannual,
			BusinessDay:       Unadjusted,
			SettlementLagDays: 1,
		}
	default:
		return Conventions{
			DayCount:          Thirty360,
			Frequency:         Semiannual,
			BusinessDay:       Following,
			SettlementLagDays: 2,
		}
	}
}

// FillMissing returns c with every unset field taken from defaults, and the names
// of the fields that were filled. A negative SettlementLagDays means unset.
func (c Conventions) FillMissing(defaults Conventions) (Conventions, []string) {
	var filled []string
	if c.DayCount == "" {
		c.DayCount = defaults.DayCount
		filled = append(filled, "day count")
	}
	if c.Frequency == 0 {
		c.Frequency = defaults.Frequency
		filled = append(filled, "frequency")
	}
	if c.BusinessDay == "" {
		c.BusinessDay = defaults.BusinessDay
		filled = append(filled, "business day convention")
	}
	if c.SettlementLagDays < 0 {
		c.SettlementLagDays = defaults.SettlementLagDays
		filled = append(filled, "settlement lag")
	}
	return c, filled
}

// Validate checks every axis against the supported enums.
func (c Conventions) Validate() error {
	if !c.DayCount.Valid() {
		return fmt.Errorf("unsupported day count %q", c.DayCount)
	}
	if !c.Frequency.Valid() {
		return fmt.Errorf("unsupported frequency %d", int(c.Frequency))
	}
	if !c.BusinessDay.Valid() {
		return fmt.Errorf("unsupported business day convention %q", c.BusinessDay)
	}
	if c.SettlementLagDays < 0 {
		return fmt.Errorf("negative settlement lag %d", c.SettlementLagDays)
	}
	return nil
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
