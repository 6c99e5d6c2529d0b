// Package description extracts coupon, maturity and issuer hints from free-text
// bond descriptions as quoted by market data vendors and dealers.
//
// Two layouts are understood:
//
//	T 3 15/08/52                          ticker, coupon, date
//	T 3 1/8 11/15/41 Govt                 fractional coupon, trailing yellow key
//	GALAXY PIPELINE, 3.25%, 30-Sep-2040   comma separated with a percent coupon
package description

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrParseFailure is returned when no coupon/maturity pair can be read.
var ErrParseFailure = errors.New("description: unparseable")

// Style names the layout a description was read with.
type Style string

const (
	StyleTicker Style = "ticker"
	StyleComma  Style = "comma"
)

// Parsed is the information a description carries.
type Parsed struct {
	CouponRate   float64 // decimal fraction
	MaturityDate time.Time
	IssuerHint   string
	Style        Style
}

// Parser reads descriptions. DayFirst picks dd/mm over mm/dd when a numeric date
// is ambiguous; PivotYear maps two digit years yy <= PivotYear to 20yy.
type Parser struct {
	DayFirst  bool
	PivotYear int
}

// DefaultParser prefers dd/mm and pivots two digit years at 79.
var DefaultParser = Parser{DayFirst: true, PivotYear: 79}

// Parse reads text with DefaultParser.
func Parse(text string) (Parsed, error) {
	return DefaultParser.Parse(text)
}

var (
	tickerRe  = regexp.MustCompile(`^(.+?)\s+(\d+(?:\.\d+)?(?:\s+\d+/\d+)?|\d+/\d+)\s+(\d{1,2}/\d{1,2}/\d{2,4})(?:[\s,].*)?$`)
	percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?(?:\s+\d+/\d+)?|\d+/\d+)\s*%`)

	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dayMonRe      = regexp.MustCompile(`\b(\d{1,2})[-\s]([A-Za-z]{3,9})\.?[-\s,]+(\d{2,4})\b`)
	monDayRe      = regexp.MustCompile(`\b([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
)

var monthNames = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// Parse reads a description in either layout.
func (p Parser) Parse(text string) (Parsed, error) {
	s := strings.Join(strings.Fields(text), " ")
	if s == "" {
		return Parsed{}, fmt.Errorf("Parse: empty description: %w", ErrParseFailure)
	}
	if strings.Contains(s, ",") || strings.Contains(s, "%") {
		if out, err := p.parseComma(s); err == nil {
			return out, nil
		}
	}
	if out, err := p.parseTicker(s); err == nil {
		return out, nil
	}
	return Parsed{}, fmt.Errorf("Parse: %q: %w", text, ErrParseFailure)
}

func (p Parser) parseTicker(s string) (Parsed, error) {
	m := tickerRe.FindStringSubmatch(s)
	if m == nil {
		return Parsed{}, ErrParseFailure
	}
	coupon, err := parseCoupon(m[2])
	if err != nil {
		return Parsed{}, err
	}
	nums := numericDateRe.FindStringSubmatch(m[3])
	if nums == nil {
		return Parsed{}, ErrParseFailure
	}
	maturity, err := p.numericDate(nums[1], nums[2], nums[3])
	if err != nil {
		return Parsed{}, err
	}
	return Parsed{
		CouponRate:   coupon,
		MaturityDate: maturity,
		IssuerHint:   strings.ToUpper(strings.TrimSpace(m[1])),
		Style:        StyleTicker,
	}, nil
}

func (p Parser) parseComma(s string) (Parsed, error) {
	issuer := s
	rest := ""
	if i := strings.Index(s, ","); i >= 0 {
		issuer, rest = s[:i], s[i+1:]
	}

	cm := percentRe.FindStringSubmatchIndex(rest)
	if cm == nil {
		// "ISSUER 3.25% 2040-09-30" without commas
		cm = percentRe.FindStringSubmatchIndex(s)
		if cm == nil {
			return Parsed{}, ErrParseFailure
		}
		issuer, rest = s[:cm[0]], s
		cm = percentRe.FindStringSubmatchIndex(rest)
	}
	coupon, err := parseCoupon(rest[cm[2]:cm[3]])
	if err != nil {
		return Parsed{}, err
	}

	maturity, err := p.findDate(rest[:cm[0]] + " " + rest[cm[1]:])
	if err != nil {
		return Parsed{}, err
	}
	return Parsed{
		CouponRate:   coupon,
		MaturityDate: maturity,
		IssuerHint:   strings.ToUpper(strings.Trim(strings.TrimSpace(issuer), ",")),
		Style:        StyleComma,
	}, nil
}

// findDate returns the first date found in s, trying unambiguous layouts first.
func (p Parser) findDate(s string) (time.Time, error) {
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return makeDate(y, time.Month(mo), d)
	}
	if m := dayMonRe.FindStringSubmatch(s); m != nil {
		if mo, ok := monthFromName(m[2]); ok {
			d, _ := strconv.Atoi(m[1])
			return makeDate(p.year(m[3]), mo, d)
		}
	}
	if m := monDayRe.FindStringSubmatch(s); m != nil {
		if mo, ok := monthFromName(m[1]); ok {
			d, _ := strconv.Atoi(m[2])
			return makeDate(p.year(m[3]), mo, d)
		}
	}
	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		return p.numericDate(m[1], m[2], m[3])
	}
	return time.Time{}, ErrParseFailure
}

// numericDate resolves a/b/yy. A component above 12 fixes the order; otherwise
// DayFirst decides.
func (p Parser) numericDate(a, b, y string) (time.Time, error) {
	first, _ := strconv.Atoi(a)
	second, _ := strconv.Atoi(b)
	year := p.year(y)

	day, month := first, second
	switch {
	case first > 12 && second <= 12:
	case second > 12 && first <= 12:
		day, month = second, first
	case !p.DayFirst:
		day, month = second, first
	}
	return makeDate(year, time.Month(month), day)
}

func (p Parser) year(s string) int {
	y, _ := strconv.Atoi(s)
	if len(s) <= 2 {
		if y <= p.PivotYear {
			return 2000 + y
		}
		return 1900 + y
	}
	return y
}

func monthFromName(s string) (time.Month, bool) {
	if len(s) < 3 {
		return 0, false
	}
	m, ok := monthNames[strings.ToUpper(s[:3])]
	return m, ok
}

// makeDate rejects dates time.Date would normalize (31 June, month 13).
func makeDate(y int, m time.Month, d int) (time.Time, error) {
	if m < time.January || m > time.December || d < 1 {
		return time.Time{}, ErrParseFailure
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Month() != m || t.Day() != d {
		return time.Time{}, ErrParseFailure
	}
	return t, nil
}

// parseCoupon reads "3", "3.25", "3 1/8" or "7/8" as a percent and returns a fraction.
func parseCoupon(s string) (float64, error) {
	var pct float64
	for _, part := range strings.Fields(s) {
		if num, den, ok := strings.Cut(part, "/"); ok {
			n, err1 := strconv.ParseFloat(num, 64)
			d, err2 := strconv.ParseFloat(den, 64)
			if err1 != nil || err2 != nil || d == 0 {
				return 0, ErrParseFailure
			}
			pct += n / d
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, ErrParseFailure
		}
		pct += v
	}
	if pct < 0 || pct >= 100 {
		return 0, ErrParseFailure
	}
	return pct / 100.0, nil
}
