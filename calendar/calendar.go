package calendar

import (
	"fmt"
	"time"

	"github.com/meenmo/fixedincome/convention"
	"github.com/meenmo/fixedincome/utils"
)

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	// USD follows the US government securities market (SIFMA) holidays.
	USD CalendarID = "USD"
	// TARGET is the euro area settlement calendar.
	TARGET CalendarID = "TARGET"
	// WeekendsOnly treats every weekday as a business day.
	WeekendsOnly CalendarID = "WEEKENDS"
)

const (
	firstHolidayYear = 1990
	lastHolidayYear  = 2100
)

var usdHolidays = map[string]struct{}{}
var targetHolidays = map[string]struct{}{}

func init() {
	for y := firstHolidayYear; y <= lastHolidayYear; y++ {
		for _, d := range usGovernmentHolidays(y) {
			usdHolidays[d.Format(utils.DateLayout)] = struct{}{}
		}
		for _, d := range targetHolidayList(y) {
			targetHolidays[d.Format(utils.DateLayout)] = struct{}{}
		}
	}
}

// Parse maps a calendar name to a CalendarID; empty input maps to USD.
func Parse(s string) (CalendarID, error) {
	switch CalendarID(s) {
	case "", USD, "US", "SIFMA":
		return USD, nil
	case TARGET, "EUR":
		return TARGET, nil
	case WeekendsOnly, "NONE":
		return WeekendsOnly, nil
	default:
		return "", fmt.Errorf("calendar.Parse: unknown calendar %q", s)
	}
}

func isHoliday(cal CalendarID, t time.Time) bool {
	key := t.Format(utils.DateLayout)
	switch cal {
	case USD:
		_, ok := usdHolidays[key]
		return ok
	case TARGET:
		_, ok := targetHolidays[key]
		return ok
	default:
		return false
	}
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal CalendarID, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(cal, t)
}

// Adjust applies the business day convention to t.
func Adjust(cal CalendarID, t time.Time, conv convention.BusinessDayConvention) (time.Time, error) {
	switch conv {
	case convention.Unadjusted:
		return t, nil
	case convention.Following:
		return AdjustFollowing(cal, t), nil
	case convention.ModifiedFollowing:
		return AdjustModifiedFollowing(cal, t), nil
	default:
		return time.Time{}, fmt.Errorf("calendar.Adjust: unsupported business day convention %q", conv)
	}
}

// AdjustModifiedFollowing rolls forward to a business day unless that crosses into
// the next month, in which case it rolls backward.
func AdjustModifiedFollowing(cal CalendarID, t time.Time) time.Time {
	origMonth := t.Month()
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	if t.Month() != origMonth {
		t = t.AddDate(0, 0, -1)
		for !IsBusinessDay(cal, t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// AdjustFollowing applies a simple Following convention (no month preservation).
func AdjustFollowing(cal CalendarID, t time.Time) time.Time {
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal CalendarID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}

// LastBusinessDayOfMonth returns the last business day of the month containing t.
func LastBusinessDayOfMonth(cal CalendarID, t time.Time) time.Time {
	nextMonth := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return AddBusinessDays(cal, nextMonth, -1)
}

func usGovernmentHolidays(y int) []time.Time {
	days := []time.Time{
		nthWeekday(y, time.January, time.Monday, 3),  // Martin Luther King Jr.
		nthWeekday(y, time.February, time.Monday, 3), // Washington's Birthday
		easterSunday(y).AddDate(0, 0, -2),            // Good Friday
		lastWeekday(y, time.May, time.Monday),        // Memorial Day
		observed(utils.Date(y, time.July, 4)),
		nthWeekday(y, time.September, time.Monday, 1), // Labor Day
		nthWeekday(y, time.October, time.Monday, 2),   // Columbus Day
		nthWeekday(y, time.November, time.Thursday, 4),
		observed(utils.Date(y, time.December, 25)),
	}
	// A Saturday New Year's Day is not observed on the prior Friday.
	if ny := utils.Date(y, time.January, 1); ny.Weekday() != time.Saturday {
		days = append(days, observed(ny))
	}
	if y >= 2022 {
		days = append(days, observed(utils.Date(y, time.June, 19)))
	}
	if vd := utils.Date(y, time.November, 11); vd.Weekday() != time.Saturday {
		days = append(days, observed(vd))
	}
	return days
}

func targetHolidayList(y int) []time.Time {
	easter := easterSunday(y)
	return []time.Time{
		utils.Date(y, time.January, 1),
		easter.AddDate(0, 0, -2),
		easter.AddDate(0, 0, 1),
		utils.Date(y, time.May, 1),
		utils.Date(y, time.December, 25),
		utils.Date(y, time.December, 26),
	}
}

// observed moves a Saturday holiday to Friday and a Sunday holiday to Monday.
func observed(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	default:
		return t
	}
}

func nthWeekday(y int, m time.Month, wd time.Weekday, n int) time.Time {
	d := utils.Date(y, m, 1)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 7*(n-1))
}

func lastWeekday(y int, m time.Month, wd time.Weekday) time.Time {
	d := utils.Date(y, m, utils.DaysInMonth(y, m))
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// easterSunday uses the anonymous Gregorian algorithm.
func easterSunday(y int) time.Time {
	a := y % 19
	b := y / 100
	c := y % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1
	return utils.Date(y, time.Month(month), day)
}
