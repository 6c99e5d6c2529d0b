// Package curve provides the benchmark curve the spread calculator reads. The
// curve is an opaque rate-at-tenor function; Tenor is the simple par curve
// (linear interpolation, flat extrapolation) built from tenor quotes.
package curve

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meenmo/fixedincome/utils"
)

// ErrNotAvailable is returned when the curve cannot produce a rate.
var ErrNotAvailable = errors.New("curve: rate not available")

// Curve returns the benchmark yield (decimal fraction) at a tenor in years.
type Curve interface {
	RateAt(tenorYears float64) (float64, error)
}

// Point is one curve node.
type Point struct {
	Tenor float64 // years
	Rate  float64 // decimal fraction
}

// Tenor is an immutable par curve. It is safe for concurrent reads.
type Tenor struct {
	date   time.Time
	points []Point
}

// NewTenor builds a curve from quotes keyed by tenor ("3M", "2Y", "30Y") in percent.
func NewTenor(curveDate time.Time, quotes map[string]float64) (*Tenor, error) {
	if len(quotes) == 0 {
		return nil, fmt.Errorf("NewTenor: no quotes: %w", ErrNotAvailable)
	}
	points := make([]Point, 0, len(quotes))
	seen := make(map[float64]string, len(quotes))
	for k, v := range quotes {
		years, err := TenorToYears(k)
		if err != nil {
			return nil, fmt.Errorf("NewTenor: %w", err)
		}
		if prev, dup := seen[years]; dup {
			return nil, fmt.Errorf("NewTenor: tenors %q and %q coincide", prev, k)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("NewTenor: tenor %q has non-finite quote", k)
		}
		seen[years] = k
		points = append(points, Point{Tenor: years, Rate: v / 100.0})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Tenor < points[j].Tenor })
	return &Tenor{date: curveDate, points: points}, nil
}

// Date is the curve's as-of date.
func (c *Tenor) Date() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.date
}

// Points returns a copy of the nodes ordered by tenor.
func (c *Tenor) Points() []Point {
	if c == nil {
		return nil
	}
	return append([]Point(nil), c.points...)
}

// RateAt interpolates linearly between nodes and extrapolates flat.
func (c *Tenor) RateAt(tenorYears float64) (float64, error) {
	if c == nil || len(c.points) == 0 {
		return 0, ErrNotAvailable
	}
	if math.IsNaN(tenorYears) || tenorYears < 0 {
		return 0, fmt.Errorf("RateAt: tenor %v: %w", tenorYears, ErrNotAvailable)
	}

	pts := c.points
	if tenorYears <= pts[0].Tenor {
		return pts[0].Rate, nil
	}
	last := pts[len(pts)-1]
	if tenorYears >= last.Tenor {
		return last.Rate, nil
	}

	idx := sort.Search(len(pts), func(i int) bool { return pts[i].Tenor >= tenorYears })
	lo, hi := pts[idx-1], pts[idx]
	w := (tenorYears - lo.Tenor) / (hi.Tenor - lo.Tenor)
	return lo.Rate + w*(hi.Rate-lo.Rate), nil
}

// Shifted returns a curve that adds a parallel shift (decimal) to every rate.
func Shifted(c Curve, shift float64) Curve {
	return shifted{base: c, shift: shift}
}

type shifted struct {
	base  Curve
	shift float64
}

func (s shifted) RateAt(t float64) (float64, error) {
	r, err := s.base.RateAt(t)
	if err != nil {
		return 0, err
	}
	return r + s.shift, nil
}

// TenorToYears converts tenor strings like "1W", "3M", "10Y" to year fractions.
// Bare numbers are read as years.
func TenorToYears(tenor string) (float64, error) {
	t := strings.TrimSpace(strings.ToUpper(tenor))
	unit := func(suffix string, scale float64) (float64, bool, error) {
		if !strings.HasSuffix(t, suffix) {
			return 0, false, nil
		}
		v, err := strconv.Atoi(strings.TrimSuffix(t, suffix))
		if err != nil || v < 0 {
			return 0, true, fmt.Errorf("TenorToYears: invalid tenor %q", tenor)
		}
		return float64(v) * scale, true, nil
	}
	for _, u := range []struct {
		suffix string
		scale  float64
	}{
		{"D", 1.0 / 365.0},
		{"W", 7.0 / 365.0},
		{"M", 1.0 / 12.0},
		{"Y", 1.0},
	} {
		if v, ok, err := unit(u.suffix, u.scale); ok {
			return v, err
		}
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("TenorToYears: invalid tenor %q", tenor)
	}
	return v, nil
}

// File is the YAML layout of a curve snapshot: quotes in percent by tenor.
type File struct {
	Name   string             `yaml:"name"`
	Date   string             `yaml:"date"`
	Quotes map[string]float64 `yaml:"quotes"`
}

// LoadYAML reads a curve snapshot file.
func LoadYAML(path string) (*Tenor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("curve.LoadYAML: open %q: %w", path, err)
	}
	defer f.Close()

	c, err := DecodeYAML(f)
	if err != nil {
		return nil, fmt.Errorf("curve.LoadYAML: %q: %w", path, err)
	}
	return c, nil
}

// DecodeYAML parses a curve snapshot.
func DecodeYAML(r io.Reader) (*Tenor, error) {
	file, err := ReadFile(r)
	if err != nil {
		return nil, err
	}
	return file.Tenor()
}

// ReadFile decodes the snapshot layout without building the curve.
func ReadFile(r io.Reader) (File, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return File{}, fmt.Errorf("decode yaml: %w", err)
	}
	return file, nil
}

// Tenor builds the curve; an empty Date leaves the curve undated.
func (f File) Tenor() (*Tenor, error) {
	var date time.Time
	if f.Date != "" {
		var err error
		if date, err = utils.ParseDate(f.Date); err != nil {
			return nil, err
		}
	}
	return NewTenor(date, f.Quotes)
}
