package catalog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meenmo/fixedincome/calendar"
	"github.com/meenmo/fixedincome/convention"
	"github.com/meenmo/fixedincome/utils"
)

// File is the on-disk YAML layout of a catalog snapshot.
//
// Coupons are written in percent (3.25 for 3.25%), dates as YYYY-MM-DD.
type File struct {
	Bonds []FileRecord `yaml:"bonds"`
}

// FileRecord is one bond in the YAML layout.
type FileRecord struct {
	Identifier        string   `yaml:"identifier"`
	Description       string   `yaml:"description,omitempty"`
	Issuer            string   `yaml:"issuer,omitempty"`
	Coupon            *float64 `yaml:"coupon,omitempty"`
	Maturity          string   `yaml:"maturity,omitempty"`
	IssueDate         string   `yaml:"issue_date,omitempty"`
	DayCount          string   `yaml:"day_count,omitempty"`
	Frequency         string   `yaml:"frequency,omitempty"`
	BusinessDay       string   `yaml:"business_day,omitempty"`
	SettlementLagDays *int     `yaml:"settlement_lag_days,omitempty"`
	Calendar          string   `yaml:"calendar,omitempty"`
	Class             string   `yaml:"class,omitempty"`
}

// LoadYAML reads a catalog snapshot from a YAML file.
func LoadYAML(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog.LoadYAML: open %q: %w", path, err)
	}
	defer f.Close()

	records, err := DecodeYAML(f)
	if err != nil {
		return nil, fmt.Errorf("catalog.LoadYAML: %q: %w", path, err)
	}
	return NewSnapshot(records)
}

// DecodeYAML parses the YAML layout into records.
func DecodeYAML(r io.Reader) ([]Record, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	records := make([]Record, 0, len(file.Bonds))
	for i, fr := range file.Bonds {
		rec, err := fr.Record()
		if err != nil {
			return nil, fmt.Errorf("bonds[%d]: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// EncodeYAML writes records in the YAML layout.
func EncodeYAML(w io.Writer, records []Record) error {
	file := File{Bonds: make([]FileRecord, 0, len(records))}
	for _, r := range records {
		file.Bonds = append(file.Bonds, ToFileRecord(r))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("catalog.EncodeYAML: %w", err)
	}
	return enc.Close()
}

// Record converts the YAML layout into a typed record.
func (fr FileRecord) Record() (Record, error) {
	rec := Record{
		Identifier:        strings.TrimSpace(fr.Identifier),
		Description:       strings.TrimSpace(fr.Description),
		Issuer:            strings.TrimSpace(fr.Issuer),
		SettlementLagDays: -1,
	}
	if fr.Coupon != nil {
		c := *fr.Coupon / 100.0
		rec.CouponRate = &c
	}
	if fr.SettlementLagDays != nil {
		rec.SettlementLagDays = *fr.SettlementLagDays
	}

	var err error
	if fr.Maturity != "" {
		if rec.MaturityDate, err = utils.ParseDate(fr.Maturity); err != nil {
			return Record{}, fmt.Errorf("%s: maturity: %w", fr.Identifier, err)
		}
	}
	if fr.IssueDate != "" {
		if rec.IssueDate, err = utils.ParseDate(fr.IssueDate); err != nil {
			return Record{}, fmt.Errorf("%s: issue_date: %w", fr.Identifier, err)
		}
	}
	if fr.DayCount != "" {
		if rec.DayCount, err = convention.ParseDayCount(fr.DayCount); err != nil {
			return Record{}, fmt.Errorf("%s: %w", fr.Identifier, err)
		}
	}
	if fr.Frequency != "" {
		if rec.Frequency, err = convention.ParseFrequency(fr.Frequency); err != nil {
			return Record{}, fmt.Errorf("%s: %w", fr.Identifier, err)
		}
	}
	if fr.BusinessDay != "" {
		if rec.BusinessDay, err = convention.ParseBusinessDayConvention(fr.BusinessDay); err != nil {
			return Record{}, fmt.Errorf("%s: %w", fr.Identifier, err)
		}
	}
	if fr.Calendar != "" {
		if rec.Calendar, err = calendar.Parse(fr.Calendar); err != nil {
			return Record{}, fmt.Errorf("%s: %w", fr.Identifier, err)
		}
	}
	if fr.Class != "" {
		if rec.Class, err = convention.ParseInstrumentClass(fr.Class); err != nil {
			return Record{}, fmt.Errorf("%s: %w", fr.Identifier, err)
		}
	}
	return rec, nil
}

// ToFileRecord converts a typed record into the YAML layout.
func ToFileRecord(r Record) FileRecord {
	fr := FileRecord{
		Identifier:  r.Identifier,
		Description: r.Description,
		Issuer:      r.Issuer,
		DayCount:    string(r.DayCount),
		BusinessDay: string(r.BusinessDay),
		Calendar:    string(r.Calendar),
		Class:       string(r.Class),
	}
	if r.CouponRate != nil {
		pct := utils.RoundTo(*r.CouponRate*100.0, 10)
		fr.Coupon = &pct
	}
	if !r.MaturityDate.IsZero() {
		fr.Maturity = r.MaturityDate.Format(utils.DateLayout)
	}
	if !r.IssueDate.IsZero() {
		fr.IssueDate = r.IssueDate.Format(utils.DateLayout)
	}
	if r.Frequency != 0 {
		fr.Frequency = r.Frequency.String()
	}
	if r.SettlementLagDays >= 0 {
		lag := r.SettlementLagDays
		fr.SettlementLagDays = &lag
	}
	return fr
}
