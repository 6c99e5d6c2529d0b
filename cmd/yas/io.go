package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/meenmo/fixedincome/utils"
	"github.com/meenmo/fixedincome/valuation"
)

// requestJSON is one valuation request on the wire. Dates are YYYY-MM-DD and
// Yield is a semiannual percent.
type requestJSON struct {
	TaskID         string   `json:"task_id,omitempty" yaml:"task_id"`
	Identifier     string   `json:"identifier,omitempty" yaml:"identifier"`
	Description    string   `json:"description,omitempty" yaml:"description"`
	Price          float64  `json:"price,omitempty" yaml:"price"`
	Yield          *float64 `json:"yield,omitempty" yaml:"yield"`
	SettlementDate string   `json:"settlement_date,omitempty" yaml:"settlement_date"`
	TradeDate      string   `json:"trade_date,omitempty" yaml:"trade_date"`
}

type outputJSON struct {
	TaskID     string            `json:"task_id,omitempty"`
	Identifier string            `json:"identifier,omitempty"`
	Result     *valuation.Result `json:"result,omitempty"`
	BestEffort *valuation.Result `json:"best_effort,omitempty"`
	ErrorKind  valuation.Kind    `json:"error_kind,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func (in requestJSON) request() (valuation.Request, error) {
	req := valuation.Request{
		Identifier:  strings.TrimSpace(in.Identifier),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Yield:       in.Yield,
	}
	var err error
	if in.SettlementDate != "" {
		if req.SettlementDate, err = utils.ParseDate(in.SettlementDate); err != nil {
			return req, fmt.Errorf("invalid settlement_date: %w", err)
		}
	}
	if in.TradeDate != "" {
		if req.TradeDate, err = utils.ParseDate(in.TradeDate); err != nil {
			return req, fmt.Errorf("invalid trade_date: %w", err)
		}
	}
	return req, nil
}

func output(in requestJSON, res *valuation.Result, err error) outputJSON {
	out := outputJSON{TaskID: in.TaskID, Identifier: in.Identifier, Result: res}
	if err != nil {
		out.Error = err.Error()
		out.ErrorKind = valuation.KindOf(err)
		var ve *valuation.Error
		if errors.As(err, &ve) {
			out.BestEffort = ve.BestEffort
		}
	}
	return out
}

// parseInputs accepts a single JSON object, a JSON array, or a YAML list.
func parseInputs(raw []byte) ([]requestJSON, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty input")
	}
	switch trimmed[0] {
	case '[':
		var inputs []requestJSON
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, true, err
		}
		if len(inputs) == 0 {
			return nil, true, fmt.Errorf("empty input array")
		}
		return inputs, true, nil
	case '{':
		var input requestJSON
		if err := json.Unmarshal(trimmed, &input); err != nil {
			return nil, false, err
		}
		return []requestJSON{input}, false, nil
	default:
		var inputs []requestJSON
		if err := yaml.Unmarshal(trimmed, &inputs); err != nil {
			return nil, true, fmt.Errorf("parse YAML: %w", err)
		}
		if len(inputs) == 0 {
			return nil, true, fmt.Errorf("empty input list")
		}
		return inputs, true, nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable renders one row per output. The table is built in memory so a
// failed write to w is reported.
func writeTable(w io.Writer, outs []outputJSON) error {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.Header("#", "Bond", "Settle", "Clean", "Dirty", "AI", "Yld s/a %", "Yld ann %", "ModDur", "MacDur", "Cvx", "PVBP", "Sprd bp", "Source")

	for i, out := range outs {
		label := out.Identifier
		if label == "" && out.TaskID != "" {
			label = out.TaskID
		}
		res := out.Result
		if res == nil {
			if err := table.Append(fmt.Sprintf("%d", i+1), label, "", "", "", "", "", "", "", "", "", "", "", string(out.ErrorKind)); err != nil {
				return fmt.Errorf("table row %d: %w", i+1, err)
			}
			continue
		}
		if label == "" {
			label = res.Bond.Description
		}
		err := table.Append(
			fmt.Sprintf("%d", i+1),
			label,
			res.SettlementDate.Format(utils.DateLayout),
			fmt.Sprintf("%.4f", res.CleanPrice),
			fmt.Sprintf("%.4f", res.DirtyPrice),
			fmt.Sprintf("%.4f", res.AccruedInterest),
			fmt.Sprintf("%.4f", res.YieldSemiannual),
			fmt.Sprintf("%.4f", res.YieldAnnual),
			fmt.Sprintf("%.3f", res.ModifiedDurationSemiannual),
			fmt.Sprintf("%.3f", res.MacaulayDurationSemiannual),
			fmt.Sprintf("%.2f", res.Convexity),
			fmt.Sprintf("%.4f", res.PVBP),
			spreadLabel(res.SpreadToBenchmark),
			string(res.Bond.Source),
		)
		if err != nil {
			return fmt.Errorf("table row %d: %w", i+1, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func spreadLabel(bp *float64) string {
	if bp == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *bp)
}
