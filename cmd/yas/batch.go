package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meenmo/fixedincome/valuation"
)

func batchCmd(a *app) *cobra.Command {
	var (
		inputPath string
		table     bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Value a portfolio of bonds concurrently",
		Long: `Reads a JSON object, a JSON array or a YAML list of requests
(identifier, description, price or yield, settlement_date or trade_date)
from --input or stdin and writes one output per request, in input order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), inputPath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			inputs, isArray, err := parseInputs(raw)
			if err != nil {
				return fmt.Errorf("parse input: %w", err)
			}

			outs := make([]outputJSON, len(inputs))
			reqs := make([]valuation.Request, 0, len(inputs))
			index := make([]int, 0, len(inputs))
			for i, in := range inputs {
				req, err := in.request()
				if err != nil {
					outs[i] = output(in, nil, err)
					continue
				}
				reqs = append(reqs, req)
				index = append(index, i)
			}

			eng, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer a.flushMetrics()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			timeout, err := a.cfg.Batch.TimeoutDuration()
			if err != nil {
				return err
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			batch, batchErr := eng.ValueAll(ctx, reqs)
			failed := 0
			for k, it := range batch.Items {
				i := index[k]
				outs[i] = output(inputs[i], it.Result, it.Err)
			}
			for _, out := range outs {
				if out.Error != "" {
					failed++
				}
			}

			w := cmd.OutOrStdout()
			switch {
			case table:
				err = writeTable(w, outs)
			case isArray:
				err = writeJSON(w, outs)
			default:
				err = writeJSON(w, outs[0])
			}
			if err != nil {
				return err
			}
			if batchErr != nil {
				return fmt.Errorf("batch %s: %w", batch.RunID, batchErr)
			}
			if failed > 0 {
				return fmt.Errorf("batch %s: %d of %d valuations failed", batch.RunID, failed, len(outs))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Request file (JSON or YAML); stdin if omitted")
	cmd.Flags().BoolVar(&table, "table", false, "Render a table instead of JSON")
	return cmd
}
