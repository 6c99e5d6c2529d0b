package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func valueCmd(a *app) *cobra.Command {
	var (
		in    requestJSON
		yield float64
		table bool
	)

	cmd := &cobra.Command{
		Use:   "value",
		Short: "Value one bond from a clean price or a yield",
		Example: `  yas value --id US912810TL26 --price 71.66 --settle 2025-06-30
  yas value --desc "T 3 15/08/52" --yield 4.9 --table`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("yield") {
				in.Yield = &yield
			}
			req, err := in.request()
			if err != nil {
				return err
			}
			eng, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer a.flushMetrics()

			res, verr := eng.Value(req)
			out := output(in, res, verr)
			if table {
				err = writeTable(cmd.OutOrStdout(), []outputJSON{out})
			} else {
				err = writeJSON(cmd.OutOrStdout(), out)
			}
			if err != nil {
				return err
			}
			if verr != nil {
				return fmt.Errorf("value: %w", verr)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Identifier, "id", "", "Instrument identifier (ISIN, CUSIP)")
	f.StringVar(&in.Description, "desc", "", `Market description, e.g. "T 3 15/08/52"`)
	f.Float64Var(&in.Price, "price", 0, "Clean price per 100 face")
	f.Float64Var(&yield, "yield", 0, "Semiannual yield in percent; prices the bond instead of solving")
	f.StringVar(&in.SettlementDate, "settle", "", "Settlement date YYYY-MM-DD")
	f.StringVar(&in.TradeDate, "trade-date", "", "Trade date YYYY-MM-DD; settlement follows the bond's lag")
	f.BoolVar(&table, "table", false, "Render a table instead of JSON")
	return cmd
}
