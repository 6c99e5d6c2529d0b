package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meenmo/fixedincome/catalog"
	"github.com/meenmo/fixedincome/catalog/sqlstore"
	"github.com/meenmo/fixedincome/curve"
	"github.com/meenmo/fixedincome/utils"
)

func catalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the convention catalog database",
	}

	var dsn string
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Catalog database DSN (SQLite path or postgres:// URL); defaults to catalog.dsn")
	store := func() (*sqlstore.Store, error) {
		if dsn == "" {
			dsn = a.cfg.Catalog.DSN
		}
		if dsn == "" {
			return nil, fmt.Errorf("no catalog DSN: pass --dsn or set catalog.dsn")
		}
		return sqlstore.Open(dsn)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <catalog.yaml>",
		Short: "Upsert records from a YAML catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			records, err := catalog.DecodeYAML(f)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}

			s, err := store()
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Upsert(cmd.Context(), records...); err != nil {
				return err
			}
			a.logger.Info("catalog imported", "file", args[0], "records", len(records))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write the catalog database as YAML to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store()
			if err != nil {
				return err
			}
			defer s.Close()
			snap, err := s.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return catalog.EncodeYAML(cmd.OutOrStdout(), snap.Records())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <identifier>",
		Short: "Remove one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store()
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Delete(cmd.Context(), args[0])
		},
	})
	return cmd
}

func curveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Manage benchmark curve snapshots in Redis",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <curve.yaml>",
		Short: "Store a curve snapshot file in Redis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			file, err := curve.ReadFile(f)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			c, err := file.Tenor()
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			if c.Date().IsZero() {
				return fmt.Errorf("import %s: curve file has no date", args[0])
			}
			name := file.Name
			if name == "" {
				name = a.cfg.Curve.Name
			}

			if a.cfg.Curve.RedisAddr == "" {
				return fmt.Errorf("no redis address: set curve.redis_addr")
			}
			s, err := a.dialCurveStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Save(cmd.Context(), name, c.Date(), file.Quotes); err != nil {
				return err
			}
			a.logger.Info("curve imported", "name", name, "date", c.Date().Format(utils.DateLayout), "tenors", len(file.Quotes))
			return nil
		},
	})
	return cmd
}
