package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"docufind/internal/app"
	"docufind/internal/platform/config"
	"docufind/internal/platform/logger"
	"docufind/internal/platform/postgres"
)

func migrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Postgres.DSN == "" {
				return errors.New("DATABASE_URL or --database-url is required")
			}
			db, err := postgres.Open(cmd.Context(), postgres.Config{DSN: cfg.Postgres.DSN, MaxOpenConns: 2})
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func seedTypesCmd(cfg *config.Config) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-types",
		Short: "Insert or rename document types from a YAML file",
		Long: `Insert or rename document types.

Without --file the built-in list is applied. Existing ids are renamed,
missing ids are inserted and nothing is deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				raw = b
			}
			return withApp(cmd.Context(), *cfg, func(a *app.App) error {
				n, err := a.Records.SeedDocumentTypes(cmd.Context(), raw)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d document types applied\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a document_types list")
	return cmd
}

func statsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print registry statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), *cfg, func(a *app.App) error {
				st, err := a.Records.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}

func sweepCmd(cfg *config.Config) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one maintenance pass and exit",
		Long: `Run one maintenance pass: purge expired tokens, settle payments
left pending and rebuild missing blurred photos.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			if batch > 0 {
				c.Sweep.BatchSize = batch
			}
			return withApp(cmd.Context(), c, func(a *app.App) error {
				report, err := a.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 0, "payments and photos handled per pass (defaults to SWEEP_BATCH_SIZE)")
	return cmd
}

func withApp(ctx context.Context, cfg config.Config, fn func(a *app.App) error) error {
	log, closer := logger.New(cfg.Logging)
	defer closer.Close()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
