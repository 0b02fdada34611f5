package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"qrnglab/adapters/snapshot"
	"qrnglab/internal/config"
	"qrnglab/internal/container"
	"qrnglab/internal/errors"
	"qrnglab/internal/migration"
)

func newMigrateCmd() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the sessions and report tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(nil)
			if err != nil {
				return err
			}
			defer logger.Sync()

			runner, err := migration.NewRunner(cfg.Database.Table, logger)
			if err != nil {
				return err
			}
			if printOnly {
				for _, stmt := range runner.Statements() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
				}
				return nil
			}
			if cfg.Database.URL == "" {
				return errors.ConfigInvalid("DATABASE_URL is required")
			}

			db, err := sqlx.ConnectContext(cmd.Context(), "postgres", cfg.Database.URL)
			if err != nil {
				return errors.SourceUnavailable("postgres", err)
			}
			defer db.Close()

			if err := runner.Run(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema %s applied\n", runner.Version())
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the DDL instead of applying it")
	return cmd
}

func newImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON snapshot into the sessions table",
		Long: `Normalize the documents of a snapshot and upsert them into the sessions
table under canonical field names.

Example: qrnglab import --file export.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			ctx := cmd.Context()
			sessions, diag, err := snapshot.NewFileSource(file, "").LoadSessions(ctx)
			if err != nil {
				return err
			}

			useDB := func(cfg *config.Config) { cfg.Source.Kind = "postgres" }
			return withContainer(ctx, useDB, func(c *container.Container) error {
				n, err := c.Sessions.ImportSessions(ctx, sessions)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sessions into %s (%d malformed documents skipped)\n",
					n, c.Sessions.Name(), diag.MalformedSessions)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON snapshot to import")
	return cmd
}

func newReportsCmd() *cobra.Command {
	var archivePath string
	var limit int

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List archived reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			useArchive := func(cfg *config.Config) {
				if archivePath != "" {
					cfg.Storage.Backend = "badger"
					cfg.Storage.ArchivePath = archivePath
				}
			}
			return withContainer(ctx, useArchive, func(c *container.Container) error {
				entries, err := c.Service.ListReports(ctx, limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tGENERATED\tFINGERPRINT")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.GeneratedAt.Format("2006-01-02 15:04:05"), e.Fingerprint.Short())
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "Badger archive directory")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum reports to list")
	return cmd
}
