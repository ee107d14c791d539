package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/balance/internal/cli"
	"github.com/Veraticus/balance/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			statusOnly, _ := cmd.Flags().GetBool("status")

			store, err := storage.NewSQLiteStorage(appCfg.Database.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			before, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if statusOnly {
				fmt.Fprintf(out, "Database: %s\nSchema version: %d (latest %d)\n",
					appCfg.Database.Path, before, storage.ExpectedSchemaVersion)
				return nil
			}

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			if before == storage.ExpectedSchemaVersion {
				fmt.Fprintln(out, cli.FormatInfo("Database already up to date"))
				return nil
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Migrated schema from version %d to %d", before, storage.ExpectedSchemaVersion)))
			return nil
		},
	}
	cmd.Flags().Bool("status", false, "show the schema version without migrating")
	return cmd
}
