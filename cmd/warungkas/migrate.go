package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warungkas/warungkas/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := storage.NewSQLiteStorage(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close() //nolint:errcheck // process exits right after

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Migrations applied")
			return nil
		},
	}
}
