package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warungkas/warungkas/internal/session"
)

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Run one expired-session sweep and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck // process exits right after

			sessions := session.NewManager(store, session.Config{
				SessionTTL: cfg.Session.Timeout,
				PartialTTL: cfg.Session.PartialTTL,
			})

			deleted := sessions.CleanupExpiredSessions(cmd.Context())
			fmt.Printf("Deleted %d expired session(s)\n", deleted)
			return nil
		},
	}
}
