package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"leavelite/internal/platform/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the administrator named by SEED_ADMIN_EMAIL if it does not exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		if cfg.SeedAdminEmail == "" {
			return fmt.Errorf("SEED_ADMIN_EMAIL is required")
		}

		pool, err := db.Connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.Migrate(cmd.Context(), pool); err != nil {
			return err
		}
		return db.Seed(cmd.Context(), pool, cfg, logger)
	},
}
