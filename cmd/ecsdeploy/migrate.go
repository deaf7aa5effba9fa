package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvin/ecsdeploy/internal/config"
	"github.com/edvin/ecsdeploy/internal/db"
	"github.com/edvin/ecsdeploy/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the lease and history store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger := logging.NewLogger(cfg)

		logger.Info().Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
		return nil
	},
}
