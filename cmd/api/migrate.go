package main

import (
	"github.com/spf13/cobra"

	"github.com/Bahjat/linkboard/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply (or with --down revert) the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		if cfg.Store.DatabaseURL == "" {
			return errDatabaseRequired
		}

		if down, _ := cmd.Flags().GetBool("down"); down {
			if err := store.Rollback(cfg.Store.DatabaseURL); err != nil {
				return err
			}
			log.Info("migrations reverted")
			return nil
		}

		if err := store.Migrate(cfg.Store.DatabaseURL); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("down", false, "Revert every migration")
}
