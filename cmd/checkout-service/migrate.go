package main

import (
	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/travel-checkout/internal/db"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the postgres invoice provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return db.Migrate(a.cfg.Postgres)
		},
	}
}
