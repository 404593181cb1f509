package main

import (
	"github.com/MrEthical07/identity/credstore/postgres"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

var runMigration = postgres.Migrate

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Run the embedded PostgreSQL migrations",
		Long:      `Apply (up, the default), roll back one (down) or list (status) the users schema migrations.`,
		ValidArgs: []string{string(postgres.Up), string(postgres.Down), string(postgres.Status)},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return oops.Code("CONFIG_INVALID").Errorf("database url is required (--database-url or IDENTITY_DATABASE_URL)")
			}

			dir := postgres.Up
			if len(args) == 1 {
				dir = postgres.Direction(args[0])
			}

			cmd.Printf("Running migrations (%s)...\n", dir)
			if err := runMigration(cmd.Context(), cfg.Database.URL, dir); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	}
}
