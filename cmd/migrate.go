package cmd

import (
	"github.com/spf13/cobra"

	"github.com/seo-optimizer/monitor/store"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := store.NewPostgresConnection(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			log.Info("Schema applied")
			return nil
		},
	}
}
