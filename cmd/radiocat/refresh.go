package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"radiocat/internal/app"
	"radiocat/internal/downloader"
	"radiocat/internal/store"
)

// newRefreshCmd runs one discovery pass and queues downloads for
// anything new, then exits.
func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Discover programmes and queue downloads once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := store.NewSQLiteDB(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			dl, err := downloader.New(cfg.Downloader.Bin, cfg.Downloader.Options, log)
			if err != nil {
				return err
			}

			tasks := app.NewTaskService(db, log)
			shows := app.NewShowService(db, log)
			settings := store.NewSettingsRepo(db)
			intake := app.NewIntakeService(dl, shows, tasks, settings, cfg, log)

			seen, err := intake.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			queued, err := intake.EnqueuePending()
			if err != nil {
				return err
			}

			fmt.Printf("%d programmes seen, %d downloads queued\n", seen, queued)
			return nil
		},
	}
}
