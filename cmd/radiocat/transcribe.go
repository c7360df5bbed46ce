package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"radiocat/internal/app"
	"radiocat/internal/filesystem"
	"radiocat/internal/store"
	"radiocat/internal/transcriber"
	"radiocat/internal/worker"
)

// newTranscribeCmd runs the transcription worker. It is meant to run on
// a machine with GPU access, pointed at the same database file as the
// server via a shared mount.
func newTranscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe",
		Short: "Run the transcription worker",
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

			fs, err := filesystem.NewManager(cfg.Downloader.DownloadPath, cfg.Transcription.OutputPath)
			if err != nil {
				return err
			}
			wh, err := transcriber.New(cfg.Transcription.Bin, cfg.Transcription.Model, log)
			if err != nil {
				return err
			}

			tasks := app.NewTaskService(db, log)
			shows := app.NewShowService(db, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tw := worker.NewTranscribeWorker(tasks, shows, wh, fs, cfg, log)
			tw.Run(ctx)
			return nil
		},
	}
}
