package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"radiocat/internal/app"
	"radiocat/internal/downloader"
	"radiocat/internal/filesystem"
	httpapp "radiocat/internal/http"
	"radiocat/internal/store"
	"radiocat/internal/worker"
)

// newServeCmd runs the daemon: HTTP API, the download worker, and
// periodic programme discovery. Transcription runs as its own process
// via the transcribe command.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server, download worker, and discovery loop",
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
			dl, err := downloader.New(cfg.Downloader.Bin, cfg.Downloader.Options, log)
			if err != nil {
				return err
			}

			tasks := app.NewTaskService(db, log)
			shows := app.NewShowService(db, log)
			settings := store.NewSettingsRepo(db)
			intake := app.NewIntakeService(dl, shows, tasks, settings, cfg, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			dw := worker.NewDownloadWorker(tasks, shows, dl, fs, cfg, log)
			go dw.Run(ctx)

			if interval := cfg.RefreshInterval(); interval > 0 {
				go runRefreshLoop(ctx, intake, interval)
			}

			r := chi.NewRouter()
			r.Use(middleware.Logger)
			r.Use(middleware.Recoverer)

			h := httpapp.NewHandler(shows, tasks, intake, settings, log)
			h.RegisterRoutes(r)

			srv := &http.Server{
				Addr:    ":" + cfg.Server.Port,
				Handler: r,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("Server listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// runRefreshLoop runs discovery immediately and then on the interval,
// queuing downloads for any pending shows each time.
func runRefreshLoop(ctx context.Context, intake *app.IntakeService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := intake.Refresh(ctx); err != nil && ctx.Err() == nil {
			intake.Logger.Error("Programme refresh failed", "error", err)
		} else if _, err := intake.EnqueuePending(); err != nil {
			intake.Logger.Error("Failed to queue downloads", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
