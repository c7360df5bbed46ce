package worker

import (
	"context"
	"errors"
	"time"

	"radiocat/internal/app"
	"radiocat/internal/config"
	"radiocat/internal/domain"
	"radiocat/internal/downloader"
	"radiocat/internal/filesystem"
	"radiocat/internal/logger"
	"radiocat/internal/tagging"
)

// errCancelled aborts an in-flight download when the task behind it was
// cancelled through the coordinator.
var errCancelled = errors.New("task cancelled")

// DownloadWorker drains the download queue: it claims pending download
// tasks, drives get_iplayer, streams progress back, and completes or
// fails the task with the outcome.
type DownloadWorker struct {
	Tasks      *app.TaskService
	Shows      *app.ShowService
	Downloader *downloader.GetIPlayer
	FS         *filesystem.Manager
	Logger     *logger.Logger

	poller Poller
}

func NewDownloadWorker(tasks *app.TaskService, shows *app.ShowService, dl *downloader.GetIPlayer, fs *filesystem.Manager, cfg *config.Config, log *logger.Logger) *DownloadWorker {
	log = log.WithComponent("download-worker")
	return &DownloadWorker{
		Tasks:      tasks,
		Shows:      shows,
		Downloader: dl,
		FS:         fs,
		Logger:     log,
		poller: Poller{
			Name:     "download",
			Interval: cfg.DownloadPollInterval(),
			Logger:   log,
		},
	}
}

// Run polls the queue until ctx is cancelled. In-progress tasks left over
// from an unclean shutdown are returned to pending first so they are not
// orphaned.
func (w *DownloadWorker) Run(ctx context.Context) {
	if err := w.Tasks.ResetStuck(domain.TaskTypeDownload); err != nil {
		w.Logger.Error("Failed to reset stuck download tasks", "error", err)
	}
	w.poller.Run(ctx, w.tick)
}

// tick drains the queue, then sweeps finished downloads into the
// transcription-ready state.
func (w *DownloadWorker) tick(ctx context.Context) error {
	for ctx.Err() == nil {
		task, err := w.Tasks.Claim(domain.TaskTypeDownload)
		if err != nil {
			return err
		}
		if task == nil {
			break
		}
		w.process(ctx, task)
	}

	_, err := w.Shows.MarkReadyForTranscription()
	return err
}

func (w *DownloadWorker) process(ctx context.Context, task *domain.Task) {
	log := w.Logger.WithTask(task.TaskID, string(task.Type))

	if task.ShowID == nil {
		w.fail(task, "task has no show attached", nil)
		return
	}
	show, err := w.Shows.Get(*task.ShowID)
	if err != nil {
		w.fail(task, "show lookup failed: "+err.Error(), nil)
		return
	}
	log = log.WithShow(show.PID, show.Title)

	if err := w.Shows.SetStatus(show.ID, domain.ShowStatusDownloading); err != nil {
		log.Error("Failed to mark show downloading", "error", err)
	}

	outDir, err := w.FS.DownloadDir(show.Title)
	if err != nil {
		w.fail(task, err.Error(), domain.JSONMap{"pid": show.PID})
		return
	}

	path, err := w.Downloader.Download(ctx, show.PID, outDir, w.progressFunc(task.TaskID, log))
	if err != nil {
		if errors.Is(err, errCancelled) {
			log.Info("Download aborted, task was cancelled")
			return
		}
		if ctx.Err() != nil {
			// Shutdown mid-download; the task resets to pending on restart.
			return
		}
		w.fail(task, err.Error(), domain.JSONMap{"pid": show.PID})
		return
	}

	if err := tagging.TagMP3(path, show); err != nil {
		log.Warn("Failed to tag download", "path", path, "error", err)
	}

	if err := w.Tasks.Complete(task.TaskID, domain.JSONMap{"path": path}); err != nil {
		log.Error("Failed to complete download task", "error", err)
		return
	}
	log.Info("Download finished", "path", path)
}

// progressFunc throttles get_iplayer's chatty progress lines down to one
// report per percent step or second, whichever comes first. A cancelled
// task surfaces as InvalidTransitionError, which aborts the download.
func (w *DownloadWorker) progressFunc(taskID string, log *logger.Logger) downloader.ProgressFunc {
	var lastPercent float64 = -1
	var lastReport time.Time

	return func(percent float64) error {
		if percent-lastPercent < 1 && time.Since(lastReport) < time.Second {
			return nil
		}
		lastPercent = percent
		lastReport = time.Now()

		err := w.Tasks.ReportProgress(taskID, percent)
		if domain.IsInvalidTransition(err) {
			return errCancelled
		}
		if err != nil {
			log.Warn("Progress report failed", "error", err)
		}
		return nil
	}
}

func (w *DownloadWorker) fail(task *domain.Task, message string, details domain.JSONMap) {
	if err := w.Tasks.Fail(task.TaskID, message, details); err != nil {
		w.Logger.Error("Failed to record task failure", "task_id", task.TaskID, "error", err)
	}
}
