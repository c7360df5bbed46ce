package worker

import (
	"context"

	"radiocat/internal/app"
	"radiocat/internal/config"
	"radiocat/internal/domain"
	"radiocat/internal/filesystem"
	"radiocat/internal/logger"
	"radiocat/internal/transcriber"
)

// TranscribeWorker drains the transcription queue. It is designed to run
// in a separate process, possibly on another machine, against the same
// database file; its only coordination channel is the task service.
type TranscribeWorker struct {
	Tasks   *app.TaskService
	Shows   *app.ShowService
	Whisper *transcriber.Whisper
	FS      *filesystem.Manager
	Opts    transcriber.Options
	Logger  *logger.Logger

	poller Poller
}

func NewTranscribeWorker(tasks *app.TaskService, shows *app.ShowService, wh *transcriber.Whisper, fs *filesystem.Manager, cfg *config.Config, log *logger.Logger) *TranscribeWorker {
	log = log.WithComponent("transcribe-worker")

	formats := make([]domain.TranscriptionFormat, 0, len(cfg.Transcription.Formats))
	for _, f := range cfg.Transcription.Formats {
		formats = append(formats, domain.TranscriptionFormat(f))
	}

	return &TranscribeWorker{
		Tasks:   tasks,
		Shows:   shows,
		Whisper: wh,
		FS:      fs,
		Opts: transcriber.Options{
			Language: cfg.Transcription.Language,
			Formats:  formats,
		},
		Logger: log,
		poller: Poller{
			Name:     "transcribe",
			Interval: cfg.TranscribePollInterval(),
			Logger:   log,
		},
	}
}

// Run polls the queue until ctx is cancelled.
func (w *TranscribeWorker) Run(ctx context.Context) {
	if err := w.Tasks.ResetStuck(domain.TaskTypeTranscribe); err != nil {
		w.Logger.Error("Failed to reset stuck transcribe tasks", "error", err)
	}
	w.poller.Run(ctx, w.tick)
}

// tick queues transcription tasks for shows whose audio is ready, then
// works through the queue.
func (w *TranscribeWorker) tick(ctx context.Context) error {
	if err := w.enqueueReady(); err != nil {
		return err
	}

	for ctx.Err() == nil {
		task, err := w.Tasks.Claim(domain.TaskTypeTranscribe)
		if err != nil {
			return err
		}
		if task == nil {
			return nil
		}
		w.process(ctx, task)
	}
	return nil
}

// enqueueReady submits transcription tasks for shows marked ready. A show
// that already has an active task is skipped via the conflict guard.
func (w *TranscribeWorker) enqueueReady() error {
	shows, err := w.Shows.ListByStatus(domain.ShowStatusReady, 0)
	if err != nil {
		return err
	}
	for _, show := range shows {
		if _, err := w.Tasks.Submit(domain.TaskTypeTranscribe, show.ID, nil); err != nil && !domain.IsConflict(err) {
			return err
		}
	}
	return nil
}

func (w *TranscribeWorker) process(ctx context.Context, task *domain.Task) {
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

	audioPath, ok := filesystem.ResolveFile(show.DownloadPath)
	if !ok {
		w.fail(task, "audio file missing", domain.JSONMap{"path": show.DownloadPath})
		return
	}

	if err := w.Shows.SetStatus(show.ID, domain.ShowStatusTranscribing); err != nil {
		log.Error("Failed to mark show transcribing", "error", err)
	}

	// Whisper gives no usable progress stream, so report a coarse start
	// marker. This doubles as the cancellation check before the long run.
	if err := w.Tasks.ReportProgress(task.TaskID, 5); err != nil {
		if domain.IsInvalidTransition(err) {
			log.Info("Skipping transcription, task was cancelled")
			return
		}
		log.Warn("Progress report failed", "error", err)
	}

	outDir, err := w.FS.ProcessedDir(show.Title)
	if err != nil {
		w.fail(task, err.Error(), domain.JSONMap{"pid": show.PID})
		return
	}

	result, err := w.Whisper.Transcribe(ctx, audioPath, outDir, w.Opts)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown mid-run; the task resets to pending on restart.
			return
		}
		w.fail(task, err.Error(), domain.JSONMap{"pid": show.PID})
		return
	}

	// Another cancellation window closed: a cancel that landed during the
	// whisper run makes this report fail, and the outcome is discarded.
	if err := w.Tasks.ReportProgress(task.TaskID, 95); err != nil {
		if domain.IsInvalidTransition(err) {
			log.Info("Discarding transcription, task was cancelled")
			return
		}
		log.Warn("Progress report failed", "error", err)
	}

	outputs := map[string]any{}
	for format, path := range result.Outputs {
		outputs[string(format)] = path
	}
	payload := domain.JSONMap{
		"outputs":    outputs,
		"word_count": result.WordCount,
		"speakers":   result.Speakers,
	}
	if err := w.Tasks.Complete(task.TaskID, payload); err != nil {
		log.Error("Failed to complete transcribe task", "error", err)
		return
	}
	log.Info("Transcription finished", "words", result.WordCount, "formats", len(result.Outputs))
}

func (w *TranscribeWorker) fail(task *domain.Task, message string, details domain.JSONMap) {
	if err := w.Tasks.Fail(task.TaskID, message, details); err != nil {
		w.Logger.Error("Failed to record task failure", "task_id", task.TaskID, "error", err)
	}
}
