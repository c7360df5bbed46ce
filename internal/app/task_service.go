package app

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"radiocat/internal/domain"
	"radiocat/internal/logger"
	"radiocat/internal/store"
)

// TaskService is the single source of truth for task admission, status
// transitions, and cancellation. It is stateless logic over the store; all
// coordination correctness comes from the store's transaction guarantees.
type TaskService struct {
	Store  *store.DB
	Logger *logger.Logger
}

func NewTaskService(db *store.DB, log *logger.Logger) *TaskService {
	return &TaskService{Store: db, Logger: log.WithComponent("tasks")}
}

// Submit admits a new task of the given type for a show and returns its
// external task id. At most one non-terminal task per (show, type) may
// exist; a duplicate submission fails with ConflictError.
func (s *TaskService) Submit(taskType domain.TaskType, showID int64, options domain.JSONMap) (*domain.Task, error) {
	if !domain.ValidTaskType(taskType) {
		return nil, &domain.ValidationError{Field: "type", Message: fmt.Sprintf("unknown task type %q", taskType)}
	}

	// Verify the show exists so a bad reference fails with NotFound rather
	// than a dangling foreign key.
	show, err := s.Store.GetShow(showID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	task := &domain.Task{
		TaskID:    uuid.New().String(),
		Type:      taskType,
		ShowID:    &showID,
		Status:    domain.TaskStatusPending,
		Progress:  0,
		Result:    options,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Store.CreateTask(task); err != nil {
		return nil, err
	}

	s.Logger.Info("Task submitted", "task_id", task.TaskID, "type", taskType, "pid", show.PID)
	return task, nil
}

// Get returns a task by its external id.
func (s *TaskService) Get(taskID string) (*domain.Task, error) {
	return s.Store.GetTask(taskID)
}

// Claim hands the oldest pending task of the given type to a polling worker,
// moving it to in_progress. Returns (nil, nil) when the queue is empty.
func (s *TaskService) Claim(taskType domain.TaskType) (*domain.Task, error) {
	if !domain.ValidTaskType(taskType) {
		return nil, &domain.ValidationError{Field: "type", Message: fmt.Sprintf("unknown task type %q", taskType)}
	}

	task, err := s.Store.ClaimTask(taskType)
	if err != nil {
		return nil, err
	}
	if task != nil {
		s.Logger.Info("Task claimed", "task_id", task.TaskID, "type", taskType)
	}
	return task, nil
}

// ReportProgress records a worker progress report. Progress is monotonic:
// reports that do not increase it are dropped silently. A report against a
// cancelled task returns InvalidTransitionError, which the worker treats as
// its signal to stop.
func (s *TaskService) ReportProgress(taskID string, percent float64) error {
	if percent < 0 || percent > 100 {
		return &domain.ValidationError{Field: "progress", Message: fmt.Sprintf("must be between 0 and 100, got %.1f", percent)}
	}

	updated, err := s.Store.UpdateTaskProgress(taskID, percent)
	if err != nil {
		return err
	}
	if !updated {
		s.Logger.Debug("Dropped non-increasing progress report", "task_id", taskID, "progress", percent)
	}
	return nil
}

// Complete transitions an in_progress task to completed and applies the
// completion side effects: a finished download marks its show downloaded
// and records the download path (result key "path"); a finished
// transcription marks its show transcribed and records transcription rows
// (result keys "outputs", "word_count", "speakers").
func (s *TaskService) Complete(taskID string, result domain.JSONMap) error {
	task, err := s.Store.GetTask(taskID)
	if err != nil {
		return err
	}

	var showStatus domain.ShowStatus
	var downloadPath string
	var trs []*domain.Transcription

	switch task.Type {
	case domain.TaskTypeDownload:
		showStatus = domain.ShowStatusDownloaded
		if p, ok := result["path"].(string); ok {
			downloadPath = p
		}
	case domain.TaskTypeTranscribe:
		showStatus = domain.ShowStatusTranscribed
		trs = transcriptionsFromResult(result)
	}

	if err := s.Store.CompleteTask(task, result, showStatus, downloadPath, trs); err != nil {
		return err
	}

	s.Logger.Info("Task completed", "task_id", taskID, "type", task.Type)
	return nil
}

// Fail transitions an in_progress task to error and stores the error
// payload. The task row is kept forever, distinguishing "ran and failed"
// from "never ran".
func (s *TaskService) Fail(taskID string, message string, details domain.JSONMap) error {
	task, err := s.Store.GetTask(taskID)
	if err != nil {
		return err
	}

	payload := domain.JSONMap{"error": message}
	for k, v := range details {
		payload[k] = v
	}

	if err := s.Store.FailTask(task, payload); err != nil {
		return err
	}

	s.Logger.Warn("Task failed", "task_id", taskID, "type", task.Type, "error", message)
	return nil
}

// Cancel transitions a pending or in_progress task to cancelled. For
// in_progress tasks this only marks intent; the remote worker observes the
// cancellation at its next progress report and stops.
func (s *TaskService) Cancel(taskID string) error {
	if err := s.Store.CancelTask(taskID); err != nil {
		return err
	}
	s.Logger.Info("Task cancelled", "task_id", taskID)
	return nil
}

// ListQueue returns non-terminal tasks in FIFO order, optionally filtered by type.
func (s *TaskService) ListQueue(taskType domain.TaskType) ([]*domain.Task, error) {
	if taskType != "" && !domain.ValidTaskType(taskType) {
		return nil, &domain.ValidationError{Field: "type", Message: fmt.Sprintf("unknown task type %q", taskType)}
	}
	return s.Store.ListQueue(taskType)
}

// ClearQueue cancels all non-terminal tasks matching the type filter (empty
// for all) and returns the count cancelled.
func (s *TaskService) ClearQueue(taskType domain.TaskType) (int64, error) {
	// The queue API spells "everything" as type=all.
	if taskType == "all" {
		taskType = ""
	}
	if taskType != "" && !domain.ValidTaskType(taskType) {
		return 0, &domain.ValidationError{Field: "type", Message: fmt.Sprintf("unknown task type %q", taskType)}
	}

	n, err := s.Store.ClearQueue(taskType)
	if err != nil {
		return 0, err
	}
	s.Logger.Info("Queue cleared", "type", string(taskType), "cancelled", n)
	return n, nil
}

// ListFinished returns terminal tasks, most recently updated first.
func (s *TaskService) ListFinished(limit int) ([]*domain.Task, error) {
	return s.Store.ListFinishedTasks(limit)
}

// ResetStuck returns in_progress tasks of a type to pending; called once at
// worker start to recover from an unclean shutdown.
func (s *TaskService) ResetStuck(taskType domain.TaskType) error {
	n, err := s.Store.ResetStuckTasks(taskType)
	if err != nil {
		return err
	}
	if n > 0 {
		s.Logger.Warn("Reset stuck tasks", "type", string(taskType), "count", n)
	}
	return nil
}

// transcriptionsFromResult decodes the completion payload of a transcribe
// task. Outputs is a map of format tag to file path.
func transcriptionsFromResult(result domain.JSONMap) []*domain.Transcription {
	var outputs map[string]any
	switch m := result["outputs"].(type) {
	case map[string]any:
		outputs = m
	case domain.JSONMap:
		outputs = m
	default:
		return nil
	}

	wordCount := intFromResult(result["word_count"])
	speakers := intFromResult(result["speakers"])
	if speakers == 0 {
		speakers = 1
	}

	var trs []*domain.Transcription
	for format, v := range outputs {
		path, ok := v.(string)
		if !ok || !domain.ValidTranscriptionFormat(domain.TranscriptionFormat(format)) {
			continue
		}
		trs = append(trs, &domain.Transcription{
			Path:      path,
			Format:    domain.TranscriptionFormat(format),
			WordCount: wordCount,
			Speakers:  speakers,
		})
	}
	return trs
}

// intFromResult handles both int and the float64 that JSON round-tripping
// produces.
func intFromResult(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
