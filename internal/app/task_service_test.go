package app

import (
	"path/filepath"
	"testing"

	"radiocat/internal/domain"
	"radiocat/internal/logger"
	"radiocat/internal/store"
)

func newTestServices(t *testing.T) (*TaskService, *ShowService) {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.Default()
	return NewTaskService(db, log), NewShowService(db, log)
}

func submitTestShow(t *testing.T, shows *ShowService, pid string) *domain.Show {
	t.Helper()
	show, err := shows.Upsert(&domain.Show{PID: pid, Title: "Just a Minute"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	return show
}

func TestSubmit(t *testing.T) {
	tasks, shows := newTestServices(t)
	show := submitTestShow(t, shows, "b006s5dp")

	task, err := tasks.Submit(domain.TaskTypeDownload, show.ID, nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if task.TaskID == "" {
		t.Error("Expected a task id to be assigned")
	}
	if task.Status != domain.TaskStatusPending {
		t.Errorf("Expected pending, got %s", task.Status)
	}

	// Second active download for the same show conflicts.
	if _, err := tasks.Submit(domain.TaskTypeDownload, show.ID, nil); !domain.IsConflict(err) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}
}

func TestSubmit_Validation(t *testing.T) {
	tasks, shows := newTestServices(t)
	show := submitTestShow(t, shows, "b006s5dp")

	if _, err := tasks.Submit("reticulate", show.ID, nil); !domain.IsValidation(err) {
		t.Fatalf("Expected ValidationError for unknown type, got %v", err)
	}
	if _, err := tasks.Submit(domain.TaskTypeDownload, 999, nil); !domain.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError for missing show, got %v", err)
	}
}

func TestReportProgress_Validation(t *testing.T) {
	tasks, _ := newTestServices(t)

	if err := tasks.ReportProgress("whatever", -1); !domain.IsValidation(err) {
		t.Fatalf("Expected ValidationError for negative progress, got %v", err)
	}
	if err := tasks.ReportProgress("whatever", 101); !domain.IsValidation(err) {
		t.Fatalf("Expected ValidationError for progress over 100, got %v", err)
	}
	if err := tasks.ReportProgress("whatever", 50); !domain.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError for missing task, got %v", err)
	}
}

func TestDownloadLifecycle(t *testing.T) {
	tasks, shows := newTestServices(t)
	show := submitTestShow(t, shows, "b006s5dp")

	submitted, err := tasks.Submit(domain.TaskTypeDownload, show.ID, nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	claimed, err := tasks.Claim(domain.TaskTypeDownload)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed == nil || claimed.TaskID != submitted.TaskID {
		t.Fatalf("Claim returned %v, want %s", claimed, submitted.TaskID)
	}

	if err := tasks.ReportProgress(claimed.TaskID, 50); err != nil {
		t.Fatalf("ReportProgress failed: %v", err)
	}

	err = tasks.Complete(claimed.TaskID, domain.JSONMap{"path": "/data/jam.m4a"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	got, _ := tasks.Get(claimed.TaskID)
	if got.Status != domain.TaskStatusCompleted || got.Progress != 100 {
		t.Errorf("Task not completed: %s %.1f", got.Status, got.Progress)
	}

	show, _ = shows.Get(show.ID)
	if show.Status != domain.ShowStatusDownloaded {
		t.Errorf("Expected show downloaded, got %s", show.Status)
	}
	if show.DownloadPath != "/data/jam.m4a" {
		t.Errorf("Expected download path recorded, got %q", show.DownloadPath)
	}
}

func TestTranscribeLifecycle(t *testing.T) {
	tasks, shows := newTestServices(t)
	show := submitTestShow(t, shows, "b006s5dp")

	submitted, err := tasks.Submit(domain.TaskTypeTranscribe, show.ID, nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := tasks.Claim(domain.TaskTypeTranscribe); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	result := domain.JSONMap{
		"outputs": map[string]any{
			"txt": "/data/jam.txt",
			"srt": "/data/jam.srt",
		},
		"word_count": 4200,
		"speakers":   2,
	}
	if err := tasks.Complete(submitted.TaskID, result); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	show, _ = shows.Get(show.ID)
	if show.Status != domain.ShowStatusTranscribed {
		t.Errorf("Expected show transcribed, got %s", show.Status)
	}

	trs, err := shows.ListTranscriptions(show.ID)
	if err != nil {
		t.Fatalf("ListTranscriptions failed: %v", err)
	}
	if len(trs) != 2 {
		t.Fatalf("Expected 2 transcription rows, got %d", len(trs))
	}
	for _, tr := range trs {
		if tr.WordCount != 4200 || tr.Speakers != 2 {
			t.Errorf("Counts not recorded: %+v", tr)
		}
	}
}

func TestCancelDuringProgress(t *testing.T) {
	tasks, shows := newTestServices(t)
	show := submitTestShow(t, shows, "b006s5dp")

	submitted, err := tasks.Submit(domain.TaskTypeDownload, show.ID, nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := tasks.Claim(domain.TaskTypeDownload); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := tasks.ReportProgress(submitted.TaskID, 30); err != nil {
		t.Fatalf("ReportProgress failed: %v", err)
	}

	if err := tasks.Cancel(submitted.TaskID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	// The worker's next report is the cancellation signal.
	err = tasks.ReportProgress(submitted.TaskID, 60)
	if !domain.IsInvalidTransition(err) {
		t.Fatalf("Expected InvalidTransitionError after cancel, got %v", err)
	}

	// And its late completion is rejected too.
	err = tasks.Complete(submitted.TaskID, domain.JSONMap{"path": "/data/jam.m4a"})
	if !domain.IsInvalidTransition(err) {
		t.Fatalf("Expected InvalidTransitionError on late complete, got %v", err)
	}
}

func TestFailKeepsHistory(t *testing.T) {
	tasks, shows := newTestServices(t)
	show := submitTestShow(t, shows, "b006s5dp")

	submitted, err := tasks.Submit(domain.TaskTypeDownload, show.ID, nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := tasks.Claim(domain.TaskTypeDownload); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	if err := tasks.Fail(submitted.TaskID, "stream vanished", domain.JSONMap{"pid": show.PID}); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	got, _ := tasks.Get(submitted.TaskID)
	if got.Status != domain.TaskStatusError {
		t.Errorf("Expected error status, got %s", got.Status)
	}
	if got.Result["error"] != "stream vanished" || got.Result["pid"] != show.PID {
		t.Errorf("Failure payload missing: %v", got.Result)
	}
}

func TestClearQueueAllLiteral(t *testing.T) {
	tasks, shows := newTestServices(t)
	dl := submitTestShow(t, shows, "b006qftq")
	tr := submitTestShow(t, shows, "b006qgj4")
	if _, err := tasks.Submit(domain.TaskTypeDownload, dl.ID, nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := tasks.Submit(domain.TaskTypeTranscribe, tr.ID, nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	n, err := tasks.ClearQueue("all")
	if err != nil {
		t.Fatalf("ClearQueue(all) failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Cancelled = %d, want 2", n)
	}
}

func TestClearQueueService(t *testing.T) {
	tasks, shows := newTestServices(t)

	for _, pid := range []string{"pid-a", "pid-b"} {
		show := submitTestShow(t, shows, pid)
		if _, err := tasks.Submit(domain.TaskTypeDownload, show.ID, nil); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	n, err := tasks.ClearQueue(domain.TaskTypeDownload)
	if err != nil {
		t.Fatalf("ClearQueue failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 cancelled, got %d", n)
	}

	queue, err := tasks.ListQueue("")
	if err != nil {
		t.Fatalf("ListQueue failed: %v", err)
	}
	if len(queue) != 0 {
		t.Errorf("Expected empty queue, got %d", len(queue))
	}

	if _, err := tasks.ListQueue("bogus"); !domain.IsValidation(err) {
		t.Fatalf("Expected ValidationError for bogus type, got %v", err)
	}
}
