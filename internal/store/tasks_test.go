package store

import (
	"fmt"
	"sync"
	"testing"

	"radiocat/internal/domain"
)

func TestCreateTask_DuplicateActive(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qykl")

	createTestTask(t, db, "task-1", domain.TaskTypeDownload, show.ID)

	dup := &domain.Task{
		TaskID: "task-2",
		Type:   domain.TaskTypeDownload,
		ShowID: &show.ID,
		Status: domain.TaskStatusPending,
	}
	err := db.CreateTask(dup)
	if !domain.IsConflict(err) {
		t.Fatalf("Expected ConflictError for duplicate active task, got %v", err)
	}

	// A different type for the same show is allowed.
	other := &domain.Task{
		TaskID: "task-3",
		Type:   domain.TaskTypeTranscribe,
		ShowID: &show.ID,
		Status: domain.TaskStatusPending,
	}
	if err := db.CreateTask(other); err != nil {
		t.Fatalf("CreateTask for other type failed: %v", err)
	}
}

func TestCreateTask_ConcurrentDuplicate(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qpgr")

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results <- db.CreateTask(&domain.Task{
				TaskID: fmt.Sprintf("race-%d", n),
				Type:   domain.TaskTypeDownload,
				ShowID: &show.ID,
				Status: domain.TaskStatusPending,
			})
		}(i)
	}
	wg.Wait()
	close(results)

	var created, conflicts int
	for err := range results {
		switch {
		case err == nil:
			created++
		case domain.IsConflict(err):
			conflicts++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if created != 1 || conflicts != 7 {
		t.Errorf("created = %d, conflicts = %d, want 1 and 7", created, conflicts)
	}
}

func TestCreateTask_AfterTerminalAllowed(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qykl")

	createTestTask(t, db, "task-1", domain.TaskTypeDownload, show.ID)
	if err := db.CancelTask("task-1"); err != nil {
		t.Fatalf("CancelTask failed: %v", err)
	}

	// Once the first task is terminal, resubmission is allowed.
	retry := &domain.Task{
		TaskID: "task-2",
		Type:   domain.TaskTypeDownload,
		ShowID: &show.ID,
		Status: domain.TaskStatusPending,
	}
	if err := db.CreateTask(retry); err != nil {
		t.Fatalf("CreateTask after cancel failed: %v", err)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetTask("missing")
	if !domain.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestClaimTask_FIFO(t *testing.T) {
	db := newTestDB(t)

	for i := 1; i <= 3; i++ {
		show := createTestShow(t, db, fmt.Sprintf("pid-%d", i))
		createTestTask(t, db, fmt.Sprintf("task-%d", i), domain.TaskTypeDownload, show.ID)
	}

	first, err := db.ClaimTask(domain.TaskTypeDownload)
	if err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}
	if first.TaskID != "task-1" {
		t.Errorf("Expected oldest task task-1, got %s", first.TaskID)
	}
	if first.Status != domain.TaskStatusInProgress {
		t.Errorf("Expected status in_progress, got %s", first.Status)
	}

	second, err := db.ClaimTask(domain.TaskTypeDownload)
	if err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}
	if second.TaskID != "task-2" {
		t.Errorf("Expected task-2, got %s", second.TaskID)
	}
}

func TestClaimTask_EmptyQueue(t *testing.T) {
	db := newTestDB(t)

	task, err := db.ClaimTask(domain.TaskTypeDownload)
	if err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}
	if task != nil {
		t.Fatalf("Expected nil task from empty queue, got %v", task)
	}
}

func TestClaimTask_TypeIsolation(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qykl")
	createTestTask(t, db, "task-1", domain.TaskTypeTranscribe, show.ID)

	task, err := db.ClaimTask(domain.TaskTypeDownload)
	if err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}
	if task != nil {
		t.Errorf("Download claim should not see transcribe tasks, got %s", task.TaskID)
	}
}

func TestClaimTask_Concurrent(t *testing.T) {
	db := newTestDB(t)

	const n = 10
	for i := 0; i < n; i++ {
		show := createTestShow(t, db, fmt.Sprintf("pid-%d", i))
		createTestTask(t, db, fmt.Sprintf("task-%d", i), domain.TaskTypeDownload, show.ID)
	}

	var mu sync.Mutex
	claimed := make(map[string]int)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, err := db.ClaimTask(domain.TaskTypeDownload)
				if err != nil {
					t.Errorf("ClaimTask failed: %v", err)
					return
				}
				if task == nil {
					return
				}
				mu.Lock()
				claimed[task.TaskID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(claimed) != n {
		t.Errorf("Expected %d distinct claims, got %d", n, len(claimed))
	}
	for id, count := range claimed {
		if count != 1 {
			t.Errorf("Task %s claimed %d times", id, count)
		}
	}
}

func TestUpdateTaskProgress(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qykl")
	createTestTask(t, db, "task-1", domain.TaskTypeDownload, show.ID)

	// Progress on a pending task is an invalid transition.
	_, err := db.UpdateTaskProgress("task-1", 10)
	if !domain.IsInvalidTransition(err) {
		t.Fatalf("Expected InvalidTransitionError on pending task, got %v", err)
	}

	if _, err := db.ClaimTask(domain.TaskTypeDownload); err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}

	updated, err := db.UpdateTaskProgress("task-1", 40)
	if err != nil || !updated {
		t.Fatalf("Expected progress update to apply, got updated=%v err=%v", updated, err)
	}

	// Non-increasing report is dropped without error.
	updated, err = db.UpdateTaskProgress("task-1", 25)
	if err != nil {
		t.Fatalf("Non-increasing report errored: %v", err)
	}
	if updated {
		t.Error("Non-increasing report should not apply")
	}

	task, _ := db.GetTask("task-1")
	if task.Progress != 40 {
		t.Errorf("Expected progress 40, got %.1f", task.Progress)
	}
}

func TestUpdateTaskProgress_Missing(t *testing.T) {
	db := newTestDB(t)
	_, err := db.UpdateTaskProgress("missing", 50)
	if !domain.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestUpdateTaskProgress_Cancelled(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qykl")
	createTestTask(t, db, "task-1", domain.TaskTypeDownload, show.ID)

	if _, err := db.ClaimTask(domain.TaskTypeDownload); err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}
	if err := db.CancelTask("task-1"); err != nil {
		t.Fatalf("CancelTask failed: %v", err)
	}

	// The worker's next report sees the cancellation.
	_, err := db.UpdateTaskProgress("task-1", 60)
	if !domain.IsInvalidTransition(err) {
		t.Fatalf("Expected InvalidTransitionError after cancel, got %v", err)
	}
}

func TestCompleteTask_Download(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qykl")
	createTestTask(t, db, "task-1", domain.TaskTypeDownload, show.ID)

	task, err := db.ClaimTask(domain.TaskTypeDownload)
	if err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}

	result := domain.JSONMap{"path": "/data/archers.m4a"}
	if err := db.CompleteTask(task, result, domain.ShowStatusDownloaded, "/data/archers.m4a", nil); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	task, _ = db.GetTask("task-1")
	if task.Status != domain.TaskStatusCompleted {
		t.Errorf("Expected status completed, got %s", task.Status)
	}
	if task.Progress != 100 {
		t.Errorf("Expected progress forced to 100, got %.1f", task.Progress)
	}
	if task.Result["path"] != "/data/archers.m4a" {
		t.Errorf("Result not stored: %v", task.Result)
	}

	show, _ = db.GetShow(show.ID)
	if show.Status != domain.ShowStatusDownloaded {
		t.Errorf("Expected show downloaded, got %s", show.Status)
	}
	if show.DownloadPath != "/data/archers.m4a" {
		t.Errorf("Expected download path recorded, got %q", show.DownloadPath)
	}
}

func TestCompleteTask_Transcribe(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qykl")
	createTestTask(t, db, "task-1", domain.TaskTypeTranscribe, show.ID)

	task, err := db.ClaimTask(domain.TaskTypeTranscribe)
	if err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}

	trs := []*domain.Transcription{
		{Path: "/data/archers.txt", Format: domain.FormatTXT, WordCount: 5000, Speakers: 3},
		{Path: "/data/archers.srt", Format: domain.FormatSRT, WordCount: 5000, Speakers: 3},
	}
	if err := db.CompleteTask(task, nil, domain.ShowStatusTranscribed, "", trs); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	show, _ = db.GetShow(show.ID)
	if show.Status != domain.ShowStatusTranscribed {
		t.Errorf("Expected show transcribed, got %s", show.Status)
	}

	got, err := db.ListTranscriptionsForShow(show.ID)
	if err != nil {
		t.Fatalf("ListTranscriptionsForShow failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 transcriptions, got %d", len(got))
	}
	if got[0].WordCount != 5000 {
		t.Errorf("Expected word count 5000, got %d", got[0].WordCount)
	}
}

func TestCompleteTask_Terminal(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qykl")
	createTestTask(t, db, "task-1", domain.TaskTypeDownload, show.ID)

	task, _ := db.ClaimTask(domain.TaskTypeDownload)
	if err := db.CancelTask("task-1"); err != nil {
		t.Fatalf("CancelTask failed: %v", err)
	}

	// Completing a cancelled task must not succeed; terminal is immutable.
	err := db.CompleteTask(task, nil, domain.ShowStatusDownloaded, "", nil)
	if !domain.IsInvalidTransition(err) {
		t.Fatalf("Expected InvalidTransitionError, got %v", err)
	}

	got, _ := db.GetTask("task-1")
	if got.Status != domain.TaskStatusCancelled {
		t.Errorf("Terminal status changed to %s", got.Status)
	}
}

func TestFailTask(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qykl")
	createTestTask(t, db, "task-1", domain.TaskTypeDownload, show.ID)

	task, _ := db.ClaimTask(domain.TaskTypeDownload)
	payload := domain.JSONMap{"error": "network unreachable"}
	if err := db.FailTask(task, payload); err != nil {
		t.Fatalf("FailTask failed: %v", err)
	}

	got, _ := db.GetTask("task-1")
	if got.Status != domain.TaskStatusError {
		t.Errorf("Expected status error, got %s", got.Status)
	}
	if got.Result["error"] != "network unreachable" {
		t.Errorf("Error payload not stored: %v", got.Result)
	}

	show, _ = db.GetShow(show.ID)
	if show.Status != domain.ShowStatusError {
		t.Errorf("Expected show marked error, got %s", show.Status)
	}
}

func TestCancelTask_Pending(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qykl")
	createTestTask(t, db, "task-1", domain.TaskTypeDownload, show.ID)

	if err := db.CancelTask("task-1"); err != nil {
		t.Fatalf("CancelTask failed: %v", err)
	}

	// A cancelled task never reaches a claimer.
	task, err := db.ClaimTask(domain.TaskTypeDownload)
	if err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}
	if task != nil {
		t.Errorf("Cancelled task was claimed: %s", task.TaskID)
	}
}

func TestCancelTask_Terminal(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qykl")
	createTestTask(t, db, "task-1", domain.TaskTypeDownload, show.ID)

	if err := db.CancelTask("task-1"); err != nil {
		t.Fatalf("CancelTask failed: %v", err)
	}
	err := db.CancelTask("task-1")
	if !domain.IsInvalidTransition(err) {
		t.Fatalf("Expected InvalidTransitionError on second cancel, got %v", err)
	}
}

func TestListQueue(t *testing.T) {
	db := newTestDB(t)

	showA := createTestShow(t, db, "pid-a")
	showB := createTestShow(t, db, "pid-b")
	createTestTask(t, db, "task-a", domain.TaskTypeDownload, showA.ID)
	createTestTask(t, db, "task-b", domain.TaskTypeTranscribe, showB.ID)

	if _, err := db.ClaimTask(domain.TaskTypeDownload); err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}

	all, err := db.ListQueue("")
	if err != nil {
		t.Fatalf("ListQueue failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 queued tasks, got %d", len(all))
	}
	if all[0].TaskID != "task-a" {
		t.Errorf("Expected FIFO order with task-a first, got %s", all[0].TaskID)
	}

	downloads, err := db.ListQueue(domain.TaskTypeDownload)
	if err != nil {
		t.Fatalf("ListQueue failed: %v", err)
	}
	if len(downloads) != 1 || downloads[0].TaskID != "task-a" {
		t.Errorf("Type filter returned %v", downloads)
	}
}

func TestClearQueue(t *testing.T) {
	db := newTestDB(t)

	showA := createTestShow(t, db, "pid-a")
	showB := createTestShow(t, db, "pid-b")
	createTestTask(t, db, "task-a", domain.TaskTypeDownload, showA.ID)
	createTestTask(t, db, "task-b", domain.TaskTypeDownload, showB.ID)

	task, _ := db.ClaimTask(domain.TaskTypeDownload)
	if err := db.CompleteTask(task, nil, domain.ShowStatusDownloaded, "", nil); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	n, err := db.ClearQueue("")
	if err != nil {
		t.Fatalf("ClearQueue failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 cancelled, got %d", n)
	}

	// Completed tasks survive a clear.
	got, _ := db.GetTask("task-a")
	if got.Status != domain.TaskStatusCompleted {
		t.Errorf("Completed task disturbed by clear: %s", got.Status)
	}
}

func TestResetStuckTasks(t *testing.T) {
	db := newTestDB(t)
	show := createTestShow(t, db, "b006qykl")
	createTestTask(t, db, "task-1", domain.TaskTypeDownload, show.ID)

	if _, err := db.ClaimTask(domain.TaskTypeDownload); err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}
	if _, err := db.UpdateTaskProgress("task-1", 70); err != nil {
		t.Fatalf("UpdateTaskProgress failed: %v", err)
	}

	n, err := db.ResetStuckTasks(domain.TaskTypeDownload)
	if err != nil {
		t.Fatalf("ResetStuckTasks failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 reset, got %d", n)
	}

	task, _ := db.GetTask("task-1")
	if task.Status != domain.TaskStatusPending || task.Progress != 0 {
		t.Errorf("Expected pending with progress 0, got %s %.1f", task.Status, task.Progress)
	}
}

func TestCountTasksByStatus(t *testing.T) {
	db := newTestDB(t)
	showA := createTestShow(t, db, "pid-a")
	showB := createTestShow(t, db, "pid-b")
	createTestTask(t, db, "task-a", domain.TaskTypeDownload, showA.ID)
	createTestTask(t, db, "task-b", domain.TaskTypeDownload, showB.ID)
	if _, err := db.ClaimTask(domain.TaskTypeDownload); err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}

	counts, err := db.CountTasksByStatus()
	if err != nil {
		t.Fatalf("CountTasksByStatus failed: %v", err)
	}
	if counts[domain.TaskStatusPending] != 1 || counts[domain.TaskStatusInProgress] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}
