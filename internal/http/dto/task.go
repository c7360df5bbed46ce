package dto

import (
	"time"

	"radiocat/internal/domain"
)

type TaskResponse struct {
	TaskID    string         `json:"task_id"`
	Type      string         `json:"type"`
	ShowID    *int64         `json:"show_id,omitempty"`
	Status    string         `json:"status"`
	Progress  float64        `json:"progress"`
	Result    map[string]any `json:"result,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		TaskID:    t.TaskID,
		Type:      string(t.Type),
		ShowID:    t.ShowID,
		Status:    string(t.Status),
		Progress:  t.Progress,
		Result:    t.Result,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
		UpdatedAt: t.UpdatedAt.Format(time.RFC3339),
	}
}

func NewTaskListResponse(tasks []*domain.Task) []TaskResponse {
	items := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, NewTaskResponse(t))
	}
	return items
}

// SubmitTaskRequest is the body of a task submission.
type SubmitTaskRequest struct {
	Type    string         `json:"type"`
	Options map[string]any `json:"options,omitempty"`
}

// ProgressRequest is the body of a worker progress report.
type ProgressRequest struct {
	Progress float64 `json:"progress"`
}

// FailRequest is the body of a worker failure report.
type FailRequest struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// CompleteRequest is the body of a worker completion report.
type CompleteRequest struct {
	Result map[string]any `json:"result,omitempty"`
}
