package domain

import (
	"time"
)

// ShowStatus tracks a programme through its processing lifecycle.
type ShowStatus string

const (
	ShowStatusPending      ShowStatus = "pending"
	ShowStatusDownloading  ShowStatus = "downloading"
	ShowStatusDownloaded   ShowStatus = "downloaded"
	ShowStatusReady        ShowStatus = "ready_for_transcription"
	ShowStatusTranscribing ShowStatus = "transcribing"
	ShowStatusTranscribed  ShowStatus = "transcribed"
	ShowStatusError        ShowStatus = "error"
)

// ValidShowStatus reports whether s is one of the known show statuses.
func ValidShowStatus(s ShowStatus) bool {
	switch s {
	case ShowStatusPending, ShowStatusDownloading, ShowStatusDownloaded,
		ShowStatusReady, ShowStatusTranscribing, ShowStatusTranscribed, ShowStatusError:
		return true
	}
	return false
}

// Show represents one catalogued broadcast programme instance.
type Show struct {
	ID            int64      `json:"id" db:"id"`
	PID           string     `json:"pid" db:"pid"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	Episode       string     `json:"episode" db:"episode"`
	BroadcastDate time.Time  `json:"broadcast_date" db:"broadcast_date"`
	Duration      int        `json:"duration" db:"duration"`
	DownloadPath  string     `json:"download_path" db:"download_path"`
	Status        ShowStatus `json:"status" db:"status"`
	Metadata      JSONMap    `json:"metadata" db:"metadata"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// TranscriptionFormat is the on-disk rendering format of a transcription.
type TranscriptionFormat string

const (
	FormatTXT  TranscriptionFormat = "txt"
	FormatJSON TranscriptionFormat = "json"
	FormatSRT  TranscriptionFormat = "srt"
)

// ValidTranscriptionFormat reports whether f is a known format tag.
func ValidTranscriptionFormat(f TranscriptionFormat) bool {
	switch f {
	case FormatTXT, FormatJSON, FormatSRT:
		return true
	}
	return false
}

// Transcription is one text rendering of a show's audio. At most one exists
// per (show, format) pair.
type Transcription struct {
	ID        int64               `json:"id" db:"id"`
	ShowID    int64               `json:"show_id" db:"show_id"`
	Path      string              `json:"path" db:"path"`
	Format    TranscriptionFormat `json:"format" db:"format"`
	WordCount int                 `json:"word_count" db:"word_count"`
	Speakers  int                 `json:"speakers" db:"speakers"`
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt time.Time           `json:"updated_at" db:"updated_at"`
}

type TaskType string

const (
	TaskTypeDownload   TaskType = "download"
	TaskTypeTranscribe TaskType = "transcribe"
)

// ValidTaskType reports whether t is a known task type.
func ValidTaskType(t TaskType) bool {
	return t == TaskTypeDownload || t == TaskTypeTranscribe
}

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusError      TaskStatus = "error"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal tasks are immutable.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusError || s == TaskStatusCancelled
}

// Task represents one unit of asynchronous work tracked to completion.
// TaskID is the externally visible identifier, distinct from the row id.
type Task struct {
	ID        int64      `json:"-" db:"id"`
	TaskID    string     `json:"task_id" db:"task_id"`
	Type      TaskType   `json:"type" db:"task_type"`
	ShowID    *int64     `json:"show_id,omitempty" db:"show_id"`
	Status    TaskStatus `json:"status" db:"status"`
	Progress  float64    `json:"progress" db:"progress"`
	Result    JSONMap    `json:"result,omitempty" db:"result"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Setting is a single named configuration value.
type Setting struct {
	Key         string    `json:"key" db:"key"`
	Value       string    `json:"value" db:"value"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
