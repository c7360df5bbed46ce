package dto

import (
	"time"

	"radiocat/internal/domain"
)

type TranscriptionResponse struct {
	ID        int64  `json:"id"`
	ShowID    int64  `json:"show_id"`
	Path      string `json:"path"`
	Format    string `json:"format"`
	WordCount int    `json:"word_count"`
	Speakers  int    `json:"speakers"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func NewTranscriptionResponse(t *domain.Transcription) TranscriptionResponse {
	return TranscriptionResponse{
		ID:        t.ID,
		ShowID:    t.ShowID,
		Path:      t.Path,
		Format:    string(t.Format),
		WordCount: t.WordCount,
		Speakers:  t.Speakers,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
		UpdatedAt: t.UpdatedAt.Format(time.RFC3339),
	}
}

func NewTranscriptionListResponse(trs []*domain.Transcription) []TranscriptionResponse {
	items := make([]TranscriptionResponse, 0, len(trs))
	for _, t := range trs {
		items = append(items, NewTranscriptionResponse(t))
	}
	return items
}
