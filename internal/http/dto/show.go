package dto

import (
	"time"

	"radiocat/internal/domain"
)

type ShowResponse struct {
	ID            int64          `json:"id"`
	PID           string         `json:"pid"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Episode       string         `json:"episode,omitempty"`
	BroadcastDate string         `json:"broadcast_date,omitempty"`
	Duration      int            `json:"duration"`
	DownloadPath  string         `json:"download_path,omitempty"`
	Status        string         `json:"status"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

func NewShowResponse(s *domain.Show) ShowResponse {
	resp := ShowResponse{
		ID:           s.ID,
		PID:          s.PID,
		Title:        s.Title,
		Description:  s.Description,
		Episode:      s.Episode,
		Duration:     s.Duration,
		DownloadPath: s.DownloadPath,
		Status:       string(s.Status),
		Metadata:     s.Metadata,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
	}
	if !s.BroadcastDate.IsZero() {
		resp.BroadcastDate = s.BroadcastDate.Format(time.RFC3339)
	}
	return resp
}

func NewShowListResponse(shows []*domain.Show, p Pagination) PageResponse[ShowResponse] {
	items := make([]ShowResponse, 0, len(shows))
	for _, s := range shows {
		items = append(items, NewShowResponse(s))
	}
	return PageResponse[ShowResponse]{Items: items, Pagination: p}
}
