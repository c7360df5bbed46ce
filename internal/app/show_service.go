package app

import (
	"fmt"

	"radiocat/internal/domain"
	"radiocat/internal/filesystem"
	"radiocat/internal/logger"
	"radiocat/internal/store"
)

// ShowService is the durable catalogue of discovered programmes and their
// processing status.
type ShowService struct {
	Store  *store.DB
	Logger *logger.Logger
}

func NewShowService(db *store.DB, log *logger.Logger) *ShowService {
	return &ShowService{Store: db, Logger: log.WithComponent("shows")}
}

// Upsert records a discovered programme. Re-discovering the same pid
// refreshes its attributes without creating a duplicate or disturbing its
// processing status.
func (s *ShowService) Upsert(show *domain.Show) (*domain.Show, error) {
	if show.PID == "" {
		return nil, &domain.ValidationError{Field: "pid", Message: "cannot be empty"}
	}
	if show.Title == "" {
		show.Title = "Unknown"
	}
	return s.Store.UpsertShow(show)
}

// Get returns a show by row id.
func (s *ShowService) Get(id int64) (*domain.Show, error) {
	return s.Store.GetShow(id)
}

// GetByPID returns a show by programme id.
func (s *ShowService) GetByPID(pid string) (*domain.Show, error) {
	return s.Store.GetShowByPID(pid)
}

// SetStatus mutates a show's status directly; used by the coordinator and
// workers as content moves through the pipeline.
func (s *ShowService) SetStatus(id int64, status domain.ShowStatus) error {
	if !domain.ValidShowStatus(status) {
		return &domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown show status %q", status)}
	}
	return s.Store.UpdateShowStatus(id, status)
}

// List returns one page of shows matching the filter with the total count.
func (s *ShowService) List(f store.ShowFilter) ([]*domain.Show, int, error) {
	if f.Status != "" && !domain.ValidShowStatus(f.Status) {
		return nil, 0, &domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown show status %q", f.Status)}
	}
	return s.Store.ListShows(f)
}

// ListByStatus returns shows in the given status.
func (s *ShowService) ListByStatus(status domain.ShowStatus, limit int) ([]*domain.Show, error) {
	return s.Store.ListShowsByStatus(status, limit)
}

// AttachTranscription records a new transcription for a show. A duplicate
// (show, format) pair fails with ConflictError; use ReplaceTranscription to
// overwrite.
func (s *ShowService) AttachTranscription(showID int64, tr *domain.Transcription) (*domain.Transcription, error) {
	if !domain.ValidTranscriptionFormat(tr.Format) {
		return nil, &domain.ValidationError{Field: "format", Message: fmt.Sprintf("unknown format %q", tr.Format)}
	}
	if _, err := s.Store.GetShow(showID); err != nil {
		return nil, err
	}

	tr.ShowID = showID
	if err := s.Store.CreateTranscription(tr); err != nil {
		return nil, err
	}
	s.Logger.Info("Transcription attached", "show_id", showID, "format", string(tr.Format))
	return tr, nil
}

// ReplaceTranscription overwrites the transcription for a (show, format) pair.
func (s *ShowService) ReplaceTranscription(showID int64, tr *domain.Transcription) error {
	if !domain.ValidTranscriptionFormat(tr.Format) {
		return &domain.ValidationError{Field: "format", Message: fmt.Sprintf("unknown format %q", tr.Format)}
	}
	if _, err := s.Store.GetShow(showID); err != nil {
		return err
	}

	tr.ShowID = showID
	return s.Store.ReplaceTranscription(tr)
}

// ListTranscriptions returns all transcriptions of a show.
func (s *ShowService) ListTranscriptions(showID int64) ([]*domain.Transcription, error) {
	if _, err := s.Store.GetShow(showID); err != nil {
		return nil, err
	}
	return s.Store.ListTranscriptionsForShow(showID)
}

// GetTranscription returns a transcription by id.
func (s *ShowService) GetTranscription(id int64) (*domain.Transcription, error) {
	return s.Store.GetTranscription(id)
}

// MarkReadyForTranscription sweeps downloaded shows whose audio file is
// verified present on disk and moves them to ready_for_transcription. Glob
// download paths are resolved to the concrete file first. Returns the number
// of shows marked.
func (s *ShowService) MarkReadyForTranscription() (int, error) {
	shows, err := s.Store.ListShowsByStatus(domain.ShowStatusDownloaded, 0)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, show := range shows {
		path, ok := filesystem.ResolveFile(show.DownloadPath)
		if !ok {
			s.Logger.Warn("Download file not found for show", "pid", show.PID, "path", show.DownloadPath)
			continue
		}
		if path != show.DownloadPath {
			if err := s.Store.UpdateShowDownloadPath(show.ID, path); err != nil {
				return count, err
			}
		}
		if err := s.Store.UpdateShowStatus(show.ID, domain.ShowStatusReady); err != nil {
			return count, err
		}
		count++
	}

	if count > 0 {
		s.Logger.Info("Marked shows ready for transcription", "count", count)
	}
	return count, nil
}
