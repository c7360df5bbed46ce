package app

import (
	"context"
	"time"

	"radiocat/internal/config"
	"radiocat/internal/domain"
	"radiocat/internal/downloader"
	"radiocat/internal/logger"
	"radiocat/internal/store"
)

// IntakeService discovers new programmes via get_iplayer and feeds the
// download queue.
type IntakeService struct {
	Downloader *downloader.GetIPlayer
	Shows      *ShowService
	Tasks      *TaskService
	Settings   *store.SettingsRepo
	Channels   []string
	MaxPerRun  int
	Logger     *logger.Logger
}

func NewIntakeService(dl *downloader.GetIPlayer, shows *ShowService, tasks *TaskService, settings *store.SettingsRepo, cfg *config.Config, log *logger.Logger) *IntakeService {
	return &IntakeService{
		Downloader: dl,
		Shows:      shows,
		Tasks:      tasks,
		Settings:   settings,
		Channels:   cfg.Downloader.Channels,
		MaxPerRun:  cfg.Downloader.MaxDownloadsPerRun,
		Logger:     log.WithComponent("intake"),
	}
}

// Refresh updates the get_iplayer cache, upserts every listed programme
// into the catalogue, and records the refresh time. Returns the number of
// programmes seen.
func (s *IntakeService) Refresh(ctx context.Context) (int, error) {
	if err := s.Downloader.RefreshCache(ctx); err != nil {
		return 0, err
	}

	channels := s.Channels
	if len(channels) == 0 {
		channels = []string{""}
	}

	seen := 0
	for _, channel := range channels {
		programmes, err := s.Downloader.List(ctx, ".*", channel)
		if err != nil {
			return seen, err
		}
		for i := range programmes {
			if _, err := s.Shows.Upsert(showFromProgramme(&programmes[i])); err != nil {
				s.Logger.Warn("Failed to record programme", "pid", programmes[i].PID, "error", err)
				continue
			}
			seen++
		}
	}

	if err := s.Settings.Set(store.SettingLastRefresh, time.Now().Format(time.RFC3339)); err != nil {
		s.Logger.Warn("Failed to record refresh time", "error", err)
	}

	s.Logger.Info("Programme refresh finished", "seen", seen, "channels", len(s.Channels))
	return seen, nil
}

// EnqueuePending submits download tasks for pending shows, oldest broadcast
// first, up to the per-run limit. A show that already has an active download
// task is skipped. Returns the number of tasks submitted.
func (s *IntakeService) EnqueuePending() (int, error) {
	shows, err := s.Shows.ListByStatus(domain.ShowStatusPending, s.MaxPerRun)
	if err != nil {
		return 0, err
	}

	submitted := 0
	for _, show := range shows {
		if _, err := s.Tasks.Submit(domain.TaskTypeDownload, show.ID, nil); err != nil {
			if domain.IsConflict(err) {
				continue
			}
			return submitted, err
		}
		submitted++
	}

	if submitted > 0 {
		s.Logger.Info("Queued downloads for pending shows", "count", submitted)
	}
	return submitted, nil
}

// LastRefresh returns the time of the last completed refresh, or zero when
// none has run yet.
func (s *IntakeService) LastRefresh() (time.Time, error) {
	v, err := s.Settings.Get(store.SettingLastRefresh)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

// showFromProgramme maps a listing entry onto the catalogue model.
// Broadcast timestamps that fail to parse are left zero rather than
// discarding the programme.
func showFromProgramme(p *downloader.Programme) *domain.Show {
	show := &domain.Show{
		PID:         p.PID,
		Title:       p.Name,
		Description: p.Desc,
		Episode:     p.Episode,
		Duration:    p.Duration,
		Status:      domain.ShowStatusPending,
		Metadata:    domain.JSONMap{},
	}
	if p.Channel != "" {
		show.Metadata["channel"] = p.Channel
	}
	if len(p.Categories) > 0 {
		show.Metadata["categories"] = p.Categories
	}
	if p.Thumbnail != "" {
		show.Metadata["thumbnail"] = p.Thumbnail
	}
	if p.Web != "" {
		show.Metadata["web"] = p.Web
	}
	if p.FirstBcast != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, p.FirstBcast); err == nil {
				show.BroadcastDate = t
				break
			}
		}
	}
	return show
}
