package httpapp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"radiocat/internal/domain"
	"radiocat/internal/http/dto"
	"radiocat/internal/store"
)

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/shows", h.ListShows)
		r.Get("/shows/pid/{pid}", h.GetShowByPID)
		r.Get("/shows/{id}", h.GetShow)
		r.Get("/shows/{id}/transcriptions", h.ListShowTranscriptions)
		r.Put("/shows/{id}/transcriptions", h.ReplaceTranscription)
		r.Post("/shows/{id}/tasks", h.SubmitTask)

		r.Get("/transcriptions/{id}", h.GetTranscription)

		r.Post("/tasks/claim", h.ClaimTask)
		r.Get("/tasks/{taskID}", h.GetTask)
		r.Post("/tasks/{taskID}/progress", h.ReportProgress)
		r.Post("/tasks/{taskID}/complete", h.CompleteTask)
		r.Post("/tasks/{taskID}/fail", h.FailTask)
		r.Post("/tasks/{taskID}/cancel", h.CancelTask)

		r.Get("/system/queue", h.ListQueue)
		r.Delete("/system/queue", h.ClearQueue)
		r.Get("/system/history", h.ListHistory)
		r.Get("/system/status", h.SystemStatus)
		r.Post("/system/refresh", h.TriggerRefresh)

		r.Get("/settings", h.ListSettings)
		r.Put("/settings/{key}", h.SetSetting)
		r.Delete("/settings/{key}", h.DeleteSetting)
	})
}

// ListShows returns one page of the catalogue. Supported query parameters:
// status, q, from, to (RFC 3339 dates), sort, order, page, page_size.
func (h *Handler) ListShows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := dto.ParseListParams(r)

	filter := store.ShowFilter{
		Status: domain.ShowStatus(q.Get("status")),
		Query:  q.Get("q"),
		SortBy: q.Get("sort"),
		Desc:   q.Get("order") == "desc",
		Offset: params.Offset(),
		Limit:  params.PageSize,
	}
	if v := q.Get("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			h.writeError(w, &domain.ValidationError{Field: "from", Message: "must be an RFC 3339 date"})
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			h.writeError(w, &domain.ValidationError{Field: "to", Message: "must be an RFC 3339 date"})
			return
		}
		filter.To = t
	}

	shows, total, err := h.Shows.List(filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	p := dto.NewPagination(params.Page, params.PageSize, total)
	// A page past the end clamps to the last one; refetch with the
	// corrected offset so the reported page and the items agree.
	if p.Page != params.Page {
		filter.Offset = (p.Page - 1) * params.PageSize
		if shows, _, err = h.Shows.List(filter); err != nil {
			h.writeError(w, err)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, dto.NewShowListResponse(shows, p))
}

func (h *Handler) GetShow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, &domain.ValidationError{Field: "id", Message: "must be an integer"})
		return
	}

	show, err := h.Shows.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewShowResponse(show))
}

func (h *Handler) GetShowByPID(w http.ResponseWriter, r *http.Request) {
	show, err := h.Shows.GetByPID(chi.URLParam(r, "pid"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewShowResponse(show))
}

func (h *Handler) ListShowTranscriptions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, &domain.ValidationError{Field: "id", Message: "must be an integer"})
		return
	}

	trs, err := h.Shows.ListTranscriptions(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewTranscriptionListResponse(trs))
}

// ReplaceTranscription overwrites the transcription for a (show, format)
// pair, for re-runs with a better model.
func (h *Handler) ReplaceTranscription(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, &domain.ValidationError{Field: "id", Message: "must be an integer"})
		return
	}

	var req struct {
		Path      string `json:"path"`
		Format    string `json:"format"`
		WordCount int    `json:"word_count"`
		Speakers  int    `json:"speakers"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		h.writeError(w, &domain.ValidationError{Field: "path", Message: "cannot be empty"})
		return
	}

	tr := &domain.Transcription{
		Path:      req.Path,
		Format:    domain.TranscriptionFormat(req.Format),
		WordCount: req.WordCount,
		Speakers:  req.Speakers,
	}
	if err := h.Shows.ReplaceTranscription(id, tr); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetTranscription(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, &domain.ValidationError{Field: "id", Message: "must be an integer"})
		return
	}

	tr, err := h.Shows.GetTranscription(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewTranscriptionResponse(tr))
}

// SubmitTask queues a new task for a show. A duplicate active task for the
// same show and type comes back as a conflict.
func (h *Handler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, &domain.ValidationError{Field: "id", Message: "must be an integer"})
		return
	}

	var req dto.SubmitTaskRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	task, err := h.Tasks.Submit(domain.TaskType(req.Type), id, req.Options)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, dto.NewTaskResponse(task))
}

// ClaimTask hands the oldest pending task of the requested type to the
// caller. 204 means the queue is empty.
func (h *Handler) ClaimTask(w http.ResponseWriter, r *http.Request) {
	taskType := r.URL.Query().Get("type")

	task, err := h.Tasks.Claim(domain.TaskType(taskType))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if task == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Tasks.Get(chi.URLParam(r, "taskID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

func (h *Handler) ReportProgress(w http.ResponseWriter, r *http.Request) {
	var req dto.ProgressRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.Tasks.ReportProgress(chi.URLParam(r, "taskID"), req.Progress); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	var req dto.CompleteRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.Tasks.Complete(chi.URLParam(r, "taskID"), req.Result); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) FailTask(w http.ResponseWriter, r *http.Request) {
	var req dto.FailRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Error == "" {
		h.writeError(w, &domain.ValidationError{Field: "error", Message: "cannot be empty"})
		return
	}

	if err := h.Tasks.Fail(chi.URLParam(r, "taskID"), req.Error, req.Details); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CancelTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Cancel(chi.URLParam(r, "taskID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.ListQueue(domain.TaskType(r.URL.Query().Get("type")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewTaskListResponse(tasks))
}

func (h *Handler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	n, err := h.Tasks.ClearQueue(domain.TaskType(r.URL.Query().Get("type")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"cancelled": n})
}

// ListHistory returns terminal tasks, most recently finished first.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, &domain.ValidationError{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	tasks, err := h.Tasks.ListFinished(limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewTaskListResponse(tasks))
}

// SystemStatus reports show and task counts plus the last refresh time.
func (h *Handler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	showCounts, err := h.Shows.Store.CountShowsByStatus()
	if err != nil {
		h.writeError(w, err)
		return
	}
	taskCounts, err := h.Tasks.Store.CountTasksByStatus()
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := map[string]any{
		"shows": showCounts,
		"tasks": taskCounts,
	}
	if h.Intake != nil {
		if t, err := h.Intake.LastRefresh(); err == nil && !t.IsZero() {
			status["last_refresh"] = t.Format(time.RFC3339)
		}
	}
	h.writeJSON(w, http.StatusOK, status)
}

// TriggerRefresh runs programme discovery and queues downloads for any
// newly pending shows.
func (h *Handler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if h.Intake == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "discovery is not available"})
		return
	}

	seen, err := h.Intake.Refresh(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	queued, err := h.Intake.EnqueuePending()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"seen": seen, "queued": queued})
}

func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.List()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) SetSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.Settings.Set(chi.URLParam(r, "key"), req.Value); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := h.Settings.Delete(chi.URLParam(r, "key")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseDate accepts a full RFC 3339 timestamp or a bare date.
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
