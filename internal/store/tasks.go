package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"radiocat/internal/domain"
)

const taskColumns = `id, task_id, task_type, show_id, status, progress, result, created_at, updated_at`

// CreateTask inserts a new pending task. The partial unique index on
// (show_id, task_type) makes the duplicate-active check and the insert a
// single atomic operation: when another non-terminal task of the same type
// already references the show, the insert fails and a ConflictError is
// returned.
func (db *DB) CreateTask(task *domain.Task) error {
	query := `INSERT INTO tasks (task_id, task_type, show_id, status, progress, result, created_at, updated_at)
		VALUES (:task_id, :task_type, :show_id, :status, :progress, :result, :created_at, :updated_at)`

	res, err := db.NamedExec(query, task)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Message: "an active task of this type already exists for this show"}
		}
		return storeErr("create task", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		task.ID = id
	}
	return nil
}

// GetTask returns the task with the given external id.
func (db *DB) GetTask(taskID string) (*domain.Task, error) {
	task := &domain.Task{}
	err := db.Get(task, `SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "task", Key: taskID}
	}
	if err != nil {
		return nil, storeErr("get task", err)
	}
	return task, nil
}

// ClaimTask atomically takes ownership of the oldest pending task of the
// given type and moves it to in_progress. Returns (nil, nil) when no pending
// task exists. The single conditional UPDATE guarantees that concurrent
// claimers never receive the same task.
func (db *DB) ClaimTask(taskType domain.TaskType) (*domain.Task, error) {
	query := `UPDATE tasks SET status = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM tasks
			WHERE task_type = ? AND status = ?
			ORDER BY created_at ASC, id ASC
			LIMIT 1
		)
		RETURNING ` + taskColumns

	task := &domain.Task{}
	err := db.QueryRowx(query, domain.TaskStatusInProgress, time.Now(), taskType, domain.TaskStatusPending).StructScan(task)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("claim task", err)
	}
	return task, nil
}

// UpdateTaskProgress records a progress report for an in_progress task.
// Progress is monotonic: reports that do not increase it are dropped and
// reported as updated=false with a nil error. Reports against missing tasks
// return NotFoundError; reports against terminal or unclaimed tasks return
// InvalidTransitionError.
func (db *DB) UpdateTaskProgress(taskID string, percent float64) (bool, error) {
	res, err := db.Exec(`UPDATE tasks SET progress = ?, updated_at = ?
		WHERE task_id = ? AND status = ? AND progress < ?`,
		percent, time.Now(), taskID, domain.TaskStatusInProgress, percent)
	if err != nil {
		return false, storeErr("update task progress", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("update task progress", err)
	}
	if n > 0 {
		return true, nil
	}

	task, err := db.GetTask(taskID)
	if err != nil {
		return false, err
	}
	if task.Status != domain.TaskStatusInProgress {
		return false, &domain.InvalidTransitionError{TaskID: taskID, Status: task.Status, Op: "report progress on"}
	}
	// In progress but the percent did not increase: out-of-order report.
	return false, nil
}

// CompleteTask transitions an in_progress task to completed and stores the
// result payload. When the task references a show, showStatus and
// downloadPath (download tasks) are applied to the show in the same
// transaction, and transcription rows (transcribe tasks) are recorded.
func (db *DB) CompleteTask(task *domain.Task, result domain.JSONMap, showStatus domain.ShowStatus, downloadPath string, trs []*domain.Transcription) error {
	tx, err := db.Beginx()
	if err != nil {
		return storeErr("complete task", err)
	}
	defer tx.Rollback()

	if err := terminateTask(tx, db, task.TaskID, domain.TaskStatusCompleted, result, "complete"); err != nil {
		return err
	}

	if task.ShowID != nil {
		now := time.Now()
		if downloadPath != "" {
			_, err = tx.Exec(`UPDATE shows SET status = ?, download_path = ?, updated_at = ? WHERE id = ?`,
				showStatus, downloadPath, now, *task.ShowID)
		} else {
			_, err = tx.Exec(`UPDATE shows SET status = ?, updated_at = ? WHERE id = ?`,
				showStatus, now, *task.ShowID)
		}
		if err != nil {
			return storeErr("complete task: update show", err)
		}

		for _, tr := range trs {
			tr.ShowID = *task.ShowID
			tr.CreatedAt = now
			tr.UpdatedAt = now
			if _, err := tx.NamedExec(`INSERT INTO transcriptions (show_id, path, format, word_count, speakers, created_at, updated_at)
				VALUES (:show_id, :path, :format, :word_count, :speakers, :created_at, :updated_at)
				ON CONFLICT(show_id, format) DO UPDATE SET
					path = excluded.path, word_count = excluded.word_count,
					speakers = excluded.speakers, updated_at = excluded.updated_at`, tr); err != nil {
				return storeErr("complete task: record transcription", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("complete task", err)
	}
	return nil
}

// FailTask transitions an in_progress task to error and stores the error
// payload. The associated show, if any, is marked error in the same
// transaction.
func (db *DB) FailTask(task *domain.Task, payload domain.JSONMap) error {
	tx, err := db.Beginx()
	if err != nil {
		return storeErr("fail task", err)
	}
	defer tx.Rollback()

	if err := terminateTask(tx, db, task.TaskID, domain.TaskStatusError, payload, "fail"); err != nil {
		return err
	}

	if task.ShowID != nil {
		if _, err := tx.Exec(`UPDATE shows SET status = ?, updated_at = ? WHERE id = ?`,
			domain.ShowStatusError, time.Now(), *task.ShowID); err != nil {
			return storeErr("fail task: update show", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("fail task", err)
	}
	return nil
}

// CancelTask transitions a pending or in_progress task to cancelled. An
// in_progress worker observes the cancellation on its next progress report.
func (db *DB) CancelTask(taskID string) error {
	res, err := db.Exec(`UPDATE tasks SET status = ?, updated_at = ?
		WHERE task_id = ? AND status IN (?, ?)`,
		domain.TaskStatusCancelled, time.Now(), taskID,
		domain.TaskStatusPending, domain.TaskStatusInProgress)
	if err != nil {
		return storeErr("cancel task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("cancel task", err)
	}
	if n == 0 {
		return db.transitionFailure(taskID, "cancel")
	}
	return nil
}

// ListQueue returns non-terminal tasks ordered FIFO, optionally filtered by type.
func (db *DB) ListQueue(taskType domain.TaskType) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status IN (?, ?)`
	args := []any{domain.TaskStatusPending, domain.TaskStatusInProgress}
	if taskType != "" {
		query += ` AND task_type = ?`
		args = append(args, taskType)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	var tasks []*domain.Task
	if err := db.Select(&tasks, query, args...); err != nil {
		return nil, storeErr("list queue", err)
	}
	return tasks, nil
}

// ClearQueue cancels all non-terminal tasks, optionally filtered by type,
// and returns the number cancelled.
func (db *DB) ClearQueue(taskType domain.TaskType) (int64, error) {
	query := `UPDATE tasks SET status = ?, updated_at = ? WHERE status IN (?, ?)`
	args := []any{domain.TaskStatusCancelled, time.Now(), domain.TaskStatusPending, domain.TaskStatusInProgress}
	if taskType != "" {
		query += ` AND task_type = ?`
		args = append(args, taskType)
	}

	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, storeErr("clear queue", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("clear queue", err)
	}
	return n, nil
}

// ListFinishedTasks returns terminal tasks, most recently updated first.
func (db *DB) ListFinishedTasks(limit int) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status IN (?, ?, ?) ORDER BY updated_at DESC LIMIT ?`

	var tasks []*domain.Task
	err := db.Select(&tasks, query, domain.TaskStatusCompleted, domain.TaskStatusError, domain.TaskStatusCancelled, limit)
	if err != nil {
		return nil, storeErr("list finished tasks", err)
	}
	return tasks, nil
}

// ResetStuckTasks returns in_progress tasks of the given type to pending.
// Run at worker start to recover tasks orphaned by an unclean shutdown of
// this worker's own process.
func (db *DB) ResetStuckTasks(taskType domain.TaskType) (int64, error) {
	res, err := db.Exec(`UPDATE tasks SET status = ?, progress = 0, updated_at = ?
		WHERE task_type = ? AND status = ?`,
		domain.TaskStatusPending, time.Now(), taskType, domain.TaskStatusInProgress)
	if err != nil {
		return 0, storeErr("reset stuck tasks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("reset stuck tasks", err)
	}
	return n, nil
}

// CountTasksByStatus returns the number of tasks per status.
func (db *DB) CountTasksByStatus() (map[domain.TaskStatus]int, error) {
	rows, err := db.Queryx(`SELECT status, COUNT(*) AS n FROM tasks GROUP BY status`)
	if err != nil {
		return nil, storeErr("count tasks", err)
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var status domain.TaskStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, storeErr("count tasks", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// terminateTask performs the conditional in_progress -> terminal update
// inside tx, translating a zero-row result into the proper domain error.
func terminateTask(tx *sqlx.Tx, db *DB, taskID string, to domain.TaskStatus, payload domain.JSONMap, op string) error {
	progress := `progress`
	if to == domain.TaskStatusCompleted {
		progress = `100`
	}
	res, err := tx.Exec(`UPDATE tasks SET status = ?, progress = `+progress+`, result = ?, updated_at = ?
		WHERE task_id = ? AND status = ?`,
		to, payload, time.Now(), taskID, domain.TaskStatusInProgress)
	if err != nil {
		return storeErr(op+" task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(op+" task", err)
	}
	if n == 0 {
		return db.transitionFailure(taskID, op)
	}
	return nil
}

// transitionFailure explains why a conditional transition affected no rows.
func (db *DB) transitionFailure(taskID, op string) error {
	task, err := db.GetTask(taskID)
	if err != nil {
		return err
	}
	return &domain.InvalidTransitionError{TaskID: taskID, Status: task.Status, Op: op}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
