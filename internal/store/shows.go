package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"radiocat/internal/domain"
)

const showColumns = `id, pid, title, description, episode, broadcast_date, duration, download_path, status, metadata, created_at, updated_at`

// showSortColumns is the whitelist of sortable columns for ListShows.
var showSortColumns = map[string]bool{
	"id":             true,
	"pid":            true,
	"title":          true,
	"broadcast_date": true,
	"duration":       true,
	"status":         true,
	"created_at":     true,
	"updated_at":     true,
}

// ShowFilter describes the conjunction of conditions for ListShows.
type ShowFilter struct {
	Status domain.ShowStatus
	Query  string // LIKE match on title, description, episode
	From   time.Time
	To     time.Time
	SortBy string
	Desc   bool
	Offset int
	Limit  int
}

// UpsertShow inserts a show keyed by pid, or refreshes its attributes if it
// already exists. Re-discovering a programme never duplicates it and never
// touches its status or download path.
func (db *DB) UpsertShow(show *domain.Show) (*domain.Show, error) {
	now := time.Now()
	show.CreatedAt = now
	show.UpdatedAt = now
	if show.Status == "" {
		show.Status = domain.ShowStatusPending
	}

	query := `INSERT INTO shows (pid, title, description, episode, broadcast_date, duration, download_path, status, metadata, created_at, updated_at)
		VALUES (:pid, :title, :description, :episode, :broadcast_date, :duration, :download_path, :status, :metadata, :created_at, :updated_at)
		ON CONFLICT(pid) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			episode = excluded.episode,
			broadcast_date = excluded.broadcast_date,
			duration = excluded.duration,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`

	if _, err := db.NamedExec(query, show); err != nil {
		return nil, storeErr("upsert show", err)
	}

	return db.GetShowByPID(show.PID)
}

// GetShow returns the show with the given row id.
func (db *DB) GetShow(id int64) (*domain.Show, error) {
	show := &domain.Show{}
	err := db.Get(show, `SELECT `+showColumns+` FROM shows WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "show", Key: fmt.Sprintf("%d", id)}
	}
	if err != nil {
		return nil, storeErr("get show", err)
	}
	return show, nil
}

// GetShowByPID returns the show with the given programme id.
func (db *DB) GetShowByPID(pid string) (*domain.Show, error) {
	show := &domain.Show{}
	err := db.Get(show, `SELECT `+showColumns+` FROM shows WHERE pid = ?`, pid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "show", Key: pid}
	}
	if err != nil {
		return nil, storeErr("get show by pid", err)
	}
	return show, nil
}

// UpdateShowStatus sets a show's status directly.
func (db *DB) UpdateShowStatus(id int64, status domain.ShowStatus) error {
	res, err := db.Exec(`UPDATE shows SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id)
	if err != nil {
		return storeErr("update show status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update show status", err)
	}
	if n == 0 {
		return &domain.NotFoundError{Resource: "show", Key: fmt.Sprintf("%d", id)}
	}
	return nil
}

// UpdateShowDownloadPath replaces a show's download path, used when a glob
// pattern resolves to a concrete file.
func (db *DB) UpdateShowDownloadPath(id int64, path string) error {
	res, err := db.Exec(`UPDATE shows SET download_path = ?, updated_at = ? WHERE id = ?`,
		path, time.Now(), id)
	if err != nil {
		return storeErr("update show download path", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update show download path", err)
	}
	if n == 0 {
		return &domain.NotFoundError{Resource: "show", Key: fmt.Sprintf("%d", id)}
	}
	return nil
}

// ListShows returns one page of shows matching the filter plus the total
// match count.
func (db *DB) ListShows(f ShowFilter) ([]*domain.Show, int, error) {
	var where []string
	var args []any

	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Query != "" {
		where = append(where, "(title LIKE ? OR description LIKE ? OR episode LIKE ?)")
		like := "%" + f.Query + "%"
		args = append(args, like, like, like)
	}
	if !f.From.IsZero() {
		where = append(where, "broadcast_date >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "broadcast_date <= ?")
		args = append(args, f.To)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.Get(&total, `SELECT COUNT(*) FROM shows`+clause, args...); err != nil {
		return nil, 0, storeErr("count shows", err)
	}

	sortBy := f.SortBy
	if !showSortColumns[sortBy] {
		sortBy = "broadcast_date"
	}
	order := "ASC"
	if f.Desc {
		order = "DESC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	query := fmt.Sprintf(`SELECT %s FROM shows%s ORDER BY %s %s LIMIT ? OFFSET ?`,
		showColumns, clause, sortBy, order)
	args = append(args, limit, f.Offset)

	var shows []*domain.Show
	if err := db.Select(&shows, query, args...); err != nil {
		return nil, 0, storeErr("list shows", err)
	}
	return shows, total, nil
}

// ListShowsByStatus returns shows in the given status, oldest broadcast
// first. A limit of 0 returns all.
func (db *DB) ListShowsByStatus(status domain.ShowStatus, limit int) ([]*domain.Show, error) {
	query := `SELECT ` + showColumns + ` FROM shows WHERE status = ? ORDER BY broadcast_date ASC, id ASC`
	args := []any{status}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var shows []*domain.Show
	if err := db.Select(&shows, query, args...); err != nil {
		return nil, storeErr("list shows by status", err)
	}
	return shows, nil
}

// CountShowsByStatus returns the number of shows per status.
func (db *DB) CountShowsByStatus() (map[domain.ShowStatus]int, error) {
	rows, err := db.Queryx(`SELECT status, COUNT(*) AS n FROM shows GROUP BY status`)
	if err != nil {
		return nil, storeErr("count shows", err)
	}
	defer rows.Close()

	counts := make(map[domain.ShowStatus]int)
	for rows.Next() {
		var status domain.ShowStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, storeErr("count shows", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
