package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"radiocat/internal/domain"
)

const transcriptionColumns = `id, show_id, path, format, word_count, speakers, created_at, updated_at`

// CreateTranscription inserts a transcription row. At most one transcription
// may exist per (show, format); a duplicate returns ConflictError. Overwrite
// is the distinct ReplaceTranscription operation.
func (db *DB) CreateTranscription(tr *domain.Transcription) error {
	now := time.Now()
	tr.CreatedAt = now
	tr.UpdatedAt = now

	query := `INSERT INTO transcriptions (show_id, path, format, word_count, speakers, created_at, updated_at)
		VALUES (:show_id, :path, :format, :word_count, :speakers, :created_at, :updated_at)`

	res, err := db.NamedExec(query, tr)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{
				Message: fmt.Sprintf("a %s transcription already exists for show %d", tr.Format, tr.ShowID),
			}
		}
		return storeErr("create transcription", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		tr.ID = id
	}
	return nil
}

// ReplaceTranscription inserts or overwrites the transcription for the
// (show, format) pair.
func (db *DB) ReplaceTranscription(tr *domain.Transcription) error {
	now := time.Now()
	tr.CreatedAt = now
	tr.UpdatedAt = now

	query := `INSERT INTO transcriptions (show_id, path, format, word_count, speakers, created_at, updated_at)
		VALUES (:show_id, :path, :format, :word_count, :speakers, :created_at, :updated_at)
		ON CONFLICT(show_id, format) DO UPDATE SET
			path = excluded.path,
			word_count = excluded.word_count,
			speakers = excluded.speakers,
			updated_at = excluded.updated_at`

	if _, err := db.NamedExec(query, tr); err != nil {
		return storeErr("replace transcription", err)
	}
	return nil
}

// GetTranscription returns the transcription with the given id.
func (db *DB) GetTranscription(id int64) (*domain.Transcription, error) {
	tr := &domain.Transcription{}
	err := db.Get(tr, `SELECT `+transcriptionColumns+` FROM transcriptions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "transcription", Key: fmt.Sprintf("%d", id)}
	}
	if err != nil {
		return nil, storeErr("get transcription", err)
	}
	return tr, nil
}

// ListTranscriptionsForShow returns all transcriptions of a show.
func (db *DB) ListTranscriptionsForShow(showID int64) ([]*domain.Transcription, error) {
	var trs []*domain.Transcription
	err := db.Select(&trs, `SELECT `+transcriptionColumns+` FROM transcriptions WHERE show_id = ? ORDER BY format ASC`, showID)
	if err != nil {
		return nil, storeErr("list transcriptions", err)
	}
	return trs, nil
}
