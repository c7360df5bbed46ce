package store

import (
	"database/sql"
	"errors"
	"time"

	"radiocat/internal/domain"
)

type SettingsRepo struct {
	db *DB
}

func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Get(key string) (string, error) {
	var value string
	err := r.db.Get(&value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storeErr("get setting", err)
	}
	return value, nil
}

func (r *SettingsRepo) Set(key, value string) error {
	now := time.Now()
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now, now)
	if err != nil {
		return storeErr("set setting", err)
	}
	return nil
}

func (r *SettingsRepo) Delete(key string) error {
	_, err := r.db.Exec("DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return storeErr("delete setting", err)
	}
	return nil
}

func (r *SettingsRepo) List() ([]*domain.Setting, error) {
	var settings []*domain.Setting
	err := r.db.Select(&settings, "SELECT key, value, description, created_at, updated_at FROM settings ORDER BY key ASC")
	if err != nil {
		return nil, storeErr("list settings", err)
	}
	return settings, nil
}

// Known setting keys.
const (
	SettingLastRefresh = "last_refresh"
)
