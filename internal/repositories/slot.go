package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SlotRepository stores opaque string values by key in the kv_slots table.
type SlotRepository struct {
	db *sql.DB
}

// NewSlotRepository creates a new [SlotRepository] with the given database connection
func NewSlotRepository(db *sql.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// Get returns the value stored under key. found is false when the key has never been written.
func (r *SlotRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM kv_slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query slot %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes value under key, replacing any previous value.
func (r *SlotRepository) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("slot key cannot be empty")
	}

	query := `
		INSERT INTO kv_slots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *SlotRepository) Delete(key string) error {
	if _, err := r.db.Exec(`DELETE FROM kv_slots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written.
func (r *SlotRepository) UpdatedAt(key string) (time.Time, bool, error) {
	var updatedAt time.Time
	err := r.db.QueryRow(`SELECT updated_at FROM kv_slots WHERE key = ?`, key).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query slot %s: %w", key, err)
	}
	return updatedAt, true, nil
}
