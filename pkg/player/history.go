package player

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// History persists playback positions so interrupted media can be resumed.
type History struct {
	db *sql.DB
}

// OpenHistory opens or creates the history database.
func OpenHistory(path string) (*History, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// One writer is enough, and it sidesteps lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	h := &History{db: db}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the history database
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS PlaybackHistory (
	title TEXT PRIMARY KEY,
	position REAL NOT NULL,
	duration REAL NOT NULL,
	updated_at INTEGER NOT NULL
);
`
	_, err := h.db.Exec(schema)
	return err
}

// RecordPosition stores the latest playback position for a title.
func (h *History) RecordPosition(title string, position, duration float64) error {
	_, err := h.db.Exec(`
		INSERT OR REPLACE INTO PlaybackHistory (title, position, duration, updated_at)
		VALUES (?, ?, ?, ?)
	`, title, position, duration, time.Now().Unix())
	return err
}

// ResumePosition returns the stored position for a title. Positions in the
// first thirty seconds or the last thirty seconds are not worth resuming
// from, so those report ok=false.
func (h *History) ResumePosition(title string) (position float64, ok bool, err error) {
	var duration float64
	err = h.db.QueryRow(`
		SELECT position, duration FROM PlaybackHistory WHERE title = ?
	`, title).Scan(&position, &duration)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	if position < 30 {
		return 0, false, nil
	}
	if duration > 0 && position > duration-30 {
		return 0, false, nil
	}
	return position, true, nil
}

// Forget removes a title from the history.
func (h *History) Forget(title string) error {
	_, err := h.db.Exec("DELETE FROM PlaybackHistory WHERE title = ?", title)
	return err
}
