package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/gittodo/internal/models"
)

const checksumKey = "document_checksum"

// SearchResult represents one search hit.
type SearchResult struct {
	Line    int    `json:"line"`
	Section string `json:"section"`
	Text    string `json:"text"`
	Snippet string `json:"snippet"`
}

// Replace swaps the whole entry table for entries and records the document
// checksum they were parsed from, in one transaction.
func (db *DB) Replace(sum string, entries []models.Entry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM todos`); err != nil {
		return fmt.Errorf("index: clear todos: %w", err)
	}
	if err := ftsClear(tx); err != nil {
		return err
	}

	if len(entries) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO todos (line, section, text, remind_at) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range entries {
			var remindAt any
			if e.RemindAt != nil {
				remindAt = e.RemindAt.UTC()
			}
			if _, err := stmt.Exec(e.Position, e.Section, e.Text, remindAt); err != nil {
				return fmt.Errorf("index: insert todo %d: %w", e.Position, err)
			}
			if err := ftsInsert(tx, e); err != nil {
				return err
			}
		}
	}

	_, err = tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, checksumKey, sum)
	if err != nil {
		return fmt.Errorf("index: store checksum: %w", err)
	}

	return tx.Commit()
}

// Checksum returns the checksum of the last indexed document, or empty string
// if nothing has been indexed yet.
func (db *DB) Checksum() (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, checksumKey).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// Count returns the number of indexed entries.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM todos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// Upcoming returns entries with a reminder after now, soonest first.
func (db *DB) Upcoming(now time.Time, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT line, section, text, remind_at
		FROM todos
		WHERE remind_at IS NOT NULL AND remind_at > ?
		ORDER BY remind_at
		LIMIT ?
	`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("index: upcoming: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		var e models.Entry
		var at time.Time
		if err := rows.Scan(&e.Position, &e.Section, &e.Text, &at); err != nil {
			return nil, err
		}
		at = at.Local()
		e.RemindAt = &at
		out = append(out, e)
	}
	return out, rows.Err()
}
