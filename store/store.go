// Package store persists render history in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS renders (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	project    TEXT NOT NULL,
	scenes     INTEGER NOT NULL,
	output     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_renders_created ON renders(created_at DESC);
`

// Render is one recorded render attempt.
type Render struct {
	ID        int64     `json:"id"`
	Project   string    `json:"project"`
	Scenes    int       `json:"scenes"`
	Output    string    `json:"output"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record inserts one render attempt. renderErr may be nil.
func (s *Store) Record(project string, scenes int, output, status string, renderErr error) error {
	errText := ""
	if renderErr != nil {
		errText = renderErr.Error()
	}
	_, err := s.db.Exec(
		`INSERT INTO renders (project, scenes, output, status, error, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		project, scenes, output, status, errText, time.Now().UTC(),
	)
	return err
}

// Recent returns the newest render records, capped at limit.
func (s *Store) Recent(limit int) ([]Render, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, project, scenes, output, status, error, created_at FROM renders ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Render{}
	for rows.Next() {
		var r Render
		if err := rows.Scan(&r.ID, &r.Project, &r.Scenes, &r.Output, &r.Status, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
