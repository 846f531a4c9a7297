// Package ledger keeps a SQLite record of every archived note.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS archives (
	id             TEXT PRIMARY KEY,
	filename       TEXT NOT NULL,
	kb_path        TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL DEFAULT '',
	date           TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	tags           TEXT NOT NULL DEFAULT '[]',
	checksum       TEXT NOT NULL DEFAULT '',
	linked_files   TEXT NOT NULL DEFAULT '[]',
	links_copied   INTEGER NOT NULL DEFAULT 0,
	archived_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_archives_date ON archives(date);
CREATE INDEX IF NOT EXISTS idx_archives_archived_at ON archives(archived_at);
`

// Record is one archived-note entry.
type Record struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	KBPath      string    `json:"kb_path"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Summary     string    `json:"summary,omitempty"`
	Tags        []string  `json:"tags"`
	Checksum    string    `json:"checksum"`
	LinkedFiles []string  `json:"linked_files"`
	LinksCopied int       `json:"links_copied"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// SearchResult is one archive search hit.
type SearchResult struct {
	KBPath  string `json:"kb_path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ArchiveLedger defines the ledger operations services depend on.
type ArchiveLedger interface {
	Record(r Record) (string, error)
	Recent(limit int) ([]Record, error)
	Search(query string, limit int) ([]SearchResult, error)
	Count() (int, error)
	Close() error
}

var _ ArchiveLedger = (*DB)(nil)

// DB wraps a sql.DB with ledger-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite ledger and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: init fts: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record inserts an archive entry and returns its id. Re-archiving the
// same KB path replaces the previous entry.
func (db *DB) Record(r Record) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.ArchivedAt.IsZero() {
		r.ArchivedAt = time.Now().UTC()
	}
	linkedJSON, _ := json.Marshal(r.LinkedFiles)
	tagsJSON, _ := json.Marshal(r.Tags)

	tx, err := db.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO archives (id, filename, kb_path, title, date, summary, tags, checksum, linked_files, links_copied, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kb_path) DO UPDATE SET
			id           = excluded.id,
			filename     = excluded.filename,
			title        = excluded.title,
			date         = excluded.date,
			summary      = excluded.summary,
			tags         = excluded.tags,
			checksum     = excluded.checksum,
			linked_files = excluded.linked_files,
			links_copied = excluded.links_copied,
			archived_at  = excluded.archived_at
	`, r.ID, r.Filename, r.KBPath, r.Title, r.Date, r.Summary, string(tagsJSON), r.Checksum,
		string(linkedJSON), r.LinksCopied, r.ArchivedAt)
	if err != nil {
		return "", fmt.Errorf("ledger: record archive: %w", err)
	}

	// FTS upsert (no-op when the sqlite_fts5 tag is absent).
	if err := ftsUpsert(tx, r.KBPath, r.Title, r.Summary, r.Tags); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("ledger: commit: %w", err)
	}
	return r.ID, nil
}

// Recent returns the most recently archived entries, newest first.
func (db *DB) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, filename, kb_path, title, date, summary, tags, checksum, linked_files, links_copied, archived_at
		FROM archives
		ORDER BY archived_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: recent: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		var tagsJSON, linkedJSON string
		if err := rows.Scan(&r.ID, &r.Filename, &r.KBPath, &r.Title, &r.Date, &r.Summary,
			&tagsJSON, &r.Checksum, &linkedJSON, &r.LinksCopied, &r.ArchivedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil || r.Tags == nil {
			r.Tags = []string{}
		}
		if err := json.Unmarshal([]byte(linkedJSON), &r.LinkedFiles); err != nil || r.LinkedFiles == nil {
			r.LinkedFiles = []string{}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the total number of archive entries.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM archives`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger: count: %w", err)
	}
	return n, nil
}
