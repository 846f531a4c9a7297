//go:build sqlite_fts5

package ledger

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS archives_fts USING fts5(
			kb_path UNINDEXED,
			title,
			summary,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, kbPath, title, summary string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM archives_fts WHERE kb_path = ?`, kbPath)
	_, err := tx.Exec(`INSERT INTO archives_fts (kb_path, title, summary, tags) VALUES (?, ?, ?, ?)`,
		kbPath, title, summary, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("ledger: upsert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search over archived notes.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT kb_path,
		       title,
		       snippet(archives_fts, 2, '<b>', '</b>', '...', 64)
		FROM archives_fts
		WHERE archives_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.KBPath, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
