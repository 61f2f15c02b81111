package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/models"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path      string
	Title     string
	Checksum  string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
	// CreatedExplicit marks CreatedAt as authoritative (frontmatter). When
	// false an existing row keeps its first-seen creation time.
	CreatedExplicit bool
}

// UpsertNote inserts or replaces a note row.
func (db *DB) UpsertNote(n NoteRow) error {
	doc := models.NewDocument(n.Path, n.CreatedAt, n.UpdatedAt)
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)
	created := n.CreatedAt
	if created.IsZero() {
		created = n.UpdatedAt
	}

	_, err := db.conn.Exec(`
		INSERT INTO notes (path, name, basename, parent_path, title, checksum, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name        = excluded.name,
			basename    = excluded.basename,
			parent_path = excluded.parent_path,
			title       = excluded.title,
			checksum    = excluded.checksum,
			tags        = excluded.tags,
			created_at  = CASE WHEN ? THEN excluded.created_at ELSE notes.created_at END,
			updated_at  = excluded.updated_at
	`, doc.Path, doc.Name, doc.Basename, doc.ParentPath, n.Title, n.Checksum, string(tagsJSON), created, n.UpdatedAt, n.CreatedExplicit)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}
	return nil
}

// DeleteNote removes a note row.
func (db *DB) DeleteNote(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns the stored checksum of every indexed note keyed by path.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

const documentColumns = `path, name, basename, parent_path, title, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (models.Document, error) {
	var d models.Document
	err := s.Scan(&d.Path, &d.Name, &d.Basename, &d.ParentPath, &d.Title, &d.CTime, &d.MTime)
	return d, err
}

// GetDocument returns the indexed document at path.
func (db *DB) GetDocument(path string) (models.Document, error) {
	d, err := scanDocument(db.conn.QueryRow(`SELECT `+documentColumns+` FROM notes WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("index: get document: %w", err)
	}
	return d, nil
}

// ListAll returns every indexed document ordered by path.
func (db *DB) ListAll() ([]models.Document, error) {
	return db.listDocuments(`SELECT ` + documentColumns + ` FROM notes ORDER BY path`)
}

// ListUnder returns the documents whose parent path is dir or below it.
// An empty dir lists the whole vault.
func (db *DB) ListUnder(dir string) ([]models.Document, error) {
	if dir == "" {
		return db.ListAll()
	}
	return db.listDocuments(`SELECT `+documentColumns+` FROM notes
		WHERE parent_path = ? OR substr(parent_path, 1, length(?)) = ? ORDER BY path`,
		dir, dir+"/", dir+"/")
}

func (db *DB) listDocuments(query string, args ...any) ([]models.Document, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TagsOf returns the document's tags with a leading "#". It reports false
// when the document is not indexed.
func (db *DB) TagsOf(doc models.Document) ([]string, bool) {
	var raw string
	if err := db.conn.QueryRow(`SELECT tags FROM notes WHERE path = ?`, doc.Path).Scan(&raw); err != nil {
		return nil, false
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, false
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = "#" + t
	}
	return out, true
}
