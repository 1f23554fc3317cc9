package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/gtdspace/internal/apperr"
	"github.com/starford/gtdspace/internal/metadata"
	"github.com/starford/gtdspace/internal/models"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path      string
	Kind      models.Kind
	Title     string
	Status    string
	Checksum  string
	Metadata  metadata.Metadata
	UpdatedAt time.Time
}

// Summary converts the row for list responses.
func (r DocumentRow) Summary() models.Summary {
	return models.Summary{Path: r.Path, Kind: r.Kind, Title: r.Title, Status: r.Status, UpdatedAt: r.UpdatedAt}
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string      `json:"path"`
	Kind    models.Kind `json:"kind"`
	Title   string      `json:"title"`
	Snippet string      `json:"snippet"`
}

// ListFilter narrows ListDocuments. Zero values match everything.
type ListFilter struct {
	Kind   models.Kind
	Status string
	Limit  int
	Offset int
}

// UpsertDocument inserts or replaces a document, its FTS entry and its
// outgoing references within a transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string, refs []models.Reference) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	md := d.Metadata
	if md == nil {
		md = metadata.Metadata{}
	}
	mdJSON, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("index: encode metadata: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO documents (path, kind, title, status, checksum, metadata, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind       = excluded.kind,
			title      = excluded.title,
			status     = excluded.status,
			checksum   = excluded.checksum,
			metadata   = excluded.metadata,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Path, string(d.Kind), d.Title, d.Status, d.Checksum, string(mdJSON), body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when the sqlite_fts5 tag is absent).
	if err := ftsUpsert(tx, d.Path, d.Title, body, metadataText(md)); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM refs WHERE source = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear refs: %w", err)
	}
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO refs (source, target, field) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range refs {
			if _, err := stmt.Exec(d.Path, r.Target, r.Field); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry and outgoing references.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM refs WHERE source = ?`, path); err != nil {
		return fmt.Errorf("index: delete refs: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or "" if it is not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

const rowColumns = `path, kind, title, status, checksum, metadata, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (DocumentRow, error) {
	var (
		r      DocumentRow
		kind   string
		mdJSON string
	)
	if err := s.Scan(&r.Path, &kind, &r.Title, &r.Status, &r.Checksum, &mdJSON, &r.UpdatedAt); err != nil {
		return r, err
	}
	r.Kind = models.Kind(kind)
	if err := json.Unmarshal([]byte(mdJSON), &r.Metadata); err != nil {
		return r, fmt.Errorf("index: decode metadata of %s: %w", r.Path, err)
	}
	return r, nil
}

// GetDocument returns the indexed row for path.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	r, err := scanRow(db.conn.QueryRow(`SELECT `+rowColumns+` FROM documents WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &r, nil
}

// ListDocuments returns rows ordered by path plus the total number of matches.
func (db *DB) ListDocuments(f ListFilter) ([]DocumentRow, int, error) {
	where := []string{"1 = 1"}
	var args []any
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`SELECT `+rowColumns+` FROM documents WHERE `+cond+` ORDER BY path LIMIT ? OFFSET ?`,
		append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// AllPaths returns every indexed document path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path -> checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
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

// ReferencesTo returns the edges whose target is the given path.
func (db *DB) ReferencesTo(target string) ([]models.Reference, error) {
	return db.refs(`SELECT source, target, field FROM refs WHERE target = ? ORDER BY source, field`, target)
}

// ReferencesFrom returns the edges declared by source.
func (db *DB) ReferencesFrom(source string) ([]models.Reference, error) {
	return db.refs(`SELECT source, target, field FROM refs WHERE source = ? ORDER BY field, target`, source)
}

func (db *DB) refs(query, arg string) ([]models.Reference, error) {
	rows, err := db.conn.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("index: references: %w", err)
	}
	defer rows.Close()

	var out []models.Reference
	for rows.Next() {
		var r models.Reference
		if err := rows.Scan(&r.Source, &r.Target, &r.Field); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// metadataText flattens metadata values into searchable text.
func metadataText(md metadata.Metadata) string {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, md[k].Strings()...)
	}
	return strings.Join(parts, " ")
}
