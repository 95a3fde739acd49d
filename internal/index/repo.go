package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/haldvik/othala/internal/apperr"
	"github.com/haldvik/othala/internal/audit"
	"github.com/haldvik/othala/internal/models"
)

// NoteRow is a lightweight projection of an indexed note.
type NoteRow struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Title string `json:"title"`
	Role  string `json:"role,omitempty"`
}

// SaveResult replaces the persisted state with one audit run: all notes,
// resolved edges, findings, and the serialized report, in one transaction.
// The corpus is small enough that full replacement beats diffing and
// keeps the stored state trivially consistent with the report.
func (db *DB) SaveResult(res *audit.Result) error {
	reportJSON, err := json.Marshal(res.Report)
	if err != nil {
		return fmt.Errorf("index: marshal report: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"notes", "edges", "findings"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("index: clear %s: %w", table, err)
		}
	}
	ftsClear(tx)

	noteStmt, err := tx.Prepare(`
		INSERT INTO notes (id, path, section, title, role, checksum, body, frontmatter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare note insert: %w", err)
	}
	defer noteStmt.Close()
	for _, n := range res.Notes {
		fm := ""
		if len(n.Frontmatter) > 0 {
			raw, fmErr := json.Marshal(n.Frontmatter)
			if fmErr != nil {
				return fmt.Errorf("index: marshal frontmatter for %s: %w", n.ID, fmErr)
			}
			fm = string(raw)
		}
		if _, err := noteStmt.Exec(n.ID, n.Path, n.Section, n.Title, n.Role(), n.Checksum, n.Body, fm); err != nil {
			return fmt.Errorf("index: insert note: %w", err)
		}
		if err := ftsUpsert(tx, n.ID, n.Title, n.Body); err != nil {
			return err
		}
	}

	edgeStmt, err := tx.Prepare(`INSERT OR IGNORE INTO edges (source, target, kind) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()
	for _, e := range res.Graph.Edges() {
		if _, err := edgeStmt.Exec(e.Source, e.Target, string(e.Kind)); err != nil {
			return fmt.Errorf("index: insert edge: %w", err)
		}
	}

	findingStmt, err := tx.Prepare(`INSERT INTO findings (kind, note_id, target, message) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare finding insert: %w", err)
	}
	defer findingStmt.Close()
	for _, f := range res.Report.Findings {
		if _, err := findingStmt.Exec(string(f.Kind), f.NoteID, f.Target, f.Message); err != nil {
			return fmt.Errorf("index: insert finding: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO reports (id, json, generated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET json = excluded.json, generated_at = excluded.generated_at
	`, string(reportJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert report: %w", err)
	}

	return tx.Commit()
}

// LatestReport returns the most recently persisted report, or
// apperr.ErrNoReport when no run has been saved yet.
func (db *DB) LatestReport() (*audit.Report, error) {
	var raw string
	err := db.conn.QueryRow(`SELECT json FROM reports WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("index: load report: %w", err)
	}
	var r audit.Report
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("index: decode report: %w", err)
	}
	return &r, nil
}

// ListNotes returns all indexed notes sorted by id.
func (db *DB) ListNotes() ([]NoteRow, error) {
	rows, err := db.conn.Query(`SELECT id, path, title, role FROM notes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var r NoteRow
		if err := rows.Scan(&r.ID, &r.Path, &r.Title, &r.Role); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetNote returns one indexed note with its body and frontmatter, or
// apperr.ErrNotFound.
func (db *DB) GetNote(id string) (*models.Note, error) {
	var n models.Note
	var fm string
	err := db.conn.QueryRow(`
		SELECT id, path, section, title, checksum, body, frontmatter FROM notes WHERE id = ?
	`, id).Scan(&n.ID, &n.Path, &n.Section, &n.Title, &n.Checksum, &n.Body, &fm)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	if fm != "" {
		if err := json.Unmarshal([]byte(fm), &n.Frontmatter); err != nil {
			return nil, fmt.Errorf("index: decode frontmatter: %w", err)
		}
	}
	return &n, nil
}

// Edges returns all persisted edges sorted by (source, target, kind).
func (db *DB) Edges() ([]models.Edge, error) {
	rows, err := db.conn.Query(`SELECT source, target, kind FROM edges ORDER BY source, target, kind`)
	if err != nil {
		return nil, fmt.Errorf("index: edges: %w", err)
	}
	defer rows.Close()

	var out []models.Edge
	for rows.Next() {
		var e models.Edge
		var kind string
		if err := rows.Scan(&e.Source, &e.Target, &kind); err != nil {
			return nil, err
		}
		e.Kind = models.LinkKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Backlinks returns the sorted ids of notes with an edge into id.
func (db *DB) Backlinks(id string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source FROM edges WHERE target = ? ORDER BY source`, id)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Findings returns persisted findings, optionally filtered by kind,
// in the report's deterministic order.
func (db *DB) Findings(kind string) ([]models.Finding, error) {
	query := `SELECT kind, note_id, target, message FROM findings`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY kind, note_id, target, message`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: findings: %w", err)
	}
	defer rows.Close()

	var out []models.Finding
	for rows.Next() {
		var f models.Finding
		var k string
		if err := rows.Scan(&k, &f.NoteID, &f.Target, &f.Message); err != nil {
			return nil, err
		}
		f.Kind = models.FindingKind(k)
		out = append(out, f)
	}
	return out, rows.Err()
}

// AllChecksums returns the stored checksum per file path, used to skip
// re-audits when nothing on disk changed.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT path, checksum FROM notes`)
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
