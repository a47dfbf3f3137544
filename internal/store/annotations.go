package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/reanchor/internal/fragment"
	"github.com/roach88/reanchor/internal/ir"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Annotation is a selector recorded against a document.
type Annotation struct {
	ID         string
	Document   string
	Selector   ir.Selector
	Fragment   string
	Note       string
	CreatedSeq int64
}

// WriteAnnotation records sel against document.
//
// If the document already holds an annotation with the same selector (by
// ir.SelectorID), that annotation is returned with inserted=false and the
// note is left unchanged.
func (s *Store) WriteAnnotation(ctx context.Context, document string, sel ir.Selector, note string) (a Annotation, inserted bool, err error) {
	selectorID, err := ir.SelectorID(sel)
	if err != nil {
		return Annotation{}, false, fmt.Errorf("write annotation: %w", err)
	}
	selJSON, err := ir.MarshalCanonical(sel)
	if err != nil {
		return Annotation{}, false, fmt.Errorf("write annotation: %w", err)
	}
	frag, err := fragment.Encode(sel)
	if err != nil {
		return Annotation{}, false, fmt.Errorf("write annotation: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Annotation{}, false, fmt.Errorf("write annotation: begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(created_seq), 0) + 1 FROM annotations WHERE document = ?`,
		document,
	).Scan(&seq); err != nil {
		return Annotation{}, false, fmt.Errorf("write annotation: next seq: %w", err)
	}

	id := s.ids.Generate()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO annotations
		(id, document, selector_id, selector, fragment, note, created_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document, selector_id) DO NOTHING
	`, id, document, selectorID, string(selJSON), frag, note, seq)
	if err != nil {
		return Annotation{}, false, fmt.Errorf("write annotation: insert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Annotation{}, false, fmt.Errorf("write annotation: rows affected: %w", err)
	}

	if affected == 0 {
		row := tx.QueryRowContext(ctx, annotationColumns+`
			WHERE document = ? AND selector_id = ?
		`, document, selectorID)
		a, err = scanAnnotation(row)
		if err != nil {
			return Annotation{}, false, fmt.Errorf("write annotation: select existing: %w", err)
		}
	} else {
		a = Annotation{ID: id, Document: document, Selector: sel, Fragment: frag, Note: note, CreatedSeq: seq}
		inserted = true
	}

	if err := tx.Commit(); err != nil {
		return Annotation{}, false, fmt.Errorf("write annotation: commit: %w", err)
	}
	return a, inserted, nil
}

const annotationColumns = `
	SELECT id, document, selector, fragment, note, created_seq
	FROM annotations`

// ReadAnnotations returns a document's annotations in creation order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadAnnotations(ctx context.Context, document string) ([]Annotation, error) {
	rows, err := s.db.QueryContext(ctx, annotationColumns+`
		WHERE document = ?
		ORDER BY created_seq ASC, id COLLATE BINARY ASC
	`, document)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	out := []Annotation{}
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}
	return out, nil
}

// ReadAnnotation returns one annotation by id, or ErrNotFound.
func (s *Store) ReadAnnotation(ctx context.Context, id string) (Annotation, error) {
	row := s.db.QueryRowContext(ctx, annotationColumns+` WHERE id = ?`, id)
	a, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Annotation{}, fmt.Errorf("annotation %s: %w", id, ErrNotFound)
	}
	return a, err
}

// DeleteAnnotation removes an annotation. Returns ErrNotFound if it does
// not exist.
func (s *Store) DeleteAnnotation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM annotations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete annotation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete annotation: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("annotation %s: %w", id, ErrNotFound)
	}
	return nil
}

// Documents lists every document with at least one annotation.
func (s *Store) Documents(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT document FROM annotations
		ORDER BY document COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAnnotation(sc scanner) (Annotation, error) {
	var a Annotation
	var selJSON string
	if err := sc.Scan(&a.ID, &a.Document, &selJSON, &a.Fragment, &a.Note, &a.CreatedSeq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Annotation{}, err
		}
		return Annotation{}, fmt.Errorf("scan annotation: %w", err)
	}
	if err := json.Unmarshal([]byte(selJSON), &a.Selector); err != nil {
		return Annotation{}, fmt.Errorf("unmarshal selector of %s: %w", a.ID, err)
	}
	return a, nil
}
