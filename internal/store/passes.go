package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/reanchor/internal/engine"
)

// PassRecord is the audit record of one reconciliation pass.
type PassRecord struct {
	Document    string
	Seq         int64
	Reason      string
	Fingerprint string
	Configs     int
	Injected    int
	Released    int
	Kept        int
	Failed      int
	Unanchored  int
}

// NewPassRecord converts an engine report into an audit record.
func NewPassRecord(document string, r engine.PassReport) PassRecord {
	return PassRecord{
		Document:    document,
		Seq:         r.Seq,
		Reason:      r.Reason.String(),
		Fingerprint: r.Fingerprint,
		Configs:     r.Configs,
		Injected:    r.Injected,
		Released:    r.Released,
		Kept:        r.Kept,
		Failed:      r.Failed,
		Unanchored:  r.Unanchored,
	}
}

// WritePass records a pass. Writing the same (document, seq) twice is a
// no-op.
func (s *Store) WritePass(ctx context.Context, p PassRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO passes
		(document, seq, reason, fingerprint, configs, injected, released, kept, failed, unanchored)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document, seq) DO NOTHING
	`,
		p.Document,
		p.Seq,
		p.Reason,
		p.Fingerprint,
		p.Configs,
		p.Injected,
		p.Released,
		p.Kept,
		p.Failed,
		p.Unanchored,
	)
	if err != nil {
		return fmt.Errorf("write pass: %w", err)
	}
	return nil
}

// ReadPasses returns a document's passes ordered by seq.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadPasses(ctx context.Context, document string) ([]PassRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document, seq, reason, fingerprint, configs, injected, released, kept, failed, unanchored
		FROM passes
		WHERE document = ?
		ORDER BY seq ASC
	`, document)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	out := []PassRecord{}
	for rows.Next() {
		var p PassRecord
		if err := rows.Scan(&p.Document, &p.Seq, &p.Reason, &p.Fingerprint,
			&p.Configs, &p.Injected, &p.Released, &p.Kept, &p.Failed, &p.Unanchored); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return out, nil
}

// LastPassSeq returns the highest recorded pass seq for a document, or 0.
// Pass it to engine.NewClockAt to continue numbering after a restart.
func (s *Store) LastPassSeq(ctx context.Context, document string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM passes WHERE document = ?`, document,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last pass seq: %w", err)
	}
	return seq, nil
}

// PassRecorder is an engine.PassObserver that writes every pass to the
// store. Write failures are logged and handed to onError; the engine never
// sees them.
type PassRecorder struct {
	store    *Store
	document string
	ctx      context.Context
	onError  func(error)
}

// NewPassRecorder creates a recorder for document. onError may be nil.
func NewPassRecorder(ctx context.Context, s *Store, document string, onError func(error)) *PassRecorder {
	return &PassRecorder{store: s, document: document, ctx: ctx, onError: onError}
}

// PassCompleted implements engine.PassObserver.
func (r *PassRecorder) PassCompleted(report engine.PassReport) {
	err := r.store.WritePass(r.ctx, NewPassRecord(r.document, report))
	if err == nil {
		return
	}
	slog.Warn("pass not recorded", "document", r.document, "pass_seq", report.Seq, "error", err)
	if r.onError != nil {
		r.onError(err)
	}
}
