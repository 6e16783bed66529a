package results

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const outboxSchema = `
CREATE TABLE IF NOT EXISTS result_outbox (
	assessment_id TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL DEFAULT '',
	payload       TEXT NOT NULL,
	last_error    TEXT NOT NULL DEFAULT '',
	queued_at     TEXT NOT NULL,
	synced_at     TEXT
)`

// LocalOutbox retains results in SQLite until they reach the primary store.
type LocalOutbox struct {
	db  *sql.DB
	now func() time.Time
}

// NewLocalOutbox creates the outbox table on db if needed.
func NewLocalOutbox(ctx context.Context, db *sql.DB) (*LocalOutbox, error) {
	if _, err := db.ExecContext(ctx, outboxSchema); err != nil {
		return nil, fmt.Errorf("create result_outbox: %w", err)
	}
	return &LocalOutbox{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Save queues rec. Re-queuing an assessment replaces the earlier copy and
// marks it pending again.
func (o *LocalOutbox) Save(ctx context.Context, rec Record) error {
	return o.SaveWithError(ctx, rec, "")
}

// SaveWithError queues rec and remembers why the primary write failed.
func (o *LocalOutbox) SaveWithError(ctx context.Context, rec Record, lastErr string) error {
	if err := rec.validate(); err != nil {
		return err
	}
	payload, err := rec.payload()
	if err != nil {
		return err
	}
	_, err = o.db.ExecContext(ctx, `
		INSERT INTO result_outbox (assessment_id, user_id, payload, last_error, queued_at, synced_at)
		VALUES (?, ?, ?, ?, ?, NULL)
		ON CONFLICT (assessment_id) DO UPDATE SET
			user_id = excluded.user_id,
			payload = excluded.payload,
			last_error = excluded.last_error,
			queued_at = excluded.queued_at,
			synced_at = NULL`,
		rec.AssessmentID, rec.UserID, string(payload), lastErr, o.now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("queue result %s: %w", rec.AssessmentID, err)
	}
	return nil
}

// Pending returns up to limit unsynced records, oldest first.
func (o *LocalOutbox) Pending(ctx context.Context, limit int) ([]Record, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT assessment_id, user_id, payload FROM result_outbox
		WHERE synced_at IS NULL
		ORDER BY queued_at, assessment_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending results: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var id, userID, payload string
		if err := rows.Scan(&id, &userID, &payload); err != nil {
			return nil, fmt.Errorf("scan pending result: %w", err)
		}
		res, err := decodeResult(id, []byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, Record{AssessmentID: id, UserID: userID, Result: res})
	}
	return out, rows.Err()
}

// CountPending reports how many records await replay.
func (o *LocalOutbox) CountPending(ctx context.Context) (int, error) {
	var n int
	err := o.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM result_outbox WHERE synced_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending results: %w", err)
	}
	return n, nil
}

func (o *LocalOutbox) MarkSynced(ctx context.Context, assessmentID string) error {
	res, err := o.db.ExecContext(ctx,
		`UPDATE result_outbox SET synced_at = ?, last_error = '' WHERE assessment_id = ?`,
		o.now().Format(time.RFC3339Nano), assessmentID)
	if err != nil {
		return fmt.Errorf("mark %s synced: %w", assessmentID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResultNotFound
	}
	return nil
}
