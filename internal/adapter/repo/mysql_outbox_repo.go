package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/aq2208/storefront-api/internal/usecase"
)

const maxOutboxErrorLen = 1024

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertOutbox(ctx context.Context, db execer, channel string, payload []byte) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO outbox (channel,payload,status,retry_count,next_attempt_at,created_at)
VALUES (?, ?, 'PENDING', 0, UTC_TIMESTAMP(), UTC_TIMESTAMP())
`, channel, payload)
	return err
}

type MySQLOutboxRepo struct{ db *sql.DB }

func NewMySQLOutboxRepo(db *sql.DB) *MySQLOutboxRepo { return &MySQLOutboxRepo{db: db} }

// FetchPending returns due rows oldest first. Due-ness is judged in UTC,
// the zone MarkFailed writes next_attempt_at in.
func (r *MySQLOutboxRepo) FetchPending(ctx context.Context, limit int) ([]usecase.OutboxRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,channel,payload,retry_count,next_attempt_at
FROM outbox
WHERE status='PENDING' AND next_attempt_at <= UTC_TIMESTAMP()
ORDER BY id
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.OutboxRecord
	for rows.Next() {
		var rec usecase.OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.Channel, &rec.Payload, &rec.RetryCount, &rec.NextAttempt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *MySQLOutboxRepo) MarkSent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE outbox SET status='SENT', sent_at=UTC_TIMESTAMP(), last_error=NULL WHERE id=?`, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *MySQLOutboxRepo) MarkFailed(ctx context.Context, id int64, retryCount int, nextAttempt time.Time, reason string) error {
	if len(reason) > maxOutboxErrorLen {
		reason = reason[:maxOutboxErrorLen]
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE outbox SET retry_count=?, next_attempt_at=?, last_error=? WHERE id=?`,
		retryCount, nextAttempt.UTC(), reason, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ usecase.OutboxRepo = (*MySQLOutboxRepo)(nil)
