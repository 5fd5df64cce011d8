package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mnhsh/letterbox/internal/letter"
)

// LeaseEvents hands out up to limit open events, skipping rows another relay
// holds, and lets expired leases be taken over.
func (s *SQLStore) LeaseEvents(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*letter.Event, error) {
	events := make([]*letter.Event, 0)
	err := s.db.NewRaw(`
		UPDATE outbox_events
		SET status = 'processing', locked_until = ?, attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = 'pending'
			   OR (status = 'processing' AND locked_until < ?)
			ORDER BY created_at
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`, now.Add(lease), now, limit).
		Scan(ctx, &events)
	if err != nil {
		return nil, errors.Wrap(err, "outboxRepo.LeaseEvents")
	}
	return events, nil
}

func (s *SQLStore) MarkEventProcessed(ctx context.Context, id uuid.UUID, now time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*letter.Event)(nil)).
		Set("status = ?", letter.EventProcessed).
		Set("processed_at = ?", now).
		Set("locked_until = NULL").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "outboxRepo.MarkEventProcessed")
	}
	return requireRow(res, letter.ErrNoRecord)
}

func (s *SQLStore) MarkEventFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET status = CASE WHEN attempts >= ? THEN 'dead' ELSE 'pending' END,
		    last_error = ?,
		    locked_until = NULL
		WHERE id = ?`, maxAttempts, reason, id)
	if err != nil {
		return errors.Wrap(err, "outboxRepo.MarkEventFailed")
	}
	return requireRow(res, letter.ErrNoRecord)
}
