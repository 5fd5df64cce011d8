package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mnhsh/letterbox/internal/letter"
)

func (s *Store) LeaseEvents(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*letter.Event, error) {
	defer s.lock()()

	var out []*letter.Event
	for _, e := range s.events {
		if len(out) >= limit {
			break
		}
		leasable := e.Status == letter.EventPending ||
			(e.Status == letter.EventProcessing && e.LockedUntil != nil && e.LockedUntil.Before(now))
		if !leasable {
			continue
		}
		until := now.Add(lease)
		e.Status = letter.EventProcessing
		e.LockedUntil = &until
		e.Attempts++
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, id uuid.UUID, now time.Time) error {
	defer s.lock()()

	for _, e := range s.events {
		if e.ID == id {
			e.Status = letter.EventProcessed
			e.ProcessedAt = &now
			e.LockedUntil = nil
			return nil
		}
	}
	return letter.ErrNoRecord
}

func (s *Store) MarkEventFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) error {
	defer s.lock()()

	for _, e := range s.events {
		if e.ID == id {
			r := reason
			e.LastError = &r
			e.LockedUntil = nil
			if e.Attempts >= maxAttempts {
				e.Status = letter.EventDead
			} else {
				e.Status = letter.EventPending
			}
			return nil
		}
	}
	return letter.ErrNoRecord
}

// Events returns a snapshot of the outbox, oldest first.
func (s *Store) Events() []letter.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]letter.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, *e)
	}
	return out
}
