package letter

import (
	"context"
	"errors"
	"time"
)

// transient reports whether err may succeed on a retry. Protocol outcomes and
// cancellation never do.
func transient(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrNoRecord),
		errors.Is(err, ErrPrecondition),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// retry runs fn up to 1+extra times while it fails transiently, doubling the
// pause between attempts. Only read-only or idempotent steps go through here.
func (s *Service) retry(ctx context.Context, extra int, fn func() error) error {
	backoff := s.retryBackoff
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if !transient(err) || attempt >= extra {
			return err
		}
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		backoff *= 2
	}
}
