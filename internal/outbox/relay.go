// Package outbox drains the outbox_events table: it finishes claim side
// effects that the request path could not, and forwards every event to the
// broker.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/ratelimit"

	"github.com/mnhsh/letterbox/internal/letter"
	"github.com/mnhsh/letterbox/internal/logger"
	"github.com/mnhsh/letterbox/internal/metrics"
)

type Source interface {
	LeaseEvents(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*letter.Event, error)
	MarkEventProcessed(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkEventFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) error
}

type Publisher interface {
	Publish(ctx context.Context, e *letter.Event) error
}

// ClaimEffects is satisfied by *letter.Service.
type ClaimEffects interface {
	ApplyClaimEffects(ctx context.Context, letterID, claimer uuid.UUID) error
}

type Options struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	Lease       time.Duration
	PublishRPS  int
}

type Relay struct {
	src     Source
	pub     Publisher
	effects ClaimEffects
	clock   letter.Clock
	logger  *logger.Logger
	limiter ratelimit.Limiter
	opts    Options
}

func NewRelay(src Source, pub Publisher, effects ClaimEffects, clock letter.Clock, log *logger.Logger, opts Options) *Relay {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.Lease <= 0 {
		opts.Lease = time.Minute
	}
	limiter := ratelimit.NewUnlimited()
	if opts.PublishRPS > 0 {
		limiter = ratelimit.New(opts.PublishRPS)
	}
	return &Relay{
		src:     src,
		pub:     pub,
		effects: effects,
		clock:   clock,
		logger:  log.With("component", "outbox_relay"),
		limiter: limiter,
		opts:    opts,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", "interval", r.opts.Interval, "batch", r.opts.BatchSize)
	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("outbox relay pass failed", "err", err)
		}
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce handles one leased batch and reports how many events were
// processed.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.src.LeaseEvents(ctx, r.clock.Now(), r.opts.Lease, r.opts.BatchSize)
	if err != nil {
		return 0, errors.Wrap(err, "lease events")
	}

	done := 0
	for _, e := range events {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if err := r.handle(ctx, e); err != nil {
			metrics.OutboxPublishedTotal.WithLabelValues(string(e.Kind), "failed").Inc()
			r.logger.Warn("outbox event failed", "event_id", e.ID, "kind", e.Kind, "attempt", e.Attempts, "err", err)
			if markErr := r.src.MarkEventFailed(ctx, e.ID, err.Error(), r.opts.MaxAttempts); markErr != nil {
				r.logger.Error("failed to record event failure", "event_id", e.ID, "err", markErr)
			}
			continue
		}
		if err := r.src.MarkEventProcessed(ctx, e.ID, r.clock.Now()); err != nil {
			r.logger.Error("failed to mark event processed", "event_id", e.ID, "err", err)
			continue
		}
		metrics.OutboxPublishedTotal.WithLabelValues(string(e.Kind), "published").Inc()
		done++
	}
	return done, nil
}

func (r *Relay) handle(ctx context.Context, e *letter.Event) error {
	if e.Kind == letter.EventInviteClaimed {
		p, err := e.DecodePayload()
		if err != nil {
			return errors.Wrap(err, "decode payload")
		}
		if p.ActorID == nil {
			return errors.New("invite.claimed event without claimer")
		}
		if err := r.effects.ApplyClaimEffects(ctx, p.LetterID, *p.ActorID); err != nil {
			return errors.Wrap(err, "apply claim effects")
		}
	}

	r.limiter.Take()
	return errors.Wrap(r.pub.Publish(ctx, e), "publish")
}
