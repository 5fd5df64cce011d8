package letter

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mnhsh/letterbox/internal/apperr"
	"github.com/mnhsh/letterbox/internal/metrics"
)

// NormalizePair orders two identities by their byte representation, which is
// also how PostgreSQL orders uuid values.
func NormalizePair(a, b uuid.UUID) (low, high uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

// Connect records a symmetric relationship between a and b. Calling it again
// for the same pair, in either order, is a no-op.
func (s *Service) Connect(ctx context.Context, a, b uuid.UUID) error {
	if a == uuid.Nil || b == uuid.Nil || a == b {
		return apperr.InvalidArg("a connection needs two distinct identities")
	}
	if _, err := s.connect(ctx, a, b); err != nil {
		s.logger.Error("failed to create connection", "err", err)
		return apperr.ErrInternal
	}
	return nil
}

func (s *Service) connect(ctx context.Context, a, b uuid.UUID) (bool, error) {
	low, high := NormalizePair(a, b)
	created, err := s.repo.CreateConnection(ctx, &Connection{
		UserLow:   low,
		UserHigh:  high,
		CreatedAt: s.now(),
	})
	if err != nil {
		return false, err
	}
	if created {
		metrics.ConnectionsCreatedTotal.Inc()
	}
	return created, nil
}

type ConnectionView struct {
	Identity  uuid.UUID `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Service) ListConnections(ctx context.Context, identity uuid.UUID) ([]ConnectionView, error) {
	conns, err := s.repo.ListConnections(ctx, identity)
	if err != nil {
		s.logger.Error("failed to list connections", "identity", identity, "err", err)
		return nil, apperr.ErrInternal
	}
	out := make([]ConnectionView, 0, len(conns))
	for _, c := range conns {
		out = append(out, ConnectionView{Identity: c.Other(identity), CreatedAt: c.CreatedAt})
	}
	return out, nil
}
