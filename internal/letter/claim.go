package letter

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mnhsh/letterbox/internal/apperr"
	"github.com/mnhsh/letterbox/internal/metrics"
)

// PreviewInvite shows what an unauthenticated visitor may know about an
// invite: when it unlocks and whether it is taken. Nothing else.
func (s *Service) PreviewInvite(ctx context.Context, token string) (*InvitePreview, error) {
	if err := ValidateToken(token); err != nil {
		return nil, err
	}

	var st *InviteState
	err := s.retry(ctx, s.readRetries, func() (err error) {
		st, err = s.repo.GetInviteState(ctx, token)
		return err
	})
	switch {
	case errors.Is(err, ErrNoRecord):
		return nil, apperr.NotFound("invite not found")
	case err != nil:
		s.logger.Error("failed to load invite", "token", tokenPrefix(token), "err", err)
		return nil, apperr.ErrInternal
	}
	if st.LetterDeleted {
		return nil, apperr.ErrLetterGone
	}
	return &InvitePreview{UnlockAt: st.UnlockAt, Claimed: st.Invite.IsClaimed()}, nil
}

// ClaimInvite binds claimer to the invite's letter. Among any number of
// concurrent callers presenting the same token exactly one wins; the store's
// conditional write decides, never a prior read.
//
// The claim is never undone. If binding the recipient or creating the
// connection fails afterwards the claim still stands, and the invite.claimed
// outbox event written with it lets the relay finish the job.
func (s *Service) ClaimInvite(ctx context.Context, token string, claimer uuid.UUID) (*ClaimResult, error) {
	if err := ValidateToken(token); err != nil {
		metrics.ClaimsTotal.WithLabelValues("invalid_token").Inc()
		return nil, err
	}
	if claimer == uuid.Nil {
		return nil, apperr.Unauthorized("identity is required")
	}

	log := s.logger.With("token", tokenPrefix(token), "identity", claimer)

	// The conditional write is never retried.
	inv, err := s.repo.ClaimInvite(ctx, token, claimer, s.now())
	if errors.Is(err, ErrPrecondition) {
		inv, err = s.settleLostClaim(ctx, token, claimer)
		if err != nil {
			log.Warn("invite claim rejected", "code", apperr.CodeOf(err))
			return nil, err
		}
		log.Info("invite claim repeated by its owner")
	} else if err != nil {
		metrics.ClaimsTotal.WithLabelValues("error").Inc()
		log.Error("invite claim failed", "err", err)
		return nil, apperr.ErrInternal
	} else {
		metrics.ClaimsTotal.WithLabelValues("won").Inc()
		log.Info("invite claimed", "letter_id", inv.LetterID)
	}

	res := &ClaimResult{LetterID: inv.LetterID, Visibility: Sealed}

	err = s.retry(ctx, s.effectRetries, func() error {
		return s.ApplyClaimEffects(ctx, inv.LetterID, claimer)
	})
	if err != nil {
		metrics.ClaimEffectsTotal.WithLabelValues("deferred").Inc()
		log.Error("claim side effects deferred to relay", "letter_id", inv.LetterID, "err", err)
	} else {
		metrics.ClaimEffectsTotal.WithLabelValues("applied").Inc()
		res.EffectsApplied = true
	}

	var l *Letter
	err = s.retry(ctx, s.readRetries, func() (err error) {
		l, err = s.repo.GetLetter(ctx, inv.LetterID)
		return err
	})
	if err == nil {
		res.Visibility = VisibilityAt(l, s.now())
	} else {
		log.Warn("failed to load claimed letter", "letter_id", inv.LetterID, "err", err)
	}
	return res, nil
}

// settleLostClaim classifies a conditional write that matched nothing. An
// unknown token and a token claimed by someone else both read as
// ErrAlreadyClaimed.
func (s *Service) settleLostClaim(ctx context.Context, token string, claimer uuid.UUID) (*Invite, error) {
	var st *InviteState
	err := s.retry(ctx, s.readRetries, func() (err error) {
		st, err = s.repo.GetInviteState(ctx, token)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrNoRecord) {
			s.logger.Warn("failed to classify lost claim", "token", tokenPrefix(token), "err", err)
		}
		metrics.ClaimsTotal.WithLabelValues("lost").Inc()
		return nil, apperr.ErrAlreadyClaimed
	}

	switch {
	case st.LetterDeleted:
		metrics.ClaimsTotal.WithLabelValues("letter_gone").Inc()
		return nil, apperr.ErrLetterGone
	case st.Invite.ClaimedBy != nil && *st.Invite.ClaimedBy == claimer:
		// the earlier winner retrying after an ambiguous response
		metrics.ClaimsTotal.WithLabelValues("repeat").Inc()
		inv := st.Invite
		return &inv, nil
	case st.Invite.IsClaimed():
		metrics.ClaimsTotal.WithLabelValues("lost").Inc()
		return nil, apperr.ErrAlreadyClaimed
	case st.SenderID == claimer:
		metrics.ClaimsTotal.WithLabelValues("own_invite").Inc()
		return nil, apperr.ErrOwnInvite
	}
	metrics.ClaimsTotal.WithLabelValues("lost").Inc()
	return nil, apperr.ErrAlreadyClaimed
}

// ApplyClaimEffects binds the letter to claimer and connects claimer with the
// sender. Both steps are idempotent, so callers may repeat it freely.
func (s *Service) ApplyClaimEffects(ctx context.Context, letterID, claimer uuid.UUID) error {
	l, err := s.repo.GetLetter(ctx, letterID)
	if err != nil {
		return err
	}
	if err := s.repo.BindRecipient(ctx, letterID, claimer); err != nil {
		return err
	}
	_, err = s.connect(ctx, l.SenderID, claimer)
	return err
}
