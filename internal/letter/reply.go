package letter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mnhsh/letterbox/internal/apperr"
	"github.com/mnhsh/letterbox/internal/metrics"
)

const maxReplyRunes = 500

// AddReply stores the single reply a bound recipient may send once the letter
// is opened. Uniqueness is enforced by the store.
func (s *Service) AddReply(ctx context.Context, cmd AddReplyCommand) (uuid.UUID, error) {
	l, err := s.loadLetter(ctx, cmd.LetterID)
	if err != nil {
		return uuid.Nil, err
	}
	if l.IsSelf() || !l.IsBoundRecipient(cmd.Actor) {
		return uuid.Nil, apperr.ErrForbidden
	}
	if VisibilityAt(l, s.now()) != Opened {
		return uuid.Nil, apperr.ErrTooEarly
	}

	text := strings.TrimSpace(cmd.Text)
	if text == "" || utf8.RuneCountInString(text) > maxReplyRunes {
		return uuid.Nil, apperr.InvalidArg(fmt.Sprintf("reply must be 1-%d characters", maxReplyRunes))
	}
	if !validEmoji(cmd.Emoji) {
		return uuid.Nil, apperr.InvalidArg("unsupported emoji")
	}

	r := &Reply{
		ID:        uuid.New(),
		LetterID:  l.ID,
		AuthorID:  cmd.Actor,
		Text:      text,
		Emoji:     cmd.Emoji,
		CreatedAt: s.now(),
	}
	err = s.repo.CreateReply(ctx, r)
	if errors.Is(err, ErrDuplicate) {
		metrics.RepliesTotal.WithLabelValues("reply", "duplicate").Inc()
		return uuid.Nil, apperr.ErrAlreadyExists
	}
	if err != nil {
		s.logger.Error("failed to save reply", "letter_id", l.ID, "err", err)
		return uuid.Nil, apperr.ErrInternal
	}
	metrics.RepliesTotal.WithLabelValues("reply", "created").Inc()
	return r.ID, nil
}

func (s *Service) GetReply(ctx context.Context, letterID, actor uuid.UUID) (*ReplyView, error) {
	l, err := s.loadLetter(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if !l.IsSender(actor) && !l.IsBoundRecipient(actor) {
		return nil, apperr.ErrForbidden
	}
	r, err := s.repo.GetReply(ctx, letterID)
	if errors.Is(err, ErrNoRecord) {
		return nil, apperr.NotFound("reply not found")
	}
	if err != nil {
		s.logger.Error("failed to load reply", "letter_id", letterID, "err", err)
		return nil, apperr.ErrInternal
	}
	return newReplyView(r), nil
}

// MarkReplyViewed stamps the caller's viewed time once. The sender and the
// recipient each have their own timestamp.
func (s *Service) MarkReplyViewed(ctx context.Context, letterID, actor uuid.UUID) (*ReplyView, error) {
	l, err := s.loadLetter(ctx, letterID)
	if err != nil {
		return nil, err
	}
	var role ViewerRole
	switch {
	case l.IsSender(actor):
		role = ViewerSender
	case l.IsBoundRecipient(actor):
		role = ViewerRecipient
	default:
		return nil, apperr.ErrForbidden
	}

	r, err := s.repo.MarkReplyViewed(ctx, letterID, role, s.now())
	if errors.Is(err, ErrNoRecord) {
		return nil, apperr.NotFound("reply not found")
	}
	if err != nil {
		s.logger.Error("failed to mark reply viewed", "letter_id", letterID, "err", err)
		return nil, apperr.ErrInternal
	}
	return newReplyView(r), nil
}

// SubmitReflection records the owner's one answer to an opened self letter.
func (s *Service) SubmitReflection(ctx context.Context, letterID, actor uuid.UUID, answer ReflectionAnswer) error {
	if !answer.Valid() {
		metrics.RepliesTotal.WithLabelValues("reflection", "invalid").Inc()
		return apperr.ErrInvalidAnswer(string(answer))
	}

	l, err := s.loadLetter(ctx, letterID)
	if err != nil {
		return err
	}
	if !l.IsSelf() {
		return apperr.InvalidArg("reflections are only for self letters")
	}
	if !l.IsSender(actor) {
		return apperr.ErrForbidden
	}
	if VisibilityAt(l, s.now()) != Opened {
		return apperr.ErrTooEarly
	}
	if l.ReflectionAnswer != nil {
		metrics.RepliesTotal.WithLabelValues("reflection", "duplicate").Inc()
		return apperr.ErrAlreadyExists
	}

	err = s.repo.SetReflection(ctx, letterID, answer, s.now())
	if errors.Is(err, ErrPrecondition) {
		metrics.RepliesTotal.WithLabelValues("reflection", "duplicate").Inc()
		return apperr.ErrAlreadyExists
	}
	if err != nil {
		s.logger.Error("failed to save reflection", "letter_id", letterID, "err", err)
		return apperr.ErrInternal
	}
	metrics.RepliesTotal.WithLabelValues("reflection", "created").Inc()
	return nil
}
