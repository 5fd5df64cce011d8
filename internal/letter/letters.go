package letter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mnhsh/letterbox/internal/apperr"
	"github.com/mnhsh/letterbox/internal/metrics"
)

const (
	maxTitleRunes   = 120
	maxContentRunes = 20000
	defaultPageSize = 50
	maxPageSize     = 200
	tokenAttempts   = 3
)

func (s *Service) CreateLetter(ctx context.Context, cmd CreateLetterCommand) (*CreateLetterResult, error) {
	now := s.now()
	if err := validateCreate(cmd, now); err != nil {
		return nil, err
	}

	l := &Letter{
		ID:            uuid.New(),
		SenderID:      cmd.Sender,
		RecipientKind: cmd.Recipient.Kind,
		Content:       cmd.Content,
		Anonymous:     cmd.Anonymous,
		UnlockAt:      cmd.UnlockAt.UTC().Truncate(time.Microsecond),
		CreatedAt:     now,
	}
	if title := strings.TrimSpace(cmd.Title); title != "" {
		l.Title = &title
	}
	switch cmd.Recipient.Kind {
	case RecipientUser:
		id := cmd.Recipient.ID
		l.RecipientID = &id
	case RecipientSelf:
		id := cmd.Sender
		l.RecipientID = &id
		l.Anonymous = false
	}

	if cmd.Attachment != nil {
		if s.attachments == nil {
			return nil, apperr.InvalidArg("attachments are not enabled")
		}
		key := fmt.Sprintf("letters/%s/%s", cmd.Sender, uuid.New())
		if err := s.attachments.Upload(ctx, key, cmd.Attachment); err != nil {
			s.logger.Error("failed to upload attachment", "letter_id", l.ID, "err", err)
			return nil, apperr.ErrInternal
		}
		l.AttachmentKey = &key
	}

	res := &CreateLetterResult{LetterID: l.ID}
	for attempt := 1; ; attempt++ {
		var inv *Invite
		if l.RecipientKind == RecipientInvite {
			token, err := s.newToken()
			if err != nil {
				s.logger.Error("failed to generate invite token", "err", err)
				return nil, apperr.ErrInternal
			}
			inv = &Invite{Token: token, LetterID: l.ID, CreatedAt: now}
		}

		err := s.repo.CreateLetter(ctx, l, inv)
		if err == nil {
			if inv != nil {
				res.InviteToken = inv.Token
			}
			break
		}
		// only a token collision is worth another try
		if errors.Is(err, ErrDuplicate) && inv != nil && attempt < tokenAttempts {
			continue
		}
		s.logger.Error("failed to save letter", "letter_id", l.ID, "err", err)
		return nil, apperr.ErrInternal
	}

	metrics.LettersCreatedTotal.WithLabelValues(string(l.RecipientKind)).Inc()
	s.logger.Info("letter sealed", "letter_id", l.ID, "sender", l.SenderID,
		"recipient_kind", l.RecipientKind, "unlock_at", l.UnlockAt)
	return res, nil
}

func validateCreate(cmd CreateLetterCommand, now time.Time) error {
	if cmd.Sender == uuid.Nil {
		return apperr.InvalidArg("sender is required")
	}
	switch cmd.Recipient.Kind {
	case RecipientUser:
		if cmd.Recipient.ID == uuid.Nil {
			return apperr.InvalidArg("recipient id is required")
		}
		if cmd.Recipient.ID == cmd.Sender {
			return apperr.InvalidArg("use a self letter to write to yourself")
		}
	case RecipientInvite, RecipientSelf:
	default:
		return apperr.InvalidArg("unknown recipient kind")
	}
	n := utf8.RuneCountInString(cmd.Content)
	if strings.TrimSpace(cmd.Content) == "" || n > maxContentRunes {
		return apperr.InvalidArg(fmt.Sprintf("content must be 1-%d characters", maxContentRunes))
	}
	if utf8.RuneCountInString(strings.TrimSpace(cmd.Title)) > maxTitleRunes {
		return apperr.InvalidArg(fmt.Sprintf("title must be at most %d characters", maxTitleRunes))
	}
	if !cmd.UnlockAt.After(now) {
		return apperr.InvalidArg("unlock time must be in the future")
	}
	return nil
}

// loadLetter maps storage misses and soft-deleted rows to ErrNotFound.
func (s *Service) loadLetter(ctx context.Context, id uuid.UUID) (*Letter, error) {
	l, err := s.repo.GetLetter(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return nil, apperr.ErrNotFound
		}
		s.logger.Error("failed to load letter", "letter_id", id, "err", err)
		return nil, apperr.ErrInternal
	}
	if l.IsDeleted() {
		return nil, apperr.ErrNotFound
	}
	return l, nil
}

// ReadLetter returns a view of the letter without changing its state.
func (s *Service) ReadLetter(ctx context.Context, id, actor uuid.UUID) (*LetterView, error) {
	l, err := s.loadLetter(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.IsSender(actor) && !l.IsBoundRecipient(actor) {
		return nil, apperr.ErrForbidden
	}

	now := s.now()
	view := s.view(l, actor, now)
	if view.Content != nil && l.AttachmentKey != nil {
		view.AttachmentURL = s.presign(ctx, l)
	}
	if l.RecipientKind == RecipientInvite && l.IsSender(actor) {
		inv, err := s.repo.GetInviteForLetter(ctx, l.ID)
		if err != nil && !errors.Is(err, ErrNoRecord) {
			s.logger.Error("failed to load invite", "letter_id", l.ID, "err", err)
			return nil, apperr.ErrInternal
		}
		if inv != nil && !inv.IsClaimed() {
			view.InviteToken = inv.Token
		}
	}
	return view, nil
}

func (s *Service) view(l *Letter, actor uuid.UUID, now time.Time) *LetterView {
	v := &LetterView{
		ID:               l.ID,
		RecipientKind:    l.RecipientKind,
		RecipientID:      l.RecipientID,
		Title:            l.Title,
		Anonymous:        l.Anonymous,
		UnlockAt:         l.UnlockAt,
		CreatedAt:        l.CreatedAt,
		OpenedAt:         l.OpenedAt,
		Visibility:       VisibilityAt(l, now),
		HasAttachment:    l.AttachmentKey != nil,
		ReflectionAnswer: l.ReflectionAnswer,
	}
	if !HidesSender(l, actor) {
		sender := l.SenderID
		v.SenderID = &sender
	}
	if ShowsContent(l, actor, now) {
		content := l.Content
		v.Content = &content
	}
	return v
}

func (s *Service) presign(ctx context.Context, l *Letter) string {
	if s.attachments == nil || l.AttachmentKey == nil {
		return ""
	}
	url, err := s.attachments.PresignGet(ctx, *l.AttachmentKey, s.presignTTL)
	if err != nil {
		s.logger.Warn("failed to presign attachment", "letter_id", l.ID, "err", err)
		return ""
	}
	return url
}

// OpenLetter passes the time lock. For a recipient it sets opened_at exactly
// once; repeated calls return the original timestamp. For the sender of a
// non-self letter it is a read-only preview.
func (s *Service) OpenLetter(ctx context.Context, id, actor uuid.UUID) (*OpenResult, error) {
	l, err := s.loadLetter(ctx, id)
	if err != nil {
		metrics.OpensTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}
	if !l.IsSender(actor) && !l.IsBoundRecipient(actor) {
		metrics.OpensTotal.WithLabelValues("forbidden").Inc()
		return nil, apperr.ErrForbidden
	}

	now := s.now()
	if !MayOpen(l, actor, now) {
		metrics.OpensTotal.WithLabelValues("too_early").Inc()
		return nil, apperr.ErrTooEarly
	}

	res := &OpenResult{LetterID: l.ID, Content: l.Content}
	if senderPreview(l, actor) {
		res.OpenedAt = l.OpenedAt
		res.AttachmentURL = s.presign(ctx, l)
		metrics.OpensTotal.WithLabelValues("preview").Inc()
		return res, nil
	}

	openedAt, first, err := s.repo.MarkOpened(ctx, l.ID, now)
	switch {
	case errors.Is(err, ErrNoRecord):
		return nil, apperr.ErrNotFound
	case errors.Is(err, ErrPrecondition):
		// the store disagrees with our clock about the unlock instant
		metrics.OpensTotal.WithLabelValues("too_early").Inc()
		return nil, apperr.ErrTooEarly
	case err != nil:
		s.logger.Error("failed to mark letter opened", "letter_id", l.ID, "err", err)
		return nil, apperr.ErrInternal
	}

	res.OpenedAt = &openedAt
	res.AttachmentURL = s.presign(ctx, l)
	if first {
		metrics.OpensTotal.WithLabelValues("opened").Inc()
		s.logger.Info("letter opened", "letter_id", l.ID, "identity", actor)
	} else {
		metrics.OpensTotal.WithLabelValues("reopened").Inc()
	}
	return res, nil
}

func (s *Service) ListLetters(ctx context.Context, identity uuid.UUID, f ListFilter) ([]*LetterView, error) {
	switch f.Box {
	case "":
		f.Box = BoxReceived
	case BoxReceived, BoxSent, BoxSelf:
	default:
		return nil, apperr.InvalidArg("box must be received, sent or self")
	}
	if f.Offset < 0 {
		return nil, apperr.InvalidArg("offset must not be negative")
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}

	letters, err := s.repo.ListLetters(ctx, identity, f)
	if err != nil {
		s.logger.Error("failed to list letters", "identity", identity, "err", err)
		return nil, apperr.ErrInternal
	}

	now := s.now()
	views := make([]*LetterView, 0, len(letters))
	for _, l := range letters {
		views = append(views, s.view(l, identity, now))
	}
	return views, nil
}

// DeleteLetter soft-deletes a letter. Only its sender may, and never for a
// self letter. Any invite of the letter becomes unclaimable.
func (s *Service) DeleteLetter(ctx context.Context, id, actor uuid.UUID) error {
	l, err := s.loadLetter(ctx, id)
	if err != nil {
		return err
	}
	if !l.IsSender(actor) {
		return apperr.ErrForbidden
	}
	if l.IsSelf() {
		return apperr.ErrSelfLetterLock
	}

	err = s.repo.SoftDeleteLetter(ctx, id, actor, s.now())
	if errors.Is(err, ErrNoRecord) {
		return apperr.ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to delete letter", "letter_id", id, "err", err)
		return apperr.ErrInternal
	}
	s.logger.Info("letter deleted", "letter_id", id)
	return nil
}
