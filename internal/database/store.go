package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/mnhsh/letterbox/internal/letter"
)

// Store provides all functions to execute db queries and transactions
type Store interface {
	letter.Repository
	LeaseEvents(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*letter.Event, error)
	MarkEventProcessed(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkEventFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) error
}

// SQLStore provides all functions to execute SQL queries and transactions
type SQLStore struct {
	db *bun.DB
	*Queries
}

var _ Store = (*SQLStore)(nil)

func NewStore(db *bun.DB) *SQLStore {
	return &SQLStore{
		db:      db,
		Queries: New(db),
	}
}

func (s *SQLStore) execTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}

	q := New(tx)
	err = fn(q)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}

	return errors.Wrap(tx.Commit(), "commit tx")
}

func (s *SQLStore) CreateLetter(ctx context.Context, l *letter.Letter, inv *letter.Invite) error {
	return s.execTx(ctx, func(q *Queries) error {
		if err := q.insertLetter(ctx, l); err != nil {
			return err
		}
		if inv != nil {
			if err := q.insertInvite(ctx, inv); err != nil {
				return err
			}
		}
		return q.insertEvent(ctx, letter.NewEvent(letter.EventLetterCreated, letter.EventPayload{
			LetterID: l.ID,
			SenderID: l.SenderID,
			UnlockAt: l.UnlockAt,
		}, l.CreatedAt))
	})
}

func (s *SQLStore) MarkOpened(ctx context.Context, id uuid.UUID, now time.Time) (time.Time, bool, error) {
	var (
		openedAt time.Time
		first    bool
	)
	err := s.execTx(ctx, func(q *Queries) error {
		var l letter.Letter
		err := q.db.NewRaw(`
			UPDATE letters
			SET opened_at = ?
			WHERE id = ?
			  AND opened_at IS NULL
			  AND deleted_at IS NULL
			  AND unlock_at <= ?
			RETURNING *`, now, id, now).
			Scan(ctx, &l)

		switch {
		case err == nil:
			openedAt, first = *l.OpenedAt, true
			return q.insertEvent(ctx, letter.NewEvent(letter.EventLetterOpened, letter.EventPayload{
				LetterID: l.ID,
				SenderID: l.SenderID,
				ActorID:  l.RecipientID,
				UnlockAt: l.UnlockAt,
			}, now))
		case !errors.Is(err, sql.ErrNoRows):
			return errors.Wrap(err, "letterRepo.MarkOpened.Update")
		}

		cur, err := q.GetLetter(ctx, id)
		if err != nil {
			return err
		}
		if cur.IsDeleted() {
			return letter.ErrNoRecord
		}
		if cur.OpenedAt == nil {
			return letter.ErrPrecondition
		}
		openedAt = *cur.OpenedAt
		return nil
	})
	return openedAt, first, err
}

func (s *SQLStore) ClaimInvite(ctx context.Context, token string, claimer uuid.UUID, now time.Time) (*letter.Invite, error) {
	var inv letter.Invite
	err := s.execTx(ctx, func(q *Queries) error {
		var (
			senderID uuid.UUID
			unlockAt time.Time
		)
		// Postgres re-checks claimed_at IS NULL against the committed row
		// after waiting on a concurrent claimer's lock, so at most one
		// transaction ever matches.
		err := q.db.NewRaw(`
			UPDATE invites AS i
			SET claimed_at = ?, claimed_by = ?
			FROM letters AS l
			WHERE i.token = ?
			  AND i.claimed_at IS NULL
			  AND l.id = i.letter_id
			  AND l.deleted_at IS NULL
			  AND l.sender_id <> ?
			RETURNING i.token, i.letter_id, i.created_at, i.claimed_at, i.claimed_by, l.sender_id, l.unlock_at`,
			now, claimer, token, claimer).
			Scan(ctx, &inv.Token, &inv.LetterID, &inv.CreatedAt, &inv.ClaimedAt, &inv.ClaimedBy, &senderID, &unlockAt)
		if errors.Is(err, sql.ErrNoRows) {
			return letter.ErrPrecondition
		}
		if err != nil {
			return errors.Wrap(err, "letterRepo.ClaimInvite.Update")
		}

		actor := claimer
		return q.insertEvent(ctx, letter.NewEvent(letter.EventInviteClaimed, letter.EventPayload{
			LetterID: inv.LetterID,
			SenderID: senderID,
			ActorID:  &actor,
			UnlockAt: unlockAt,
		}, now))
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *SQLStore) CreateReply(ctx context.Context, r *letter.Reply) error {
	return s.execTx(ctx, func(q *Queries) error {
		res, err := q.db.NewInsert().
			Model(r).
			On("CONFLICT (letter_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return errors.Wrap(err, "letterRepo.CreateReply.Insert")
		}
		if err := requireRow(res, letter.ErrDuplicate); err != nil {
			return err
		}

		l, err := q.GetLetter(ctx, r.LetterID)
		if err != nil {
			return err
		}
		author := r.AuthorID
		return q.insertEvent(ctx, letter.NewEvent(letter.EventReplyCreated, letter.EventPayload{
			LetterID: l.ID,
			SenderID: l.SenderID,
			ActorID:  &author,
			UnlockAt: l.UnlockAt,
		}, r.CreatedAt))
	})
}
