package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/mnhsh/letterbox/internal/letter"
)

// Querier holds the single-statement queries. Anything that must be atomic
// across statements lives on SQLStore and runs through execTx.
type Querier interface {
	GetLetter(ctx context.Context, id uuid.UUID) (*letter.Letter, error)
	ListLetters(ctx context.Context, identity uuid.UUID, f letter.ListFilter) ([]*letter.Letter, error)
	SoftDeleteLetter(ctx context.Context, id, sender uuid.UUID, now time.Time) error
	GetInviteState(ctx context.Context, token string) (*letter.InviteState, error)
	GetInviteForLetter(ctx context.Context, letterID uuid.UUID) (*letter.Invite, error)
	BindRecipient(ctx context.Context, letterID, recipient uuid.UUID) error
	CreateConnection(ctx context.Context, c *letter.Connection) (bool, error)
	ListConnections(ctx context.Context, identity uuid.UUID) ([]*letter.Connection, error)
	GetReply(ctx context.Context, letterID uuid.UUID) (*letter.Reply, error)
	MarkReplyViewed(ctx context.Context, letterID uuid.UUID, role letter.ViewerRole, now time.Time) (*letter.Reply, error)
	SetReflection(ctx context.Context, letterID uuid.UUID, answer letter.ReflectionAnswer, now time.Time) error
}

// Queries runs against either the pool or a transaction.
type Queries struct {
	db bun.IDB
}

var _ Querier = (*Queries)(nil)

func New(db bun.IDB) *Queries {
	return &Queries{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (q *Queries) insertLetter(ctx context.Context, l *letter.Letter) error {
	_, err := q.db.NewInsert().Model(l).Exec(ctx)
	if isUniqueViolation(err) {
		return letter.ErrDuplicate
	}
	return errors.Wrap(err, "letterRepo.insertLetter")
}

func (q *Queries) insertInvite(ctx context.Context, inv *letter.Invite) error {
	_, err := q.db.NewInsert().Model(inv).Exec(ctx)
	if isUniqueViolation(err) {
		return letter.ErrDuplicate
	}
	return errors.Wrap(err, "letterRepo.insertInvite")
}

func (q *Queries) insertEvent(ctx context.Context, e *letter.Event) error {
	_, err := q.db.NewInsert().Model(e).Exec(ctx)
	return errors.Wrap(err, "letterRepo.insertEvent")
}

func (q *Queries) GetLetter(ctx context.Context, id uuid.UUID) (*letter.Letter, error) {
	l := new(letter.Letter)
	err := q.db.NewSelect().Model(l).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, letter.ErrNoRecord
	}
	if err != nil {
		return nil, errors.Wrap(err, "letterRepo.GetLetter.Scan")
	}
	return l, nil
}

func (q *Queries) ListLetters(ctx context.Context, identity uuid.UUID, f letter.ListFilter) ([]*letter.Letter, error) {
	letters := make([]*letter.Letter, 0)
	sel := q.db.NewSelect().Model(&letters).Where("deleted_at IS NULL")

	switch f.Box {
	case letter.BoxReceived:
		sel = sel.Where("recipient_id = ?", identity).Where("recipient_kind <> ?", letter.RecipientSelf)
	case letter.BoxSent:
		sel = sel.Where("sender_id = ?", identity).Where("recipient_kind <> ?", letter.RecipientSelf)
	case letter.BoxSelf:
		sel = sel.Where("sender_id = ?", identity).Where("recipient_kind = ?", letter.RecipientSelf)
	default:
		return nil, errors.Errorf("letterRepo.ListLetters: unknown box %q", f.Box)
	}

	err := sel.OrderExpr("created_at DESC, id").Limit(f.Limit).Offset(f.Offset).Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "letterRepo.ListLetters.Scan")
	}
	return letters, nil
}

func (q *Queries) SoftDeleteLetter(ctx context.Context, id, sender uuid.UUID, now time.Time) error {
	res, err := q.db.NewUpdate().
		Model((*letter.Letter)(nil)).
		Set("deleted_at = ?", now).
		Where("id = ?", id).
		Where("sender_id = ?", sender).
		Where("recipient_kind <> ?", letter.RecipientSelf).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "letterRepo.SoftDeleteLetter.Update")
	}
	return requireRow(res, letter.ErrNoRecord)
}

func (q *Queries) GetInviteState(ctx context.Context, token string) (*letter.InviteState, error) {
	st := new(letter.InviteState)
	err := q.db.NewRaw(`
		SELECT i.token, i.letter_id, i.created_at, i.claimed_at, i.claimed_by,
		       l.sender_id, l.unlock_at, l.deleted_at IS NOT NULL
		FROM invites AS i
		JOIN letters AS l ON l.id = i.letter_id
		WHERE i.token = ?`, token).
		Scan(ctx,
			&st.Invite.Token, &st.Invite.LetterID, &st.Invite.CreatedAt, &st.Invite.ClaimedAt, &st.Invite.ClaimedBy,
			&st.SenderID, &st.UnlockAt, &st.LetterDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, letter.ErrNoRecord
	}
	if err != nil {
		return nil, errors.Wrap(err, "letterRepo.GetInviteState.Scan")
	}
	return st, nil
}

func (q *Queries) GetInviteForLetter(ctx context.Context, letterID uuid.UUID) (*letter.Invite, error) {
	inv := new(letter.Invite)
	err := q.db.NewSelect().Model(inv).Where("letter_id = ?", letterID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, letter.ErrNoRecord
	}
	if err != nil {
		return nil, errors.Wrap(err, "letterRepo.GetInviteForLetter.Scan")
	}
	return inv, nil
}

func (q *Queries) BindRecipient(ctx context.Context, letterID, recipient uuid.UUID) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE letters AS l
		SET recipient_id = ?
		WHERE l.id = ?
		  AND (l.recipient_id IS NULL OR l.recipient_id = ?)
		  AND EXISTS (SELECT 1 FROM invites AS i WHERE i.letter_id = l.id AND i.claimed_by = ?)`,
		recipient, letterID, recipient, recipient)
	if err != nil {
		return errors.Wrap(err, "letterRepo.BindRecipient.Update")
	}
	return requireRow(res, letter.ErrPrecondition)
}

func (q *Queries) CreateConnection(ctx context.Context, c *letter.Connection) (bool, error) {
	res, err := q.db.NewInsert().
		Model(c).
		On("CONFLICT (user_low, user_high) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, errors.Wrap(err, "letterRepo.CreateConnection.Insert")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "letterRepo.CreateConnection.RowsAffected")
	}
	return n > 0, nil
}

func (q *Queries) ListConnections(ctx context.Context, identity uuid.UUID) ([]*letter.Connection, error) {
	conns := make([]*letter.Connection, 0)
	err := q.db.NewSelect().
		Model(&conns).
		Where("user_low = ? OR user_high = ?", identity, identity).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "letterRepo.ListConnections.Scan")
	}
	return conns, nil
}

func (q *Queries) GetReply(ctx context.Context, letterID uuid.UUID) (*letter.Reply, error) {
	r := new(letter.Reply)
	err := q.db.NewSelect().Model(r).Where("letter_id = ?", letterID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, letter.ErrNoRecord
	}
	if err != nil {
		return nil, errors.Wrap(err, "letterRepo.GetReply.Scan")
	}
	return r, nil
}

func (q *Queries) MarkReplyViewed(ctx context.Context, letterID uuid.UUID, role letter.ViewerRole, now time.Time) (*letter.Reply, error) {
	var query string
	switch role {
	case letter.ViewerSender:
		query = `UPDATE replies SET sender_viewed_at = COALESCE(sender_viewed_at, ?) WHERE letter_id = ? RETURNING *`
	case letter.ViewerRecipient:
		query = `UPDATE replies SET recipient_viewed_at = COALESCE(recipient_viewed_at, ?) WHERE letter_id = ? RETURNING *`
	default:
		return nil, errors.Errorf("letterRepo.MarkReplyViewed: unknown role %q", role)
	}

	r := new(letter.Reply)
	err := q.db.NewRaw(query, now, letterID).Scan(ctx, r)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, letter.ErrNoRecord
	}
	if err != nil {
		return nil, errors.Wrap(err, "letterRepo.MarkReplyViewed.Update")
	}
	return r, nil
}

func (q *Queries) SetReflection(ctx context.Context, letterID uuid.UUID, answer letter.ReflectionAnswer, now time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE letters
		SET reflection_answer = ?, reflection_at = ?
		WHERE id = ?
		  AND recipient_kind = 'self'
		  AND opened_at IS NOT NULL
		  AND reflection_answer IS NULL
		  AND deleted_at IS NULL`,
		string(answer), now, letterID)
	if err != nil {
		return errors.Wrap(err, "letterRepo.SetReflection.Update")
	}
	return requireRow(res, letter.ErrPrecondition)
}

func requireRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "RowsAffected")
	}
	if n == 0 {
		return none
	}
	return nil
}
