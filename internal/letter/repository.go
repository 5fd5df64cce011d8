package letter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoRecord means the row does not exist (or is soft-deleted where the
	// query excludes deleted rows).
	ErrNoRecord = errors.New("record not found")
	// ErrPrecondition means a conditional write matched no row.
	ErrPrecondition = errors.New("conditional write matched no row")
	// ErrDuplicate means a uniqueness constraint rejected the write.
	ErrDuplicate = errors.New("duplicate record")
)

type Box string

const (
	BoxReceived Box = "received"
	BoxSent     Box = "sent"
	BoxSelf     Box = "self"
)

type ListFilter struct {
	Box    Box
	Limit  int
	Offset int
}

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

// Repository is the Sealed Content Store. Every mutating method is a single
// transaction; conditional writes are evaluated by the store itself.
type Repository interface {
	// CreateLetter inserts the letter, its invite (if any) and a
	// letter.created event together.
	CreateLetter(ctx context.Context, l *Letter, inv *Invite) error
	GetLetter(ctx context.Context, id uuid.UUID) (*Letter, error)
	ListLetters(ctx context.Context, identity uuid.UUID, f ListFilter) ([]*Letter, error)
	SoftDeleteLetter(ctx context.Context, id, sender uuid.UUID, now time.Time) error
	// MarkOpened sets opened_at once. It returns the stored opened_at and
	// whether this call was the one that set it.
	MarkOpened(ctx context.Context, id uuid.UUID, now time.Time) (time.Time, bool, error)

	GetInviteState(ctx context.Context, token string) (*InviteState, error)
	GetInviteForLetter(ctx context.Context, letterID uuid.UUID) (*Invite, error)
	// ClaimInvite is the compare-and-set: it succeeds only if the invite is
	// unclaimed, its letter is not deleted and claimer is not the sender.
	// Otherwise it returns ErrPrecondition and writes nothing.
	ClaimInvite(ctx context.Context, token string, claimer uuid.UUID, now time.Time) (*Invite, error)
	// BindRecipient sets the recipient of an invite letter to the identity
	// that claimed its invite. Repeating it is a no-op; any other identity
	// gets ErrPrecondition.
	BindRecipient(ctx context.Context, letterID, recipient uuid.UUID) error

	// CreateConnection inserts or ignores; it reports whether a row was added.
	CreateConnection(ctx context.Context, c *Connection) (bool, error)
	ListConnections(ctx context.Context, identity uuid.UUID) ([]*Connection, error)

	CreateReply(ctx context.Context, r *Reply) error
	GetReply(ctx context.Context, letterID uuid.UUID) (*Reply, error)
	MarkReplyViewed(ctx context.Context, letterID uuid.UUID, role ViewerRole, now time.Time) (*Reply, error)

	SetReflection(ctx context.Context, letterID uuid.UUID, answer ReflectionAnswer, now time.Time) error
}
