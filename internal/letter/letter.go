package letter

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RecipientKind string

const (
	// RecipientUser is an identity known when the letter is written.
	RecipientUser RecipientKind = "user"
	// RecipientInvite is a placeholder bound later by claiming the invite.
	RecipientInvite RecipientKind = "invite"
	// RecipientSelf marks a letter sealed for the sender's future self.
	RecipientSelf RecipientKind = "self"
)

type Letter struct {
	bun.BaseModel `bun:"table:letters,alias:l"`

	ID            uuid.UUID     `bun:",pk,type:uuid"`
	SenderID      uuid.UUID     `bun:",notnull,type:uuid"`
	RecipientKind RecipientKind `bun:",notnull"`
	RecipientID   *uuid.UUID    `bun:",type:uuid,nullzero"` // nil while an invite is unclaimed

	Title         *string `bun:",nullzero"`
	Content       string  `bun:",notnull"`
	AttachmentKey *string `bun:",nullzero"`
	Anonymous     bool    `bun:",notnull"`

	UnlockAt  time.Time  `bun:",notnull"`
	CreatedAt time.Time  `bun:",notnull"`
	OpenedAt  *time.Time `bun:",nullzero"`
	DeletedAt *time.Time `bun:",nullzero"`

	// Self letters only
	ReflectionAnswer *ReflectionAnswer `bun:",nullzero"`
	ReflectionAt     *time.Time        `bun:",nullzero"`
}

func (l *Letter) IsSelf() bool { return l.RecipientKind == RecipientSelf }

func (l *Letter) IsDeleted() bool { return l.DeletedAt != nil }

func (l *Letter) IsSender(id uuid.UUID) bool { return l.SenderID == id }

// IsBoundRecipient reports whether id is the letter's bound recipient. An
// unclaimed invite letter has no bound recipient.
func (l *Letter) IsBoundRecipient(id uuid.UUID) bool {
	return l.RecipientID != nil && *l.RecipientID == id
}

type Invite struct {
	bun.BaseModel `bun:"table:invites,alias:i"`

	Token     string     `bun:",pk"`
	LetterID  uuid.UUID  `bun:",notnull,unique,type:uuid"`
	CreatedAt time.Time  `bun:",notnull"`
	ClaimedAt *time.Time `bun:",nullzero"`
	ClaimedBy *uuid.UUID `bun:",type:uuid,nullzero"`
}

func (i *Invite) IsClaimed() bool { return i.ClaimedAt != nil }

// InviteState is the invite plus the parent letter fields the claim and
// preview paths need.
type InviteState struct {
	Invite        Invite
	SenderID      uuid.UUID
	UnlockAt      time.Time
	LetterDeleted bool
}

type Reply struct {
	bun.BaseModel `bun:"table:replies,alias:r"`

	ID       uuid.UUID `bun:",pk,type:uuid"`
	LetterID uuid.UUID `bun:",notnull,unique,type:uuid"`
	AuthorID uuid.UUID `bun:",notnull,type:uuid"`
	Text     string    `bun:",notnull"`
	Emoji    string    `bun:",notnull"`

	CreatedAt         time.Time  `bun:",notnull"`
	RecipientViewedAt *time.Time `bun:",nullzero"`
	SenderViewedAt    *time.Time `bun:",nullzero"`
}

type ViewerRole string

const (
	ViewerSender    ViewerRole = "sender"
	ViewerRecipient ViewerRole = "recipient"
)

// Connection stores an unordered pair with UserLow < UserHigh.
type Connection struct {
	bun.BaseModel `bun:"table:connections,alias:c"`

	UserLow   uuid.UUID `bun:",pk,type:uuid"`
	UserHigh  uuid.UUID `bun:",pk,type:uuid"`
	CreatedAt time.Time `bun:",notnull"`
}

// Other returns the member of the pair that is not id.
func (c *Connection) Other(id uuid.UUID) uuid.UUID {
	if c.UserLow == id {
		return c.UserHigh
	}
	return c.UserLow
}

type ReflectionAnswer string

const (
	ReflectionYes     ReflectionAnswer = "yes"
	ReflectionNo      ReflectionAnswer = "no"
	ReflectionSkipped ReflectionAnswer = "skipped"
)

func (a ReflectionAnswer) Valid() bool {
	switch a {
	case ReflectionYes, ReflectionNo, ReflectionSkipped:
		return true
	}
	return false
}

// ReplyEmojis is the closed set a reply may carry.
var ReplyEmojis = []string{"❤️", "😂", "😢", "🥹", "🙏", "✨"}

func validEmoji(e string) bool {
	for _, allowed := range ReplyEmojis {
		if e == allowed {
			return true
		}
	}
	return false
}

type EventKind string

const (
	EventLetterCreated EventKind = "letter.created"
	EventInviteClaimed EventKind = "invite.claimed"
	EventLetterOpened  EventKind = "letter.opened"
	EventReplyCreated  EventKind = "reply.created"
)

type EventStatus string

const (
	EventPending    EventStatus = "pending"
	EventProcessing EventStatus = "processing"
	EventProcessed  EventStatus = "processed"
	EventDead       EventStatus = "dead"
)

// Event is an outbox row written in the same transaction as the change it
// describes.
type Event struct {
	bun.BaseModel `bun:"table:outbox_events,alias:e"`

	ID          uuid.UUID   `bun:",pk,type:uuid"`
	Kind        EventKind   `bun:",notnull"`
	Payload     string      `bun:",type:jsonb,notnull"`
	Status      EventStatus `bun:",notnull"`
	Attempts    int         `bun:",notnull"`
	LastError   *string     `bun:",nullzero"`
	CreatedAt   time.Time   `bun:",notnull"`
	LockedUntil *time.Time  `bun:",nullzero"`
	ProcessedAt *time.Time  `bun:",nullzero"`
}

type EventPayload struct {
	LetterID uuid.UUID  `json:"letter_id"`
	SenderID uuid.UUID  `json:"sender_id"`
	ActorID  *uuid.UUID `json:"actor_id,omitempty"`
	UnlockAt time.Time  `json:"unlock_at"`
}

func NewEvent(kind EventKind, p EventPayload, now time.Time) *Event {
	// uuid and time values always marshal
	body, _ := json.Marshal(p)
	return &Event{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   string(body),
		Status:    EventPending,
		CreatedAt: now,
	}
}

func (e *Event) DecodePayload() (EventPayload, error) {
	var p EventPayload
	err := json.Unmarshal([]byte(e.Payload), &p)
	return p, err
}
