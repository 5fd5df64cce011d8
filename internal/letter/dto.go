package letter

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Commands travel from handlers to the service, views travel back.

type RecipientTarget struct {
	Kind RecipientKind
	ID   uuid.UUID // only for RecipientUser
}

type CreateLetterCommand struct {
	Sender    uuid.UUID
	Recipient RecipientTarget
	Title     string
	Content   string
	UnlockAt  time.Time
	Anonymous bool

	Attachment io.Reader // optional
}

type CreateLetterResult struct {
	LetterID    uuid.UUID `json:"letter_id"`
	InviteToken string    `json:"invite_token,omitempty"`
}

type InvitePreview struct {
	UnlockAt time.Time `json:"unlock_at"`
	Claimed  bool      `json:"claimed"`
}

type ClaimResult struct {
	LetterID       uuid.UUID  `json:"letter_id"`
	Visibility     Visibility `json:"visibility"`
	EffectsApplied bool       `json:"-"`
}

type OpenResult struct {
	LetterID      uuid.UUID  `json:"letter_id"`
	Content       string     `json:"content"`
	OpenedAt      *time.Time `json:"opened_at"`
	AttachmentURL string     `json:"attachment_url,omitempty"`
}

type AddReplyCommand struct {
	LetterID uuid.UUID
	Actor    uuid.UUID
	Text     string
	Emoji    string
}

// LetterView is what a caller may see of a letter. Content is nil unless the
// caller may read it.
type LetterView struct {
	ID            uuid.UUID     `json:"id"`
	SenderID      *uuid.UUID    `json:"sender_id,omitempty"`
	RecipientKind RecipientKind `json:"recipient_kind"`
	RecipientID   *uuid.UUID    `json:"recipient_id,omitempty"`
	Title         *string       `json:"title,omitempty"`
	Anonymous     bool          `json:"anonymous"`
	UnlockAt      time.Time     `json:"unlock_at"`
	CreatedAt     time.Time     `json:"created_at"`
	OpenedAt      *time.Time    `json:"opened_at,omitempty"`
	Visibility    Visibility    `json:"visibility"`

	Content       *string `json:"content,omitempty"`
	HasAttachment bool    `json:"has_attachment"`
	AttachmentURL string  `json:"attachment_url,omitempty"`

	InviteToken      string            `json:"invite_token,omitempty"`
	ReflectionAnswer *ReflectionAnswer `json:"reflection_answer,omitempty"`
}

type ReplyView struct {
	ID                uuid.UUID  `json:"id"`
	LetterID          uuid.UUID  `json:"letter_id"`
	Text              string     `json:"text"`
	Emoji             string     `json:"emoji"`
	CreatedAt         time.Time  `json:"created_at"`
	RecipientViewedAt *time.Time `json:"recipient_viewed_at,omitempty"`
	SenderViewedAt    *time.Time `json:"sender_viewed_at,omitempty"`
}

func newReplyView(r *Reply) *ReplyView {
	return &ReplyView{
		ID:                r.ID,
		LetterID:          r.LetterID,
		Text:              r.Text,
		Emoji:             r.Emoji,
		CreatedAt:         r.CreatedAt,
		RecipientViewedAt: r.RecipientViewedAt,
		SenderViewedAt:    r.SenderViewedAt,
	}
}
