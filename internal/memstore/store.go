// Package memstore is an in-process Sealed Content Store. A single mutex
// serializes every operation, which gives each method the same
// all-or-nothing behavior the PostgreSQL store gets from transactions.
package memstore

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mnhsh/letterbox/internal/letter"
)

type Store struct {
	mu          sync.Mutex
	letters     map[uuid.UUID]*letter.Letter
	invites     map[string]*letter.Invite // by token
	inviteOf    map[uuid.UUID]string      // letter id -> token
	replies     map[uuid.UUID]*letter.Reply
	connections map[[2]uuid.UUID]*letter.Connection
	events      []*letter.Event

	calls atomic.Int64
}

var _ letter.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		letters:     make(map[uuid.UUID]*letter.Letter),
		invites:     make(map[string]*letter.Invite),
		inviteOf:    make(map[uuid.UUID]string),
		replies:     make(map[uuid.UUID]*letter.Reply),
		connections: make(map[[2]uuid.UUID]*letter.Connection),
	}
}

// Calls reports how many store operations have been invoked.
func (s *Store) Calls() int64 { return s.calls.Load() }

func (s *Store) lock() func() {
	s.calls.Add(1)
	s.mu.Lock()
	return s.mu.Unlock
}

func copyLetter(l *letter.Letter) *letter.Letter {
	c := *l
	return &c
}

func (s *Store) CreateLetter(ctx context.Context, l *letter.Letter, inv *letter.Invite) error {
	defer s.lock()()

	if _, ok := s.letters[l.ID]; ok {
		return letter.ErrDuplicate
	}
	if inv != nil {
		if _, ok := s.invites[inv.Token]; ok {
			return letter.ErrDuplicate
		}
		if _, ok := s.inviteOf[inv.LetterID]; ok {
			return letter.ErrDuplicate
		}
		c := *inv
		s.invites[inv.Token] = &c
		s.inviteOf[inv.LetterID] = inv.Token
	}
	s.letters[l.ID] = copyLetter(l)
	s.events = append(s.events, letter.NewEvent(letter.EventLetterCreated, letter.EventPayload{
		LetterID: l.ID,
		SenderID: l.SenderID,
		UnlockAt: l.UnlockAt,
	}, l.CreatedAt))
	return nil
}

func (s *Store) GetLetter(ctx context.Context, id uuid.UUID) (*letter.Letter, error) {
	defer s.lock()()

	l, ok := s.letters[id]
	if !ok {
		return nil, letter.ErrNoRecord
	}
	return copyLetter(l), nil
}

func (s *Store) ListLetters(ctx context.Context, identity uuid.UUID, f letter.ListFilter) ([]*letter.Letter, error) {
	defer s.lock()()

	var out []*letter.Letter
	for _, l := range s.letters {
		if l.IsDeleted() {
			continue
		}
		var match bool
		switch f.Box {
		case letter.BoxReceived:
			match = !l.IsSelf() && l.IsBoundRecipient(identity)
		case letter.BoxSent:
			match = !l.IsSelf() && l.SenderID == identity
		case letter.BoxSelf:
			match = l.IsSelf() && l.SenderID == identity
		}
		if match {
			out = append(out, copyLetter(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Offset >= len(out) {
		return []*letter.Letter{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) SoftDeleteLetter(ctx context.Context, id, sender uuid.UUID, now time.Time) error {
	defer s.lock()()

	l, ok := s.letters[id]
	if !ok || l.IsDeleted() || l.SenderID != sender || l.IsSelf() {
		return letter.ErrNoRecord
	}
	l.DeletedAt = &now
	return nil
}

func (s *Store) MarkOpened(ctx context.Context, id uuid.UUID, now time.Time) (time.Time, bool, error) {
	defer s.lock()()

	l, ok := s.letters[id]
	if !ok || l.IsDeleted() {
		return time.Time{}, false, letter.ErrNoRecord
	}
	if l.OpenedAt != nil {
		return *l.OpenedAt, false, nil
	}
	if now.Before(l.UnlockAt) {
		return time.Time{}, false, letter.ErrPrecondition
	}
	l.OpenedAt = &now
	actor := l.RecipientID
	s.events = append(s.events, letter.NewEvent(letter.EventLetterOpened, letter.EventPayload{
		LetterID: l.ID,
		SenderID: l.SenderID,
		ActorID:  actor,
		UnlockAt: l.UnlockAt,
	}, now))
	return now, true, nil
}

func (s *Store) GetInviteState(ctx context.Context, token string) (*letter.InviteState, error) {
	defer s.lock()()

	inv, ok := s.invites[token]
	if !ok {
		return nil, letter.ErrNoRecord
	}
	l := s.letters[inv.LetterID]
	return &letter.InviteState{
		Invite:        *inv,
		SenderID:      l.SenderID,
		UnlockAt:      l.UnlockAt,
		LetterDeleted: l.IsDeleted(),
	}, nil
}

func (s *Store) GetInviteForLetter(ctx context.Context, letterID uuid.UUID) (*letter.Invite, error) {
	defer s.lock()()

	token, ok := s.inviteOf[letterID]
	if !ok {
		return nil, letter.ErrNoRecord
	}
	c := *s.invites[token]
	return &c, nil
}

func (s *Store) ClaimInvite(ctx context.Context, token string, claimer uuid.UUID, now time.Time) (*letter.Invite, error) {
	defer s.lock()()

	inv, ok := s.invites[token]
	if !ok || inv.IsClaimed() {
		return nil, letter.ErrPrecondition
	}
	l := s.letters[inv.LetterID]
	if l.IsDeleted() || l.SenderID == claimer {
		return nil, letter.ErrPrecondition
	}

	inv.ClaimedAt = &now
	inv.ClaimedBy = &claimer
	s.events = append(s.events, letter.NewEvent(letter.EventInviteClaimed, letter.EventPayload{
		LetterID: l.ID,
		SenderID: l.SenderID,
		ActorID:  &claimer,
		UnlockAt: l.UnlockAt,
	}, now))

	c := *inv
	return &c, nil
}

func (s *Store) BindRecipient(ctx context.Context, letterID, recipient uuid.UUID) error {
	defer s.lock()()

	l, ok := s.letters[letterID]
	if !ok {
		return letter.ErrNoRecord
	}
	token, ok := s.inviteOf[letterID]
	if !ok {
		return letter.ErrPrecondition
	}
	inv := s.invites[token]
	if inv.ClaimedBy == nil || *inv.ClaimedBy != recipient {
		return letter.ErrPrecondition
	}
	if l.RecipientID != nil {
		if *l.RecipientID == recipient {
			return nil
		}
		return letter.ErrPrecondition
	}
	r := recipient
	l.RecipientID = &r
	return nil
}

func (s *Store) CreateConnection(ctx context.Context, c *letter.Connection) (bool, error) {
	defer s.lock()()

	key := [2]uuid.UUID{c.UserLow, c.UserHigh}
	if _, ok := s.connections[key]; ok {
		return false, nil
	}
	cp := *c
	s.connections[key] = &cp
	return true, nil
}

func (s *Store) ListConnections(ctx context.Context, identity uuid.UUID) ([]*letter.Connection, error) {
	defer s.lock()()

	var out []*letter.Connection
	for _, c := range s.connections {
		if c.UserLow == identity || c.UserHigh == identity {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ConnectionCount is used by tests to check pair uniqueness.
func (s *Store) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

func (s *Store) CreateReply(ctx context.Context, r *letter.Reply) error {
	defer s.lock()()

	if _, ok := s.replies[r.LetterID]; ok {
		return letter.ErrDuplicate
	}
	l := s.letters[r.LetterID]
	cp := *r
	s.replies[r.LetterID] = &cp
	author := r.AuthorID
	s.events = append(s.events, letter.NewEvent(letter.EventReplyCreated, letter.EventPayload{
		LetterID: r.LetterID,
		SenderID: l.SenderID,
		ActorID:  &author,
		UnlockAt: l.UnlockAt,
	}, r.CreatedAt))
	return nil
}

func (s *Store) GetReply(ctx context.Context, letterID uuid.UUID) (*letter.Reply, error) {
	defer s.lock()()

	r, ok := s.replies[letterID]
	if !ok {
		return nil, letter.ErrNoRecord
	}
	cp := *r
	return &cp, nil
}

func (s *Store) MarkReplyViewed(ctx context.Context, letterID uuid.UUID, role letter.ViewerRole, now time.Time) (*letter.Reply, error) {
	defer s.lock()()

	r, ok := s.replies[letterID]
	if !ok {
		return nil, letter.ErrNoRecord
	}
	switch role {
	case letter.ViewerSender:
		if r.SenderViewedAt == nil {
			r.SenderViewedAt = &now
		}
	case letter.ViewerRecipient:
		if r.RecipientViewedAt == nil {
			r.RecipientViewedAt = &now
		}
	}
	cp := *r
	return &cp, nil
}

func (s *Store) SetReflection(ctx context.Context, letterID uuid.UUID, answer letter.ReflectionAnswer, now time.Time) error {
	defer s.lock()()

	l, ok := s.letters[letterID]
	if !ok || l.IsDeleted() {
		return letter.ErrNoRecord
	}
	if !l.IsSelf() || l.OpenedAt == nil || l.ReflectionAnswer != nil {
		return letter.ErrPrecondition
	}
	a := answer
	l.ReflectionAnswer = &a
	l.ReflectionAt = &now
	return nil
}
