package database

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/mnhsh/letterbox/internal/apperr"
	"github.com/mnhsh/letterbox/internal/letter"
)

var testDB *bun.DB

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("letterbox"),
		postgres.WithUsername("letterbox"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		log.Printf("postgres container unavailable, skipping database tests: %v", err)
		return m.Run()
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Printf("failed to get connection string: %v", err)
		return 1
	}

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Printf("failed to open db: %v", err)
		return 1
	}
	testDB = bun.NewDB(sqlDB, pgdialect.New())
	defer testDB.Close()

	if err := testDB.PingContext(ctx); err != nil {
		log.Printf("failed to ping db: %v", err)
		return 1
	}
	if err := Migrate(ctx, testDB); err != nil {
		log.Printf("failed to migrate: %v", err)
		return 1
	}
	// twice, to prove it is idempotent
	if err := Migrate(ctx, testDB); err != nil {
		log.Printf("failed to re-run migration: %v", err)
		return 1
	}

	return m.Run()
}

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres is not available")
	}
	return NewStore(testDB)
}

var base = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func newInviteLetter(t *testing.T, s *SQLStore, sender uuid.UUID, unlockAt time.Time) (*letter.Letter, *letter.Invite) {
	t.Helper()
	tok, err := letter.NewToken()
	require.NoError(t, err)

	l := &letter.Letter{
		ID:            uuid.New(),
		SenderID:      sender,
		RecipientKind: letter.RecipientInvite,
		Content:       "see you in a year",
		UnlockAt:      unlockAt,
		CreatedAt:     base,
	}
	inv := &letter.Invite{Token: tok, LetterID: l.ID, CreatedAt: base}
	require.NoError(t, s.CreateLetter(context.Background(), l, inv))
	return l, inv
}

func TestSQLStore_CreateAndGetLetter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sender := uuid.New()
	l, inv := newInviteLetter(t, s, sender, base.Add(time.Hour))

	got, err := s.GetLetter(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, sender, got.SenderID)
	assert.Equal(t, letter.RecipientInvite, got.RecipientKind)
	assert.Nil(t, got.RecipientID)
	assert.True(t, l.UnlockAt.Equal(got.UnlockAt))

	byLetter, err := s.GetInviteForLetter(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Token, byLetter.Token)

	_, err = s.GetLetter(ctx, uuid.New())
	assert.ErrorIs(t, err, letter.ErrNoRecord)

	dup := &letter.Letter{ID: uuid.New(), SenderID: sender, RecipientKind: letter.RecipientInvite, Content: "x", UnlockAt: base.Add(time.Hour), CreatedAt: base}
	err = s.CreateLetter(ctx, dup, &letter.Invite{Token: inv.Token, LetterID: dup.ID, CreatedAt: base})
	assert.ErrorIs(t, err, letter.ErrDuplicate)
	_, err = s.GetLetter(ctx, dup.ID)
	assert.ErrorIs(t, err, letter.ErrNoRecord, "failed create leaves nothing behind")
}

func TestSQLStore_ClaimInvite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sender := uuid.New()
	l, inv := newInviteLetter(t, s, sender, base.Add(time.Hour))

	_, err := s.ClaimInvite(ctx, inv.Token, sender, base)
	assert.ErrorIs(t, err, letter.ErrPrecondition)

	claimer := uuid.New()
	got, err := s.ClaimInvite(ctx, inv.Token, claimer, base)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.LetterID)
	assert.Equal(t, claimer, *got.ClaimedBy)

	_, err = s.ClaimInvite(ctx, inv.Token, uuid.New(), base)
	assert.ErrorIs(t, err, letter.ErrPrecondition)

	st, err := s.GetInviteState(ctx, inv.Token)
	require.NoError(t, err)
	assert.True(t, st.Invite.IsClaimed())
	assert.False(t, st.LetterDeleted)
	assert.Equal(t, sender, st.SenderID)

	assert.ErrorIs(t, s.BindRecipient(ctx, l.ID, uuid.New()), letter.ErrPrecondition)
	require.NoError(t, s.BindRecipient(ctx, l.ID, claimer))
	require.NoError(t, s.BindRecipient(ctx, l.ID, claimer))
}

func TestSQLStore_ConcurrentClaims(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, inv := newInviteLetter(t, s, uuid.New(), base.Add(time.Hour))

	const n = 32
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		start = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.ClaimInvite(ctx, inv.Token, uuid.New(), base)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			assert.ErrorIs(t, err, letter.ErrPrecondition)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestSQLStore_DeletedLetterCannotBeClaimed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sender := uuid.New()
	l, inv := newInviteLetter(t, s, sender, base.Add(time.Hour))

	assert.ErrorIs(t, s.SoftDeleteLetter(ctx, l.ID, uuid.New(), base), letter.ErrNoRecord)
	require.NoError(t, s.SoftDeleteLetter(ctx, l.ID, sender, base))

	_, err := s.ClaimInvite(ctx, inv.Token, uuid.New(), base)
	assert.ErrorIs(t, err, letter.ErrPrecondition)

	st, err := s.GetInviteState(ctx, inv.Token)
	require.NoError(t, err)
	assert.True(t, st.LetterDeleted)
}

func TestSQLStore_WinnerCannotReclaimDeletedLetter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	svc := letter.NewService(s,
		letter.WithClock(letter.NewManualClock(base)),
		letter.WithRetryBackoff(time.Microsecond),
	)
	sender, claimer := uuid.New(), uuid.New()
	l, inv := newInviteLetter(t, s, sender, base.Add(time.Hour))

	res, err := svc.ClaimInvite(ctx, inv.Token, claimer)
	require.NoError(t, err)
	assert.Equal(t, l.ID, res.LetterID)

	require.NoError(t, svc.DeleteLetter(ctx, l.ID, sender))

	_, err = svc.ClaimInvite(ctx, inv.Token, claimer)
	assert.ErrorIs(t, err, apperr.ErrLetterGone)
}

func TestSQLStore_MarkOpened(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	l, _ := newInviteLetter(t, s, uuid.New(), base.Add(time.Hour))

	_, _, err := s.MarkOpened(ctx, l.ID, base)
	assert.ErrorIs(t, err, letter.ErrPrecondition)

	t1 := base.Add(time.Hour)
	at, first, err := s.MarkOpened(ctx, l.ID, t1)
	require.NoError(t, err)
	assert.True(t, first)
	assert.True(t, t1.Equal(at))

	at, first, err = s.MarkOpened(ctx, l.ID, t1.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, first)
	assert.True(t, t1.Equal(at))

	_, _, err = s.MarkOpened(ctx, uuid.New(), t1)
	assert.ErrorIs(t, err, letter.ErrNoRecord)
}

func TestSQLStore_RepliesAndReflections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := uuid.New()
	self := &letter.Letter{
		ID:            uuid.New(),
		SenderID:      owner,
		RecipientKind: letter.RecipientSelf,
		RecipientID:   &owner,
		Content:       "dear me",
		UnlockAt:      base,
		CreatedAt:     base.Add(-time.Hour),
	}
	require.NoError(t, s.CreateLetter(ctx, self, nil))

	assert.ErrorIs(t, s.SetReflection(ctx, self.ID, letter.ReflectionYes, base), letter.ErrPrecondition, "not opened")
	_, _, err := s.MarkOpened(ctx, self.ID, base)
	require.NoError(t, err)
	require.NoError(t, s.SetReflection(ctx, self.ID, letter.ReflectionYes, base))
	assert.ErrorIs(t, s.SetReflection(ctx, self.ID, letter.ReflectionNo, base), letter.ErrPrecondition)

	sender, recipient := uuid.New(), uuid.New()
	l := &letter.Letter{
		ID:            uuid.New(),
		SenderID:      sender,
		RecipientKind: letter.RecipientUser,
		RecipientID:   &recipient,
		Content:       "hi",
		UnlockAt:      base,
		CreatedAt:     base.Add(-time.Hour),
	}
	require.NoError(t, s.CreateLetter(ctx, l, nil))

	r := &letter.Reply{ID: uuid.New(), LetterID: l.ID, AuthorID: recipient, Text: "thanks", Emoji: "🙏", CreatedAt: base}
	require.NoError(t, s.CreateReply(ctx, r))
	again := &letter.Reply{ID: uuid.New(), LetterID: l.ID, AuthorID: recipient, Text: "again", Emoji: "🙏", CreatedAt: base}
	assert.ErrorIs(t, s.CreateReply(ctx, again), letter.ErrDuplicate)

	got, err := s.GetReply(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "thanks", got.Text)

	viewed, err := s.MarkReplyViewed(ctx, l.ID, letter.ViewerSender, base)
	require.NoError(t, err)
	require.NotNil(t, viewed.SenderViewedAt)
	viewed, err = s.MarkReplyViewed(ctx, l.ID, letter.ViewerSender, base.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, base.Equal(*viewed.SenderViewedAt))
	assert.Nil(t, viewed.RecipientViewedAt)

	received, err := s.ListLetters(ctx, recipient, letter.ListFilter{Box: letter.BoxReceived, Limit: 10})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, l.ID, received[0].ID)

	mine, err := s.ListLetters(ctx, owner, letter.ListFilter{Box: letter.BoxSelf, Limit: 10})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].ReflectionAnswer)
	assert.Equal(t, letter.ReflectionYes, *mine[0].ReflectionAnswer)
}

func TestSQLStore_Connections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	low, high := letter.NormalizePair(uuid.New(), uuid.New())

	added, err := s.CreateConnection(ctx, &letter.Connection{UserLow: low, UserHigh: high, CreatedAt: base})
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.CreateConnection(ctx, &letter.Connection{UserLow: low, UserHigh: high, CreatedAt: base})
	require.NoError(t, err)
	assert.False(t, added)

	conns, err := s.ListConnections(ctx, high)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, low, conns[0].Other(high))
}

func TestSQLStore_OutboxLease(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := testDB.ExecContext(ctx, `DELETE FROM outbox_events`)
	require.NoError(t, err)

	newInviteLetter(t, s, uuid.New(), base.Add(time.Hour))

	leased, err := s.LeaseEvents(ctx, base, time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, leased, 1)
	assert.Equal(t, letter.EventLetterCreated, leased[0].Kind)
	assert.Equal(t, 1, leased[0].Attempts)
	p, err := leased[0].DecodePayload()
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.LetterID)

	none, err := s.LeaseEvents(ctx, base, time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, s.MarkEventFailed(ctx, leased[0].ID, strings.Repeat("x", 8), 1))
	none, err = s.LeaseEvents(ctx, base.Add(time.Hour), time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, none, "dead events are not leased")
}
