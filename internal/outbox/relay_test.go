package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnhsh/letterbox/internal/letter"
	"github.com/mnhsh/letterbox/internal/logger"
	"github.com/mnhsh/letterbox/internal/memstore"
)

type fakePublisher struct {
	mu   sync.Mutex
	fail bool
	got  []letter.EventKind
}

func (p *fakePublisher) Publish(_ context.Context, e *letter.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.got = append(p.got, e.Kind)
	return nil
}

var start = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T, pub Publisher) (*Relay, *memstore.Store, *letter.Service) {
	t.Helper()
	store := memstore.New()
	clock := letter.NewManualClock(start)
	svc := letter.NewService(store, letter.WithClock(clock))
	relay := NewRelay(store, pub, svc, clock, logger.Nop(), Options{BatchSize: 10, MaxAttempts: 2})
	return relay, store, svc
}

func TestRunOnce_FinishesDeferredClaimEffects(t *testing.T) {
	pub := &fakePublisher{}
	relay, store, svc := setup(t, pub)
	ctx := context.Background()

	sender, claimer := uuid.New(), uuid.New()
	res, err := svc.CreateLetter(ctx, letter.CreateLetterCommand{
		Sender:    sender,
		Recipient: letter.RecipientTarget{Kind: letter.RecipientInvite},
		Content:   "later",
		UnlockAt:  start.Add(time.Hour),
	})
	require.NoError(t, err)

	// claim straight through the store, as if the service crashed right after
	_, err = store.ClaimInvite(ctx, res.InviteToken, claimer, start)
	require.NoError(t, err)
	assert.Zero(t, store.ConnectionCount())

	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []letter.EventKind{letter.EventLetterCreated, letter.EventInviteClaimed}, pub.got)

	l, err := store.GetLetter(ctx, res.LetterID)
	require.NoError(t, err)
	require.NotNil(t, l.RecipientID)
	assert.Equal(t, claimer, *l.RecipientID)
	assert.Equal(t, 1, store.ConnectionCount())

	for _, e := range store.Events() {
		assert.Equal(t, letter.EventProcessed, e.Status)
	}

	n, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunOnce_PublishFailureEndsDead(t *testing.T) {
	pub := &fakePublisher{fail: true}
	relay, store, svc := setup(t, pub)
	ctx := context.Background()

	_, err := svc.CreateLetter(ctx, letter.CreateLetterCommand{
		Sender:    uuid.New(),
		Recipient: letter.RecipientTarget{Kind: letter.RecipientSelf},
		Content:   "dear me",
		UnlockAt:  start.Add(time.Hour),
	})
	require.NoError(t, err)

	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, letter.EventPending, events[0].Status)
	require.NotNil(t, events[0].LastError)

	_, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, letter.EventDead, store.Events()[0].Status)

	pub.fail = false
	n, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "dead events stay dead")
}

func TestRun_StopsOnCancel(t *testing.T) {
	relay, _, _ := setup(t, &fakePublisher{})
	relay.opts.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
