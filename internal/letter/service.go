package letter

import (
	"context"
	"io"
	"time"

	"github.com/mnhsh/letterbox/internal/logger"
)

// AttachmentStore keeps letter attachments outside the database.
type AttachmentStore interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Service implements the letter protocol. It holds no per-request state;
// everything shared lives in the Repository.
type Service struct {
	repo        Repository
	attachments AttachmentStore
	clock       Clock
	logger      *logger.Logger
	newToken    func() (string, error)

	readRetries   int
	effectRetries int
	retryBackoff  time.Duration
	presignTTL    time.Duration
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithAttachments(a AttachmentStore, ttl time.Duration) Option {
	return func(s *Service) {
		s.attachments = a
		s.presignTTL = ttl
	}
}

// WithRetries sets how many extra attempts read-only claim steps and
// idempotent side effects get after a transient failure.
func WithRetries(read, effect int) Option {
	return func(s *Service) {
		s.readRetries = read
		s.effectRetries = effect
	}
}

func WithRetryBackoff(d time.Duration) Option {
	return func(s *Service) { s.retryBackoff = d }
}

func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newToken = gen }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		clock:         SystemClock{},
		logger:        logger.Nop(),
		newToken:      NewToken,
		readRetries:   3,
		effectRetries: 3,
		retryBackoff:  10 * time.Millisecond,
		presignTTL:    15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now is truncated to the store's timestamp precision so values read back
// compare equal to values written.
func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}
