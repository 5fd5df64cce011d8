package database

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS letters (
		id                uuid PRIMARY KEY,
		sender_id         uuid NOT NULL,
		recipient_kind    text NOT NULL CHECK (recipient_kind IN ('user', 'invite', 'self')),
		recipient_id      uuid,
		title             text,
		content           text NOT NULL,
		attachment_key    text,
		anonymous         boolean NOT NULL DEFAULT false,
		unlock_at         timestamptz NOT NULL,
		created_at        timestamptz NOT NULL,
		opened_at         timestamptz,
		deleted_at        timestamptz,
		reflection_answer text CHECK (reflection_answer IN ('yes', 'no', 'skipped')),
		reflection_at     timestamptz,
		CHECK (opened_at IS NULL OR opened_at >= unlock_at),
		CHECK (recipient_kind <> 'self' OR recipient_id = sender_id),
		CHECK ((reflection_answer IS NULL) = (reflection_at IS NULL)),
		CHECK (reflection_answer IS NULL OR (recipient_kind = 'self' AND opened_at IS NOT NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS letters_recipient_idx ON letters (recipient_id, created_at DESC) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS letters_sender_idx ON letters (sender_id, created_at DESC) WHERE deleted_at IS NULL`,

	// token is the primary key: the public preview/claim path is a single
	// index probe.
	`CREATE TABLE IF NOT EXISTS invites (
		token      text PRIMARY KEY CHECK (char_length(token) >= 32),
		letter_id  uuid NOT NULL UNIQUE REFERENCES letters (id),
		created_at timestamptz NOT NULL,
		claimed_at timestamptz,
		claimed_by uuid,
		CHECK ((claimed_at IS NULL) = (claimed_by IS NULL))
	)`,

	`CREATE TABLE IF NOT EXISTS replies (
		id                  uuid PRIMARY KEY,
		letter_id           uuid NOT NULL UNIQUE REFERENCES letters (id),
		author_id           uuid NOT NULL,
		text                text NOT NULL,
		emoji               text NOT NULL,
		created_at          timestamptz NOT NULL,
		recipient_viewed_at timestamptz,
		sender_viewed_at    timestamptz
	)`,

	`CREATE TABLE IF NOT EXISTS connections (
		user_low   uuid NOT NULL,
		user_high  uuid NOT NULL,
		created_at timestamptz NOT NULL,
		PRIMARY KEY (user_low, user_high),
		CHECK (user_low < user_high)
	)`,
	`CREATE INDEX IF NOT EXISTS connections_high_idx ON connections (user_high)`,

	`CREATE TABLE IF NOT EXISTS outbox_events (
		id           uuid PRIMARY KEY,
		kind         text NOT NULL,
		payload      jsonb NOT NULL,
		status       text NOT NULL DEFAULT 'pending',
		attempts     integer NOT NULL DEFAULT 0,
		last_error   text,
		created_at   timestamptz NOT NULL,
		locked_until timestamptz,
		processed_at timestamptz
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_events_open_idx ON outbox_events (created_at) WHERE status IN ('pending', 'processing')`,
}

func Migrate(ctx context.Context, db bun.IDB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "database.Migrate")
		}
	}
	return nil
}
