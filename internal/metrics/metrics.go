package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "letterbox_invite_claims_total",
		Help: "Invite claim attempts by outcome.",
	}, []string{"outcome"})

	ClaimEffectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "letterbox_claim_effects_total",
		Help: "Recipient binding and connection side effects by result.",
	}, []string{"result"})

	OpensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "letterbox_letter_opens_total",
		Help: "Open requests by outcome.",
	}, []string{"outcome"})

	LettersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "letterbox_letters_created_total",
		Help: "Letters sealed, by recipient kind.",
	}, []string{"recipient_kind"})

	RepliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "letterbox_responses_total",
		Help: "Replies and reflections by kind and outcome.",
	}, []string{"kind", "outcome"})

	ConnectionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "letterbox_connections_created_total",
		Help: "Connection rows actually inserted.",
	})

	OutboxPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "letterbox_outbox_events_total",
		Help: "Outbox events handled by the relay, by kind and result.",
	}, []string{"kind", "result"})
)
