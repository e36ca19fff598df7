// Package audit captures an append-only trail of certificate lifecycle
// actions. Events are written to a PostgreSQL outbox in the same transaction
// as the domain write and drained to Kafka by a background worker, so the
// trail never records a certificate that was rolled back.
package audit

import (
	"context"
	"time"

	id "certnexus/pkg/domain"
)

// Action names an audited operation.
type Action string

const (
	ActionCertificateIssued    Action = "certificate_issued"
	ActionGenerationFailed     Action = "certificate_generation_failed"
	ActionBulkCompleted        Action = "bulk_generation_completed"
	ActionTemplateUpserted     Action = "template_upserted"
	ActionTemplateArchived     Action = "template_archived"
	ActionCertificateVerified  Action = "certificate_verified"
	ActionVerificationRejected Action = "certificate_verification_rejected"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Action    Action
	Timestamp time.Time
	EventID   id.EventID
	UserID    id.UserID
	// Code is the verification code involved, when applicable.
	Code string
	// ActorID is the officer who triggered the operation; empty for public
	// verification events.
	ActorID string
	// Reason carries the failure reason for failure actions.
	Reason string
	// RequestID correlates the event with HTTP access logs.
	RequestID string
}

// Store persists events. Implementations must be safe for concurrent use:
// the batch orchestrator emits from several worker goroutines.
type Store interface {
	Append(ctx context.Context, event Event) error
}
