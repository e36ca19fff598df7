package certificate

import (
	"context"
	"errors"

	id "certnexus/pkg/domain"
)

// Store sentinels. Postgres and memory stores translate backend-specific
// failures into these so the service layer never inspects driver errors.
var (
	// ErrEventUnavailable means the event does not exist or is archived.
	ErrEventUnavailable = errors.New("event not found or archived")
	// ErrNoActiveTemplate means no non-archived template exists for the event.
	ErrNoActiveTemplate = errors.New("no active certificate template for event")
	// ErrNotFound is a generic lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateCertificate means a certificate already exists for the
	// (user, event) pair. Expected under concurrent batch runs.
	ErrDuplicateCertificate = errors.New("certificate already exists for user and event")
	// ErrCodeConflict means the verification code is already taken.
	// Astronomically rare; the orchestrator regenerates and retries.
	ErrCodeConflict = errors.New("verification code already in use")
)

// Store is the repository contract the engine consumes. One implementation
// per backend; the engine never sees SQL.
type Store interface {
	// FindEligible returns the snapshot of participants eligible for
	// generation: registered, event active, checked in or evaluated, and not
	// yet certified. Single coherent read; ordered by user ID ascending.
	// Returns ErrEventUnavailable when the event is missing or archived.
	FindEligible(ctx context.Context, eventID id.EventID) (EligibleSet, error)

	// ActiveTemplate returns the non-archived template for the event, or
	// ErrNoActiveTemplate.
	ActiveTemplate(ctx context.Context, eventID id.EventID) (Template, error)

	// UpsertTemplate replaces the event's template in place, clearing the
	// archived flag. Returns ErrEventUnavailable when the event is missing
	// or archived.
	UpsertTemplate(ctx context.Context, tmpl Template) (Template, error)

	// ArchiveTemplate soft-deletes the event's template.
	ArchiveTemplate(ctx context.Context, eventID id.EventID) error

	// InsertCertificate persists a new certificate. Translates uniqueness
	// violations into ErrDuplicateCertificate or ErrCodeConflict. Joins the
	// transaction in ctx when present.
	InsertCertificate(ctx context.Context, cert Certificate) (Certificate, error)

	// CertificateByCode looks up a certificate with its recipient name and
	// event title for public verification. Returns ErrNotFound on miss.
	CertificateByCode(ctx context.Context, code string) (VerifiedCertificate, error)

	// CertificateForUser returns a certificate only when owned by userID.
	CertificateForUser(ctx context.Context, certID id.CertificateID, userID id.UserID) (Certificate, error)

	// CertificatesByEvent lists all certificates issued for an event.
	CertificatesByEvent(ctx context.Context, eventID id.EventID) ([]Certificate, error)

	// EventTitle returns the title of an event regardless of archived state.
	// Returns ErrNotFound when the event does not exist.
	EventTitle(ctx context.Context, eventID id.EventID) (string, error)
}
