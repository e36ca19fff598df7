// Package certificate holds the domain model for issuing and verifying
// participation certificates.
package certificate

import (
	"time"

	id "certnexus/pkg/domain"
)

// Template configures how names are placed on an event's certificate image.
// At most one active (non-archived) template exists per event.
type Template struct {
	ID          int64
	EventID     id.EventID
	TemplateURL string
	// NameX, NameY locate the CENTER of the rendered name in template pixels.
	NameX      int
	NameY      int
	FontSize   int
	FontColor  string
	FontFamily string
	FontWeight string
	Archived   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Certificate is an issued certificate. Created once by the batch orchestrator
// and never mutated afterwards; it is the audit and verification record.
type Certificate struct {
	ID             id.CertificateID
	UserID         id.UserID
	EventID        id.EventID
	CertificateURL string
	ThumbnailURL   string
	FileName       string
	IssuedDate     time.Time
	Code           string
}

// Participant is the slice of a user the engine needs for rendering.
type Participant struct {
	ID       id.UserID
	FullName string
}

// FailedUser records one participant whose pipeline failed, with a
// human-readable reason so operators can re-run targeted remediation.
type FailedUser struct {
	UserID   id.UserID `json:"user_id"`
	FullName string    `json:"full_name"`
	Reason   string    `json:"reason"`
}

// BatchSummary is the structured result of one bulk-generation invocation.
type BatchSummary struct {
	GeneratedCount  int          `json:"generated_count"`
	FailedCount     int          `json:"failed_count"`
	FailedUsers     []FailedUser `json:"failed_users"`
	EligibleUserIDs []id.UserID  `json:"eligible_user_ids"`
}

// VerificationResult is the public-safe answer to "is this code real". When
// Valid is false every other field stays empty: the response must not reveal
// whether the code was malformed or simply never issued.
type VerificationResult struct {
	Valid          bool       `json:"valid"`
	Code           string     `json:"certificate_code,omitempty"`
	RecipientName  string     `json:"recipient_name,omitempty"`
	EventTitle     string     `json:"event_title,omitempty"`
	IssuedDate     *time.Time `json:"issued_date,omitempty"`
	CertificateURL string     `json:"certificate_url,omitempty"`
}

// VerifiedCertificate joins a certificate with the display data the public
// verification endpoint returns.
type VerifiedCertificate struct {
	Certificate
	RecipientName string
	EventTitle    string
}

// EligibleSet is the snapshot the orchestrator iterates. Participants are
// ordered by user ID ascending for deterministic processing.
type EligibleSet struct {
	EventID      id.EventID
	EventTitle   string
	Participants []Participant
}

// UserIDs extracts the ordered ID list for summaries.
func (s EligibleSet) UserIDs() []id.UserID {
	ids := make([]id.UserID, len(s.Participants))
	for i, p := range s.Participants {
		ids[i] = p.ID
	}
	return ids
}
