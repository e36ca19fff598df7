// Package domain holds typed identifiers shared across bounded contexts.
//
// IDs are typed integers rather than raw int64 so a user ID can never be
// passed where an event ID is expected. Parse helpers validate path and query
// parameters at the transport boundary.
package domain

import (
	"fmt"
	"strconv"
)

// EventID identifies an event.
type EventID int64

// UserID identifies a participant.
type UserID int64

// CertificateID identifies an issued certificate.
type CertificateID int64

func (id EventID) String() string       { return strconv.FormatInt(int64(id), 10) }
func (id UserID) String() string        { return strconv.FormatInt(int64(id), 10) }
func (id CertificateID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseEventID parses a decimal event ID. IDs must be positive.
func ParseEventID(s string) (EventID, error) {
	n, err := parsePositive(s)
	if err != nil {
		return 0, fmt.Errorf("invalid event id %q: %w", s, err)
	}
	return EventID(n), nil
}

// ParseUserID parses a decimal user ID. IDs must be positive.
func ParseUserID(s string) (UserID, error) {
	n, err := parsePositive(s)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", s, err)
	}
	return UserID(n), nil
}

// ParseCertificateID parses a decimal certificate ID. IDs must be positive.
func ParseCertificateID(s string) (CertificateID, error) {
	n, err := parsePositive(s)
	if err != nil {
		return 0, fmt.Errorf("invalid certificate id %q: %w", s, err)
	}
	return CertificateID(n), nil
}

func parsePositive(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}
