// Package store provides the persistence implementations for the certificate
// bounded context: in-memory for unit tests and local runs, PostgreSQL for
// production.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"certnexus/internal/certificate"
	id "certnexus/pkg/domain"
)

// MemoryStore implements certificate.Store with plain maps. It mirrors the
// PostgreSQL uniqueness constraints so orchestrator semantics can be tested
// without a database.
type MemoryStore struct {
	mu sync.Mutex

	events       map[id.EventID]memEvent
	participants map[id.EventID][]certificate.Participant
	attendance   map[attendanceKey]memAttendance
	templates    map[id.EventID]certificate.Template
	certificates map[id.CertificateID]certificate.Certificate
	byUserEvent  map[userEventKey]id.CertificateID
	byCode       map[string]id.CertificateID

	nextCertID     id.CertificateID
	nextTemplateID int64

	// FailInsertFor simulates a persistence failure for one participant.
	FailInsertFor id.UserID
}

type memEvent struct {
	title    string
	archived bool
}

type memAttendance struct {
	checkedInAt         *time.Time
	evaluationCompleted bool
}

type attendanceKey struct {
	event id.EventID
	user  id.UserID
}

type userEventKey struct {
	user  id.UserID
	event id.EventID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:       make(map[id.EventID]memEvent),
		participants: make(map[id.EventID][]certificate.Participant),
		attendance:   make(map[attendanceKey]memAttendance),
		templates:    make(map[id.EventID]certificate.Template),
		certificates: make(map[id.CertificateID]certificate.Certificate),
		byUserEvent:  make(map[userEventKey]id.CertificateID),
		byCode:       make(map[string]id.CertificateID),
	}
}

// Seeding helpers -----------------------------------------------------------

// AddEvent registers an event.
func (s *MemoryStore) AddEvent(eventID id.EventID, title string, archived bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[eventID] = memEvent{title: title, archived: archived}
}

// AddParticipant registers a user for an event.
func (s *MemoryStore) AddParticipant(eventID id.EventID, p certificate.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[eventID] = append(s.participants[eventID], p)
}

// SetCheckedIn marks an attendance check-in.
func (s *MemoryStore) SetCheckedIn(eventID id.EventID, userID id.UserID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.attendance[attendanceKey{eventID, userID}]
	rec.checkedInAt = &at
	s.attendance[attendanceKey{eventID, userID}] = rec
}

// SetEvaluationCompleted marks evaluation completion.
func (s *MemoryStore) SetEvaluationCompleted(eventID id.EventID, userID id.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.attendance[attendanceKey{eventID, userID}]
	rec.evaluationCompleted = true
	s.attendance[attendanceKey{eventID, userID}] = rec
}

// Store implementation ------------------------------------------------------

func (s *MemoryStore) FindEligible(ctx context.Context, eventID id.EventID) (certificate.EligibleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok || event.archived {
		return certificate.EligibleSet{}, certificate.ErrEventUnavailable
	}

	var eligible []certificate.Participant
	for _, p := range s.participants[eventID] {
		att := s.attendance[attendanceKey{eventID, p.ID}]
		if att.checkedInAt == nil && !att.evaluationCompleted {
			continue
		}
		if _, has := s.byUserEvent[userEventKey{p.ID, eventID}]; has {
			continue
		}
		eligible = append(eligible, p)
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })

	return certificate.EligibleSet{
		EventID:      eventID,
		EventTitle:   event.title,
		Participants: eligible,
	}, nil
}

func (s *MemoryStore) ActiveTemplate(ctx context.Context, eventID id.EventID) (certificate.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpl, ok := s.templates[eventID]
	if !ok || tmpl.Archived {
		return certificate.Template{}, certificate.ErrNoActiveTemplate
	}
	return tmpl, nil
}

func (s *MemoryStore) UpsertTemplate(ctx context.Context, tmpl certificate.Template) (certificate.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[tmpl.EventID]
	if !ok || event.archived {
		return certificate.Template{}, certificate.ErrEventUnavailable
	}

	now := time.Now()
	if existing, ok := s.templates[tmpl.EventID]; ok {
		tmpl.ID = existing.ID
		tmpl.CreatedAt = existing.CreatedAt
	} else {
		s.nextTemplateID++
		tmpl.ID = s.nextTemplateID
		tmpl.CreatedAt = now
	}
	tmpl.UpdatedAt = now
	tmpl.Archived = false
	s.templates[tmpl.EventID] = tmpl
	return tmpl, nil
}

func (s *MemoryStore) ArchiveTemplate(ctx context.Context, eventID id.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpl, ok := s.templates[eventID]
	if !ok {
		return certificate.ErrNoActiveTemplate
	}
	tmpl.Archived = true
	s.templates[eventID] = tmpl
	return nil
}

func (s *MemoryStore) InsertCertificate(ctx context.Context, cert certificate.Certificate) (certificate.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailInsertFor != 0 && cert.UserID == s.FailInsertFor {
		return certificate.Certificate{}, errors.New("simulated insert failure")
	}
	if _, has := s.byUserEvent[userEventKey{cert.UserID, cert.EventID}]; has {
		return certificate.Certificate{}, certificate.ErrDuplicateCertificate
	}
	if _, has := s.byCode[cert.Code]; has {
		return certificate.Certificate{}, certificate.ErrCodeConflict
	}

	s.nextCertID++
	cert.ID = s.nextCertID
	s.certificates[cert.ID] = cert
	s.byUserEvent[userEventKey{cert.UserID, cert.EventID}] = cert.ID
	s.byCode[cert.Code] = cert.ID
	return cert, nil
}

func (s *MemoryStore) CertificateByCode(ctx context.Context, code string) (certificate.VerifiedCertificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	certID, ok := s.byCode[code]
	if !ok {
		return certificate.VerifiedCertificate{}, certificate.ErrNotFound
	}
	cert := s.certificates[certID]

	recipient := ""
	for _, p := range s.participants[cert.EventID] {
		if p.ID == cert.UserID {
			recipient = p.FullName
			break
		}
	}
	return certificate.VerifiedCertificate{
		Certificate:   cert,
		RecipientName: recipient,
		EventTitle:    s.events[cert.EventID].title,
	}, nil
}

func (s *MemoryStore) CertificateForUser(ctx context.Context, certID id.CertificateID, userID id.UserID) (certificate.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert, ok := s.certificates[certID]
	if !ok || cert.UserID != userID {
		return certificate.Certificate{}, certificate.ErrNotFound
	}
	return cert, nil
}

func (s *MemoryStore) CertificatesByEvent(ctx context.Context, eventID id.EventID) ([]certificate.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []certificate.Certificate
	for _, cert := range s.certificates {
		if cert.EventID == eventID {
			out = append(out, cert)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) EventTitle(ctx context.Context, eventID id.EventID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return "", certificate.ErrNotFound
	}
	return event.title, nil
}

// RunInTx satisfies the orchestrator's transaction contract. The memory store
// is atomic per operation and a participant pipeline performs exactly one
// write, so fn runs directly.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// CertificateCount is a test helper.
func (s *MemoryStore) CertificateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.certificates)
}
