package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certnexus/internal/certificate"
	id "certnexus/pkg/domain"
)

func seedEvent(s *MemoryStore) {
	s.AddEvent(42, "Cloud Native Summit", false)
	s.AddParticipant(42, certificate.Participant{ID: 7, FullName: "Dewi Lestari"})
	s.AddParticipant(42, certificate.Participant{ID: 9, FullName: "Budi Santoso"})
	s.AddParticipant(42, certificate.Participant{ID: 11, FullName: "No Show"})
	s.SetCheckedIn(42, 7, time.Now())
	s.SetEvaluationCompleted(42, 9)
}

func TestMemoryStoreFindEligible(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedEvent(s)

	set, err := s.FindEligible(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, "Cloud Native Summit", set.EventTitle)
	assert.Equal(t, []id.UserID{7, 9}, set.UserIDs())
}

func TestMemoryStoreFindEligibleExcludesCertified(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedEvent(s)

	_, err := s.InsertCertificate(ctx, certificate.Certificate{
		UserID: 7, EventID: 42, Code: "SPECS-AAAA-BBBB-CCCC",
	})
	require.NoError(t, err)

	set, err := s.FindEligible(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, []id.UserID{9}, set.UserIDs())
}

func TestMemoryStoreFindEligibleArchivedEvent(t *testing.T) {
	s := NewMemoryStore()
	s.AddEvent(1, "Old Event", true)

	_, err := s.FindEligible(context.Background(), 1)
	assert.ErrorIs(t, err, certificate.ErrEventUnavailable)

	_, err = s.FindEligible(context.Background(), 999)
	assert.ErrorIs(t, err, certificate.ErrEventUnavailable)
}

func TestMemoryStoreInsertCertificateConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedEvent(s)

	first, err := s.InsertCertificate(ctx, certificate.Certificate{
		UserID: 7, EventID: 42, Code: "SPECS-AAAA-BBBB-CCCC",
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	_, err = s.InsertCertificate(ctx, certificate.Certificate{
		UserID: 7, EventID: 42, Code: "SPECS-DDDD-EEEE-FFFF",
	})
	assert.ErrorIs(t, err, certificate.ErrDuplicateCertificate)

	_, err = s.InsertCertificate(ctx, certificate.Certificate{
		UserID: 9, EventID: 42, Code: "SPECS-AAAA-BBBB-CCCC",
	})
	assert.ErrorIs(t, err, certificate.ErrCodeConflict)
}

func TestMemoryStoreTemplateLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.AddEvent(42, "Cloud Native Summit", false)

	_, err := s.ActiveTemplate(ctx, 42)
	assert.ErrorIs(t, err, certificate.ErrNoActiveTemplate)

	created, err := s.UpsertTemplate(ctx, certificate.Template{
		EventID: 42, TemplateURL: "mem://t1.png", NameX: 400, NameY: 280, FontSize: 48,
	})
	require.NoError(t, err)
	assert.False(t, created.Archived)

	require.NoError(t, s.ArchiveTemplate(ctx, 42))
	_, err = s.ActiveTemplate(ctx, 42)
	assert.ErrorIs(t, err, certificate.ErrNoActiveTemplate)

	// Upsert replaces in place and clears the archived flag.
	replaced, err := s.UpsertTemplate(ctx, certificate.Template{
		EventID: 42, TemplateURL: "mem://t2.png", NameX: 410, NameY: 290, FontSize: 52,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, replaced.ID)
	assert.False(t, replaced.Archived)

	active, err := s.ActiveTemplate(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "mem://t2.png", active.TemplateURL)
}

func TestMemoryStoreUpsertTemplateUnavailableEvent(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.UpsertTemplate(context.Background(), certificate.Template{EventID: 5})
	assert.ErrorIs(t, err, certificate.ErrEventUnavailable)

	s.AddEvent(6, "Archived Event", true)
	_, err = s.UpsertTemplate(context.Background(), certificate.Template{EventID: 6})
	assert.ErrorIs(t, err, certificate.ErrEventUnavailable)
}

func TestMemoryStoreCertificateByCode(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedEvent(s)

	cert, err := s.InsertCertificate(ctx, certificate.Certificate{
		UserID: 7, EventID: 42, CertificateURL: "mem://c.png", Code: "SPECS-AAAA-BBBB-CCCC",
	})
	require.NoError(t, err)

	found, err := s.CertificateByCode(ctx, "SPECS-AAAA-BBBB-CCCC")
	require.NoError(t, err)
	assert.Equal(t, cert.ID, found.ID)
	assert.Equal(t, "Dewi Lestari", found.RecipientName)
	assert.Equal(t, "Cloud Native Summit", found.EventTitle)

	_, err = s.CertificateByCode(ctx, "SPECS-ZZZZ-ZZZZ-ZZZZ")
	assert.ErrorIs(t, err, certificate.ErrNotFound)
}

func TestMemoryStoreCertificateForUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedEvent(s)

	cert, err := s.InsertCertificate(ctx, certificate.Certificate{
		UserID: 7, EventID: 42, Code: "SPECS-AAAA-BBBB-CCCC",
	})
	require.NoError(t, err)

	_, err = s.CertificateForUser(ctx, cert.ID, 7)
	assert.NoError(t, err)

	// Another user must not see it.
	_, err = s.CertificateForUser(ctx, cert.ID, 9)
	assert.ErrorIs(t, err, certificate.ErrNotFound)
}
