//go:build integration

package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certnexus/internal/certificate"
	"certnexus/internal/certificate/store"
	id "certnexus/pkg/domain"
	"certnexus/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), store.Schema)
	s.store = store.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.postgres != nil {
		_ = s.postgres.DB.Close()
		_ = s.postgres.Container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx,
		"certificates", "certificate_templates", "event_attendance",
		"event_participants", "events", "users")
	s.Require().NoError(err)
}

// seedEvent inserts an event with three participants: user 1 checked in,
// user 2 with completed evaluation, user 3 registered only.
func (s *PostgresStoreSuite) seedEvent(archived bool) id.EventID {
	ctx := context.Background()
	db := s.postgres.DB

	var eventID int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO events (title, archived) VALUES ($1, $2) RETURNING id`,
		"Cloud Native Summit", archived).Scan(&eventID)
	s.Require().NoError(err)

	for i := 1; i <= 3; i++ {
		var userID int64
		err := db.QueryRowContext(ctx,
			`INSERT INTO users (full_name, email) VALUES ($1, $2) RETURNING id`,
			fmt.Sprintf("Participant %d", i), fmt.Sprintf("p%d@example.com", i)).Scan(&userID)
		s.Require().NoError(err)

		_, err = db.ExecContext(ctx,
			`INSERT INTO event_participants (event_id, user_id) VALUES ($1, $2)`,
			eventID, userID)
		s.Require().NoError(err)

		switch i {
		case 1:
			_, err = db.ExecContext(ctx,
				`INSERT INTO event_attendance (event_id, user_id, checked_in_at) VALUES ($1, $2, now())`,
				eventID, userID)
		case 2:
			_, err = db.ExecContext(ctx,
				`INSERT INTO event_attendance (event_id, user_id, evaluation_completed) VALUES ($1, $2, TRUE)`,
				eventID, userID)
		case 3:
			_, err = db.ExecContext(ctx,
				`INSERT INTO event_attendance (event_id, user_id) VALUES ($1, $2)`,
				eventID, userID)
		}
		s.Require().NoError(err)
	}
	return id.EventID(eventID)
}

func (s *PostgresStoreSuite) TestFindEligible() {
	ctx := context.Background()
	eventID := s.seedEvent(false)

	set, err := s.store.FindEligible(ctx, eventID)
	s.Require().NoError(err)

	s.Equal("Cloud Native Summit", set.EventTitle)
	s.Len(set.Participants, 2, "registered-only participant must be excluded")
	s.Less(set.Participants[0].ID, set.Participants[1].ID)

	// Issuing a certificate removes the holder from the next snapshot.
	_, err = s.store.InsertCertificate(ctx, certificate.Certificate{
		UserID:         set.Participants[0].ID,
		EventID:        eventID,
		CertificateURL: "oss://c1.png",
		FileName:       "c1.png",
		IssuedDate:     time.Now(),
		Code:           "SPECS-AAAA-BBBB-CCCC",
	})
	s.Require().NoError(err)

	set, err = s.store.FindEligible(ctx, eventID)
	s.Require().NoError(err)
	s.Len(set.Participants, 1)
}

func (s *PostgresStoreSuite) TestFindEligibleArchivedEvent() {
	eventID := s.seedEvent(true)

	_, err := s.store.FindEligible(context.Background(), eventID)
	s.ErrorIs(err, certificate.ErrEventUnavailable)

	_, err = s.store.FindEligible(context.Background(), 99999)
	s.ErrorIs(err, certificate.ErrEventUnavailable)
}

func (s *PostgresStoreSuite) TestInsertCertificateUniqueViolations() {
	ctx := context.Background()
	eventID := s.seedEvent(false)
	set, err := s.store.FindEligible(ctx, eventID)
	s.Require().NoError(err)
	s.Require().Len(set.Participants, 2)

	base := certificate.Certificate{
		EventID:        eventID,
		CertificateURL: "oss://c.png",
		FileName:       "c.png",
		IssuedDate:     time.Now(),
	}

	first := base
	first.UserID = set.Participants[0].ID
	first.Code = "SPECS-AAAA-BBBB-CCCC"
	_, err = s.store.InsertCertificate(ctx, first)
	s.Require().NoError(err)

	dup := base
	dup.UserID = set.Participants[0].ID
	dup.Code = "SPECS-DDDD-EEEE-FFFF"
	_, err = s.store.InsertCertificate(ctx, dup)
	s.ErrorIs(err, certificate.ErrDuplicateCertificate)

	collision := base
	collision.UserID = set.Participants[1].ID
	collision.Code = "SPECS-AAAA-BBBB-CCCC"
	_, err = s.store.InsertCertificate(ctx, collision)
	s.ErrorIs(err, certificate.ErrCodeConflict)
}

// TestConcurrentInsertSameUser exercises the race two batch runs can hit: both
// see the user as eligible, both insert, exactly one row survives.
func (s *PostgresStoreSuite) TestConcurrentInsertSameUser() {
	ctx := context.Background()
	eventID := s.seedEvent(false)
	set, err := s.store.FindEligible(ctx, eventID)
	s.Require().NoError(err)
	userID := set.Participants[0].ID

	const attempts = 10
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.store.InsertCertificate(ctx, certificate.Certificate{
				UserID:         userID,
				EventID:        eventID,
				CertificateURL: "oss://c.png",
				FileName:       "c.png",
				IssuedDate:     time.Now(),
				Code:           fmt.Sprintf("SPECS-AAAA-BBBB-%04d", n),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case s.ErrorIs(err, certificate.ErrDuplicateCertificate):
			dup++
		}
	}
	s.Equal(1, ok)
	s.Equal(attempts-1, dup)
}

func (s *PostgresStoreSuite) TestTemplateLifecycle() {
	ctx := context.Background()
	eventID := s.seedEvent(false)

	_, err := s.store.ActiveTemplate(ctx, eventID)
	s.ErrorIs(err, certificate.ErrNoActiveTemplate)

	created, err := s.store.UpsertTemplate(ctx, certificate.Template{
		EventID:     eventID,
		TemplateURL: "oss://t1.png",
		NameX:       400, NameY: 280,
		FontSize:  48,
		FontColor: "#1a1a1a",
	})
	s.Require().NoError(err)
	s.False(created.Archived)

	s.Require().NoError(s.store.ArchiveTemplate(ctx, eventID))
	_, err = s.store.ActiveTemplate(ctx, eventID)
	s.ErrorIs(err, certificate.ErrNoActiveTemplate)

	replaced, err := s.store.UpsertTemplate(ctx, certificate.Template{
		EventID:     eventID,
		TemplateURL: "oss://t2.png",
		NameX:       410, NameY: 290,
		FontSize:  52,
		FontColor: "#000000",
	})
	s.Require().NoError(err)
	s.Equal(created.ID, replaced.ID, "upsert replaces the row in place")
	s.False(replaced.Archived)

	s.ErrorIs(s.store.ArchiveTemplate(ctx, 99999), certificate.ErrNoActiveTemplate)
}

func (s *PostgresStoreSuite) TestUpsertTemplateUnknownEvent() {
	_, err := s.store.UpsertTemplate(context.Background(), certificate.Template{
		EventID:     99999,
		TemplateURL: "oss://t.png",
		FontSize:    48,
	})
	s.ErrorIs(err, certificate.ErrEventUnavailable)
}

func (s *PostgresStoreSuite) TestCertificateByCode() {
	ctx := context.Background()
	eventID := s.seedEvent(false)
	set, err := s.store.FindEligible(ctx, eventID)
	s.Require().NoError(err)

	issued, err := s.store.InsertCertificate(ctx, certificate.Certificate{
		UserID:         set.Participants[0].ID,
		EventID:        eventID,
		CertificateURL: "oss://c.png",
		FileName:       "c.png",
		IssuedDate:     time.Now(),
		Code:           "SPECS-AAAA-BBBB-CCCC",
	})
	s.Require().NoError(err)

	found, err := s.store.CertificateByCode(ctx, "SPECS-AAAA-BBBB-CCCC")
	s.Require().NoError(err)
	s.Equal(issued.ID, found.ID)
	s.Equal("Participant 1", found.RecipientName)
	s.Equal("Cloud Native Summit", found.EventTitle)

	_, err = s.store.CertificateByCode(ctx, "SPECS-ZZZZ-ZZZZ-ZZZZ")
	s.ErrorIs(err, certificate.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCertificateForUserOwnership() {
	ctx := context.Background()
	eventID := s.seedEvent(false)
	set, err := s.store.FindEligible(ctx, eventID)
	s.Require().NoError(err)

	issued, err := s.store.InsertCertificate(ctx, certificate.Certificate{
		UserID:         set.Participants[0].ID,
		EventID:        eventID,
		CertificateURL: "oss://c.png",
		FileName:       "c.png",
		IssuedDate:     time.Now(),
		Code:           "SPECS-AAAA-BBBB-CCCC",
	})
	s.Require().NoError(err)

	_, err = s.store.CertificateForUser(ctx, issued.ID, issued.UserID)
	s.NoError(err)

	_, err = s.store.CertificateForUser(ctx, issued.ID, set.Participants[1].ID)
	s.ErrorIs(err, certificate.ErrNotFound)
}

// TestRunInTxRollback verifies a failed participant pipeline leaves no row.
func (s *PostgresStoreSuite) TestRunInTxRollback() {
	ctx := context.Background()
	eventID := s.seedEvent(false)
	set, err := s.store.FindEligible(ctx, eventID)
	s.Require().NoError(err)

	err = s.store.RunInTx(ctx, func(txCtx context.Context) error {
		_, insertErr := s.store.InsertCertificate(txCtx, certificate.Certificate{
			UserID:         set.Participants[0].ID,
			EventID:        eventID,
			CertificateURL: "oss://c.png",
			FileName:       "c.png",
			IssuedDate:     time.Now(),
			Code:           "SPECS-AAAA-BBBB-CCCC",
		})
		s.Require().NoError(insertErr)
		return fmt.Errorf("upload failed")
	})
	s.Error(err)

	_, err = s.store.CertificateByCode(ctx, "SPECS-AAAA-BBBB-CCCC")
	s.ErrorIs(err, certificate.ErrNotFound)
}
