package service

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certnexus/internal/audit"
	"certnexus/internal/certificate"
	"certnexus/internal/certificate/code"
	certstore "certnexus/internal/certificate/store"
	"certnexus/internal/platform/config"
	"certnexus/internal/storage"
	id "certnexus/pkg/domain"
	dErrors "certnexus/pkg/domain-errors"
	"certnexus/pkg/testutil"
)

type fixture struct {
	svc     *Service
	store   *certstore.MemoryStore
	objects *storage.MemoryStore
	audit   *audit.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditStore := audit.NewMemoryStore()
	f := &fixture{
		store:   certstore.NewMemoryStore(),
		objects: storage.NewMemoryStore("mem://bucket"),
		audit:   auditStore,
	}
	f.svc = New(
		f.store,
		f.objects,
		f.store,
		code.NewGenerator(),
		audit.NewPublisher(auditStore, logger),
		nil,
		logger,
		config.Certificates{WorkerLimit: 4, CodeAttempts: 5, OrgTag: "CertNexus"},
	)
	return f
}

func templatePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 800; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// seedEventWithTemplate prepares event 42 with two eligible participants and
// an active template.
func (f *fixture) seedEventWithTemplate(t *testing.T) {
	t.Helper()
	f.store.AddEvent(42, "Cloud Native Summit", false)
	f.store.AddParticipant(42, certificate.Participant{ID: 7, FullName: "Dewi Lestari Kusumawardani Prameswari"})
	f.store.AddParticipant(42, certificate.Participant{ID: 9, FullName: "Budi Santoso"})
	f.store.SetCheckedIn(42, 7, time.Now())
	f.store.SetEvaluationCompleted(42, 9)

	_, err := f.svc.UpsertTemplate(context.Background(), TemplateUpload{
		EventID:   42,
		FileName:  "summit-template.png",
		Image:     templatePNG(t),
		NameX:     400,
		NameY:     280,
		FontSize:  48,
		FontColor: "#1a1a1a",
	})
	require.NoError(t, err)
}

func TestGenerateBulkIssuesAllEligible(t *testing.T) {
	f := newFixture(t)
	f.seedEventWithTemplate(t)

	summary, err := f.svc.GenerateBulk(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.GeneratedCount)
	assert.Equal(t, 0, summary.FailedCount)
	assert.Empty(t, summary.FailedUsers)
	assert.Equal(t, []id.UserID{7, 9}, summary.EligibleUserIDs)
	assert.Equal(t, 2, f.store.CertificateCount())

	// Every issued certificate carries a well-formed code and stored blobs.
	codePattern := regexp.MustCompile(`^SPECS-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)
	for _, evt := range f.audit.ByAction(audit.ActionCertificateIssued) {
		assert.Regexp(t, codePattern, evt.Code)
	}
	assert.Len(t, f.audit.ByAction(audit.ActionCertificateIssued), 2)
	assert.Len(t, f.audit.ByAction(audit.ActionBulkCompleted), 1)
}

func TestGenerateBulkIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedEventWithTemplate(t)
	ctx := context.Background()

	first, err := f.svc.GenerateBulk(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, 2, first.GeneratedCount)

	second, err := f.svc.GenerateBulk(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 0, second.GeneratedCount)
	assert.Equal(t, 0, second.FailedCount)
	assert.Empty(t, second.EligibleUserIDs)
	assert.Equal(t, 2, f.store.CertificateCount())
}

func TestGenerateBulkWithoutTemplate(t *testing.T) {
	f := newFixture(t)
	f.store.AddEvent(42, "Cloud Native Summit", false)

	_, err := f.svc.GenerateBulk(context.Background(), 42)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTemplateMissing))
}

func TestGenerateBulkArchivedEvent(t *testing.T) {
	f := newFixture(t)
	f.seedEventWithTemplate(t)
	// Archive after the template exists: the template check passes, the
	// eligibility snapshot must still refuse the event.
	f.store.AddEvent(42, "Cloud Native Summit", true)

	_, err := f.svc.GenerateBulk(context.Background(), 42)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeEventUnavailable))
}

func TestGenerateBulkNoEligibleParticipants(t *testing.T) {
	f := newFixture(t)
	f.store.AddEvent(42, "Cloud Native Summit", false)
	f.store.AddParticipant(42, certificate.Participant{ID: 7, FullName: "Registered Only"})

	_, err := f.svc.UpsertTemplate(context.Background(), TemplateUpload{
		EventID: 42, FileName: "t.png", Image: templatePNG(t), NameX: 400, NameY: 280, FontSize: 48,
	})
	require.NoError(t, err)

	summary, err := f.svc.GenerateBulk(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.GeneratedCount)
	assert.Equal(t, 0, summary.FailedCount)
	assert.NotNil(t, summary.FailedUsers)
	assert.NotNil(t, summary.EligibleUserIDs)
}

func TestGenerateBulkUploadFailureIsolated(t *testing.T) {
	f := newFixture(t)
	var summary certificate.BatchSummary

	testutil.Given(t, "an event where one participant's uploads fail", func(t *testing.T) {
		f.seedEventWithTemplate(t)
		// Uploads whose key carries this participant's name fail.
		f.objects.FailPut = "Budi_Santoso"
	})

	testutil.When(t, "the batch runs", func(t *testing.T) {
		var err error
		summary, err = f.svc.GenerateBulk(context.Background(), 42)
		require.NoError(t, err, "one participant failing must not fail the batch")
	})

	testutil.Then(t, "only that participant is reported failed", func(t *testing.T) {
		assert.Equal(t, 1, summary.GeneratedCount)
		assert.Equal(t, 1, summary.FailedCount)
		require.Len(t, summary.FailedUsers, 1)
		assert.Equal(t, id.UserID(9), summary.FailedUsers[0].UserID)
		assert.Equal(t, "Budi Santoso", summary.FailedUsers[0].FullName)
		assert.Contains(t, summary.FailedUsers[0].Reason, "upload")
		assert.Len(t, f.audit.ByAction(audit.ActionGenerationFailed), 1)
	})

	testutil.Then(t, "no orphan row or blob remains and a re-run recovers", func(t *testing.T) {
		assert.Equal(t, 1, f.store.CertificateCount())
		assert.False(t, f.objects.Has("Budi_Santoso"))

		f.objects.FailPut = ""
		retry, err := f.svc.GenerateBulk(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, 1, retry.GeneratedCount)
		assert.Equal(t, []id.UserID{9}, retry.EligibleUserIDs)
	})
}

func TestGenerateBulkInsertFailureCleansUploads(t *testing.T) {
	f := newFixture(t)
	f.seedEventWithTemplate(t)
	f.store.FailInsertFor = 7

	summary, err := f.svc.GenerateBulk(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.GeneratedCount)
	require.Len(t, summary.FailedUsers, 1)
	assert.Equal(t, id.UserID(7), summary.FailedUsers[0].UserID)

	// Blobs uploaded for the rolled-back participant are deleted: the bucket
	// holds the template plus the surviving participant's document and
	// thumbnail, nothing else.
	assert.Equal(t, 3, f.objects.Len())
	assert.False(t, f.objects.Has("Dewi_Lestari"))
}

// zeroEntropy yields only zero bytes so every generated code is identical.
type zeroEntropy struct{}

func (zeroEntropy) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestGenerateBulkCodeCollisionExhaustion(t *testing.T) {
	f := newFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Degenerate generator: the first participant claims the only code the
	// generator can produce, the second collides on every retry.
	f.svc = New(
		f.store,
		f.objects,
		f.store,
		code.NewGeneratorWithEntropy(zeroEntropy{}),
		audit.NewPublisher(f.audit, logger),
		nil,
		logger,
		config.Certificates{WorkerLimit: 1, CodeAttempts: 3, OrgTag: "CertNexus"},
	)
	f.seedEventWithTemplate(t)

	summary, err := f.svc.GenerateBulk(context.Background(), 42)
	require.NoError(t, err, "code exhaustion must stay a per-participant failure")

	assert.Equal(t, 1, summary.GeneratedCount)
	assert.Equal(t, 1, summary.FailedCount)
	require.Len(t, summary.FailedUsers, 1)
	assert.Equal(t, id.UserID(9), summary.FailedUsers[0].UserID)
	assert.Contains(t, summary.FailedUsers[0].Reason, "exhausted")

	// Blobs for the exhausted participant were cleaned up: the bucket holds
	// the template plus one document and one thumbnail.
	assert.Equal(t, 1, f.store.CertificateCount())
	assert.Equal(t, 3, f.objects.Len())
	assert.Len(t, f.audit.ByAction(audit.ActionGenerationFailed), 1)
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	f.seedEventWithTemplate(t)
	ctx := context.Background()

	_, err := f.svc.GenerateBulk(ctx, 42)
	require.NoError(t, err)
	issued := f.audit.ByAction(audit.ActionCertificateIssued)
	require.NotEmpty(t, issued)

	result, err := f.svc.Verify(ctx, issued[0].Code)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, issued[0].Code, result.Code)
	assert.Equal(t, "Cloud Native Summit", result.EventTitle)
	assert.NotEmpty(t, result.RecipientName)
	assert.NotNil(t, result.IssuedDate)
	assert.NotEmpty(t, result.CertificateURL)

	miss, err := f.svc.Verify(ctx, "SPECS-ZZZZ-ZZZZ-ZZZZ")
	require.NoError(t, err)
	assert.False(t, miss.Valid)
	assert.Empty(t, miss.Code, "an invalid code must reveal nothing")
	assert.Empty(t, miss.RecipientName)
	assert.Len(t, f.audit.ByAction(audit.ActionVerificationRejected), 1)
}

func TestUpsertTemplateRejectsBadImage(t *testing.T) {
	f := newFixture(t)
	f.store.AddEvent(42, "Cloud Native Summit", false)

	_, err := f.svc.UpsertTemplate(context.Background(), TemplateUpload{
		EventID: 42, FileName: "t.png", Image: []byte("not an image"),
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = f.svc.UpsertTemplate(context.Background(), TemplateUpload{
		EventID: 42, FileName: "t.png",
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestTemplateLifecycle(t *testing.T) {
	f := newFixture(t)
	f.store.AddEvent(42, "Cloud Native Summit", false)
	ctx := testutil.OfficerContext("officer-3")

	_, err := f.svc.Template(ctx, 42)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	created, err := f.svc.UpsertTemplate(ctx, TemplateUpload{
		EventID: 42, FileName: "t1.png", Image: templatePNG(t), NameX: 400, NameY: 280, FontSize: 48,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.TemplateURL, "mem://bucket/certificate_templates/"))

	replaced, err := f.svc.UpsertTemplate(ctx, TemplateUpload{
		EventID: 42, FileName: "t2.png", Image: templatePNG(t), NameX: 410, NameY: 290, FontSize: 52,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, replaced.ID)

	require.NoError(t, f.svc.ArchiveTemplate(ctx, 42))
	_, err = f.svc.Template(ctx, 42)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.True(t, dErrors.HasCode(f.svc.ArchiveTemplate(ctx, 42), dErrors.CodeNotFound))

	upserts := f.audit.ByAction(audit.ActionTemplateUpserted)
	require.Len(t, upserts, 2)
	assert.Equal(t, "officer-3", upserts[0].ActorID)
	assert.Len(t, f.audit.ByAction(audit.ActionTemplateArchived), 1)
}

func TestEligibleCount(t *testing.T) {
	f := newFixture(t)
	f.seedEventWithTemplate(t)
	ctx := context.Background()

	count, err := f.svc.EligibleCount(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, id.EventID(42), count.EventID)
	assert.Equal(t, 2, count.EligibleCount)
	assert.Equal(t, []id.UserID{7, 9}, count.EligibleUserIDs)

	_, err = f.svc.EligibleCount(ctx, 999)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDownloadAll(t *testing.T) {
	f := newFixture(t)
	f.seedEventWithTemplate(t)
	ctx := context.Background()

	_, _, err := f.svc.DownloadAll(ctx, 42)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "no certificates yet")

	_, err = f.svc.GenerateBulk(ctx, 42)
	require.NoError(t, err)

	name, data, err := f.svc.DownloadAll(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Certificates_Cloud_Native_Summit.zip", name)

	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, archive.File, 2)

	_, _, err = f.svc.DownloadAll(ctx, 999)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCertificateForUserOwnership(t *testing.T) {
	f := newFixture(t)
	f.seedEventWithTemplate(t)
	ctx := context.Background()

	_, err := f.svc.GenerateBulk(ctx, 42)
	require.NoError(t, err)

	certs, err := f.store.CertificatesByEvent(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, certs)

	owned, err := f.svc.CertificateForUser(ctx, certs[0].ID, certs[0].UserID)
	require.NoError(t, err)
	assert.Equal(t, certs[0].Code, owned.Code)

	_, err = f.svc.CertificateForUser(ctx, certs[0].ID, 12345)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
