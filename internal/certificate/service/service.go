// Package service implements the certificate engine: eligibility resolution,
// bulk generation with per-participant failure isolation, template management
// and public verification.
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"certnexus/internal/audit"
	"certnexus/internal/certificate"
	"certnexus/internal/certificate/code"
	"certnexus/internal/certificate/metrics"
	"certnexus/internal/certificate/render"
	"certnexus/internal/platform/config"
	"certnexus/internal/storage"
	id "certnexus/pkg/domain"
	dErrors "certnexus/pkg/domain-errors"
	"certnexus/pkg/requestcontext"
)

// TxRunner scopes a function to one SQL transaction carried in context. The
// orchestrator runs each participant's certificate insert and audit writes in
// their own transaction so one failure never poisons the batch.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the certificate engine facade consumed by HTTP handlers.
type Service struct {
	store   certificate.Store
	objects storage.ObjectStore
	tx      TxRunner
	codes   *code.Generator
	audit   *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     config.Certificates
}

func New(
	store certificate.Store,
	objects storage.ObjectStore,
	tx TxRunner,
	codes *code.Generator,
	auditPublisher *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg config.Certificates,
) *Service {
	if cfg.WorkerLimit <= 0 {
		cfg.WorkerLimit = 4
	}
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = 5
	}
	return &Service{
		store:   store,
		objects: objects,
		tx:      tx,
		codes:   codes,
		audit:   auditPublisher,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
	}
}

// EligibleCount is the officer-facing preview of a generation run.
type EligibleCount struct {
	EventID         id.EventID  `json:"event_id"`
	EligibleCount   int         `json:"eligible_count"`
	EligibleUserIDs []id.UserID `json:"eligible_user_ids"`
}

// EligibleParticipants returns the current eligibility snapshot. Read-only.
func (s *Service) EligibleParticipants(ctx context.Context, eventID id.EventID) (certificate.EligibleSet, error) {
	set, err := s.store.FindEligible(ctx, eventID)
	if errors.Is(err, certificate.ErrEventUnavailable) {
		return certificate.EligibleSet{}, dErrors.Wrap(dErrors.CodeNotFound, "event not found or archived", err)
	}
	if err != nil {
		return certificate.EligibleSet{}, dErrors.Wrap(dErrors.CodeInternal, "resolve eligibility", err)
	}
	return set, nil
}

// EligibleCount reports how many participants a bulk run would cover.
func (s *Service) EligibleCount(ctx context.Context, eventID id.EventID) (EligibleCount, error) {
	set, err := s.EligibleParticipants(ctx, eventID)
	if err != nil {
		return EligibleCount{}, err
	}
	ids := set.UserIDs()
	if ids == nil {
		ids = []id.UserID{}
	}
	return EligibleCount{
		EventID:         eventID,
		EligibleCount:   len(ids),
		EligibleUserIDs: ids,
	}, nil
}

// GenerateBulk issues certificates for every eligible participant of the
// event. Participant pipelines run with bounded parallelism and are isolated:
// a failed participant is reported in the summary while the rest proceed.
func (s *Service) GenerateBulk(ctx context.Context, eventID id.EventID) (certificate.BatchSummary, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveBatchLatency(time.Since(start)) }()

	tmpl, err := s.store.ActiveTemplate(ctx, eventID)
	if errors.Is(err, certificate.ErrNoActiveTemplate) {
		return certificate.BatchSummary{}, dErrors.Wrap(dErrors.CodeTemplateMissing,
			"no active certificate template for event", err)
	}
	if err != nil {
		return certificate.BatchSummary{}, dErrors.Wrap(dErrors.CodeInternal, "load template", err)
	}

	set, err := s.store.FindEligible(ctx, eventID)
	if errors.Is(err, certificate.ErrEventUnavailable) {
		return certificate.BatchSummary{}, dErrors.Wrap(dErrors.CodeEventUnavailable,
			"event not found or archived", err)
	}
	if err != nil {
		return certificate.BatchSummary{}, dErrors.Wrap(dErrors.CodeInternal, "resolve eligibility", err)
	}

	summary := certificate.BatchSummary{
		FailedUsers:     []certificate.FailedUser{},
		EligibleUserIDs: set.UserIDs(),
	}
	if summary.EligibleUserIDs == nil {
		summary.EligibleUserIDs = []id.UserID{}
	}
	if len(set.Participants) == 0 {
		return summary, nil
	}

	templateData, err := s.objects.Get(ctx, tmpl.TemplateURL)
	if err != nil {
		return certificate.BatchSummary{}, dErrors.Wrap(dErrors.CodeInternal, "fetch template image", err)
	}
	templateImg, err := render.DecodeTemplate(templateData)
	if err != nil {
		return certificate.BatchSummary{}, dErrors.Wrap(dErrors.CodeInternal, "decode template image", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WorkerLimit)

	for _, p := range set.Participants {
		g.Go(func() error {
			if err := s.issueOne(gctx, templateImg, tmpl, set.EventTitle, p); err != nil {
				s.metrics.IncrementFailed()
				s.audit.Emit(gctx, audit.Event{
					Action:  audit.ActionGenerationFailed,
					EventID: eventID,
					UserID:  p.ID,
					Reason:  err.Error(),
				})
				s.logger.ErrorContext(gctx, "certificate generation failed",
					"event_id", eventID, "user_id", p.ID, "error", err)
				mu.Lock()
				summary.FailedUsers = append(summary.FailedUsers, certificate.FailedUser{
					UserID:   p.ID,
					FullName: p.FullName,
					Reason:   err.Error(),
				})
				mu.Unlock()
				return nil
			}
			s.metrics.IncrementGenerated()
			mu.Lock()
			summary.GeneratedCount++
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; Wait is for completion only.
	_ = g.Wait()

	sort.Slice(summary.FailedUsers, func(i, j int) bool {
		return summary.FailedUsers[i].UserID < summary.FailedUsers[j].UserID
	})
	summary.FailedCount = len(summary.FailedUsers)

	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionBulkCompleted,
		EventID: eventID,
		Reason:  fmt.Sprintf("generated=%d failed=%d", summary.GeneratedCount, summary.FailedCount),
	})
	s.logger.InfoContext(ctx, "bulk generation completed",
		"event_id", eventID,
		"generated", summary.GeneratedCount,
		"failed", summary.FailedCount,
		"duration", time.Since(start))
	return summary, nil
}

// issueOne runs the full pipeline for a single participant: code, render,
// upload, insert. The insert and its audit event share one transaction;
// uploaded blobs are best-effort deleted when the pipeline fails after upload.
func (s *Service) issueOne(ctx context.Context, templateImg image.Image, tmpl certificate.Template, eventTitle string, p certificate.Participant) error {
	for attempt := 1; ; attempt++ {
		verifyCode, err := s.codes.Generate()
		if err != nil {
			return fmt.Errorf("generate verification code: %w", err)
		}

		renderStart := time.Now()
		out, err := render.Render(templateImg, render.Options{
			FullName:   p.FullName,
			Code:       verifyCode,
			NameX:      tmpl.NameX,
			NameY:      tmpl.NameY,
			FontSize:   tmpl.FontSize,
			FontColor:  tmpl.FontColor,
			FontFamily: tmpl.FontFamily,
			FontWeight: tmpl.FontWeight,
		})
		if err != nil {
			return fmt.Errorf("render certificate: %w", err)
		}
		s.metrics.ObserveRenderLatency(time.Since(renderStart))

		fileName := render.Filename(s.cfg.OrgTag, eventTitle, p.FullName)
		prefix := fmt.Sprintf("certificates/%d/%s", tmpl.EventID, uuid.New().String())
		docURL, err := s.objects.Put(ctx, prefix+"_"+fileName, out.Document, "image/png")
		if err != nil {
			return fmt.Errorf("upload certificate: %w", err)
		}
		thumbURL, err := s.objects.Put(ctx, prefix+"_thumb.jpg", out.Thumbnail, "image/jpeg")
		if err != nil {
			s.cleanupBlobs(ctx, docURL)
			return fmt.Errorf("upload thumbnail: %w", err)
		}

		cert := certificate.Certificate{
			UserID:         p.ID,
			EventID:        tmpl.EventID,
			CertificateURL: docURL,
			ThumbnailURL:   thumbURL,
			FileName:       fileName,
			IssuedDate:     time.Now().UTC(),
			Code:           verifyCode,
		}
		err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			inserted, insErr := s.store.InsertCertificate(txCtx, cert)
			if insErr != nil {
				return insErr
			}
			s.audit.Emit(txCtx, audit.Event{
				Action:  audit.ActionCertificateIssued,
				EventID: inserted.EventID,
				UserID:  inserted.UserID,
				Code:    inserted.Code,
			})
			return nil
		})
		if err == nil {
			return nil
		}

		s.cleanupBlobs(ctx, docURL, thumbURL)
		if errors.Is(err, certificate.ErrCodeConflict) {
			s.metrics.IncrementCodeCollision()
			if attempt < s.cfg.CodeAttempts {
				continue
			}
			return fmt.Errorf("verification code space exhausted after %d attempts: %w", attempt, err)
		}
		if errors.Is(err, certificate.ErrDuplicateCertificate) {
			return fmt.Errorf("certificate already issued: %w", err)
		}
		return fmt.Errorf("persist certificate: %w", err)
	}
}

func (s *Service) cleanupBlobs(ctx context.Context, urls ...string) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := s.objects.Delete(ctx, u); err != nil {
			s.logger.WarnContext(ctx, "orphan blob cleanup failed", "url", u, "error", err)
		}
	}
}

// Verify answers the public "is this code real" question. A miss is a valid
// answer, not an error; only backend outages surface as errors.
func (s *Service) Verify(ctx context.Context, verifyCode string) (certificate.VerificationResult, error) {
	found, err := s.store.CertificateByCode(ctx, verifyCode)
	if errors.Is(err, certificate.ErrNotFound) {
		s.metrics.IncrementVerification(false)
		s.audit.Emit(ctx, audit.Event{
			Action: audit.ActionVerificationRejected,
			Code:   verifyCode,
		})
		return certificate.VerificationResult{Valid: false}, nil
	}
	if err != nil {
		return certificate.VerificationResult{}, dErrors.Wrap(dErrors.CodeInternal, "verify certificate", err)
	}

	s.metrics.IncrementVerification(true)
	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionCertificateVerified,
		EventID: found.EventID,
		UserID:  found.UserID,
		Code:    found.Code,
	})
	issued := found.IssuedDate
	return certificate.VerificationResult{
		Valid:          true,
		Code:           found.Code,
		RecipientName:  found.RecipientName,
		EventTitle:     found.EventTitle,
		IssuedDate:     &issued,
		CertificateURL: found.CertificateURL,
	}, nil
}

// TemplateUpload carries a new or replacement template for an event.
type TemplateUpload struct {
	EventID    id.EventID
	FileName   string
	Image      []byte
	NameX      int
	NameY      int
	FontSize   int
	FontColor  string
	FontFamily string
	FontWeight string
}

// UpsertTemplate stores the template image and its placement settings,
// replacing any previous template for the event in place.
func (s *Service) UpsertTemplate(ctx context.Context, upload TemplateUpload) (certificate.Template, error) {
	if len(upload.Image) == 0 {
		return certificate.Template{}, dErrors.New(dErrors.CodeBadRequest, "template image is required")
	}
	if _, err := render.DecodeTemplate(upload.Image); err != nil {
		return certificate.Template{}, dErrors.Wrap(dErrors.CodeBadRequest, "template image is not a valid image", err)
	}

	key := fmt.Sprintf("certificate_templates/%s-%s", uuid.New().String(), render.Sanitize(upload.FileName))
	url, err := s.objects.Put(ctx, key, upload.Image, "image/png")
	if err != nil {
		return certificate.Template{}, dErrors.Wrap(dErrors.CodeInternal, "upload template image", err)
	}

	tmpl, err := s.store.UpsertTemplate(ctx, certificate.Template{
		EventID:     upload.EventID,
		TemplateURL: url,
		NameX:       upload.NameX,
		NameY:       upload.NameY,
		FontSize:    upload.FontSize,
		FontColor:   upload.FontColor,
		FontFamily:  upload.FontFamily,
		FontWeight:  upload.FontWeight,
	})
	if errors.Is(err, certificate.ErrEventUnavailable) {
		s.cleanupBlobs(ctx, url)
		return certificate.Template{}, dErrors.Wrap(dErrors.CodeEventUnavailable, "event not found or archived", err)
	}
	if err != nil {
		s.cleanupBlobs(ctx, url)
		return certificate.Template{}, dErrors.Wrap(dErrors.CodeInternal, "save template", err)
	}

	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionTemplateUpserted,
		EventID: upload.EventID,
		ActorID: requestcontext.OfficerID(ctx),
	})
	return tmpl, nil
}

// Template returns the event's active template.
func (s *Service) Template(ctx context.Context, eventID id.EventID) (certificate.Template, error) {
	tmpl, err := s.store.ActiveTemplate(ctx, eventID)
	if errors.Is(err, certificate.ErrNoActiveTemplate) {
		return certificate.Template{}, dErrors.Wrap(dErrors.CodeNotFound, "no active template for event", err)
	}
	if err != nil {
		return certificate.Template{}, dErrors.Wrap(dErrors.CodeInternal, "load template", err)
	}
	return tmpl, nil
}

// ArchiveTemplate soft-deletes the event's active template.
func (s *Service) ArchiveTemplate(ctx context.Context, eventID id.EventID) error {
	err := s.store.ArchiveTemplate(ctx, eventID)
	if errors.Is(err, certificate.ErrNoActiveTemplate) {
		return dErrors.Wrap(dErrors.CodeNotFound, "no active template for event", err)
	}
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "archive template", err)
	}
	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionTemplateArchived,
		EventID: eventID,
		ActorID: requestcontext.OfficerID(ctx),
	})
	return nil
}

// CertificateForUser returns a certificate only to its owner.
func (s *Service) CertificateForUser(ctx context.Context, certID id.CertificateID, userID id.UserID) (certificate.Certificate, error) {
	cert, err := s.store.CertificateForUser(ctx, certID, userID)
	if errors.Is(err, certificate.ErrNotFound) {
		return certificate.Certificate{}, dErrors.Wrap(dErrors.CodeNotFound, "certificate not found", err)
	}
	if err != nil {
		return certificate.Certificate{}, dErrors.Wrap(dErrors.CodeInternal, "load certificate", err)
	}
	return cert, nil
}
