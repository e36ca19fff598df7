// Package handler exposes the certificate engine over HTTP.
package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"certnexus/internal/certificate"
	"certnexus/internal/certificate/service"
	"certnexus/internal/platform/middleware"
	"certnexus/internal/ratelimit"
	id "certnexus/pkg/domain"
	dErrors "certnexus/pkg/domain-errors"
	"certnexus/pkg/platform/httputil"
	"certnexus/pkg/requestcontext"
)

// maxTemplateUploadBytes bounds the multipart template upload.
const maxTemplateUploadBytes = 10 << 20

// Service is the engine surface the handler consumes.
type Service interface {
	GenerateBulk(ctx context.Context, eventID id.EventID) (certificate.BatchSummary, error)
	EligibleCount(ctx context.Context, eventID id.EventID) (service.EligibleCount, error)
	Verify(ctx context.Context, code string) (certificate.VerificationResult, error)
	UpsertTemplate(ctx context.Context, upload service.TemplateUpload) (certificate.Template, error)
	Template(ctx context.Context, eventID id.EventID) (certificate.Template, error)
	ArchiveTemplate(ctx context.Context, eventID id.EventID) error
	DownloadAll(ctx context.Context, eventID id.EventID) (string, []byte, error)
	CertificateForUser(ctx context.Context, certID id.CertificateID, userID id.UserID) (certificate.Certificate, error)
}

// Handler wires certificate endpoints into the router.
type Handler struct {
	svc       Service
	logger    *slog.Logger
	validator middleware.TokenValidator
	limiter   *ratelimit.Limiter
}

func New(svc Service, logger *slog.Logger, validator middleware.TokenValidator, limiter *ratelimit.Limiter) *Handler {
	return &Handler{
		svc:       svc,
		logger:    logger,
		validator: validator,
		limiter:   limiter,
	}
}

// Register mounts the certificate routes. Officer routes require an officer
// token, downloads require the owning user, and verification is public behind
// the rate limiter.
func (h *Handler) Register(r chi.Router) {
	r.Route("/certificates", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOfficer(h.validator, h.logger))
			r.Route("/events/{eventID}", func(r chi.Router) {
				r.Post("/template", h.handleUpsertTemplate)
				r.Get("/template", h.handleGetTemplate)
				r.Delete("/template", h.handleArchiveTemplate)
				r.Post("/generate-bulk", h.handleGenerateBulk)
				r.Get("/eligible-count", h.handleEligibleCount)
				r.Get("/download-all", h.handleDownloadAll)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(h.validator, h.logger))
			r.Get("/download/{certificateID}", h.handleDownload)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(h.limiter, h.logger))
			r.Get("/verify/{code}", h.handleVerify)
		})
	})
}

func eventIDParam(r *http.Request) (id.EventID, error) {
	return id.ParseEventID(chi.URLParam(r, "eventID"))
}

func (h *Handler) handleGenerateBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDParam(r)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event id"))
		return
	}

	summary, err := h.svc.GenerateBulk(ctx, eventID)
	if err != nil {
		h.logger.ErrorContext(ctx, "bulk generation rejected",
			"request_id", middleware.GetRequestID(ctx),
			"event_id", eventID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleEligibleCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDParam(r)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event id"))
		return
	}

	count, err := h.svc.EligibleCount(ctx, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, count)
}

// templateResponse is the JSON shape for template reads and writes.
type templateResponse struct {
	EventID     id.EventID `json:"event_id"`
	TemplateURL string     `json:"template_url"`
	NameX       int        `json:"name_x"`
	NameY       int        `json:"name_y"`
	FontSize    int        `json:"font_size"`
	FontColor   string     `json:"font_color"`
	FontFamily  string     `json:"font_family"`
	FontWeight  string     `json:"font_weight"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toTemplateResponse(t certificate.Template) templateResponse {
	return templateResponse{
		EventID:     t.EventID,
		TemplateURL: t.TemplateURL,
		NameX:       t.NameX,
		NameY:       t.NameY,
		FontSize:    t.FontSize,
		FontColor:   t.FontColor,
		FontFamily:  t.FontFamily,
		FontWeight:  t.FontWeight,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (h *Handler) handleUpsertTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDParam(r)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event id"))
		return
	}

	upload, err := parseTemplateUpload(r, eventID)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid template upload",
			"request_id", middleware.GetRequestID(ctx),
			"event_id", eventID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	tmpl, err := h.svc.UpsertTemplate(ctx, upload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTemplateResponse(tmpl))
}

// parseTemplateUpload reads the multipart form: a "template" file part plus
// placement and font fields.
func parseTemplateUpload(r *http.Request, eventID id.EventID) (service.TemplateUpload, error) {
	if err := r.ParseMultipartForm(maxTemplateUploadBytes); err != nil {
		return service.TemplateUpload{}, dErrors.Wrap(dErrors.CodeBadRequest, "invalid multipart form", err)
	}

	file, header, err := r.FormFile("template")
	if err != nil {
		return service.TemplateUpload{}, dErrors.Wrap(dErrors.CodeBadRequest, "template file is required", err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxTemplateUploadBytes))
	if err != nil {
		return service.TemplateUpload{}, dErrors.Wrap(dErrors.CodeBadRequest, "read template file", err)
	}

	upload := service.TemplateUpload{
		EventID:    eventID,
		FileName:   header.Filename,
		Image:      data,
		FontColor:  r.FormValue("font_color"),
		FontFamily: r.FormValue("font_family"),
		FontWeight: r.FormValue("font_weight"),
	}
	for field, dst := range map[string]*int{
		"name_x":    &upload.NameX,
		"name_y":    &upload.NameY,
		"font_size": &upload.FontSize,
	} {
		raw := r.FormValue(field)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return service.TemplateUpload{}, dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("field %s must be an integer", field))
		}
		*dst = v
	}
	return upload, nil
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event id"))
		return
	}

	tmpl, err := h.svc.Template(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTemplateResponse(tmpl))
}

func (h *Handler) handleArchiveTemplate(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event id"))
		return
	}

	if err := h.svc.ArchiveTemplate(r.Context(), eventID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDownloadAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDParam(r)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event id"))
		return
	}

	name, data, err := h.svc.DownloadAll(ctx, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certificate id"))
		return
	}
	userID, err := id.ParseUserID(requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing user identity"))
		return
	}

	cert, err := h.svc.CertificateForUser(ctx, certID, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"certificate_id":  cert.ID,
		"certificate_url": cert.CertificateURL,
		"thumbnail_url":   cert.ThumbnailURL,
		"file_name":       cert.FileName,
		"issued_date":     cert.IssuedDate,
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	result, err := h.svc.Verify(ctx, code)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification lookup failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
