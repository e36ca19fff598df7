package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"

	"certnexus/internal/certificate"
	"certnexus/internal/certificate/render"
	id "certnexus/pkg/domain"
	dErrors "certnexus/pkg/domain-errors"
)

// DownloadAll bundles every certificate issued for the event into a ZIP
// archive. Blobs that fail to fetch are skipped with a log line so one lost
// object never blocks the rest of the download.
func (s *Service) DownloadAll(ctx context.Context, eventID id.EventID) (string, []byte, error) {
	title, err := s.store.EventTitle(ctx, eventID)
	if errors.Is(err, certificate.ErrNotFound) {
		return "", nil, dErrors.Wrap(dErrors.CodeNotFound, "event not found", err)
	}
	if err != nil {
		return "", nil, dErrors.Wrap(dErrors.CodeInternal, "load event", err)
	}

	certs, err := s.store.CertificatesByEvent(ctx, eventID)
	if err != nil {
		return "", nil, dErrors.Wrap(dErrors.CodeInternal, "list certificates", err)
	}
	if len(certs) == 0 {
		return "", nil, dErrors.New(dErrors.CodeNotFound, "no certificates issued for event")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	added := 0
	for _, cert := range certs {
		data, err := s.objects.Get(ctx, cert.CertificateURL)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping unreadable certificate blob",
				"certificate_id", cert.ID, "url", cert.CertificateURL, "error", err)
			continue
		}
		// Certificate IDs keep entry names unique when two participants
		// share a display name.
		entry, err := zw.Create(fmt.Sprintf("%d_%s", cert.ID, cert.FileName))
		if err != nil {
			_ = zw.Close()
			return "", nil, dErrors.Wrap(dErrors.CodeInternal, "build archive", err)
		}
		if _, err := entry.Write(data); err != nil {
			_ = zw.Close()
			return "", nil, dErrors.Wrap(dErrors.CodeInternal, "build archive", err)
		}
		added++
	}
	if err := zw.Close(); err != nil {
		return "", nil, dErrors.Wrap(dErrors.CodeInternal, "finalize archive", err)
	}
	if added == 0 {
		return "", nil, dErrors.New(dErrors.CodeInternal, "no certificate blobs could be fetched")
	}

	return render.ZipFilename(title), buf.Bytes(), nil
}
