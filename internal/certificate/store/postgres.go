package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"certnexus/internal/certificate"
	id "certnexus/pkg/domain"
	txcontext "certnexus/pkg/platform/tx"
)

//go:embed schema.sql
var Schema string

const uniqueViolation = "23505"

// PostgresStore implements certificate.Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// dbConn is the subset of *sql.DB and *sql.Tx the store uses, so every method
// transparently joins a transaction carried in context.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// FindEligible reads the event header and the eligible participant set inside
// one repeatable-read read-only transaction, so the orchestrator iterates a
// coherent snapshot even while registrations and revocations change.
func (s *PostgresStore) FindEligible(ctx context.Context, eventID id.EventID) (certificate.EligibleSet, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return certificate.EligibleSet{}, fmt.Errorf("begin eligibility snapshot: %w", err)
	}
	defer tx.Rollback()

	set := certificate.EligibleSet{EventID: eventID}

	var archived bool
	err = tx.QueryRowContext(ctx,
		`SELECT title, archived FROM events WHERE id = $1`, eventID,
	).Scan(&set.EventTitle, &archived)
	if errors.Is(err, sql.ErrNoRows) {
		return certificate.EligibleSet{}, certificate.ErrEventUnavailable
	}
	if err != nil {
		return certificate.EligibleSet{}, fmt.Errorf("load event %d: %w", eventID, err)
	}
	if archived {
		return certificate.EligibleSet{}, certificate.ErrEventUnavailable
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT u.id, u.full_name
		FROM event_participants ep
		JOIN users u ON u.id = ep.user_id
		JOIN event_attendance ea
		  ON ea.event_id = ep.event_id AND ea.user_id = ep.user_id
		LEFT JOIN certificates c
		  ON c.event_id = ep.event_id AND c.user_id = ep.user_id
		WHERE ep.event_id = $1
		  AND (ea.checked_in_at IS NOT NULL OR ea.evaluation_completed)
		  AND c.id IS NULL
		ORDER BY u.id`, eventID)
	if err != nil {
		return certificate.EligibleSet{}, fmt.Errorf("query eligible participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p certificate.Participant
		if err := rows.Scan(&p.ID, &p.FullName); err != nil {
			return certificate.EligibleSet{}, fmt.Errorf("scan eligible participant: %w", err)
		}
		set.Participants = append(set.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return certificate.EligibleSet{}, fmt.Errorf("iterate eligible participants: %w", err)
	}
	return set, tx.Commit()
}

const templateColumns = `id, event_id, template_url, name_x, name_y,
	font_size, font_color, font_family, font_weight, archived, created_at, updated_at`

func scanTemplate(row *sql.Row) (certificate.Template, error) {
	var t certificate.Template
	err := row.Scan(&t.ID, &t.EventID, &t.TemplateURL, &t.NameX, &t.NameY,
		&t.FontSize, &t.FontColor, &t.FontFamily, &t.FontWeight,
		&t.Archived, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *PostgresStore) ActiveTemplate(ctx context.Context, eventID id.EventID) (certificate.Template, error) {
	t, err := scanTemplate(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+templateColumns+`
		 FROM certificate_templates
		 WHERE event_id = $1 AND NOT archived`, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return certificate.Template{}, certificate.ErrNoActiveTemplate
	}
	if err != nil {
		return certificate.Template{}, fmt.Errorf("load template for event %d: %w", eventID, err)
	}
	return t, nil
}

func (s *PostgresStore) UpsertTemplate(ctx context.Context, tmpl certificate.Template) (certificate.Template, error) {
	var archived bool
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT archived FROM events WHERE id = $1`, tmpl.EventID).Scan(&archived)
	if errors.Is(err, sql.ErrNoRows) {
		return certificate.Template{}, certificate.ErrEventUnavailable
	}
	if err != nil {
		return certificate.Template{}, fmt.Errorf("check event %d: %w", tmpl.EventID, err)
	}
	if archived {
		return certificate.Template{}, certificate.ErrEventUnavailable
	}

	t, err := scanTemplate(s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO certificate_templates
			(event_id, template_url, name_x, name_y, font_size,
			 font_color, font_family, font_weight, archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
		ON CONFLICT ON CONSTRAINT certificate_templates_event_key DO UPDATE SET
			template_url = EXCLUDED.template_url,
			name_x       = EXCLUDED.name_x,
			name_y       = EXCLUDED.name_y,
			font_size    = EXCLUDED.font_size,
			font_color   = EXCLUDED.font_color,
			font_family  = EXCLUDED.font_family,
			font_weight  = EXCLUDED.font_weight,
			archived     = FALSE,
			updated_at   = now()
		RETURNING `+templateColumns,
		tmpl.EventID, tmpl.TemplateURL, tmpl.NameX, tmpl.NameY, tmpl.FontSize,
		tmpl.FontColor, tmpl.FontFamily, tmpl.FontWeight))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return certificate.Template{}, certificate.ErrEventUnavailable
		}
		return certificate.Template{}, fmt.Errorf("upsert template for event %d: %w", tmpl.EventID, err)
	}
	return t, nil
}

func (s *PostgresStore) ArchiveTemplate(ctx context.Context, eventID id.EventID) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE certificate_templates SET archived = TRUE, updated_at = now()
		 WHERE event_id = $1 AND NOT archived`, eventID)
	if err != nil {
		return fmt.Errorf("archive template for event %d: %w", eventID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive template rows affected: %w", err)
	}
	if affected == 0 {
		return certificate.ErrNoActiveTemplate
	}
	return nil
}

func (s *PostgresStore) InsertCertificate(ctx context.Context, cert certificate.Certificate) (certificate.Certificate, error) {
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO certificates
			(user_id, event_id, certificate_url, thumbnail_url,
			 file_name, issued_date, certificate_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		cert.UserID, cert.EventID, cert.CertificateURL, cert.ThumbnailURL,
		cert.FileName, cert.IssuedDate, cert.Code,
	).Scan(&cert.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			switch pqErr.Constraint {
			case "certificates_code_key":
				return certificate.Certificate{}, certificate.ErrCodeConflict
			default:
				return certificate.Certificate{}, certificate.ErrDuplicateCertificate
			}
		}
		return certificate.Certificate{}, fmt.Errorf("insert certificate for user %d event %d: %w",
			cert.UserID, cert.EventID, err)
	}
	return cert, nil
}

const certificateColumns = `c.id, c.user_id, c.event_id, c.certificate_url,
	c.thumbnail_url, c.file_name, c.issued_date, c.certificate_code`

func scanCertificate(row *sql.Row) (certificate.Certificate, error) {
	var c certificate.Certificate
	err := row.Scan(&c.ID, &c.UserID, &c.EventID, &c.CertificateURL,
		&c.ThumbnailURL, &c.FileName, &c.IssuedDate, &c.Code)
	return c, err
}

func (s *PostgresStore) CertificateByCode(ctx context.Context, code string) (certificate.VerifiedCertificate, error) {
	var v certificate.VerifiedCertificate
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+certificateColumns+`, u.full_name, e.title
		FROM certificates c
		JOIN users u ON u.id = c.user_id
		JOIN events e ON e.id = c.event_id
		WHERE c.certificate_code = $1`, code,
	).Scan(&v.ID, &v.UserID, &v.EventID, &v.CertificateURL,
		&v.ThumbnailURL, &v.FileName, &v.IssuedDate, &v.Code,
		&v.RecipientName, &v.EventTitle)
	if errors.Is(err, sql.ErrNoRows) {
		return certificate.VerifiedCertificate{}, certificate.ErrNotFound
	}
	if err != nil {
		return certificate.VerifiedCertificate{}, fmt.Errorf("load certificate by code: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) CertificateForUser(ctx context.Context, certID id.CertificateID, userID id.UserID) (certificate.Certificate, error) {
	c, err := scanCertificate(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+certificateColumns+`
		 FROM certificates c
		 WHERE c.id = $1 AND c.user_id = $2`, certID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return certificate.Certificate{}, certificate.ErrNotFound
	}
	if err != nil {
		return certificate.Certificate{}, fmt.Errorf("load certificate %d: %w", certID, err)
	}
	return c, nil
}

func (s *PostgresStore) CertificatesByEvent(ctx context.Context, eventID id.EventID) ([]certificate.Certificate, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+certificateColumns+`
		 FROM certificates c
		 WHERE c.event_id = $1
		 ORDER BY c.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query certificates for event %d: %w", eventID, err)
	}
	defer rows.Close()

	var out []certificate.Certificate
	for rows.Next() {
		var c certificate.Certificate
		if err := rows.Scan(&c.ID, &c.UserID, &c.EventID, &c.CertificateURL,
			&c.ThumbnailURL, &c.FileName, &c.IssuedDate, &c.Code); err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) EventTitle(ctx context.Context, eventID id.EventID) (string, error) {
	var title string
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT title FROM events WHERE id = $1`, eventID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", certificate.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load event title %d: %w", eventID, err)
	}
	return title, nil
}

// RunInTx opens a transaction, injects it into context and commits when fn
// succeeds. Used by the orchestrator so a participant's certificate row and
// its audit outbox entries land or vanish together.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
