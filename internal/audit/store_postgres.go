package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	txcontext "certnexus/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events land in audit_outbox and the Kafka worker publishes them; when the
// context carries a transaction the outbox insert joins it, so an aborted
// per-participant pipeline also discards its audit events.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	EventID   int64  `json:"event_id,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
	Code      string `json:"code,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload := outboxPayload{
		ID:        uuid.NewString(),
		Action:    string(event.Action),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		EventID:   int64(event.EventID),
		UserID:    int64(event.UserID),
		Code:      event.Code,
		ActorID:   event.ActorID,
		Reason:    event.Reason,
		RequestID: event.RequestID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, err = s.execer(ctx).ExecContext(ctx,
		`INSERT INTO audit_outbox (id, action, payload, created_at) VALUES ($1, $2, $3, $4)`,
		payload.ID, payload.Action, body, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit outbox row: %w", err)
	}
	return nil
}

// OutboxRow is an unpublished outbox entry.
type OutboxRow struct {
	ID      string
	Action  string
	Payload []byte
}

// FetchUnpublished returns up to limit unpublished rows in insertion order.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, payload FROM audit_outbox
		 WHERE published_at IS NULL
		 ORDER BY created_at
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished audit rows: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var r OutboxRow
		if err := rows.Scan(&r.ID, &r.Action, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan audit outbox row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkPublished stamps rows as delivered.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = $1 WHERE id = ANY($2)`,
		at, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark audit rows published: %w", err)
	}
	return nil
}
