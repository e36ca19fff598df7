package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"certnexus/internal/platform/config"
)

const (
	outboxBatchSize = 100
	outboxInterval  = 5 * time.Second
)

// Worker drains the audit outbox to Kafka. Rows are only marked published
// after every record in the batch is acknowledged, so delivery is
// at-least-once; consumers deduplicate on the event ID.
type Worker struct {
	store  *PostgresStore
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewWorker connects to Kafka and ensures the audit topic exists. Returns nil
// when no seeds are configured (audit then stays in PostgreSQL only).
func NewWorker(cfg config.KafkaConfig, store *PostgresStore, logger *slog.Logger) (*Worker, error) {
	if len(cfg.Seeds) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Seeds...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := adm.CreateTopic(ctx, 1, -1, nil, cfg.Topic)
	// The topic existing already is the normal case after the first boot.
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %s: %w", cfg.Topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %s: %w", cfg.Topic, resp.Err)
	}

	return &Worker{store: store, client: client, topic: cfg.Topic, logger: logger}, nil
}

// Run drains the outbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(outboxInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.client.Close()
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) error {
	rows, err := w.store.FetchUnpublished(ctx, outboxBatchSize)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, &kgo.Record{
			Topic: w.topic,
			Key:   []byte(row.Action),
			Value: row.Payload,
		})
	}

	if err := w.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	if err := w.store.MarkPublished(ctx, ids, time.Now()); err != nil {
		return err
	}

	w.logger.DebugContext(ctx, "audit outbox drained", "published", len(rows))
	return nil
}
