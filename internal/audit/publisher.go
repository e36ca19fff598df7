package audit

import (
	"context"
	"log/slog"

	"certnexus/pkg/requestcontext"
)

// Publisher stamps and persists audit events. Append failures are logged, not
// propagated: a broken audit sink must not fail certificate issuance, and the
// outbox write shares the domain transaction whenever one is in context.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", string(event.Action),
			"error", err,
			"request_id", event.RequestID,
		)
	}
}
