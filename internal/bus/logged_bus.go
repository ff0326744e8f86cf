package bus

import (
	"context"

	"github.com/lexeval/lexeval/internal/pkg/logger"
)

// AuditedBus wraps another Bus and records every published event to an
// audit log before delegating. Recording is best-effort; a failed write
// never blocks the publish.
type AuditedBus struct {
	inner Bus
	audit *AuditLog
	log   *logger.Logger
}

// NewAuditedBus wraps inner with audit logging.
func NewAuditedBus(inner Bus, audit *AuditLog, log *logger.Logger) *AuditedBus {
	if log == nil {
		log = logger.Default()
	}
	return &AuditedBus{inner: inner, audit: audit, log: log}
}

// Publish records the event and then delegates to the inner bus.
func (b *AuditedBus) Publish(ctx context.Context, topic string, event Event) error {
	if err := b.audit.Record(topic, event); err != nil {
		b.log.Warn("Failed to record event to audit log",
			"topic", topic,
			"error", err.Error(),
		)
	}
	return b.inner.Publish(ctx, topic, event)
}

// Subscribe delegates to the inner bus.
func (b *AuditedBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return b.inner.Subscribe(ctx, topic, handler)
}

// Close closes the audit log and then the inner bus.
func (b *AuditedBus) Close() error {
	if err := b.audit.Close(); err != nil {
		b.log.Warn("Failed to close audit log", "error", err.Error())
	}
	return b.inner.Close()
}
