// Package bus provides event bus implementations for run lifecycle
// notifications. Downstream consumers (dashboards, regression alerting)
// subscribe to run topics rather than polling the run store.
package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/lexeval/lexeval/internal/pkg/hash"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type (e.g., "run.completed").
	Type string `json:"type"`

	// Source is the component that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created.
	Timestamp int64 `json:"timestamp"`

	// RunID links all events of one evaluation run.
	RunID string `json:"run_id,omitempty"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// NewEvent builds an event with a derived id and the current timestamp.
func NewEvent(eventType, source, runID string, payload any) Event {
	now := time.Now()
	return Event{
		ID:        hash.SHA256Short([]byte(fmt.Sprintf("%s:%s:%d", eventType, runID, now.UnixNano())), 16),
		Type:      eventType,
		Source:    source,
		Timestamp: now.Unix(),
		RunID:     runID,
		Payload:   payload,
	}
}

// Run lifecycle topics.
const (
	TopicRunStarted   = "evaluation.run.started"
	TopicRunCompleted = "evaluation.run.completed"
	TopicRunFailed    = "evaluation.run.failed"
	TopicRunSaved     = "evaluation.run.saved"
	TopicRunDeleted   = "evaluation.run.deleted"
)
