package bus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lexeval/lexeval/internal/pkg/errors"
)

// AuditEntry is one run lifecycle event as recorded on disk.
type AuditEntry struct {
	Event     Event     `json:"event"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditLog persists run lifecycle events as JSON lines, one object per
// line. The trail answers "what ran, when, against which inputs" after the
// process is gone, and can be replayed onto a bus.
type AuditLog struct {
	path    string
	mu      sync.Mutex
	file    *os.File
	enabled bool
	encoder *json.Encoder
}

// NewAuditLog opens the audit log at path. If enabled is false the log is
// created but records nothing.
func NewAuditLog(path string, enabled bool) (*AuditLog, error) {
	log := &AuditLog{path: path, enabled: enabled}
	if !enabled {
		return log, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	log.file = file
	log.encoder = json.NewEncoder(file)
	return log, nil
}

// Record appends an event to the audit log. A disabled log is a no-op.
func (l *AuditLog) Record(topic string, event Event) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New(errors.CodeInternal, "audit log not initialized")
	}

	entry := AuditEntry{
		Event:     event,
		Topic:     topic,
		Timestamp: time.Now(),
	}
	if err := l.encoder.Encode(entry); err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}
	return nil
}

// Entries reads recorded events newer than since, in chronological order.
// A positive limit caps the result.
func (l *AuditLog) Entries(since time.Time, limit int) ([]AuditEntry, error) {
	if !l.enabled {
		return nil, errors.New(errors.CodeUnavailable, "audit logging is disabled")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []AuditEntry{}, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(file)

	const maxScanTokenSize = 1024 * 1024
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// Skip malformed lines
			continue
		}
		if entry.Timestamp.After(since) {
			entries = append(entries, entry)
			if limit > 0 && len(entries) >= limit {
				break
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan audit log: %w", err)
	}
	return entries, nil
}

// Replay publishes recorded events newer than since back onto the bus.
func (l *AuditLog) Replay(ctx context.Context, bus Bus, since time.Time) error {
	if !l.enabled {
		return errors.New(errors.CodeUnavailable, "audit logging is disabled")
	}

	entries, err := l.Entries(since, 0)
	if err != nil {
		return fmt.Errorf("failed to read audit entries: %w", err)
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := bus.Publish(ctx, entry.Topic, entry.Event); err != nil {
				return fmt.Errorf("failed to replay event %s: %w", entry.Event.ID, err)
			}
		}
	}
	return nil
}

// Close closes the underlying file.
func (l *AuditLog) Close() error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return fmt.Errorf("failed to close audit log: %w", err)
		}
		l.file = nil
		l.encoder = nil
	}
	return nil
}

// IsEnabled returns true if the log records events.
func (l *AuditLog) IsEnabled() bool {
	return l.enabled
}
