package runstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lexeval/lexeval/internal/bus"
	"github.com/lexeval/lexeval/internal/pkg/errors"
)

// Service provides run management on top of a storage backend. Loaded runs
// are cached in memory; the backend is the source of truth across restarts.
type Service struct {
	storage Storage
	bus     bus.Bus
	runs    map[string]*Run
	mu      sync.RWMutex
}

// NewService creates a run service and warms its cache from storage.
func NewService(storage Storage, eventBus bus.Bus) (*Service, error) {
	svc := &Service{
		storage: storage,
		bus:     eventBus,
		runs:    make(map[string]*Run),
	}

	if err := svc.loadRuns(); err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}

	return svc, nil
}

func (s *Service) loadRuns() error {
	runs, err := s.storage.LoadAll(context.Background())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, run := range runs {
		s.runs[run.ID] = run
	}
	return nil
}

// SaveRun persists a new run.
func (s *Service) SaveRun(ctx context.Context, run *Run) error {
	if err := run.Validate(); err != nil {
		return errors.Wrap(errors.CodeValidation, "invalid run", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return errors.New(errors.CodeAlreadyExists, fmt.Sprintf("run %s already exists", run.ID))
	}

	if err := s.storage.Save(ctx, run); err != nil {
		return errors.Wrap(errors.CodeStorageError, "failed to save run", err)
	}

	s.runs[run.ID] = run

	if s.bus != nil {
		event := bus.NewEvent("run.saved", "runstore", run.ID, map[string]any{"label": run.Label})
		if err := s.bus.Publish(ctx, bus.TopicRunSaved, event); err != nil {
			// The run is stored either way; the notification is best-effort.
			return nil
		}
	}
	return nil
}

// GetRun retrieves a run by id.
func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("run %s not found", id))
	}
	return run, nil
}

// ListRuns returns all runs, newest first.
func (s *Service) ListRuns(ctx context.Context) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

// DeleteRun deletes a run and announces the deletion on the bus.
func (s *Service) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[id]; !exists {
		return errors.New(errors.CodeNotFound, fmt.Sprintf("run %s not found", id))
	}

	if err := s.storage.Delete(ctx, id); err != nil {
		return errors.Wrap(errors.CodeStorageError, "failed to delete run", err)
	}

	delete(s.runs, id)

	if s.bus != nil {
		event := bus.NewEvent("run.deleted", "runstore", id, nil)
		if err := s.bus.Publish(ctx, bus.TopicRunDeleted, event); err != nil {
			// The run is gone either way; the notification is best-effort.
			return nil
		}
	}
	return nil
}

// RunExists checks if a run exists.
func (s *Service) RunExists(ctx context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.runs[id]
	return exists
}

// Close releases the underlying storage.
func (s *Service) Close() error {
	return s.storage.Close()
}
