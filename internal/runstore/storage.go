package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lexeval/lexeval/internal/config"
	"github.com/lexeval/lexeval/internal/pkg/errors"
)

// Storage is the interface for run persistence.
type Storage interface {
	// Save saves a run to persistent storage.
	Save(ctx context.Context, run *Run) error

	// Load loads a run by id.
	Load(ctx context.Context, id string) (*Run, error)

	// LoadAll loads all runs.
	LoadAll(ctx context.Context) ([]*Run, error)

	// Delete deletes a run from storage.
	Delete(ctx context.Context, id string) error

	// Exists checks if a run exists in storage.
	Exists(ctx context.Context, id string) bool

	// Close releases storage resources.
	Close() error
}

// NewStorage creates a storage backend based on the configuration.
func NewStorage(cfg config.StoreConfig) (Storage, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryStorage(), nil
	case "file":
		return NewFileStorage(cfg.Path), nil
	case "redis":
		return NewRedisStorage(cfg.RedisURL)
	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown store type: %s", cfg.Type))
	}
}

// MemoryStorage keeps runs in memory (for testing and one-shot CLI use).
type MemoryStorage struct {
	runs map[string]*Run
	mu   sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		runs: make(map[string]*Run),
	}
}

func (m *MemoryStorage) Save(ctx context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	runCopy := *run
	m.runs[run.ID] = &runCopy
	return nil
}

func (m *MemoryStorage) Load(ctx context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, exists := m.runs[id]
	if !exists {
		return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("run %s not found", id))
	}

	runCopy := *run
	return &runCopy, nil
}

func (m *MemoryStorage) LoadAll(ctx context.Context) ([]*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]*Run, 0, len(m.runs))
	for _, run := range m.runs {
		runCopy := *run
		runs = append(runs, &runCopy)
	}
	return runs, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.runs, id)
	return nil
}

func (m *MemoryStorage) Exists(ctx context.Context, id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.runs[id]
	return exists
}

func (m *MemoryStorage) Close() error { return nil }

// FileStorage stores runs as JSON files, one per run.
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based storage rooted at basePath.
func NewFileStorage(basePath string) *FileStorage {
	return &FileStorage{basePath: basePath}
}

func (f *FileStorage) runPath(id string) string {
	return filepath.Join(f.basePath, id+".json")
}

func (f *FileStorage) Save(ctx context.Context, run *Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := os.WriteFile(f.runPath(run.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}

	return nil
}

func (f *FileStorage) Load(ctx context.Context, id string) (*Run, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.runPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("run %s not found", id))
		}
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}

	return &run, nil
}

func (f *FileStorage) LoadAll(ctx context.Context) ([]*Run, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if _, err := os.Stat(f.basePath); os.IsNotExist(err) {
		return []*Run{}, nil
	}

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var runs []*Run
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(f.basePath, entry.Name()))
		if err != nil {
			continue // Skip files we can't read
		}

		var run Run
		if err := json.Unmarshal(data, &run); err != nil {
			continue // Skip invalid files
		}

		runs = append(runs, &run)
	}

	return runs, nil
}

func (f *FileStorage) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.runPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete run file: %w", err)
	}
	return nil
}

func (f *FileStorage) Exists(ctx context.Context, id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, err := os.Stat(f.runPath(id))
	return err == nil
}

func (f *FileStorage) Close() error { return nil }
