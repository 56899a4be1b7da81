package deployment

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/anirudhbiyani/aijay/pkg/foundations"
)

// ClientConfig is the configuration file consumed by the mobile app.
type ClientConfig struct {
	Outputs
	Region    string    `json:"region"`
	StackName string    `json:"stackName"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// NewClientConfig builds a client config from stack outputs.
func NewClientConfig(outputs Outputs, region, stackName string, fetchedAt time.Time) ClientConfig {
	return ClientConfig{
		Outputs:   outputs,
		Region:    region,
		StackName: stackName,
		FetchedAt: fetchedAt.UTC(),
	}
}

// SnapshotStore persists the last fetched client config.
type SnapshotStore interface {
	// Save stores cfg, replacing any previous snapshot.
	Save(ctx context.Context, cfg ClientConfig) error

	// Load returns the stored snapshot or a not_found error.
	Load(ctx context.Context) (*ClientConfig, error)
}

// MemorySnapshotStore is an in-memory SnapshotStore for testing.
type MemorySnapshotStore struct {
	mu  sync.RWMutex
	cfg *ClientConfig
}

// NewMemorySnapshotStore creates an empty in-memory store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

// Save implements SnapshotStore.
func (s *MemorySnapshotStore) Save(_ context.Context, cfg ClientConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = &cfg
	return nil
}

// Load implements SnapshotStore.
func (s *MemorySnapshotStore) Load(_ context.Context) (*ClientConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cfg == nil {
		return nil, foundations.ErrNotFound("snapshot", "memory")
	}
	cfg := *s.cfg
	return &cfg, nil
}

// FileSnapshotStore writes the client config as indented JSON.
type FileSnapshotStore struct {
	mu       sync.Mutex
	filePath string
}

// NewFileSnapshotStore creates a store backed by filePath. The file is not
// touched until Save or Load.
func NewFileSnapshotStore(filePath string) *FileSnapshotStore {
	return &FileSnapshotStore{filePath: filePath}
}

// Path returns the backing file path.
func (s *FileSnapshotStore) Path() string {
	return s.filePath
}

// Save implements SnapshotStore. The write is atomic: readers see either the
// previous file or the new one.
func (s *FileSnapshotStore) Save(_ context.Context, cfg ClientConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal client config: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp config file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set config file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename config file: %w", err)
	}
	return nil
}

// Load implements SnapshotStore.
func (s *FileSnapshotStore) Load(_ context.Context) (*ClientConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil, foundations.ErrNotFound("snapshot", s.filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read client config: %w", err)
	}

	var cfg ClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, foundations.ErrValidation("invalid client config file").
			WithResource("file", s.filePath).WithCause(err)
	}
	return &cfg, nil
}
