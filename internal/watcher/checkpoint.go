package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpointer persists the last fully processed block.
type Checkpointer interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, block uint64) error
}

type fileCheckpoint struct {
	LastProcessedBlock uint64 `json:"last_processed_block"`
	Pool               string `json:"pool,omitempty"`
	UpdatedAt          string `json:"updated_at"`
}

// FileCheckpoint stores progress as a small JSON document, replaced
// atomically on every save.
type FileCheckpoint struct {
	path string
	pool string
}

func NewFileCheckpoint(path, pool string) *FileCheckpoint {
	return &FileCheckpoint{path: path, pool: pool}
}

func (c *FileCheckpoint) Load(context.Context) (uint64, bool, error) {
	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return 0, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp fileCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return 0, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	if cp.Pool != "" && c.pool != "" && cp.Pool != c.pool {
		return 0, false, fmt.Errorf("checkpoint belongs to pool %s, not %s", cp.Pool, c.pool)
	}
	return cp.LastProcessedBlock, true, nil
}

func (c *FileCheckpoint) Save(_ context.Context, block uint64) error {
	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(fileCheckpoint{
		LastProcessedBlock: block,
		Pool:               c.pool,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// StateStore is the subset of the postgres store used for checkpoints.
type StateStore interface {
	LoadCheckpoint(ctx context.Context, name string) (uint64, bool, error)
	SaveCheckpoint(ctx context.Context, name string, block uint64) error
}

// StoreCheckpoint keeps progress in a database row keyed by name.
type StoreCheckpoint struct {
	store StateStore
	name  string
}

func NewStoreCheckpoint(store StateStore, name string) *StoreCheckpoint {
	return &StoreCheckpoint{store: store, name: name}
}

func (c *StoreCheckpoint) Load(ctx context.Context) (uint64, bool, error) {
	return c.store.LoadCheckpoint(ctx, c.name)
}

func (c *StoreCheckpoint) Save(ctx context.Context, block uint64) error {
	return c.store.SaveCheckpoint(ctx, c.name, block)
}
