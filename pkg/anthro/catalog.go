package anthro

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Catalog resolves datasets by ID.
type Catalog interface {
	Dataset(ctx context.Context, id string) (*Dataset, error)
}

// MemoryCatalog is an in-memory Catalog safe for concurrent use.
type MemoryCatalog struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
}

// NewMemoryCatalog creates a catalog holding datasets.
func NewMemoryCatalog(datasets ...*Dataset) *MemoryCatalog {
	c := &MemoryCatalog{datasets: make(map[string]*Dataset, len(datasets))}
	for _, d := range datasets {
		c.Put(d)
	}
	return c
}

// Put adds or replaces a dataset.
func (c *MemoryCatalog) Put(d *Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.datasets[d.ID] = d
}

// Dataset returns the dataset with the given ID.
func (c *MemoryCatalog) Dataset(_ context.Context, id string) (*Dataset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.datasets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return d, nil
}

// List returns all datasets ordered by ID.
func (c *MemoryCatalog) List() []*Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Dataset, 0, len(c.datasets))
	for _, d := range c.datasets {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDir reads every *.yaml, *.yml and *.json dataset document in dir.
// A document without an id takes the file name without its extension.
func LoadDir(dir string) (*MemoryCatalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	catalog := NewMemoryCatalog()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
		}
		ds, err := ParseDataset(data)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", path, err)
		}
		if ds.ID == "" {
			ds.ID = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		if ds.Name == "" {
			ds.Name = ds.ID
		}
		catalog.Put(ds)
	}
	return catalog, nil
}
