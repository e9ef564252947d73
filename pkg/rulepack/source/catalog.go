package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"idp-hq/assess/pkg/anthro"
	"idp-hq/assess/pkg/evaluation"
	"idp-hq/assess/pkg/evaluation/orchestrator"
	"idp-hq/assess/pkg/rulepack"
	"idp-hq/assess/pkg/rules"
	"idp-hq/assess/pkg/telemetry/metrics"
)

// Config configures a Catalog. An empty directory is skipped.
type Config struct {
	RulePackDir string
	ScenarioDir string
	ArtifactDir string
	DatasetDir  string

	// DebounceInterval is passed to the file watcher.
	DebounceInterval time.Duration
}

// Dirs returns the configured directories.
func (c Config) Dirs() []string {
	var dirs []string
	for _, d := range []string{c.RulePackDir, c.ScenarioDir, c.ArtifactDir, c.DatasetDir} {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Option customizes a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) { c.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Catalog) { c.metrics = m }
}

// WithLinter replaces the default rule pack linter.
func WithLinter(l *rulepack.Linter) Option {
	return func(c *Catalog) { c.linter = l }
}

// snapshot is one consistent load of every directory.
type snapshot struct {
	refs     *evaluation.MemoryResolver
	datasets *anthro.MemoryCatalog
	loadedAt time.Time
	counts   Counts
}

// Counts reports how many entities a load produced.
type Counts struct {
	RulePacks int `json:"rulepacks"`
	Scenarios int `json:"scenarios"`
	Artifacts int `json:"artifacts"`
	Datasets  int `json:"datasets"`
}

// Catalog is a file-backed evaluation.Resolver and anthro.Catalog. It is
// safe for concurrent use.
type Catalog struct {
	config  Config
	linter  *rulepack.Linter
	logger  *slog.Logger
	metrics *metrics.Collector

	current atomic.Pointer[snapshot]

	reloadMu sync.Mutex
	lastErr  error
}

// NewCatalog creates a catalog and performs the initial load.
func NewCatalog(cfg Config, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		config: cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.linter == nil {
		c.linter = rulepack.NewLinter(nil, orchestrator.BaseBindingNames)
	}
	c.logger = c.logger.With("component", "rulepack.source")

	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload reads every directory again. On failure the previous contents stay
// in place.
func (c *Catalog) Reload() error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	snap, err := c.load()
	c.metrics.RecordCatalogReload(err == nil)
	c.lastErr = err
	if err != nil {
		if c.current.Load() != nil {
			c.logger.Error("catalog reload failed, keeping previous contents", "error", err)
		}
		return err
	}

	c.current.Store(snap)
	c.logger.Info("catalog loaded",
		"rulepacks", snap.counts.RulePacks,
		"scenarios", snap.counts.Scenarios,
		"artifacts", snap.counts.Artifacts,
		"datasets", snap.counts.Datasets,
	)
	return nil
}

// Watch reloads the catalog on file changes until ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context) error {
	cfg := DefaultFileWatcherConfig()
	cfg.Paths = c.config.Dirs()
	if c.config.DebounceInterval > 0 {
		cfg.DebounceInterval = c.config.DebounceInterval
	}
	if len(cfg.Paths) == 0 {
		return nil
	}

	fw, err := NewFileWatcher(cfg, c.logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	return fw.Watch(ctx, c.Reload)
}

// LastError returns the error of the most recent reload, or nil.
func (c *Catalog) LastError() error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()
	return c.lastErr
}

// LoadedAt returns when the current contents were loaded.
func (c *Catalog) LoadedAt() time.Time {
	return c.current.Load().loadedAt
}

// Counts returns the size of the current contents.
func (c *Catalog) Counts() Counts {
	return c.current.Load().counts
}

// Scenario implements evaluation.Resolver.
func (c *Catalog) Scenario(ctx context.Context, id string) (*evaluation.Scenario, error) {
	return c.current.Load().refs.Scenario(ctx, id)
}

// RulePack implements evaluation.Resolver.
func (c *Catalog) RulePack(ctx context.Context, id string) (*rules.RulePack, error) {
	return c.current.Load().refs.RulePack(ctx, id)
}

// Artifact implements evaluation.Resolver.
func (c *Catalog) Artifact(ctx context.Context, id string) (*evaluation.Artifact, error) {
	return c.current.Load().refs.Artifact(ctx, id)
}

// Dataset implements anthro.Catalog.
func (c *Catalog) Dataset(ctx context.Context, id string) (*anthro.Dataset, error) {
	return c.current.Load().datasets.Dataset(ctx, id)
}

func (c *Catalog) load() (*snapshot, error) {
	snap := &snapshot{
		refs:     evaluation.NewMemoryResolver(),
		datasets: anthro.NewMemoryCatalog(),
		loadedAt: time.Now(),
	}

	var errs []error
	if dir := c.config.RulePackDir; dir != "" {
		n, err := c.loadRulePacks(dir, snap.refs)
		snap.counts.RulePacks = n
		errs = append(errs, err)
	}
	if dir := c.config.ScenarioDir; dir != "" {
		n, err := loadJSONDir(dir, func(path string, data []byte) error {
			var s evaluation.Scenario
			if err := json.Unmarshal(data, &s); err != nil {
				return err
			}
			if s.ID == "" {
				s.ID = baseName(path)
			}
			snap.refs.PutScenario(&s)
			return nil
		})
		snap.counts.Scenarios = n
		errs = append(errs, err)
	}
	if dir := c.config.ArtifactDir; dir != "" {
		n, err := loadJSONDir(dir, func(path string, data []byte) error {
			var a evaluation.Artifact
			if err := json.Unmarshal(data, &a); err != nil {
				return err
			}
			if a.ID == "" {
				a.ID = baseName(path)
			}
			snap.refs.PutArtifact(&a)
			return nil
		})
		snap.counts.Artifacts = n
		errs = append(errs, err)
	}
	if dir := c.config.DatasetDir; dir != "" {
		datasets, err := anthro.LoadDir(dir)
		if err != nil {
			errs = append(errs, err)
		} else {
			snap.datasets = datasets
			snap.counts.Datasets = len(datasets.List())
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return snap, nil
}

func (c *Catalog) loadRulePacks(dir string, refs *evaluation.MemoryResolver) (int, error) {
	paths, err := listFiles(dir, rulepack.IsPackFile)
	if err != nil {
		return 0, err
	}

	var (
		errs   []error
		loaded int
		owners = make(map[string]string)
	)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read rule pack: %w", err))
			continue
		}
		pack, issues, err := rulepack.Load(data, rulepack.FormatFromPath(path), c.linter)
		if issues != nil {
			for _, w := range issues.Warnings() {
				c.logger.Warn("rule pack lint warning", "path", path, "issue", w.String())
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if pack.ID == "" {
			pack.ID = baseName(path)
		}
		if other, dup := owners[pack.ID]; dup {
			errs = append(errs, fmt.Errorf("%s: rule pack id %q already defined in %s", path, pack.ID, other))
			continue
		}
		owners[pack.ID] = path
		refs.PutRulePack(pack)
		loaded++
	}
	return loaded, errors.Join(errs...)
}

func loadJSONDir(dir string, put func(path string, data []byte) error) (int, error) {
	paths, err := listFiles(dir, func(p string) bool {
		return strings.EqualFold(filepath.Ext(p), ".json")
	})
	if err != nil {
		return 0, err
	}

	var (
		errs   []error
		loaded int
	)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err == nil {
			err = put(path, data)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		loaded++
	}
	return loaded, errors.Join(errs...)
}

// listFiles returns the matching regular files directly inside dir, sorted.
func listFiles(dir string, match func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !match(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
