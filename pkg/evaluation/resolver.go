package evaluation

import (
	"context"
	"fmt"
	"sync"

	"idp-hq/assess/pkg/rules"
)

// MemoryResolver is a Resolver backed by maps. It is safe for concurrent use.
type MemoryResolver struct {
	mu        sync.RWMutex
	scenarios map[string]*Scenario
	packs     map[string]*rules.RulePack
	artifacts map[string]*Artifact
}

// NewMemoryResolver creates an empty resolver.
func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{
		scenarios: make(map[string]*Scenario),
		packs:     make(map[string]*rules.RulePack),
		artifacts: make(map[string]*Artifact),
	}
}

// PutScenario adds or replaces a scenario.
func (r *MemoryResolver) PutScenario(s *Scenario) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenarios[s.ID] = s
}

// PutRulePack adds or replaces a rule pack.
func (r *MemoryResolver) PutRulePack(p *rules.RulePack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packs[p.ID] = p
}

// PutArtifact adds or replaces an artifact.
func (r *MemoryResolver) PutArtifact(a *Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[a.ID] = a
}

// Scenario implements Resolver.
func (r *MemoryResolver) Scenario(_ context.Context, id string) (*Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("scenario %q: %w", id, ErrNotFound)
	}
	return s, nil
}

// RulePack implements Resolver. The returned pack is a snapshot.
func (r *MemoryResolver) RulePack(_ context.Context, id string) (*rules.RulePack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.packs[id]
	if !ok {
		return nil, fmt.Errorf("rule pack %q: %w", id, ErrNotFound)
	}
	return p.Snapshot(), nil
}

// Artifact implements Resolver.
func (r *MemoryResolver) Artifact(_ context.Context, id string) (*Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.artifacts[id]
	if !ok {
		return nil, fmt.Errorf("artifact %q: %w", id, ErrNotFound)
	}
	return a, nil
}
