package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"idp-hq/assess/pkg/evaluation"
)

// MemoryStore implements evaluation.Store using an in-memory map.
// Runs are copied on the way in and out, so callers never share state
// with the store.
type MemoryStore struct {
	runs   map[string]*evaluation.Run
	mu     sync.RWMutex
	closed bool
}

// NewMemoryStore creates a new in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*evaluation.Run),
	}
}

// Create inserts a new run.
func (s *MemoryStore) Create(_ context.Context, run *evaluation.Run) error {
	if !run.Status.Valid() {
		return evaluation.NewStorageError("memory", "create",
			fmt.Errorf("invalid status %q", run.Status))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return evaluation.NewStorageError("memory", "create", errStoreClosed)
	}
	if _, ok := s.runs[run.ID]; ok {
		return fmt.Errorf("%w: %s", evaluation.ErrRunExists, run.ID)
	}
	s.runs[run.ID] = run.Clone()
	return nil
}

// Get returns a copy of the run.
func (s *MemoryStore) Get(_ context.Context, id string) (*evaluation.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", evaluation.ErrRunNotFound, id)
	}
	return run.Clone(), nil
}

// Transition moves a run to a non-terminal status.
func (s *MemoryStore) Transition(_ context.Context, id string, to evaluation.Status) error {
	if to.IsTerminal() {
		return evaluation.NewTransitionError(id, "", to)
	}
	return s.update(id, to, func(*evaluation.Run) {})
}

// Finalize records a successful completion.
func (s *MemoryStore) Finalize(_ context.Context, id string, f evaluation.Finalization) error {
	return s.update(id, evaluation.StatusDone, func(run *evaluation.Run) {
		detached := (&evaluation.Run{Results: &f.Results, Trace: f.Trace}).Clone()
		index := f.Index
		completed := f.CompletedAt

		run.Results = detached.Results
		run.Index = &index
		run.CompletedAt = &completed
		run.Trace = detached.Trace
	})
}

// Fail records a pipeline fault.
func (s *MemoryStore) Fail(_ context.Context, id string, f evaluation.Failure) error {
	return s.update(id, evaluation.StatusError, func(run *evaluation.Run) {
		completed := f.CompletedAt
		run.CompletedAt = &completed
		run.Error = f.Message
		run.ErrorDetail = f.Detail
		run.Trace = (&evaluation.Run{Trace: f.Trace}).Clone().Trace
	})
}

func (s *MemoryStore) update(id string, to evaluation.Status, apply func(*evaluation.Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("%w: %s", evaluation.ErrRunNotFound, id)
	}
	if !evaluation.CanTransition(run.Status, to) {
		return evaluation.NewTransitionError(id, run.Status, to)
	}

	// Build the new state on a copy so the swap is all-or-nothing.
	next := run.Clone()
	apply(next)
	next.Status = to
	s.runs[id] = next
	return nil
}

// Delete removes a run.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("%w: %s", evaluation.ErrRunNotFound, id)
	}
	delete(s.runs, id)
	return nil
}

// List returns runs matching the filter, newest first.
func (s *MemoryStore) List(_ context.Context, filter evaluation.Filter) ([]*evaluation.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*evaluation.Run{}
	for _, run := range s.runs {
		if matchesFilter(run, filter) {
			results = append(results, run.Clone())
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID > results[j].ID
	})

	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// Prune deletes terminal runs completed before cutoff.
func (s *MemoryStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, run := range s.runs {
		if run.Status.IsTerminal() && run.CompletedAt != nil && run.CompletedAt.Before(cutoff) {
			delete(s.runs, id)
			count++
		}
	}
	return count, nil
}

// Close marks the store closed. Reads keep working so in-flight requests
// can drain; new runs are refused.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Size returns the number of runs held.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func matchesFilter(run *evaluation.Run, filter evaluation.Filter) bool {
	if filter.ScenarioID != "" && run.ScenarioID != filter.ScenarioID {
		return false
	}
	if filter.Status != "" && run.Status != filter.Status {
		return false
	}
	if !filter.CreatedBefore.IsZero() && !run.CreatedAt.Before(filter.CreatedBefore) {
		return false
	}
	return true
}
