package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"idp-hq/assess/pkg/evaluation"
	"idp-hq/assess/pkg/evaluation/storage"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, store evaluation.Store, id string, status evaluation.Status, completedDaysAgo int) {
	t.Helper()
	ctx := context.Background()
	created := now.AddDate(0, 0, -completedDaysAgo-1)

	run := &evaluation.Run{ID: id, ScenarioID: "scn", Status: evaluation.StatusQueued, CreatedAt: created}
	if err := store.Create(ctx, run); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	completed := now.AddDate(0, 0, -completedDaysAgo)
	switch status {
	case evaluation.StatusRunning:
		if err := store.Transition(ctx, id, evaluation.StatusRunning); err != nil {
			t.Fatalf("Transition() failed: %v", err)
		}
	case evaluation.StatusDone:
		if err := store.Transition(ctx, id, evaluation.StatusRunning); err != nil {
			t.Fatalf("Transition() failed: %v", err)
		}
		if err := store.Finalize(ctx, id, evaluation.Finalization{CompletedAt: completed}); err != nil {
			t.Fatalf("Finalize() failed: %v", err)
		}
	case evaluation.StatusError:
		if err := store.Fail(ctx, id, evaluation.Failure{Message: "load: boom", CompletedAt: completed}); err != nil {
			t.Fatalf("Fail() failed: %v", err)
		}
	}
}

func TestPruner_Prune(t *testing.T) {
	store := storage.NewMemoryStore()
	seed(t, store, "old-done", evaluation.StatusDone, 40)
	seed(t, store, "old-error", evaluation.StatusError, 31)
	seed(t, store, "recent-done", evaluation.StatusDone, 5)
	seed(t, store, "old-queued", evaluation.StatusQueued, 200)
	seed(t, store, "old-running", evaluation.StatusRunning, 200)

	pruner := NewPruner(store, &Config{RetentionDays: 30})
	pruner.now = func() time.Time { return now }

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Prune() deleted %d runs, want 2", deleted)
	}

	for _, id := range []string{"old-done", "old-error"} {
		if _, err := store.Get(context.Background(), id); !errors.Is(err, evaluation.ErrRunNotFound) {
			t.Errorf("Get(%s) error = %v, want ErrRunNotFound", id, err)
		}
	}
	for _, id := range []string{"recent-done", "old-queued", "old-running"} {
		if _, err := store.Get(context.Background(), id); err != nil {
			t.Errorf("Get(%s) failed: %v", id, err)
		}
	}
}

func TestPruner_Disabled(t *testing.T) {
	store := storage.NewMemoryStore()
	seed(t, store, "ancient", evaluation.StatusDone, 1000)

	pruner := NewPruner(store, &Config{RetentionDays: 0})
	deleted, err := pruner.Prune(context.Background())
	if err != nil || deleted != 0 {
		t.Errorf("Prune() = %d, %v, want 0, nil", deleted, err)
	}
	if !pruner.Cutoff().IsZero() {
		t.Errorf("Cutoff() = %v, want zero", pruner.Cutoff())
	}
}

type failingStore struct {
	*storage.MemoryStore
}

func (failingStore) Prune(context.Context, time.Time) (int, error) {
	return 0, evaluation.NewStorageError("memory", "prune", errors.New("locked"))
}

func TestPruner_StoreError(t *testing.T) {
	pruner := NewPruner(failingStore{storage.NewMemoryStore()}, &Config{RetentionDays: 1})

	_, err := pruner.Prune(context.Background())
	var storageErr *evaluation.StorageError
	if !errors.As(err, &storageErr) {
		t.Errorf("Prune() error = %v, want StorageError", err)
	}
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name          string
		schedule      string
		retentionDays int
		wantRunning   bool
		wantError     bool
	}{
		{"daily schedule", "0 3 * * *", 90, true, false},
		{"hourly schedule", "0 * * * *", 90, true, false},
		{"empty schedule", "", 90, false, false},
		{"retention disabled", "0 3 * * *", 0, false, false},
		{"invalid schedule", "invalid cron", 90, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruner := NewPruner(storage.NewMemoryStore(), &Config{
				PruneSchedule: tt.schedule,
				RetentionDays: tt.retentionDays,
			})
			scheduler := pruner.Scheduler()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := scheduler.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", scheduler.IsRunning(), tt.wantRunning)
			}

			next := scheduler.NextRun()
			if tt.wantRunning && (next == nil || !next.After(time.Now())) {
				t.Errorf("NextRun() = %v, want a future time", next)
			}
			if !tt.wantRunning && next != nil {
				t.Errorf("NextRun() = %v for idle scheduler", next)
			}

			scheduler.Stop()
			if scheduler.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
		})
	}
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStore(), &Config{PruneSchedule: "@every 1h", RetentionDays: 7})
	scheduler := pruner.Scheduler()

	ctx, cancel := context.WithCancel(context.Background())
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for scheduler.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if scheduler.IsRunning() {
		t.Error("scheduler still running after context cancellation")
	}
}
