package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"idp-hq/assess/pkg/evaluation"
	"idp-hq/assess/pkg/inclusivity"
	"idp-hq/assess/pkg/rules"
	"idp-hq/assess/pkg/simulation"
)

type storeFactory func(t *testing.T) evaluation.Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) evaluation.Store {
			return NewMemoryStore()
		},
		"sqlite3": func(t *testing.T) evaluation.Store {
			return createTempStore(t, DriverCGo)
		},
		"sqlite": func(t *testing.T) evaluation.Store {
			return createTempStore(t, DriverPure)
		},
	}
}

// createTempStore creates a SQLite store in a temporary directory.
func createTempStore(t *testing.T, driver string) *SQLiteStore {
	t.Helper()

	config := &SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "runs.db"),
		Driver:       driver,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}

	store, err := NewSQLiteStore(config)
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	return store
}

func newRun(id, scenarioID string, created time.Time) *evaluation.Run {
	return &evaluation.Run{
		ID:         id,
		ScenarioID: scenarioID,
		Status:     evaluation.StatusQueued,
		Inputs: evaluation.Inputs{
			ArtifactID: "artifact-1",
			RulePackID: "pack-1",
			WebhookURL: "http://hooks.local/idp",
			Debug:      true,
		},
		CreatedAt: created,
	}
}

func sampleFinalization(done time.Time) evaluation.Finalization {
	remediation := "Move the control closer"
	return evaluation.Finalization{
		Results: evaluation.Results{
			Reach:    simulation.ReachResult{OK: true, DistanceCM: 55, Posture: "seated"},
			Strength: simulation.StrengthResult{OK: false, RequiredForceN: 30, CapabilityN: 25},
			Visual:   simulation.VisualResult{OK: true, ContrastRatio: 21},
			Rules: []rules.RuleResult{
				{ID: "R1", Passed: true, Severity: "info", Details: rules.Details{Variables: map[string]any{"distance_cm": 55.0}}},
				{ID: "R2", Passed: false, Severity: "high", Remediation: &remediation, Details: rules.Details{Error: "unknown variable"}},
			},
		},
		Index:       inclusivity.Compute(true, false, true),
		CompletedAt: done,
		Trace: []evaluation.TraceEntry{
			{RuleID: "R1", Passed: true, Outcome: "success", Duration: time.Millisecond},
		},
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			created := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
			if err := store.Create(ctx, newRun("run-1", "scn-1", created)); err != nil {
				t.Fatalf("Create() failed: %v", err)
			}

			got, err := store.Get(ctx, "run-1")
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if got.Status != evaluation.StatusQueued {
				t.Errorf("Status = %s, want queued", got.Status)
			}
			if !got.CreatedAt.Equal(created) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
			}
			if got.Inputs.WebhookURL != "http://hooks.local/idp" || !got.Inputs.Debug {
				t.Errorf("Inputs = %+v, not round-tripped", got.Inputs)
			}
			if got.Results != nil || got.Index != nil || got.CompletedAt != nil {
				t.Errorf("non-terminal run carries outputs: %+v", got)
			}

			err = store.Create(ctx, newRun("run-1", "scn-1", created))
			if !errors.Is(err, evaluation.ErrRunExists) {
				t.Errorf("duplicate Create() error = %v, want ErrRunExists", err)
			}

			_, err = store.Get(ctx, "missing")
			if !errors.Is(err, evaluation.ErrRunNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrRunNotFound", err)
			}
		})
	}
}

func TestStore_Lifecycle(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			now := time.Now().UTC()
			if err := store.Create(ctx, newRun("run-1", "scn-1", now)); err != nil {
				t.Fatalf("Create() failed: %v", err)
			}
			if err := store.Transition(ctx, "run-1", evaluation.StatusRunning); err != nil {
				t.Fatalf("Transition(running) failed: %v", err)
			}

			// Backwards moves are refused.
			var te *evaluation.TransitionError
			err := store.Transition(ctx, "run-1", evaluation.StatusQueued)
			if !errors.As(err, &te) {
				t.Fatalf("Transition(queued) error = %v, want TransitionError", err)
			}
			if te.From != evaluation.StatusRunning {
				t.Errorf("TransitionError.From = %s, want running", te.From)
			}

			done := now.Add(time.Second)
			if err := store.Finalize(ctx, "run-1", sampleFinalization(done)); err != nil {
				t.Fatalf("Finalize() failed: %v", err)
			}

			got, err := store.Get(ctx, "run-1")
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if got.Status != evaluation.StatusDone {
				t.Errorf("Status = %s, want done", got.Status)
			}
			if got.Results == nil || len(got.Results.Rules) != 2 {
				t.Fatalf("Results = %+v, want two rule results", got.Results)
			}
			if got.Results.Rules[0].ID != "R1" || got.Results.Rules[1].ID != "R2" {
				t.Errorf("rule order not preserved: %+v", got.Results.Rules)
			}
			if got.Results.Rules[1].Remediation == nil || *got.Results.Rules[1].Remediation != "Move the control closer" {
				t.Errorf("Remediation not round-tripped: %+v", got.Results.Rules[1])
			}
			want := inclusivity.Compute(true, false, true)
			if got.Index == nil || *got.Index != want {
				t.Errorf("Index = %+v, want %+v", got.Index, want)
			}
			if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
				t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, done)
			}
			if len(got.Trace) != 1 || got.Trace[0].Duration != time.Millisecond {
				t.Errorf("Trace = %+v, want one entry", got.Trace)
			}

			// Terminal runs accept nothing.
			if err := store.Fail(ctx, "run-1", evaluation.Failure{Message: "late", CompletedAt: done}); !errors.As(err, &te) {
				t.Errorf("Fail() after done error = %v, want TransitionError", err)
			}
			if err := store.Finalize(ctx, "run-1", sampleFinalization(done)); !errors.As(err, &te) {
				t.Errorf("second Finalize() error = %v, want TransitionError", err)
			}
		})
	}
}

func TestStore_Fail(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			now := time.Now().UTC()
			if err := store.Create(ctx, newRun("run-1", "scn-1", now)); err != nil {
				t.Fatalf("Create() failed: %v", err)
			}

			// A queued run may fail without passing through running.
			err := store.Fail(ctx, "run-1", evaluation.Failure{
				Message:     "scenario not found",
				Detail:      "goroutine 1 [running]",
				CompletedAt: now,
			})
			if err != nil {
				t.Fatalf("Fail() failed: %v", err)
			}

			got, err := store.Get(ctx, "run-1")
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if got.Status != evaluation.StatusError {
				t.Errorf("Status = %s, want error", got.Status)
			}
			if got.Error != "scenario not found" || got.ErrorDetail != "goroutine 1 [running]" {
				t.Errorf("Error = %q, ErrorDetail = %q", got.Error, got.ErrorDetail)
			}
			if got.Results != nil || got.Index != nil {
				t.Errorf("failed run carries results: %+v", got)
			}
		})
	}
}

func TestStore_TransitionRules(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			if err := store.Transition(ctx, "missing", evaluation.StatusRunning); !errors.Is(err, evaluation.ErrRunNotFound) {
				t.Errorf("Transition(missing) error = %v, want ErrRunNotFound", err)
			}

			if err := store.Create(ctx, newRun("run-1", "scn-1", time.Now())); err != nil {
				t.Fatalf("Create() failed: %v", err)
			}

			var te *evaluation.TransitionError
			if err := store.Transition(ctx, "run-1", evaluation.StatusDone); !errors.As(err, &te) {
				t.Errorf("Transition(done) error = %v, want TransitionError", err)
			}
			if err := store.Transition(ctx, "run-1", evaluation.StatusQueued); !errors.As(err, &te) {
				t.Errorf("Transition(queued -> queued) error = %v, want TransitionError", err)
			}
		})
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				scenario := "scn-a"
				if i%2 == 1 {
					scenario = "scn-b"
				}
				run := newRun(fmt.Sprintf("run-%d", i), scenario, base.Add(time.Duration(i)*time.Minute))
				if err := store.Create(ctx, run); err != nil {
					t.Fatalf("Create() failed: %v", err)
				}
			}

			tests := []struct {
				name   string
				filter evaluation.Filter
				want   []string
			}{
				{"all newest first", evaluation.Filter{}, []string{"run-4", "run-3", "run-2", "run-1", "run-0"}},
				{"by scenario", evaluation.Filter{ScenarioID: "scn-a"}, []string{"run-4", "run-2", "run-0"}},
				{"created before", evaluation.Filter{ScenarioID: "scn-a", CreatedBefore: base.Add(4 * time.Minute)}, []string{"run-2", "run-0"}},
				{"limit", evaluation.Filter{Limit: 2}, []string{"run-4", "run-3"}},
				{"by status", evaluation.Filter{Status: evaluation.StatusDone}, []string{}},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					runs, err := store.List(ctx, tt.filter)
					if err != nil {
						t.Fatalf("List() failed: %v", err)
					}
					got := make([]string, 0, len(runs))
					for _, r := range runs {
						got = append(got, r.ID)
					}
					if fmt.Sprint(got) != fmt.Sprint(tt.want) {
						t.Errorf("List() = %v, want %v", got, tt.want)
					}
				})
			}

			if err := store.Delete(ctx, "run-0"); err != nil {
				t.Fatalf("Delete() failed: %v", err)
			}
			if err := store.Delete(ctx, "run-0"); !errors.Is(err, evaluation.ErrRunNotFound) {
				t.Errorf("second Delete() error = %v, want ErrRunNotFound", err)
			}
		})
	}
}

func TestStore_Prune(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			now := time.Now().UTC()
			old := now.Add(-10 * 24 * time.Hour)

			for _, id := range []string{"old-done", "old-error", "recent-done", "queued"} {
				if err := store.Create(ctx, newRun(id, "scn", old)); err != nil {
					t.Fatalf("Create() failed: %v", err)
				}
			}
			if err := store.Finalize(ctx, "old-done", sampleFinalization(old)); err != nil {
				t.Fatalf("Finalize() failed: %v", err)
			}
			if err := store.Fail(ctx, "old-error", evaluation.Failure{Message: "x", CompletedAt: old}); err != nil {
				t.Fatalf("Fail() failed: %v", err)
			}
			if err := store.Finalize(ctx, "recent-done", sampleFinalization(now)); err != nil {
				t.Fatalf("Finalize() failed: %v", err)
			}

			n, err := store.Prune(ctx, now.Add(-7*24*time.Hour))
			if err != nil {
				t.Fatalf("Prune() failed: %v", err)
			}
			if n != 2 {
				t.Errorf("Prune() = %d, want 2", n)
			}

			for _, id := range []string{"recent-done", "queued"} {
				if _, err := store.Get(ctx, id); err != nil {
					t.Errorf("Get(%s) after prune failed: %v", id, err)
				}
			}
			for _, id := range []string{"old-done", "old-error"} {
				if _, err := store.Get(ctx, id); !errors.Is(err, evaluation.ErrRunNotFound) {
					t.Errorf("Get(%s) after prune error = %v, want ErrRunNotFound", id, err)
				}
			}
		})
	}
}

// Finalize racing with Fail must leave exactly one winner.
func TestStore_ConcurrentTerminalWrites(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			const runs = 20
			now := time.Now().UTC()
			for i := 0; i < runs; i++ {
				if err := store.Create(ctx, newRun(fmt.Sprintf("run-%d", i), "scn", now)); err != nil {
					t.Fatalf("Create() failed: %v", err)
				}
			}

			var wg sync.WaitGroup
			var mu sync.Mutex
			wins := make(map[string]int)
			for i := 0; i < runs; i++ {
				id := fmt.Sprintf("run-%d", i)
				wg.Add(2)
				go func() {
					defer wg.Done()
					if store.Finalize(ctx, id, sampleFinalization(now)) == nil {
						mu.Lock()
						wins[id]++
						mu.Unlock()
					}
				}()
				go func() {
					defer wg.Done()
					if store.Fail(ctx, id, evaluation.Failure{Message: "fault", CompletedAt: now}) == nil {
						mu.Lock()
						wins[id]++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			for i := 0; i < runs; i++ {
				id := fmt.Sprintf("run-%d", i)
				if wins[id] != 1 {
					t.Errorf("%s: %d terminal writes succeeded, want 1", id, wins[id])
				}
				got, err := store.Get(ctx, id)
				if err != nil {
					t.Fatalf("Get() failed: %v", err)
				}
				if got.Status == evaluation.StatusDone && got.Results == nil {
					t.Errorf("%s: done without results", id)
				}
			}
		})
	}
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	run := newRun("run-1", "scn", time.Now())
	if err := store.Create(ctx, run); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	run.Status = evaluation.StatusDone

	got, _ := store.Get(ctx, "run-1")
	if got.Status != evaluation.StatusQueued {
		t.Errorf("caller mutation leaked into store: status %s", got.Status)
	}
	got.ScenarioID = "changed"

	again, _ := store.Get(ctx, "run-1")
	if again.ScenarioID != "scn" {
		t.Errorf("returned run shares state with store")
	}

	err := store.Finalize(ctx, "run-1", evaluation.Finalization{
		Results: evaluation.Results{Rules: []rules.RuleResult{{
			ID:      "reach",
			Details: rules.Details{Variables: map[string]any{"distance_cm": 55.0}},
		}}},
		CompletedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}
	done, _ := store.Get(ctx, "run-1")
	done.Results.Rules[0].Details.Variables["distance_cm"] = 99.0

	final, _ := store.Get(ctx, "run-1")
	if final.Results.Rules[0].Details.Variables["distance_cm"] != 55.0 {
		t.Errorf("rule details of returned run share state with store")
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	store := NewMemoryStore()
	store.Close()

	err := store.Create(context.Background(), newRun("run-1", "scn", time.Now()))
	var se *evaluation.StorageError
	if !errors.As(err, &se) {
		t.Errorf("Create() after Close error = %v, want StorageError", err)
	}
}

func TestSQLiteStore_SchemaVersion(t *testing.T) {
	store := createTempStore(t, DriverCGo)
	defer store.Close()

	var version int
	if err := store.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		t.Fatalf("schema version query failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %d, want %d", version, SchemaVersion)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	config := &SQLiteConfig{Path: path, Driver: DriverPure, WALMode: true, BusyTimeout: time.Second}

	store, err := NewSQLiteStore(config)
	if err != nil {
		t.Fatalf("NewSQLiteStore() failed: %v", err)
	}
	if err := store.Create(context.Background(), newRun("run-1", "scn", time.Now())); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	store.Close()

	store, err = NewSQLiteStore(config)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()
	if _, err := store.Get(context.Background(), "run-1"); err != nil {
		t.Errorf("Get() after reopen failed: %v", err)
	}
}

func TestSQLiteStore_UnknownDriver(t *testing.T) {
	_, err := NewSQLiteStore(&SQLiteConfig{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres"})
	var se *evaluation.StorageError
	if !errors.As(err, &se) {
		t.Errorf("NewSQLiteStore() error = %v, want StorageError", err)
	}
}

func BenchmarkSQLiteStore_Create(b *testing.B) {
	store, err := NewSQLiteStore(&SQLiteConfig{
		Path:        filepath.Join(b.TempDir(), "bench.db"),
		Driver:      DriverCGo,
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	})
	if err != nil {
		b.Fatalf("NewSQLiteStore() failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := store.Create(ctx, newRun(fmt.Sprintf("run-%d", i), "scn", now)); err != nil {
			b.Fatalf("Create() failed: %v", err)
		}
	}
}
