package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"store":   func(context.Context) error { return nil },
				"catalog": func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"store":   func(context.Context) error { return nil },
				"catalog": func(context.Context) error { return errors.New("reload failed") },
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"catalog"},
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"store": func(ctx context.Context) error { <-ctx.Done(); time.Sleep(10 * time.Millisecond); return nil },
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"store"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(50*time.Millisecond, "test")
			for name, check := range tt.checks {
				checker.Register(name, check)
			}

			report := checker.Readiness(context.Background())
			if report.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", report.Status, tt.wantStatus)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Errorf("got %d check results, want %d", len(report.Checks), len(tt.checks))
			}
			for _, name := range tt.wantFailed {
				if report.Checks[name].Status != StatusUnhealthy || report.Checks[name].Message == "" {
					t.Errorf("check %s = %+v, want unhealthy with message", name, report.Checks[name])
				}
			}
		})
	}
}

func TestHandlers(t *testing.T) {
	checker := New(time.Second, "1.2.3")
	checker.Register("store", func(context.Context) error { return errors.New("closed") })

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		method   string
		wantCode int
		wantBody bool
	}{
		{"liveness", checker.LivenessHandler(), http.MethodGet, http.StatusOK, true},
		{"liveness head", checker.LivenessHandler(), http.MethodHead, http.StatusOK, false},
		{"readiness degraded", checker.ReadinessHandler(), http.MethodGet, http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(tt.method, "/", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !tt.wantBody {
				if rec.Body.Len() != 0 {
					t.Error("HEAD response has a body")
				}
				return
			}
			var report Report
			if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
				t.Fatalf("Decode() failed: %v", err)
			}
			if report.Version != "1.2.3" {
				t.Errorf("Version = %q", report.Version)
			}
		})
	}
}

func TestChecker_Names(t *testing.T) {
	checker := New(0, "")
	checker.Register("store", nil)
	checker.Register("catalog", nil)
	checker.Register("store", nil)

	names := checker.Names()
	if len(names) != 2 || names[0] != "catalog" || names[1] != "store" {
		t.Errorf("Names() = %v", names)
	}
}
