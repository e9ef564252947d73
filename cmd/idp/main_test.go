package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const packYAML = `id: core
name: Core
version: 1
rules:
  - id: reach
    severity: high
    condition: distance_cm <= 60
  - id: contrast
    severity: medium
    condition: contrast_ratio >= 4.5
`

const warnPackYAML = `id: seating
name: Seating
version: 1
rules:
  - id: seat
    condition: seat_height_cm > 40
`

const brokenPackYAML = `id: broken
name: Broken
version: 1
rules:
  - id: bad
    condition: distance_cm <=
`

const datasetYAML = `id: ansur
name: ANSUR II
distributions:
  stature:
    - region: NA
      percentiles: {p5: 165, p50: 177, p95: 190}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
}

// newWorkspace writes a catalog tree and a config file pointing at it,
// and returns the config path.
func newWorkspace(t *testing.T, extraConfig string) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "rulepacks", "core.yaml"), packYAML)
	writeFile(t, filepath.Join(root, "scenarios", "kiosk.json"), `{"name": "Kiosk", "config": {"distance_to_control_cm": 50}}`)
	writeFile(t, filepath.Join(root, "artifacts", "panel.json"), `{"name": "Panel"}`)
	writeFile(t, filepath.Join(root, "datasets", "ansur.yaml"), datasetYAML)

	cfg := `storage:
  backend: memory
catalog:
  rulepack_dir: ` + filepath.Join(root, "rulepacks") + `
  scenario_dir: ` + filepath.Join(root, "scenarios") + `
  artifact_dir: ` + filepath.Join(root, "artifacts") + `
  dataset_dir: ` + filepath.Join(root, "datasets") + `
telemetry:
  logging:
    level: error
    format: text
` + extraConfig
	path := filepath.Join(root, "idp.yaml")
	writeFile(t, path, cfg)
	return path
}

// runCommand executes the root command with args and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, verbose = "", false
	evaluateFlags.artifact, evaluateFlags.scenario, evaluateFlags.rulepack = "", "", ""
	evaluateFlags.debug, evaluateFlags.persist, evaluateFlags.format = false, false, "text"
	lintFlags.strict, lintFlags.format = false, "text"
	percentileFlags.dir, percentileFlags.metric, percentileFlags.percentile = "", "", 50
	percentileFlags.region, percentileFlags.sex, percentileFlags.age, percentileFlags.format = "", "", "", "text"
	pruneFlags.days = 0
	serveFlags.listenAddress, serveFlags.logLevel, serveFlags.dryRun = "", "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "idp "+Version) || !strings.Contains(out, "Go Version") {
		t.Errorf("output = %q", out)
	}
}

func TestEvaluateCommand(t *testing.T) {
	cfg := newWorkspace(t, "")

	out, err := runCommand(t, "evaluate", "--config", cfg,
		"--artifact", "panel", "--scenario", "kiosk", "--rulepack", "core", "--format", "json")
	if err != nil {
		t.Fatalf("evaluate failed: %v\n%s", err, out)
	}

	var view struct {
		Status           string `json:"status"`
		InclusivityIndex *struct {
			Score float64 `json:"score"`
		} `json:"inclusivity_index"`
		Results struct {
			Rules []struct {
				ID     string `json:"id"`
				Passed bool   `json:"passed"`
			} `json:"rules"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if view.Status != "done" {
		t.Errorf("status = %q, want done", view.Status)
	}
	if view.InclusivityIndex == nil {
		t.Error("inclusivity_index missing")
	}
	if len(view.Results.Rules) != 2 || view.Results.Rules[0].ID != "reach" || !view.Results.Rules[0].Passed {
		t.Errorf("rules = %+v", view.Results.Rules)
	}
}

func TestEvaluateCommand_TextOutput(t *testing.T) {
	cfg := newWorkspace(t, "")

	out, err := runCommand(t, "evaluate", "-c", cfg, "-a", "panel", "-s", "kiosk", "-r", "core")
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	for _, want := range []string{"Status: done", "Inclusivity index:", "reach"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEvaluateCommand_InvalidReferences(t *testing.T) {
	cfg := newWorkspace(t, "")

	_, err := runCommand(t, "evaluate", "--config", cfg,
		"--artifact", "missing", "--scenario", "kiosk", "--rulepack", "core")
	if err == nil || !strings.Contains(err.Error(), "invalid references") {
		t.Errorf("evaluate error = %v, want invalid references", err)
	}
}

func TestLintCommand(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "core.yaml")
	warn := filepath.Join(dir, "seating.yaml")
	broken := filepath.Join(dir, "broken.yaml")
	writeFile(t, valid, packYAML)
	writeFile(t, warn, warnPackYAML)
	writeFile(t, broken, brokenPackYAML)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		wantOut string
	}{
		{"valid file", []string{valid}, false, "✓"},
		{"warning passes", []string{warn}, false, "warning:"},
		{"warning fails strict", []string{warn, "--strict"}, true, "warning:"},
		{"broken file", []string{broken}, true, "error:"},
		{"directory", []string{dir}, true, "3 files, 2 passed, 1 failed"},
		{"missing path", []string{filepath.Join(dir, "absent.yaml")}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, append([]string{"lint"}, tt.args...)...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("lint error = %v, wantErr %v\n%s", err, tt.wantErr, out)
			}
			if !strings.Contains(out, tt.wantOut) {
				t.Errorf("output missing %q:\n%s", tt.wantOut, out)
			}
		})
	}
}

func TestLintCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "core.yaml")
	writeFile(t, path, packYAML)

	out, err := runCommand(t, "lint", path, "--format", "json")
	if err != nil {
		t.Fatalf("lint failed: %v", err)
	}

	var report struct {
		Results []LintResult `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(report.Results) != 1 || !report.Results[0].Valid || report.Results[0].Rules != 2 {
		t.Errorf("results = %+v", report.Results)
	}
}

func TestPercentileCommand(t *testing.T) {
	cfg := newWorkspace(t, "")

	tests := []struct {
		name      string
		args      []string
		wantErr   bool
		wantValue float64
	}{
		{"median", []string{"ansur", "--metric", "stature"}, false, 177},
		{"p95 region", []string{"ansur", "-m", "stature", "-p", "95", "--region", "NA"}, false, 190},
		{"unknown dataset", []string{"nope", "-m", "stature"}, true, 0},
		{"unknown metric", []string{"ansur", "-m", "weight"}, true, 0},
		{"out of range", []string{"ansur", "-m", "stature", "-p", "120"}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"percentile", "--config", cfg, "--format", "json"}, tt.args...)
			out, err := runCommand(t, args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("percentile error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			var res percentileResult
			if err := json.Unmarshal([]byte(out), &res); err != nil {
				t.Fatalf("output is not JSON: %v", err)
			}
			if res.Value != tt.wantValue {
				t.Errorf("value = %v, want %v", res.Value, tt.wantValue)
			}
		})
	}
}

func TestPruneCommand(t *testing.T) {
	cfg := newWorkspace(t, "retention:\n  days: 0\n")

	if _, err := runCommand(t, "prune", "--config", cfg); err == nil {
		t.Error("prune with retention disabled succeeded")
	}

	out, err := runCommand(t, "prune", "--config", cfg, "--days", "30")
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if !strings.Contains(out, "Deleted 0 runs") {
		t.Errorf("output = %q", out)
	}
}

func TestServeCommand_DryRun(t *testing.T) {
	cfg := newWorkspace(t, "")

	out, err := runCommand(t, "serve", "--config", cfg, "--dry-run")
	if err != nil {
		t.Fatalf("serve --dry-run failed: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, "RulePacks:1") {
		t.Errorf("output = %q", out)
	}
}

func TestServeCommand_InvalidListen(t *testing.T) {
	cfg := newWorkspace(t, "")

	_, err := runCommand(t, "serve", "--config", cfg, "--listen", "nohost", "--dry-run")
	if err == nil || !strings.Contains(err.Error(), "server.listen_address") {
		t.Errorf("serve error = %v, want listen address validation error", err)
	}
}
