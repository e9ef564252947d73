package simulation

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-6

func TestContrastRatio(t *testing.T) {
	tests := []struct {
		name   string
		fg, bg RGB
		want   float64
	}{
		{name: "white on black", fg: White, bg: Black, want: 21.0},
		{name: "black on white", fg: Black, bg: White, want: 21.0},
		{name: "white on white", fg: White, bg: White, want: 1.0},
		{name: "gray on itself", fg: RGB{119, 119, 119}, bg: RGB{119, 119, 119}, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContrastRatio(tt.fg, tt.bg)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("ContrastRatio(%v, %v) = %v, want %v", tt.fg, tt.bg, got, tt.want)
			}
		})
	}
}

func TestContrastRatio_Symmetric(t *testing.T) {
	a, b := RGB{18, 52, 86}, RGB{250, 240, 200}
	if math.Abs(ContrastRatio(a, b)-ContrastRatio(b, a)) > epsilon {
		t.Error("ContrastRatio is not symmetric")
	}
}

func TestVisualOK(t *testing.T) {
	if !VisualOK(4.5) {
		t.Error("VisualOK(4.5) = false, want true")
	}
	if VisualOK(4.49) {
		t.Error("VisualOK(4.49) = true, want false")
	}
}

func TestReachOK(t *testing.T) {
	tests := []struct {
		distance float64
		posture  string
		want     bool
	}{
		{55, "seated", true},
		{60, "seated", true},
		{60.1, "seated", false},
		{70, "standing", true},
		{75, "standing", true},
		{76, "standing", false},
		{70, "kneeling", true},
	}

	for _, tt := range tests {
		if got := ReachOK(tt.distance, tt.posture); got != tt.want {
			t.Errorf("ReachOK(%v, %q) = %v, want %v", tt.distance, tt.posture, got, tt.want)
		}
	}
}

func TestStrengthOK(t *testing.T) {
	if !StrengthOK(20, 25) {
		t.Error("StrengthOK(20, 25) = false, want true")
	}
	if !StrengthOK(25, 25) {
		t.Error("StrengthOK(25, 25) = false, want true")
	}
	if StrengthOK(30, 25) {
		t.Error("StrengthOK(30, 25) = true, want false")
	}
}

func TestSimulate_Defaults(t *testing.T) {
	cfg, err := ParseScenarioConfig(nil)
	if err != nil {
		t.Fatalf("ParseScenarioConfig() failed: %v", err)
	}

	out, err := Simulate(cfg)
	if err != nil {
		t.Fatalf("Simulate() failed: %v", err)
	}

	if out.Reach.DistanceCM != DefaultDistanceCM || out.Reach.Posture != "seated" || !out.Reach.OK {
		t.Errorf("Reach = %+v, want default seated 55cm ok", out.Reach)
	}
	if out.Strength.RequiredForceN != 20 || out.Strength.CapabilityN != 25 || !out.Strength.OK {
		t.Errorf("Strength = %+v, want 20N/25N ok", out.Strength)
	}
	if math.Abs(out.Visual.ContrastRatio-21) > epsilon || !out.Visual.OK {
		t.Errorf("Visual = %+v, want 21:1 ok", out.Visual)
	}
	if out.Control.WidthMM != 10 || out.Control.HeightMM != 10 {
		t.Errorf("Control = %+v, want 10x10", out.Control)
	}
}

func TestSimulate_Overrides(t *testing.T) {
	cfg, err := ParseScenarioConfig([]byte(`{
		"distance_to_control_cm": 70,
		"posture": "standing",
		"required_force_N": "40",
		"capability_N": 30,
		"fg_rgb": [119, 119, 119],
		"bg_rgb": [136, 136, 136],
		"button_w_mm": 8
	}`))
	if err != nil {
		t.Fatalf("ParseScenarioConfig() failed: %v", err)
	}

	out, err := Simulate(cfg)
	if err != nil {
		t.Fatalf("Simulate() failed: %v", err)
	}

	if !out.Reach.OK {
		t.Error("Reach.OK = false, want true for 70cm standing")
	}
	if out.Strength.OK {
		t.Error("Strength.OK = true, want false for 40N required, 30N capability")
	}
	if out.Visual.OK {
		t.Errorf("Visual.OK = true for ratio %v, want false", out.Visual.ContrastRatio)
	}
	if out.Control.WidthMM != 8 || out.Control.HeightMM != DefaultButtonMM {
		t.Errorf("Control = %+v, want 8x10", out.Control)
	}
}

func TestSimulate_InvalidScenario(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "short rgb", raw: `{"fg_rgb": [255, 255]}`},
		{name: "rgb not array", raw: `{"bg_rgb": "black"}`},
		{name: "rgb channel string", raw: `{"fg_rgb": [255, "x", 0]}`},
		{name: "distance not numeric", raw: `{"distance_to_control_cm": "far"}`},
		{name: "force object", raw: `{"required_force_N": {"value": 3}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseScenarioConfig([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseScenarioConfig() failed: %v", err)
			}
			_, err = Simulate(cfg)
			if !errors.Is(err, ErrInvalidScenario) {
				t.Errorf("Simulate() error = %v, want ErrInvalidScenario", err)
			}
		})
	}
}

func TestParseScenarioConfig_Invalid(t *testing.T) {
	for _, raw := range []string{`{"a":`, `[1,2,3]`, `42`} {
		if _, err := ParseScenarioConfig([]byte(raw)); !errors.Is(err, ErrInvalidScenario) {
			t.Errorf("ParseScenarioConfig(%s) error = %v, want ErrInvalidScenario", raw, err)
		}
	}
}

func TestScenarioConfig_Accessors(t *testing.T) {
	cfg, err := ScenarioConfigFromMap(map[string]any{
		"grip_span_mm": 45.5,
		"one_handed":   true,
		"label":        "kiosk",
		"a.b":          3,
		"fg_rgb":       []int{300, -4, 128},
	})
	if err != nil {
		t.Fatalf("ScenarioConfigFromMap() failed: %v", err)
	}

	if v, ok := cfg.Scalar("grip_span_mm"); !ok || v != 45.5 {
		t.Errorf("Scalar(grip_span_mm) = %v, %v", v, ok)
	}
	if v, ok := cfg.Scalar("one_handed"); !ok || v != true {
		t.Errorf("Scalar(one_handed) = %v, %v", v, ok)
	}
	if _, ok := cfg.Scalar("label"); ok {
		t.Error("Scalar(label) ok = true, want false for a string")
	}
	if _, ok := cfg.Scalar("missing"); ok {
		t.Error("Scalar(missing) ok = true, want false")
	}
	if v, ok := cfg.Scalar("a.b"); !ok || v != 3.0 {
		t.Errorf("Scalar(a.b) = %v, %v; dotted keys must not be treated as paths", v, ok)
	}
	if !cfg.Has("label") || cfg.Has("missing") {
		t.Error("Has() reported wrong presence")
	}

	rgb, err := cfg.RGB("fg_rgb", White)
	if err != nil {
		t.Fatalf("RGB() failed: %v", err)
	}
	if rgb != (RGB{255, 0, 128}) {
		t.Errorf("RGB() = %v, want clamped {255 0 128}", rgb)
	}
}

func TestScenarioConfig_JSONRoundTrip(t *testing.T) {
	var cfg ScenarioConfig
	if err := cfg.UnmarshalJSON([]byte(`{"posture":"standing"}`)); err != nil {
		t.Fatalf("UnmarshalJSON() failed: %v", err)
	}
	if got := cfg.String(KeyPosture, DefaultPosture); got != "standing" {
		t.Errorf("String(posture) = %q, want standing", got)
	}
	b, err := cfg.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() failed: %v", err)
	}
	if string(b) != `{"posture":"standing"}` {
		t.Errorf("MarshalJSON() = %s", b)
	}
}
