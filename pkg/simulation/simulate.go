package simulation

// ReachResult is the outcome of the reach envelope check.
type ReachResult struct {
	OK         bool    `json:"ok"`
	DistanceCM float64 `json:"distance_cm"`
	Posture    string  `json:"posture"`
}

// StrengthResult is the outcome of the strength feasibility check.
type StrengthResult struct {
	OK             bool    `json:"ok"`
	RequiredForceN float64 `json:"required_force_N"`
	CapabilityN    float64 `json:"capability_N"`
}

// VisualResult is the outcome of the contrast check.
type VisualResult struct {
	OK            bool    `json:"ok"`
	ContrastRatio float64 `json:"contrast_ratio"`
}

// Control holds the control dimensions used as rule inputs.
type Control struct {
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
}

// Outcome is the combined result of all simulation checks for a scenario.
type Outcome struct {
	Reach    ReachResult    `json:"reach"`
	Strength StrengthResult `json:"strength"`
	Visual   VisualResult   `json:"visual"`
	Control  Control        `json:"-"`
}

// Simulate runs every check against cfg. Missing keys take their default
// values; a recognized key with a malformed value is an error wrapping
// ErrInvalidScenario.
func Simulate(cfg ScenarioConfig) (Outcome, error) {
	var (
		out Outcome
		err error
	)

	out.Reach.Posture = cfg.String(KeyPosture, DefaultPosture)
	if out.Reach.DistanceCM, err = cfg.Float(KeyDistance, DefaultDistanceCM); err != nil {
		return Outcome{}, err
	}
	out.Reach.OK = ReachOK(out.Reach.DistanceCM, out.Reach.Posture)

	if out.Strength.RequiredForceN, err = cfg.Float(KeyRequiredForce, DefaultRequiredForceN); err != nil {
		return Outcome{}, err
	}
	if out.Strength.CapabilityN, err = cfg.Float(KeyCapability, DefaultCapabilityN); err != nil {
		return Outcome{}, err
	}
	out.Strength.OK = StrengthOK(out.Strength.RequiredForceN, out.Strength.CapabilityN)

	fg, err := cfg.RGB(KeyForeground, White)
	if err != nil {
		return Outcome{}, err
	}
	bg, err := cfg.RGB(KeyBackground, Black)
	if err != nil {
		return Outcome{}, err
	}
	out.Visual.ContrastRatio = ContrastRatio(fg, bg)
	out.Visual.OK = VisualOK(out.Visual.ContrastRatio)

	if out.Control.WidthMM, err = cfg.Float(KeyButtonWidthMM, DefaultButtonMM); err != nil {
		return Outcome{}, err
	}
	if out.Control.HeightMM, err = cfg.Float(KeyButtonHeightMM, DefaultButtonMM); err != nil {
		return Outcome{}, err
	}

	return out, nil
}
