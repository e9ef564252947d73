package orchestrator

import (
	"idp-hq/assess/pkg/rules"
	"idp-hq/assess/pkg/sandbox"
	"idp-hq/assess/pkg/simulation"
)

// Names bound for every rule.
const (
	BindDistance      = "distance_cm"
	BindRequiredForce = "required_force_N"
	BindCapability    = "capability_N"
	BindContrast      = "contrast_ratio"
	BindReachOK       = "reach_ok"
	BindStrengthOK    = "strength_ok"
	BindVisualOK      = "visual_ok"
	BindWidth         = "w"
	BindHeight        = "h"
	BindButtonWidth   = "button_w_mm"
	BindButtonHeight  = "button_h_mm"
)

// BaseBindingNames lists every name bound for every rule. Rule pack lint
// uses it to flag references that can only resolve from scenario config.
var BaseBindingNames = []string{
	BindDistance,
	BindRequiredForce,
	BindCapability,
	BindContrast,
	BindReachOK,
	BindStrengthOK,
	BindVisualOK,
	BindWidth,
	BindHeight,
	BindButtonWidth,
	BindButtonHeight,
}

// BaseBindings derives the rule inputs shared by every rule of a run.
func BaseBindings(out simulation.Outcome) sandbox.Bindings {
	return sandbox.Bindings{
		BindDistance:      out.Reach.DistanceCM,
		BindRequiredForce: out.Strength.RequiredForceN,
		BindCapability:    out.Strength.CapabilityN,
		BindContrast:      out.Visual.ContrastRatio,
		BindReachOK:       out.Reach.OK,
		BindStrengthOK:    out.Strength.OK,
		BindVisualOK:      out.Visual.OK,
		BindWidth:         out.Control.WidthMM,
		BindHeight:        out.Control.HeightMM,
		BindButtonWidth:   out.Control.WidthMM,
		BindButtonHeight:  out.Control.HeightMM,
	}
}

// RuleBindings adds the rule's requested variables that the scenario config
// carries as a number or bool. Simulation-derived names are never
// overridden here; thresholds still win later in the rule evaluator.
func RuleBindings(rule rules.Rule, base sandbox.Bindings, cfg simulation.ScenarioConfig) sandbox.Bindings {
	if len(rule.Variables) == 0 {
		return base
	}

	out := make(sandbox.Bindings, len(base)+len(rule.Variables))
	for k, v := range base {
		out[k] = v
	}
	for _, name := range rule.Variables {
		if _, bound := out[name]; bound {
			continue
		}
		if v, ok := cfg.Scalar(name); ok {
			out[name] = v
		}
	}
	return out
}
