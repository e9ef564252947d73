// Package simulation implements the deterministic checks run for every
// evaluation: visual contrast, reach envelope and strength feasibility.
//
// The calculators are pure functions. Simulate runs all three from a
// ScenarioConfig, filling in defaults for any key the scenario omits:
//
//	cfg, err := simulation.ParseScenarioConfig(raw)
//	if err != nil {
//	    return err
//	}
//	out, err := simulation.Simulate(cfg)
package simulation
