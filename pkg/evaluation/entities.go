package evaluation

import (
	"context"

	"idp-hq/assess/pkg/rules"
	"idp-hq/assess/pkg/simulation"
)

// Scenario is a simulated usage scenario.
type Scenario struct {
	ID        string                    `json:"id" yaml:"id"`
	ProjectID string                    `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	Name      string                    `json:"name" yaml:"name"`
	Config    simulation.ScenarioConfig `json:"config" yaml:"-"`
}

// Artifact is a design artifact under evaluation. Only its identity is
// used; geometry is not processed.
type Artifact struct {
	ID        string `json:"id" yaml:"id"`
	ProjectID string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
	URI       string `json:"uri,omitempty" yaml:"uri,omitempty"`
}

// Resolver loads the entities a run references. Implementations return an
// error wrapping ErrNotFound for unknown IDs.
type Resolver interface {
	Scenario(ctx context.Context, id string) (*Scenario, error)
	RulePack(ctx context.Context, id string) (*rules.RulePack, error)
	Artifact(ctx context.Context, id string) (*Artifact, error)
}
