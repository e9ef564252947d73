package anthro

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Dataset is a named anthropometric dataset owned by an organization.
type Dataset struct {
	ID            string        `json:"id" yaml:"id"`
	OrgID         string        `json:"org_id,omitempty" yaml:"org_id,omitempty"`
	Name          string        `json:"name" yaml:"name"`
	Source        string        `json:"source,omitempty" yaml:"source,omitempty"`
	Distributions Distributions `json:"distributions" yaml:"distributions"`
}

// Query runs q against the dataset's distributions.
func (d *Dataset) Query(q Query) (float64, error) {
	if len(d.Distributions) == 0 {
		return 0, fmt.Errorf("dataset %s: %w", d.ID, ErrNoDistributions)
	}
	return d.Distributions.Query(q)
}

type rawPercentiles struct {
	P5  *float64 `yaml:"p5"`
	P50 *float64 `yaml:"p50"`
	P95 *float64 `yaml:"p95"`
}

type rawSegment struct {
	Region      string          `yaml:"region"`
	Sex         string          `yaml:"sex"`
	Age         string          `yaml:"age"`
	Percentiles *rawPercentiles `yaml:"percentiles"`
}

type rawDataset struct {
	ID            string                  `yaml:"id"`
	OrgID         string                  `yaml:"org_id"`
	Name          string                  `yaml:"name"`
	Source        string                  `yaml:"source"`
	Distributions map[string][]rawSegment `yaml:"distributions"`
}

// ParseDistributions decodes a {metric: [segment, ...]} document. YAML and
// JSON are both accepted. Missing tags default to "all"; every segment must
// carry p5, p50 and p95.
func ParseDistributions(data []byte) (Distributions, error) {
	var raw map[string][]rawSegment
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	return convertDistributions(raw)
}

// ParseDataset decodes a dataset document with id, name, source and
// distributions fields.
func ParseDataset(data []byte) (*Dataset, error) {
	var raw rawDataset
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	dists, err := convertDistributions(raw.Distributions)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		ID:            raw.ID,
		OrgID:         raw.OrgID,
		Name:          raw.Name,
		Source:        raw.Source,
		Distributions: dists,
	}, nil
}

func convertDistributions(raw map[string][]rawSegment) (Distributions, error) {
	out := make(Distributions, len(raw))
	for metric, segments := range raw {
		converted := make([]Segment, 0, len(segments))
		for i, rs := range segments {
			seg, err := rs.segment()
			if err != nil {
				return nil, fmt.Errorf("%w: %s segment %d: %v", ErrInvalidDataset, metric, i, err)
			}
			converted = append(converted, seg)
		}
		out[metric] = converted
	}
	return out, nil
}

func (rs rawSegment) segment() (Segment, error) {
	if rs.Percentiles == nil {
		return Segment{}, fmt.Errorf("percentiles missing")
	}
	p := rs.Percentiles
	for name, v := range map[string]*float64{"p5": p.P5, "p50": p.P50, "p95": p.P95} {
		if v == nil {
			return Segment{}, fmt.Errorf("%s missing", name)
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return Segment{}, fmt.Errorf("%s is not finite", name)
		}
	}
	return Segment{
		Region:      orWildcard(rs.Region),
		Sex:         orWildcard(rs.Sex),
		Age:         orWildcard(rs.Age),
		Percentiles: Percentiles{P5: *p.P5, P50: *p.P50, P95: *p.P95},
	}, nil
}

func orWildcard(tag string) string {
	if tag == "" {
		return Wildcard
	}
	return tag
}
