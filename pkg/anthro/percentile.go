package anthro

import (
	"math"
	"sort"
)

// Wildcard is the segment tag that matches any filter value.
const Wildcard = "all"

// Percentiles holds the representative values of one segment.
type Percentiles struct {
	P5  float64 `json:"p5" yaml:"p5"`
	P50 float64 `json:"p50" yaml:"p50"`
	P95 float64 `json:"p95" yaml:"p95"`
}

// Segment is one demographic slice of a metric's distribution.
type Segment struct {
	Region      string      `json:"region" yaml:"region"`
	Sex         string      `json:"sex" yaml:"sex"`
	Age         string      `json:"age" yaml:"age"`
	Percentiles Percentiles `json:"percentiles" yaml:"percentiles"`
}

// Distributions maps a metric name to its ordered segments.
type Distributions map[string][]Segment

// Query describes a percentile lookup. Empty filters are not applied.
type Query struct {
	Metric     string  `json:"metric"`
	Percentile float64 `json:"percentile"`
	Region     string  `json:"region,omitempty"`
	Sex        string  `json:"sex,omitempty"`
	Age        string  `json:"age,omitempty"`
}

// Interpolate returns the value at percentile p, clamped to [p5, p95].
func Interpolate(ps Percentiles, p float64) float64 {
	switch {
	case p <= 5:
		return ps.P5
	case p >= 95:
		return ps.P95
	case p <= 50:
		t := (p - 5.0) / (50.0 - 5.0)
		return ps.P5 + t*(ps.P50-ps.P5)
	default:
		t := (p - 50.0) / (95.0 - 50.0)
		return ps.P50 + t*(ps.P95-ps.P50)
	}
}

// tagScore scores one tag against an optional filter.
func tagScore(tag, filter string) int {
	if tag == "" {
		tag = Wildcard
	}
	if filter != "" && tag == filter {
		return 2
	}
	if tag == Wildcard {
		return 1
	}
	return 0
}

// Score returns the match score of s for the given filters.
func (s Segment) Score(region, sex, age string) int {
	return tagScore(s.Region, region) + tagScore(s.Sex, sex) + tagScore(s.Age, age)
}

// SelectSegment returns the index of the best matching segment, or -1 when
// none scores above zero. Ties keep the earliest segment.
func SelectSegment(segments []Segment, region, sex, age string) int {
	best, bestScore := -1, 0
	for i, s := range segments {
		if score := s.Score(region, sex, age); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// Query looks up a percentile value. Failures are *LookupError values
// wrapping ErrMetricNotFound, ErrNoMatchingSegment or ErrInvalidPercentile.
func (d Distributions) Query(q Query) (float64, error) {
	if math.IsNaN(q.Percentile) || q.Percentile < 0 || q.Percentile > 100 {
		return 0, lookupError(q.Metric, ErrInvalidPercentile)
	}
	segments := d[q.Metric]
	if len(segments) == 0 {
		return 0, lookupError(q.Metric, ErrMetricNotFound)
	}
	idx := SelectSegment(segments, q.Region, q.Sex, q.Age)
	if idx < 0 {
		return 0, lookupError(q.Metric, ErrNoMatchingSegment)
	}
	return Interpolate(segments[idx].Percentiles, q.Percentile), nil
}

// Metrics returns the metric names that have at least one segment.
func (d Distributions) Metrics() []string {
	names := make([]string, 0, len(d))
	for name, segments := range d {
		if len(segments) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
