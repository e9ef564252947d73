// Package anthro answers percentile queries over anthropometric datasets.
//
// A dataset maps a metric name (stature, grip_strength, ...) to a list of
// demographic segments. Each segment carries region, sex and age tags,
// any of which may be the wildcard "all", and three representative
// percentile values: p5, p50 and p95.
//
// # Segment Selection
//
// For each of region, sex and age a segment scores 2 points when the query
// supplies that filter and the tag matches it exactly, 1 point when the tag
// is "all", and 0 otherwise. The highest scoring segment wins; ties go to
// the segment listed first. A segment scoring 0 never matches.
//
// # Interpolation
//
// Percentiles at or below 5 return p5 and at or above 95 return p95.
// Between those, the value is linearly interpolated on (5, p5)-(50, p50)
// or (50, p50)-(95, p95).
package anthro
