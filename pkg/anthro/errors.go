package anthro

import (
	"errors"
	"fmt"
)

var (
	// ErrMetricNotFound is returned when a metric is absent or has no segments.
	ErrMetricNotFound = errors.New("metric not found")

	// ErrNoMatchingSegment is returned when no segment scores above zero.
	ErrNoMatchingSegment = errors.New("no matching segment")

	// ErrInvalidPercentile is returned for percentiles outside 0..100.
	ErrInvalidPercentile = errors.New("percentile must be between 0 and 100")

	// ErrDatasetNotFound is returned by catalogs for unknown dataset IDs.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrNoDistributions is returned when a dataset carries no distributions.
	ErrNoDistributions = errors.New("dataset has no distributions")

	// ErrInvalidDataset is returned when a distributions document is malformed.
	ErrInvalidDataset = errors.New("invalid dataset")
)

// LookupError reports a failed percentile lookup for one metric.
type LookupError struct {
	Metric string
	Cause  error
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("%v: %s", e.Cause, e.Metric)
}

// Unwrap returns the underlying cause.
func (e *LookupError) Unwrap() error {
	return e.Cause
}

func lookupError(metric string, cause error) *LookupError {
	return &LookupError{Metric: metric, Cause: cause}
}
