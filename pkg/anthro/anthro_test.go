package anthro

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const epsilon = 1e-6

var stature = Percentiles{P5: 165.0, P50: 177.0, P95: 190.0}

func TestInterpolate(t *testing.T) {
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 165.0},
		{5, 165.0},
		{27.5, 171.0},
		{50, 177.0},
		{72.5, 183.5},
		{95, 190.0},
		{100, 190.0},
	}

	for _, tt := range tests {
		got := Interpolate(stature, tt.p)
		if math.Abs(got-tt.want) > epsilon {
			t.Errorf("Interpolate(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if Interpolate(stature, 0) != Interpolate(stature, 5) {
		t.Error("query(0) != query(5)")
	}
	if Interpolate(stature, 100) != Interpolate(stature, 95) {
		t.Error("query(100) != query(95)")
	}
}

func TestSelectSegment(t *testing.T) {
	segments := []Segment{
		{Region: "all", Sex: "all", Age: "all", Percentiles: Percentiles{P5: 1, P50: 2, P95: 3}},
		{Region: "NA", Sex: "all", Age: "all", Percentiles: Percentiles{P5: 4, P50: 5, P95: 6}},
		{Region: "NA", Sex: "F", Age: "all", Percentiles: Percentiles{P5: 7, P50: 8, P95: 9}},
		{Region: "EU", Sex: "all", Age: "all", Percentiles: Percentiles{P5: 10, P50: 11, P95: 12}},
	}

	tests := []struct {
		name             string
		region, sex, age string
		want             int
	}{
		{name: "no filters prefers first wildcard", want: 0},
		{name: "region match beats wildcard", region: "NA", want: 1},
		{name: "region and sex", region: "NA", sex: "F", want: 2},
		{name: "other region", region: "EU", want: 3},
		{name: "unknown region falls back to wildcard", region: "APAC", want: 0},
		{name: "sex only ties with the full wildcard", sex: "F", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectSegment(segments, tt.region, tt.sex, tt.age); got != tt.want {
				t.Errorf("SelectSegment() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSelectSegment_TieKeepsFirst(t *testing.T) {
	segments := []Segment{
		{Region: "NA", Sex: "all", Age: "all"},
		{Region: "all", Sex: "M", Age: "all"},
	}
	// Both score 4 for region=NA, sex=M.
	if got := SelectSegment(segments, "NA", "M", ""); got != 0 {
		t.Errorf("SelectSegment() = %d, want 0", got)
	}
}

func TestDistributions_Query(t *testing.T) {
	d := Distributions{
		"stature": {
			{Region: "NA", Sex: "all", Age: "all", Percentiles: stature},
			{Region: "all", Sex: "all", Age: "all", Percentiles: Percentiles{P5: 150, P50: 160, P95: 170}},
		},
		"reach": {
			{Region: "EU", Sex: "M", Age: "18-25", Percentiles: Percentiles{P5: 60, P50: 70, P95: 80}},
		},
		"empty": {},
	}

	got, err := d.Query(Query{Metric: "stature", Percentile: 50, Region: "NA"})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if math.Abs(got-177.0) > epsilon {
		t.Errorf("Query(region=NA) = %v, want 177 from the NA segment", got)
	}

	got, err = d.Query(Query{Metric: "stature", Percentile: 50, Region: "EU"})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if math.Abs(got-160.0) > epsilon {
		t.Errorf("Query(region=EU) = %v, want 160 from the wildcard segment", got)
	}

	errTests := []struct {
		name string
		q    Query
		want error
	}{
		{name: "unknown metric", q: Query{Metric: "weight", Percentile: 50}, want: ErrMetricNotFound},
		{name: "empty metric", q: Query{Metric: "empty", Percentile: 50}, want: ErrMetricNotFound},
		{name: "no segment", q: Query{Metric: "reach", Percentile: 50, Region: "NA", Sex: "F", Age: "65+"}, want: ErrNoMatchingSegment},
		{name: "negative percentile", q: Query{Metric: "stature", Percentile: -1}, want: ErrInvalidPercentile},
		{name: "percentile above 100", q: Query{Metric: "stature", Percentile: 101}, want: ErrInvalidPercentile},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Query(tt.q)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Query() error = %v, want %v", err, tt.want)
			}
			var lookupErr *LookupError
			if !errors.As(err, &lookupErr) {
				t.Fatalf("error is %T, want *LookupError", err)
			}
			if lookupErr.Metric != tt.q.Metric {
				t.Errorf("LookupError.Metric = %q, want %q", lookupErr.Metric, tt.q.Metric)
			}
		})
	}
}

func TestLookupError_Message(t *testing.T) {
	err := lookupError("weight", ErrMetricNotFound)
	if err.Error() != "metric not found: weight" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestParseDistributions(t *testing.T) {
	data := []byte(`{
		"stature": [
			{"region": "NA", "sex": "M", "age": "18-25", "percentiles": {"p5": 165.0, "p50": 177.0, "p95": 190.0}},
			{"percentiles": {"p5": 150, "p50": 165, "p95": 180}}
		]
	}`)

	d, err := ParseDistributions(data)
	if err != nil {
		t.Fatalf("ParseDistributions() failed: %v", err)
	}
	segs := d["stature"]
	if len(segs) != 2 {
		t.Fatalf("len(stature) = %d, want 2", len(segs))
	}
	if segs[0].Region != "NA" || segs[0].Age != "18-25" || segs[0].Percentiles != stature {
		t.Errorf("segment 0 = %+v", segs[0])
	}
	if segs[1].Region != Wildcard || segs[1].Sex != Wildcard || segs[1].Age != Wildcard {
		t.Errorf("segment 1 tags = %q/%q/%q, want wildcards", segs[1].Region, segs[1].Sex, segs[1].Age)
	}
}

func TestParseDistributions_Invalid(t *testing.T) {
	tests := []string{
		`{"stature": [{"region": "NA"}]}`,
		`{"stature": [{"percentiles": {"p5": 1, "p95": 3}}]}`,
		`{"stature": "tall"}`,
	}
	for _, data := range tests {
		if _, err := ParseDistributions([]byte(data)); !errors.Is(err, ErrInvalidDataset) {
			t.Errorf("ParseDistributions(%s) error = %v, want ErrInvalidDataset", data, err)
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	yamlDoc := `name: ANSUR II
source: US Army
distributions:
  stature:
    - region: NA
      percentiles: {p5: 165.0, p50: 177.0, p95: 190.0}
`
	if err := os.WriteFile(filepath.Join(dir, "ansur.yaml"), []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	catalog, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() failed: %v", err)
	}

	ds, err := catalog.Dataset(context.Background(), "ansur")
	if err != nil {
		t.Fatalf("Dataset() failed: %v", err)
	}
	if ds.Name != "ANSUR II" {
		t.Errorf("Name = %q", ds.Name)
	}
	v, err := ds.Query(Query{Metric: "stature", Percentile: 95, Region: "NA"})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if v != 190.0 {
		t.Errorf("Query() = %v, want 190", v)
	}

	if _, err := catalog.Dataset(context.Background(), "missing"); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("Dataset(missing) error = %v, want ErrDatasetNotFound", err)
	}
	if len(catalog.List()) != 1 {
		t.Errorf("List() returned %d datasets, want 1", len(catalog.List()))
	}
}

func TestDataset_NoDistributions(t *testing.T) {
	ds := &Dataset{ID: "empty"}
	if _, err := ds.Query(Query{Metric: "stature", Percentile: 50}); !errors.Is(err, ErrNoDistributions) {
		t.Errorf("Query() error = %v, want ErrNoDistributions", err)
	}
}
