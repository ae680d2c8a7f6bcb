package entities

// ForecastOutputs is the deterministic time series produced by one forecast
// run. All slices share the bucket grid; map keys are emitted in sorted
// order when serialized so identical inputs yield byte-identical outputs.
type ForecastOutputs struct {
	EngineVersion      string                 `json:"engine_version"`
	BucketDates        []string               `json:"bucket_dates"`
	EnrolledPerBucket  []float64              `json:"enrolled_per_bucket"`
	CumulativeEnrolled []float64              `json:"cumulative_enrolled"`
	DemandPerBucket    map[SKU][]float64      `json:"demand_per_bucket"`
	VisitsPerBucket    []float64              `json:"visits_per_bucket"`
	EnrollmentByCohort map[CohortID][]float64 `json:"enrollment_by_cohort,omitempty"`
	VisitsByVisit      map[VisitID][]float64  `json:"visits_by_visit,omitempty"`
}

// Horizon returns the number of buckets in the output grid
func (o *ForecastOutputs) Horizon() int {
	return len(o.BucketDates)
}
