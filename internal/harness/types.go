package harness

// StepReport is the deterministic part of one ingestion report.
type StepReport struct {
	ScannedCells  int `json:"scanned_cells"`
	EmptyCells    int `json:"empty_cells"`
	PoisUpserted  int `json:"pois_upserted"`
	PoisRemoved   int `json:"pois_removed"`
	LeavesWritten int `json:"leaves_written"`
}

// PoiSnapshot is a stored POI as it appears in golden files.
type PoiSnapshot struct {
	GUID           string `json:"guid"`
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	FirstFetchDate int64  `json:"first_fetch_date"`
	LastFetchDate  int64  `json:"last_fetch_date"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	Scenario string `json:"scenario"`

	// Pass is true if every assertion held.
	Pass bool `json:"-"`

	// Steps holds one report per ingested step, in order.
	Steps []StepReport `json:"steps"`

	// Pois holds the final stored POIs the scenario reported, by guid.
	Pois []PoiSnapshot `json:"pois"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"-"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Steps:    []StepReport{},
		Pois:     []PoiSnapshot{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
