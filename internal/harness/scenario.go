package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cellstore/internal/scan"
)

// Scenario is a sequence of ingestions followed by assertions on the
// resulting store.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StopKinds overrides the kinds counted in sub-cell statistics.
	StopKinds []string `yaml:"stop_kinds,omitempty"`

	// Steps are ingested in order, each in its own transaction.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated against the store after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scan batch. The scanned level-14 cells are the cells of every
// POI plus the cells of the Scanned points, which may hold no POIs.
type Step struct {
	// FetchTime is the batch time in unix milliseconds.
	FetchTime int64 `yaml:"fetch_time"`

	Pois []scan.Poi `yaml:"pois,omitempty"`

	// Scanned lists [lat, lng] points whose cells were scanned.
	Scanned [][2]float64 `yaml:"scanned,omitempty"`

	// Bounds are [west, south, east, north] rectangles the scan covered.
	Bounds [][4]float64 `yaml:"bounds,omitempty"`
}

// Assertion validates the final store.
type Assertion struct {
	// Type selects the check; see the Assert constants.
	Type string `yaml:"type"`

	// GUID names the POI (poi_exists, poi_absent).
	GUID string `yaml:"guid,omitempty"`

	// Expect holds POI fields to match (poi_exists). Subset match over the
	// record's JSON fields plus "kind".
	Expect map[string]any `yaml:"expect,omitempty"`

	// At is a [lat, lng] point selecting the level-14 cell, or the level-17
	// leaf for leaf assertions.
	At *[2]float64 `yaml:"at,omitempty"`

	Kind  string `yaml:"kind,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// FetchDate is the expected leaf last fetch date (leaf_last_fetch).
	FetchDate int64 `yaml:"fetch_date,omitempty"`
}

// Assertion type constants.
const (
	AssertPoiExists     = "poi_exists"
	AssertPoiAbsent     = "poi_absent"
	AssertCellPoiCount  = "cell_poi_count"
	AssertCellKindCount = "cell_kind_count"
	AssertCellAbsent    = "cell_absent"
	AssertLeafCount     = "leaf_count"
	AssertLeafKindCount = "leaf_kind_count"
	AssertLeafLastFetch = "leaf_last_fetch"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.FetchTime <= 0 {
			return fmt.Errorf("step %d: fetch_time must be positive", i)
		}
		if i > 0 && step.FetchTime < s.Steps[i-1].FetchTime {
			return fmt.Errorf("step %d: fetch_time goes backwards", i)
		}
		for j, p := range step.Pois {
			if p.GUID == "" {
				return fmt.Errorf("step %d: poi %d: guid is required", i, j)
			}
			if !validLatLng(p.Lat, p.Lng) {
				return fmt.Errorf("step %d: poi %s: coordinate (%v, %v) out of range", i, p.GUID, p.Lat, p.Lng)
			}
		}
		for _, ll := range step.Scanned {
			if !validLatLng(ll[0], ll[1]) {
				return fmt.Errorf("step %d: scanned point %v out of range", i, ll)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d (%s): %w", i, a.Type, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertPoiExists, AssertPoiAbsent:
		if a.GUID == "" {
			return fmt.Errorf("guid is required")
		}
	case AssertCellPoiCount, AssertCellAbsent, AssertLeafCount, AssertLeafLastFetch:
		if a.At == nil {
			return fmt.Errorf("at is required")
		}
	case AssertCellKindCount, AssertLeafKindCount:
		if a.At == nil {
			return fmt.Errorf("at is required")
		}
		if a.Kind == "" {
			return fmt.Errorf("kind is required")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type")
	}
	return nil
}

func validLatLng(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
