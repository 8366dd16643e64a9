// Package harness runs ingestion scenarios against a throwaway store and
// checks the resulting records and statistics.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	stop_kinds: [POKESTOP, GYM]     # optional
//	steps:
//	  - fetch_time: 1700000000000
//	    pois:
//	      - {guid: a, lat: 51.5007, lng: -0.1246, title: Big Ben, tags: [POKESTOP/ACTIVE]}
//	    scanned: [[48.8584, 2.2945]]  # cells scanned with no POIs
//	    bounds: [[-0.13, 51.49, -0.11, 51.51]]
//	assertions:
//	  - type: poi_exists
//	    guid: a
//	    expect: {name: Big Ben, first_fetch_date: 1700000000000}
//	  - type: cell_kind_count
//	    at: [51.5007, -0.1246]
//	    kind: POKESTOP
//	    count: 1
//
// The scanned cells of a step are the level-14 cells of its POIs and of its
// scanned points. Each step is one ingestion.
//
// # Assertion Types
//
//   - poi_exists, poi_absent: the POI with guid is (not) stored
//   - cell_poi_count, cell_kind_count, cell_absent: statistics of the
//     level-14 cell containing at
//   - leaf_count, leaf_kind_count, leaf_last_fetch: level-17 statistics
//
// # Golden Files
//
// RunWithGolden compares the per-step ingestion counts and the final POIs
// against testdata/golden/<name>.golden. Regenerate with -update.
package harness
