package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cellstore/internal/cell"
	"github.com/roach88/cellstore/internal/poi"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Lat    float64
	Lng    float64
	Cell   string
	Bounds string // "west,south,east,north"
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show level-14 cell statistics",
		Long: `Compute statistics for level-14 cells.

Select the cells with exactly one of:
  --lat/--lng   the cell containing a coordinate
  --cell        a level-14 cell id (quadkey such as 2/03313212313032)
  --bounds      every scanned cell intersecting west,south,east,north

Cells that were never scanned have no statistics.

Examples:
  cellstore stats --lat 51.5007 --lng -0.1246
  cellstore stats --cell 2/03313212313032 --format json
  cellstore stats --bounds -0.13,51.49,-0.11,51.51`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Lat, "lat", 0, "latitude of a point in the cell")
	cmd.Flags().Float64Var(&opts.Lng, "lng", 0, "longitude of a point in the cell")
	cmd.Flags().StringVar(&opts.Cell, "cell", "", "level-14 cell id")
	cmd.Flags().StringVar(&opts.Bounds, "bounds", "", "rectangle west,south,east,north")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
	cmd.MarkFlagsMutuallyExclusive("lat", "cell", "bounds")
	cmd.MarkFlagsOneRequired("lat", "cell", "bounds")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	var (
		bounds cell.Bounds
		id     cell.ID
		err    error
	)
	switch {
	case opts.Bounds != "":
		bounds, err = parseBounds(opts.Bounds)
	case opts.Cell != "":
		id, err = cell.ParseID(opts.Cell)
		if err == nil {
			err = id.Check(poi.ScanLevel)
		}
	default:
		id, err = cell.IDOf(cell.LatLng{Lat: opts.Lat, Lng: opts.Lng}, poi.ScanLevel)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid cell selection", err)
	}

	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(st)

	var results []*poi.CellStats
	if opts.Bounds != "" {
		results, err = st.StatsInBounds(ctx, bounds)
	} else {
		var stats *poi.CellStats
		stats, err = st.CellStats(ctx, id)
		if stats != nil {
			results = append(results, stats)
		}
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to compute statistics", err)
	}

	if opts.Format == "json" {
		if results == nil {
			results = []*poi.CellStats{}
		}
		f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return f.Success(results)
	}

	w := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(w, "No scanned cells.")
		return nil
	}
	for _, s := range results {
		writeStatsText(w, s)
	}
	return nil
}

func writeStatsText(w io.Writer, s *poi.CellStats) {
	fmt.Fprintf(w, "Cell %s center (%.6f, %.6f)\n", s.ID, s.Center.Lat, s.Center.Lng)
	fmt.Fprintf(w, "  pois: %d\n", len(s.Pois))

	kinds := make([]string, 0, len(s.KindToPois))
	for k := range s.KindToPois {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "    %s: %d\n", k, len(s.KindToPois[k]))
	}
	fmt.Fprintf(w, "  level16: %d cells, level17: %d cells\n", len(s.Level16), len(s.Level17))
}

// parseBounds parses "west,south,east,north".
func parseBounds(s string) (cell.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return cell.Bounds{}, fmt.Errorf("bounds %q: want west,south,east,north", s)
	}
	var v [4]float64
	for k, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return cell.Bounds{}, fmt.Errorf("bounds %q: %w", s, err)
		}
		v[k] = f
	}
	if v[1] < -90 || v[1] > 90 || v[3] < -90 || v[3] > 90 {
		return cell.Bounds{}, fmt.Errorf("bounds %q: latitude out of range", s)
	}
	if v[0] < -180 || v[0] > 180 || v[2] < -180 || v[2] > 180 {
		return cell.Bounds{}, fmt.Errorf("bounds %q: longitude out of range", s)
	}
	return cell.NewBounds(v[0], v[1], v[2], v[3]), nil
}
