package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cellstore/internal/cell"
	"github.com/roach88/cellstore/internal/poi"
)

// PoiOptions holds flags for the poi command.
type PoiOptions struct {
	*RootOptions
	Cell string
}

// NewPoiCommand creates the poi command.
func NewPoiCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PoiOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "poi [guid]",
		Short: "Look up stored POIs",
		Long: `Look up a POI by guid, or list the POIs indexed under a level-14 or
level-15 cell.

Exit codes:
  0 - Found
  1 - No such POI
  2 - Command error

Examples:
  cellstore poi 8c1b2f0e.16
  cellstore poi --cell 2/03313212313032 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && opts.Cell != "" {
				return NewExitError(ExitCommandError, "give either a guid or --cell, not both")
			}
			if len(args) == 0 && opts.Cell == "" {
				return NewExitError(ExitCommandError, "a guid or --cell is required")
			}
			if opts.Cell != "" {
				return runPoisInCell(opts, cmd)
			}
			return runPoi(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Cell, "cell", "", "level-14 or level-15 cell id")
	return cmd
}

func runPoi(opts *PoiOptions, guid string, cmd *cobra.Command) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(st)

	rec, err := st.Poi(ctx, guid)
	if err != nil {
		return WrapExitError(ExitFailure, "lookup failed", err)
	}
	if rec == nil {
		return NewExitError(ExitFailure, fmt.Sprintf("poi %s not found", guid))
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return f.Success(rec)
	}
	writePoiText(cmd.OutOrStdout(), *rec)
	return nil
}

func runPoisInCell(opts *PoiOptions, cmd *cobra.Command) error {
	id, err := cell.ParseID(opts.Cell)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid cell", err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(st)

	pois, err := st.PoisInCell(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "lookup failed", err)
	}

	if opts.Format == "json" {
		if pois == nil {
			pois = []poi.PoiRecord{}
		}
		f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return f.Success(pois)
	}

	w := cmd.OutOrStdout()
	if len(pois) == 0 {
		fmt.Fprintf(w, "No POIs in %s.\n", id)
		return nil
	}
	for _, p := range pois {
		writePoiText(w, p)
	}
	return nil
}

func writePoiText(w io.Writer, p poi.PoiRecord) {
	fmt.Fprintf(w, "%s %q (%s) at (%.6f, %.6f)\n", p.GUID, p.Name, p.Kind(), p.Lat, p.Lng)
	if len(p.Tags) > 0 {
		fmt.Fprintf(w, "  tags: %s\n", strings.Join(p.Tags, ", "))
	}
	fmt.Fprintf(w, "  fetched: first %d, last %d\n", p.FirstFetchDate, p.LastFetchDate)
}
