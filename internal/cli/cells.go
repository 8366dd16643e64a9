package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cellstore/internal/cell"
	"github.com/roach88/cellstore/internal/poi"
)

// CellsOptions holds flags for the cells command.
type CellsOptions struct {
	*RootOptions
	Bounds string
	Level  int
}

// CellInfo describes one cell in command output.
type CellInfo struct {
	ID      cell.ID        `json:"id"`
	Token   string         `json:"token"`
	Level   int            `json:"level"`
	Center  cell.LatLng    `json:"center"`
	Corners [4]cell.LatLng `json:"corners"`
}

func cellInfo(c cell.Cell) CellInfo {
	return CellInfo{
		ID:      c.ID(),
		Token:   cell.Token(c.PackedID()),
		Level:   c.Level,
		Center:  c.Center(),
		Corners: c.Corners,
	}
}

// NewCellsCommand creates the cells command.
func NewCellsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CellsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cells",
		Short: "List the cells covering a rectangle",
		Long: `List every cell at --level that intersects --bounds. The store is not
opened.

Examples:
  cellstore cells --bounds -0.13,51.49,-0.11,51.51
  cellstore cells --bounds 179.9,-0.1,-179.9,0.1 --level 13 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCells(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Bounds, "bounds", "", "rectangle west,south,east,north (required)")
	cmd.Flags().IntVar(&opts.Level, "level", poi.ScanLevel, "cell level")
	_ = cmd.MarkFlagRequired("bounds")

	return cmd
}

func runCells(opts *CellsOptions, cmd *cobra.Command) error {
	b, err := parseBounds(opts.Bounds)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid bounds", err)
	}
	if opts.Level < 0 || opts.Level > cell.MaxLevel {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid level %d: must be in [0, %d]", opts.Level, cell.MaxLevel))
	}

	cells := poi.NearbyCells(b, opts.Level)
	infos := make([]CellInfo, 0, len(cells))
	for _, c := range cells {
		infos = append(infos, cellInfo(c))
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return f.Success(infos)
	}

	w := cmd.OutOrStdout()
	for _, c := range infos {
		fmt.Fprintf(w, "%s %s (%.6f, %.6f)\n", c.ID, c.Token, c.Center.Lat, c.Center.Lng)
	}
	fmt.Fprintf(w, "%d cells at level %d\n", len(infos), opts.Level)
	return nil
}
