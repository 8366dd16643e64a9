package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cellstore/internal/cell"
	"github.com/roach88/cellstore/internal/poi"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Level int
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <token|quadkey>",
		Short: "Describe a cell identifier",
		Long: `Decode a quadkey (2/03313212313032) or a hex cell token (487604c5) and
print the cell's id, token, level, center and corners. Tokens are decoded
at --level.

Examples:
  cellstore decode 2/03313212313032
  cellstore decode 487604c5 --level 14 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Level, "level", poi.ScanLevel, "level of a hex token")
	return cmd
}

func runDecode(opts *DecodeOptions, arg string, cmd *cobra.Command) error {
	var (
		c   cell.Cell
		err error
	)
	if strings.Contains(arg, "/") {
		var id cell.ID
		id, err = cell.ParseID(arg)
		if err == nil {
			c, err = cell.FromID(id)
		}
	} else {
		c, err = cell.TokenToCell(arg, opts.Level)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid cell identifier", err)
	}

	info := cellInfo(c)
	if opts.Format == "json" {
		f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return f.Success(info)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "id:     %s\n", info.ID)
	fmt.Fprintf(w, "token:  %s\n", info.Token)
	fmt.Fprintf(w, "level:  %d\n", info.Level)
	fmt.Fprintf(w, "center: (%.6f, %.6f)\n", info.Center.Lat, info.Center.Lng)
	for k, ll := range info.Corners {
		fmt.Fprintf(w, "corner %d: (%.6f, %.6f)\n", k, ll.Lat, ll.Lng)
	}
	return nil
}
