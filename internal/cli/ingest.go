package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cellstore/internal/poi"
	"github.com/roach88/cellstore/internal/scan"
	"github.com/roach88/cellstore/internal/txn"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <batch-file>...",
		Short: "Ingest scan batches",
		Long: `Ingest one or more scan batch files (YAML or JSON) into the store.

Each file is ingested in its own transaction, in argument order. A batch
that fails leaves the store as it was before that batch; earlier batches
stay committed.

Exit codes:
  0 - All batches ingested
  1 - Ingestion failed or was cancelled
  2 - Command error (unreadable batch, database not found, etc.)

Examples:
  cellstore ingest --db ./cellstore.db scan-0001.yaml
  cellstore ingest scans/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args, cmd)
		},
	}
	return cmd
}

func runIngest(opts *IngestOptions, paths []string, cmd *cobra.Command) error {
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	batches := make([]*scan.Batch, 0, len(paths))
	scans := make([]poi.Scan, 0, len(paths))
	for _, path := range paths {
		b, err := scan.Load(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load batch", err)
		}
		sc, err := b.Scan()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load batch", fmt.Errorf("%s: %w", path, err))
		}
		f.VerboseLog("loaded %s: %d cells, %d bounds, fetched %s", path, len(sc), len(b.Bounds), b.Time().UTC().Format(time.RFC3339))
		batches = append(batches, b)
		scans = append(scans, sc)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(st)

	reports := make([]poi.IngestReport, 0, len(batches))
	for k, b := range batches {
		report, err := st.Ingest(ctx, scans[k], b.ScannedBounds(), b.Time())
		if err != nil {
			msg := fmt.Sprintf("failed to ingest %s", paths[k])
			if txn.IsCancelled(err) {
				msg = fmt.Sprintf("ingest of %s cancelled", paths[k])
			}
			return WrapExitError(ExitFailure, msg, err)
		}
		reports = append(reports, report)
	}

	if opts.Format == "json" {
		return f.Success(reports)
	}

	w := cmd.OutOrStdout()
	for k, r := range reports {
		fmt.Fprintf(w, "✓ %s (batch %s)\n", paths[k], r.BatchID)
		fmt.Fprintf(w, "  cells: %d scanned, %d empty; leaves written: %d\n", r.ScannedCells, r.EmptyCells, r.LeavesWritten)
		fmt.Fprintf(w, "  pois: %d upserted, %d removed\n", r.PoisUpserted, r.PoisRemoved)
	}
	return nil
}
