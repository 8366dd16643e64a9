// Command cellstore ingests scanned POI batches into a cell-indexed SQLite
// store and reports per-cell statistics.
package main

import (
	"os"

	"github.com/roach88/cellstore/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
