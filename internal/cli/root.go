package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cellstore/internal/config"
	"github.com/roach88/cellstore/internal/poi"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string

	// Config is resolved before any subcommand runs: the file named by
	// --config (or defaults), then flag overrides.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cellstore CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

// Execute runs the CLI with args and returns the process exit code. Errors
// are written to stderr, or to stdout as a JSON response with --format json.
func Execute(args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	code := GetExitCode(err)

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		return code
	}
	f := &OutputFormatter{Format: "text", Writer: stderr, Verbose: opts.Verbose}
	if opts.Format == "json" {
		f.Format = "json"
		f.Writer = stdout
	}
	_ = f.Error(ErrorCode(code), err.Error(), nil)
	return code
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cellstore",
		Short:         "cellstore - spatial POI store",
		Long:          "Ingest scanned points of interest into a cell-indexed store and query per-cell statistics.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.resolve(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a CUE or JSON config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewPoiCommand(opts))
	cmd.AddCommand(NewCellsCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve loads the configuration, applies flag overrides and installs the
// default slog logger writing to w.
func (o *RootOptions) resolve(w io.Writer) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.DB = o.Database
	}
	o.Config = cfg
	slog.SetDefault(slog.New(o.logHandler(w)))
	return nil
}

func (o *RootOptions) logHandler(w io.Writer) slog.Handler {
	level := o.Config.Log.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if o.Config.Log.Format == "json" {
		return slog.NewJSONHandler(w, hopts)
	}
	return slog.NewTextHandler(w, hopts)
}

// openStore opens the configured database, creating it if needed.
func (o *RootOptions) openStore(ctx context.Context) (*poi.Store, error) {
	st, err := poi.Open(ctx, o.Config.Store())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeStore(st *poi.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// commandContext returns a context cancelled on SIGINT or SIGTERM, or when
// the command's own context ends.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, cancelling", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
