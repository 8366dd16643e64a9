package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cellstore/internal/poi"
)

//go:embed schema.cue
var schemaCUE string

// Config is the validated runtime configuration.
type Config struct {
	DB          string    `json:"db"`
	Log         LogConfig `json:"log"`
	StopKinds   []string  `json:"stop_kinds"`
	MaxConns    int       `json:"max_conns"`
	Concurrency int       `json:"concurrency"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Error is a configuration error with its CUE source position, if known.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Default returns the configuration with every default applied.
func Default() Config {
	cfg, err := Parse("", nil)
	if err != nil {
		panic(fmt.Sprintf("config: schema defaults do not validate: %v", err))
	}
	return cfg
}

// Load reads and validates the CUE (or JSON) file at path. An empty path
// yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse validates src against the schema and decodes the result. filename is
// used in error positions only.
func Parse(filename string, src []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def
	if len(src) > 0 {
		user := ctx.CompileBytes(src, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return Config{}, formatCUEError(err)
		}
		v = def.Unify(user)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	return cfg, nil
}

// Store returns the spatial store configuration.
func (c Config) Store() poi.Config {
	return poi.Config{
		Path:        c.DB,
		StopKinds:   c.StopKinds,
		MaxConns:    c.MaxConns,
		Concurrency: c.Concurrency,
	}
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	e := &Error{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
