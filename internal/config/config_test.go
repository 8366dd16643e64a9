package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "cellstore.db", cfg.DB)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, []string{"POKESTOP", "GYM"}, cfg.StopKinds)
	assert.Equal(t, 4, cfg.MaxConns)
	assert.Equal(t, 4, cfg.Concurrency)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse("test.cue", []byte(`
db: "/tmp/x.db"
log: level: "debug"
stop_kinds: ["POKESTOP"]
concurrency: 8
`))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.db", cfg.DB)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, []string{"POKESTOP"}, cfg.StopKinds)
	assert.Equal(t, 4, cfg.MaxConns)
	assert.Equal(t, 8, cfg.Concurrency)
}

func TestParse_AcceptsJSON(t *testing.T) {
	cfg, err := Parse("test.json", []byte(`{"db": "a.db", "log": {"format": "json"}}`))
	require.NoError(t, err)

	assert.Equal(t, "a.db", cfg.DB)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", `colour: "red"`},
		{"bad level", `log: level: "loud"`},
		{"non-positive concurrency", `concurrency: 0`},
		{"empty db", `db: ""`},
		{"wrong type", `max_conns: "four"`},
		{"syntax", `db: "unterminated`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.cue", []byte(tt.src))
			require.Error(t, err)

			var cfgErr *Error
			assert.True(t, errors.As(err, &cfgErr), "got %T: %v", err, err)
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "cellstore.cue")
	require.NoError(t, os.WriteFile(path, []byte(`max_conns: 2`), 0o644))

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxConns)

	_, err = Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_Store(t *testing.T) {
	cfg := Default()
	sc := cfg.Store()

	assert.Equal(t, cfg.DB, sc.Path)
	assert.Equal(t, cfg.StopKinds, sc.StopKinds)
	assert.Equal(t, cfg.Concurrency, sc.Concurrency)
}

func TestLogConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LogConfig{Level: "error"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{}.SlogLevel())
}
