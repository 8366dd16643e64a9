package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_SnapshotEmpty(t *testing.T) {
	data, err := NewResult("empty").Snapshot()
	require.NoError(t, err)

	want := "{\n  \"scenario\": \"empty\",\n  \"steps\": [],\n  \"pois\": []\n}\n"
	assert.Equal(t, want, string(data))
}

func TestResult_SnapshotOmitsErrors(t *testing.T) {
	r := NewResult("failing")
	r.AddError("assertion 0: boom")

	data, err := r.Snapshot()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "boom")
	assert.NotContains(t, string(data), "pass")
}

func TestResult_AddErrorFails(t *testing.T) {
	r := NewResult("x")
	assert.True(t, r.Pass)

	r.AddError("first")
	r.AddError("second")

	assert.False(t, r.Pass)
	assert.Equal(t, []string{"first", "second"}, r.Errors)
}
