package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnsValidate(t *testing.T) {
	cols := DefaultColumns()
	require.NoError(t, cols.Validate(true))

	cols.Label = ""
	assert.NoError(t, cols.Validate(false))
	assert.ErrorIs(t, cols.Validate(true), ErrSchemaDrift)

	cols = DefaultColumns()
	cols.Amount = ""
	assert.ErrorIs(t, cols.Validate(false), ErrSchemaDrift)
}

func TestPresets(t *testing.T) {
	kfold, err := Preset("kfold")
	require.NoError(t, err)
	assert.Equal(t, "or", kfold.Policy)
	assert.Equal(t, "f1", kfold.ThresholdMetric)

	ts, err := Preset("timesplit")
	require.NoError(t, err)
	assert.Equal(t, "youden", ts.ThresholdMetric)

	ens, err := Preset("ensemble")
	require.NoError(t, err)
	assert.Equal(t, "weighted", ens.Policy)
	assert.Equal(t, 0.85, ens.Alpha)

	_, err = Preset("bogus")
	assert.Error(t, err)
}

func TestFromEnvOverlay(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/dd")
	t.Setenv("SEED", "7")
	cfg := FromEnv(Default())
	assert.Equal(t, "/tmp/dd", cfg.DataDir)
	assert.Equal(t, int64(7), cfg.Seed)
}
