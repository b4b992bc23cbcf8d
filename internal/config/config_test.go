package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainforge/internal/policy"
	"trainforge/internal/session"
)

const testYAML = `
seed: 7
device: cpu
budget:
  value: 2
  unit: epochs
dataset:
  size: 128
  eval_size: 32
  height: 16
  width: 16
  classes: 4
loader:
  batch_size: 16
  num_workers: 2
optimizer:
  lr: 0.05
  momentum: 0.8
schedule:
  name: cosine
  floor: 0.1
policies:
  - name: colout
    params:
      p_row: 0.2
  - name: blurpool
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(testYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 2, cfg.Budget.Value)
	assert.Equal(t, "epochs", cfg.Budget.Unit)
	assert.Equal(t, 16, cfg.Loader.BatchSize)
	assert.Equal(t, 0.05, cfg.Optim.LR)
	require.Len(t, cfg.Policies, 2)
	assert.Equal(t, "colout", cfg.Policies[0].Name)
	assert.Equal(t, "blurpool", cfg.Policies[1].Name)
	// Defaults survive for keys the file omits.
	assert.Equal(t, 50, cfg.LogEvery)
	assert.Equal(t, 7, cfg.Model.FeatureGrid)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("seed: 1\nbatch_sise: 32\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_sise")
}

func TestParseRejectsBadBudget(t *testing.T) {
	_, err := Parse([]byte("budget:\n  value: 0\n  unit: epochs\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("budget:\n  value: 2\n  unit: minutes\n"))
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{
		Device:      "accelerator",
		BudgetValue: 9,
		BudgetUnit:  "steps",
		BatchSize:   128,
		Seed:        99,
	})
	assert.Equal(t, "accelerator", cfg.Device)
	assert.Equal(t, 9, cfg.Budget.Value)
	assert.Equal(t, "steps", cfg.Budget.Unit)
	assert.Equal(t, 128, cfg.Loader.BatchSize)
	assert.Equal(t, int64(99), cfg.Seed)
	// Untouched fields keep their values.
	assert.Equal(t, 2, cfg.Loader.NumWorkers)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TRAINFORGE_OPTIMIZER__LR", "0.5")
	cfg, err := Parse([]byte("seed: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Optim.LR)
}

func TestBuildCollaborators(t *testing.T) {
	cfg, err := Parse([]byte(testYAML))
	require.NoError(t, err)

	m, err := cfg.BuildModel()
	require.NoError(t, err)
	assert.Equal(t, 4, m.Classes())

	o, err := cfg.BuildOptimizer()
	require.NoError(t, err)
	assert.Equal(t, 0.05, o.Config().LR)

	sched, err := cfg.BuildSchedule()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sched(0), 1e-12)
	assert.InDelta(t, 0.1, sched(1), 1e-12)

	set, err := cfg.BuildPolicies()
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, []string{"colout", "blurpool"}, set.Names())
	assert.Equal(t, 0.2, set[0].(*policy.ColOut).PRow)

	train, eval, err := cfg.BuildLoaders()
	require.NoError(t, err)
	assert.Equal(t, 8, train.BatchesPerEpoch())
	assert.Equal(t, 2, eval.BatchesPerEpoch())

	assert.Equal(t, session.Duration{Value: 2, Unit: session.Epochs}, cfg.Duration())
}

func TestBuildPoliciesRejectsUnknownParams(t *testing.T) {
	cfg, err := Parse([]byte("policies:\n  - name: colout\n    params:\n      p_diag: 0.5\n"))
	require.NoError(t, err)
	_, err = cfg.BuildPolicies()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "p_diag")
}

func TestBuildScheduleUnknownName(t *testing.T) {
	cfg := Default()
	cfg.Schedule.Name = "polynomial"
	_, err := cfg.BuildSchedule()
	assert.Error(t, err)
}

func TestNoEvalLoaderWhenEvalSizeZero(t *testing.T) {
	cfg := Default()
	cfg.Dataset.EvalSize = 0
	_, eval, err := cfg.BuildLoaders()
	require.NoError(t, err)
	assert.Nil(t, eval)
}
