package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	m, o := newModelAndSGD(t)
	res := mustRun(t, baseConfig(t, m, o, Duration{Value: 1, Unit: Epochs}))

	ckpt := Capture(m, o, res, testSeed)
	path := filepath.Join(t.TempDir(), "ckpt.json")
	require.NoError(t, ckpt.Save(path))

	loaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, ckpt.CompletedSteps, loaded.CompletedSteps)
	assert.Equal(t, ckpt.Params.Weights, loaded.Params.Weights)
	assert.Equal(t, ckpt.VelocityW, loaded.VelocityW)
}

func TestCheckpointResumeMatchesInMemoryChain(t *testing.T) {
	// Resuming through a checkpoint file must land on the same weights
	// as keeping the model and optimizer in memory.
	inMem, sgdMem := newModelAndSGD(t)
	first := mustRun(t, baseConfig(t, inMem, sgdMem, Duration{Value: 1, Unit: Epochs}))
	ckpt := Capture(inMem, sgdMem, first, testSeed)

	cfg := baseConfig(t, inMem, sgdMem, Duration{Value: 1, Unit: Epochs})
	cfg.CompletedSteps = first.CompletedSteps
	mustRun(t, cfg)

	restored, sgdNew := newModelAndSGD(t)
	require.NoError(t, ckpt.Restore(restored, sgdNew))
	cfg2 := baseConfig(t, restored, sgdNew, Duration{Value: 1, Unit: Epochs})
	cfg2.CompletedSteps = ckpt.CompletedSteps
	mustRun(t, cfg2)

	assert.Equal(t, inMem.Parameters().Weights, restored.Parameters().Weights)
	assert.Equal(t, inMem.Parameters().Bias, restored.Parameters().Bias)
}

func TestCheckpointRestoreShapeMismatch(t *testing.T) {
	m, o := newModelAndSGD(t)
	ckpt := Capture(m, o, Result{}, testSeed)
	ckpt.Params.Weights = ckpt.Params.Weights[:3]
	assert.Error(t, ckpt.Restore(m, o))
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	_, err := LoadCheckpoint(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestZeroElapsedNotReportedForFreshRunner(t *testing.T) {
	// A runner that fails validation never reports elapsed time; the
	// deliberate-no-op case is simply not constructing a session.
	m, o := newModelAndSGD(t)
	cfg := baseConfig(t, m, o, Duration{Value: -3, Unit: Steps})
	_, err := New(cfg)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}
