package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainforge/internal/data"
)

func testBatch() *data.Batch {
	return &data.Batch{
		Inputs: [][]float64{
			{1, 0, 0, 0},
			{0, 0, 0, 1},
		},
		Labels: []int{0, 1},
		Height: 2,
		Width:  2,
	}
}

func TestNewLinearClassifierDeterministic(t *testing.T) {
	cfg := LinearConfig{Classes: 3, FeatureGrid: 2, Seed: 42}
	a, err := NewLinearClassifier(cfg)
	require.NoError(t, err)
	b, err := NewLinearClassifier(cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Parameters().Weights, b.Parameters().Weights)
}

func TestLinearConfigValidate(t *testing.T) {
	assert.Error(t, LinearConfig{Classes: 1, FeatureGrid: 2}.Validate())
	assert.Error(t, LinearConfig{Classes: 2, FeatureGrid: 0}.Validate())
	assert.Error(t, LinearConfig{Classes: 2, FeatureGrid: 2, InitScale: -1}.Validate())
	assert.NoError(t, LinearConfig{Classes: 2, FeatureGrid: 2}.Validate())
}

func TestLossAndGradShapes(t *testing.T) {
	m, err := NewLinearClassifier(LinearConfig{Classes: 2, FeatureGrid: 2, Seed: 1})
	require.NoError(t, err)

	loss, grads, err := m.LossAndGrad(testBatch())
	require.NoError(t, err)
	assert.Greater(t, loss, 0.0)
	assert.Len(t, grads.Weights, 2*4)
	assert.Len(t, grads.Bias, 2)
}

func TestLossDropsAfterDescentSteps(t *testing.T) {
	m, err := NewLinearClassifier(LinearConfig{Classes: 2, FeatureGrid: 2, Seed: 1})
	require.NoError(t, err)
	b := testBatch()

	first, _, err := m.LossAndGrad(b)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, grads, err := m.LossAndGrad(b)
		require.NoError(t, err)
		for j := range m.params.Weights {
			m.params.Weights[j] -= 0.5 * grads.Weights[j]
		}
		for j := range m.params.Bias {
			m.params.Bias[j] -= 0.5 * grads.Bias[j]
		}
	}
	last, _, err := m.LossAndGrad(b)
	require.NoError(t, err)
	assert.Less(t, last, first)
}

func TestPredictHandlesResizedInput(t *testing.T) {
	m, err := NewLinearClassifier(LinearConfig{Classes: 2, FeatureGrid: 2, Seed: 1})
	require.NoError(t, err)

	big := &data.Batch{
		Inputs: [][]float64{make([]float64, 16)},
		Labels: []int{0},
		Height: 4,
		Width:  4,
	}
	_, err = m.Predict(big)
	assert.NoError(t, err)

	small := &data.Batch{
		Inputs: [][]float64{{0.5}},
		Labels: []int{0},
		Height: 1,
		Width:  1,
	}
	_, err = m.Predict(small)
	assert.NoError(t, err)
}

func TestSoftTargets(t *testing.T) {
	m, err := NewLinearClassifier(LinearConfig{Classes: 2, FeatureGrid: 2, Seed: 1})
	require.NoError(t, err)
	b := testBatch()
	b.Targets = [][]float64{{0.9, 0.1}, {0.1, 0.9}}

	loss, _, err := m.LossAndGrad(b)
	require.NoError(t, err)
	assert.Greater(t, loss, 0.0)

	b.Targets = [][]float64{{1}, {0}}
	_, _, err = m.LossAndGrad(b)
	assert.Error(t, err)
}

func TestReplacePool(t *testing.T) {
	m, err := NewLinearClassifier(LinearConfig{Classes: 2, FeatureGrid: 2, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, DefaultPool, m.PoolName())

	err = m.ReplacePool("maxish", func(in []float64, h, w, grid int) []float64 {
		return AveragePool(in, h, w, grid)
	})
	require.NoError(t, err)
	assert.Equal(t, "maxish", m.PoolName())

	assert.Error(t, m.ReplacePool("", nil))
}

func TestAveragePoolCells(t *testing.T) {
	// 4x4 grid of constant quadrants pools exactly onto a 2x2 grid.
	in := []float64{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	out := AveragePool(in, 4, 4, 2)
	assert.Equal(t, []float64{1, 2, 3, 4}, out)

	// Upsampling path: 1x1 input still yields grid*grid features.
	tiny := AveragePool([]float64{7}, 1, 1, 2)
	assert.Equal(t, []float64{7, 7, 7, 7}, tiny)
}

func TestSetParametersShapeCheck(t *testing.T) {
	m, err := NewLinearClassifier(LinearConfig{Classes: 2, FeatureGrid: 2, Seed: 1})
	require.NoError(t, err)

	good := m.Parameters().Clone()
	assert.NoError(t, m.SetParameters(good))
	assert.Error(t, m.SetParameters(&Parameters{Weights: []float64{1}, Bias: []float64{1, 2}}))
}
