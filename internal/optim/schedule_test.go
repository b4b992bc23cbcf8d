package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstant(t *testing.T) {
	s := Constant(0.3)
	assert.Equal(t, 0.3, s(0))
	assert.Equal(t, 0.3, s(0.5))
	assert.Equal(t, 0.3, s(1))
}

func TestLinearWarmup(t *testing.T) {
	s, err := LinearWarmup(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, s(0), 1e-12)
	assert.InDelta(t, 0.5, s(0.25), 1e-12)
	assert.InDelta(t, 1.0, s(0.5), 1e-12)
	assert.InDelta(t, 1.0, s(0.9), 1e-12)
	// Out-of-range progress clamps rather than extrapolating.
	assert.InDelta(t, 0.0, s(-1), 1e-12)

	_, err = LinearWarmup(0)
	assert.Error(t, err)
	_, err = LinearWarmup(1.5)
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	s, err := Cosine(0.1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s(0), 1e-12)
	assert.InDelta(t, 0.55, s(0.5), 1e-12)
	assert.InDelta(t, 0.1, s(1), 1e-12)
	assert.InDelta(t, 0.1, s(3), 1e-12)

	_, err = Cosine(1)
	assert.Error(t, err)
}

func TestStepDecay(t *testing.T) {
	s, err := StepDecay(0.1, 0.6, 0.3)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s(0.1), 1e-12)
	assert.InDelta(t, 0.1, s(0.3), 1e-12)
	assert.InDelta(t, 0.01, s(0.8), 1e-12)

	_, err = StepDecay(0, 0.5)
	assert.Error(t, err)
	_, err = StepDecay(0.1, 1.2)
	assert.Error(t, err)
}

func TestSchedulesAreStateless(t *testing.T) {
	s, err := Cosine(0)
	require.NoError(t, err)
	// Same progress twice yields the same scale regardless of call order.
	first := s(0.7)
	_ = s(0.2)
	assert.Equal(t, first, s(0.7))
}
