package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCPU(t *testing.T) {
	dev, err := Resolve("cpu")
	require.NoError(t, err)
	assert.Equal(t, CPU, dev.Target)
	assert.Greater(t, dev.Threads, 0)
}

func TestResolveDefaultsToCPU(t *testing.T) {
	dev, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, CPU, dev.Target)
}

func TestResolveAcceleratorUnsupported(t *testing.T) {
	_, err := Resolve("accelerator")
	assert.True(t, errors.Is(err, ErrUnsupportedDevice))
}

func TestResolveUnknownTarget(t *testing.T) {
	_, err := Resolve("tpu-v9")
	assert.True(t, errors.Is(err, ErrUnsupportedDevice))
	assert.Contains(t, err.Error(), "tpu-v9")
}
