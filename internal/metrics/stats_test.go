package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowSnapshot(t *testing.T) {
	var w Window
	w.Record(64, 20*time.Millisecond, 10*time.Millisecond, 1.2)
	w.Record(64, 10*time.Millisecond, 20*time.Millisecond, 0.8)
	snap := w.Snapshot()

	assert.InDelta(t, 2133.33, snap.SamplesPerSec, 1)
	assert.InDelta(t, 15, snap.AvgDataMS, 1e-9)
	assert.InDelta(t, 15, snap.AvgComputeMS, 1e-9)
	assert.Equal(t, 0.8, snap.LastLoss)

	// Snapshot resets; an empty window reports zeros.
	empty := w.Snapshot()
	assert.Zero(t, empty.SamplesPerSec)
	assert.Zero(t, empty.AvgDataMS)
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 0.75, Accuracy(3, 4))
	assert.Zero(t, Accuracy(0, 0))
}
