// Package data provides the batch type, the dataset contract, and a
// prefetching loader that assembles deterministic batches per epoch.
package data

// Batch is a minibatch of single-channel input grids and their labels.
// Each input holds Height*Width values in row-major order. Targets is
// nil unless a policy replaced the hard labels with soft targets.
type Batch struct {
	Inputs  [][]float64
	Labels  []int
	Targets [][]float64
	Height  int
	Width   int
	// Index is the batch's position within its epoch.
	Index int
}

// Size returns the number of samples in the batch.
func (b *Batch) Size() int { return len(b.Inputs) }

// Pixels returns the per-sample input length implied by the shape.
func (b *Batch) Pixels() int { return b.Height * b.Width }

// At reads pixel (y, x) of sample i.
func (b *Batch) At(i, y, x int) float64 {
	return b.Inputs[i][y*b.Width+x]
}

// SetAt writes pixel (y, x) of sample i.
func (b *Batch) SetAt(i, y, x int, v float64) {
	b.Inputs[i][y*b.Width+x] = v
}

// Clone deep-copies the batch. Policies mutate batches in place, so
// callers that need the original keep a clone.
func (b *Batch) Clone() Batch {
	out := Batch{Height: b.Height, Width: b.Width, Index: b.Index}
	out.Inputs = make([][]float64, len(b.Inputs))
	for i, in := range b.Inputs {
		out.Inputs[i] = append([]float64(nil), in...)
	}
	out.Labels = append([]int(nil), b.Labels...)
	if b.Targets != nil {
		out.Targets = make([][]float64, len(b.Targets))
		for i, tg := range b.Targets {
			out.Targets[i] = append([]float64(nil), tg...)
		}
	}
	return out
}
