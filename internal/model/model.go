// Package model defines the trainable-model contract consumed by the
// session runner, plus a small reference classifier.
package model

import (
	"trainforge/internal/data"
)

// Parameters is the flat trainable state of a model. The optimizer
// mutates it in place; checkpoints serialize it.
type Parameters struct {
	Weights []float64 `json:"weights"`
	Bias    []float64 `json:"bias"`
}

// Clone deep-copies the parameters.
func (p *Parameters) Clone() *Parameters {
	return &Parameters{
		Weights: append([]float64(nil), p.Weights...),
		Bias:    append([]float64(nil), p.Bias...),
	}
}

// Gradients mirrors Parameters.
type Gradients struct {
	Weights []float64
	Bias    []float64
}

// PoolFunc reduces an h×w input grid to a grid×grid feature map.
// Models pool before the parameterized layers, which is what lets
// batch-resizing policies feed them inputs of any spatial size.
type PoolFunc func(input []float64, h, w, grid int) []float64

// Model is the training-side contract. Implementations compute loss
// and gradients but never apply updates; the optimizer owns that.
type Model interface {
	Classes() int
	FeatureGrid() int
	Parameters() *Parameters
	LossAndGrad(b *data.Batch) (loss float64, grads *Gradients, err error)
	Predict(b *data.Batch) ([]int, error)

	// Pooling surgery hooks for structural policies. PoolName reports
	// the currently installed pooling stage; ReplacePool swaps it.
	PoolName() string
	ReplacePool(name string, fn PoolFunc) error
}
