// Package optim provides the parameter-update rule and the pure
// learning-rate schedules consumed by the session runner.
package optim

import (
	"errors"
	"fmt"

	"trainforge/internal/model"
)

// SGDConfig holds the SGD hyperparameters.
type SGDConfig struct {
	LR          float64
	Momentum    float64
	WeightDecay float64
}

// Validate checks the hyperparameters are usable.
func (c SGDConfig) Validate() error {
	if c.LR <= 0 {
		return fmt.Errorf("optim: learning rate must be > 0 (got %g)", c.LR)
	}
	if c.Momentum < 0 || c.Momentum >= 1 {
		return fmt.Errorf("optim: momentum must be in [0, 1) (got %g)", c.Momentum)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("optim: weight decay must be >= 0 (got %g)", c.WeightDecay)
	}
	return nil
}

// SGD applies momentum SGD updates in place:
//
//	v = momentum*v + grad + weightDecay*param
//	param -= lr * lrScale * v
//
// Velocity buffers are allocated lazily on the first step and sized to
// the parameters they track.
type SGD struct {
	cfg       SGDConfig
	velocityW []float64
	velocityB []float64
}

// NewSGD validates cfg and builds the optimizer.
func NewSGD(cfg SGDConfig) (*SGD, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SGD{cfg: cfg}, nil
}

// Config returns the hyperparameters.
func (o *SGD) Config() SGDConfig { return o.cfg }

// Step applies one update to params. lrScale is the schedule multiplier
// for the current progress fraction.
func (o *SGD) Step(params *model.Parameters, grads *model.Gradients, lrScale float64) error {
	if params == nil || grads == nil {
		return errors.New("optim: nil params or grads")
	}
	if len(grads.Weights) != len(params.Weights) || len(grads.Bias) != len(params.Bias) {
		return fmt.Errorf("optim: gradient shape mismatch (%d/%d weights, %d/%d bias)",
			len(grads.Weights), len(params.Weights), len(grads.Bias), len(params.Bias))
	}
	if lrScale < 0 {
		return fmt.Errorf("optim: negative lr scale %g", lrScale)
	}
	if o.velocityW == nil {
		o.velocityW = make([]float64, len(params.Weights))
		o.velocityB = make([]float64, len(params.Bias))
	}
	if len(o.velocityW) != len(params.Weights) || len(o.velocityB) != len(params.Bias) {
		return errors.New("optim: velocity shape no longer matches parameters")
	}

	lr := o.cfg.LR * lrScale
	for i := range params.Weights {
		v := o.cfg.Momentum*o.velocityW[i] + grads.Weights[i] + o.cfg.WeightDecay*params.Weights[i]
		o.velocityW[i] = v
		params.Weights[i] -= lr * v
	}
	for i := range params.Bias {
		v := o.cfg.Momentum*o.velocityB[i] + grads.Bias[i]
		o.velocityB[i] = v
		params.Bias[i] -= lr * v
	}
	return nil
}

// Velocity exposes the momentum buffers for checkpointing. The returned
// slices are copies.
func (o *SGD) Velocity() ([]float64, []float64) {
	return append([]float64(nil), o.velocityW...), append([]float64(nil), o.velocityB...)
}

// SetVelocity restores momentum buffers from a checkpoint.
func (o *SGD) SetVelocity(weights, bias []float64) {
	o.velocityW = append([]float64(nil), weights...)
	o.velocityB = append([]float64(nil), bias...)
}
