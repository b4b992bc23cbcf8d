package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"trainforge/internal/data"
)

// DefaultPool is the name of the average-pooling stage installed at
// construction time.
const DefaultPool = "avgpool"

// LinearConfig configures a LinearClassifier.
type LinearConfig struct {
	Classes     int
	FeatureGrid int
	InitScale   float64
	Seed        int64
}

// Validate checks the config is buildable.
func (c LinearConfig) Validate() error {
	if c.Classes <= 1 {
		return fmt.Errorf("model: classes must be > 1 (got %d)", c.Classes)
	}
	if c.FeatureGrid <= 0 {
		return fmt.Errorf("model: feature grid must be > 0 (got %d)", c.FeatureGrid)
	}
	if c.InitScale < 0 {
		return errors.New("model: init scale must be >= 0")
	}
	return nil
}

// LinearClassifier is a linear softmax classifier over a pooled feature
// grid. Inputs of any spatial size are pooled down to FeatureGrid², so
// resized or row/column-dropped batches still fit the weight matrix.
type LinearClassifier struct {
	classes  int
	grid     int
	params   *Parameters
	poolName string
	pool     PoolFunc
}

// NewLinearClassifier builds the model with deterministic per-seed
// initialization.
func NewLinearClassifier(cfg LinearConfig) (*LinearClassifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scale := cfg.InitScale
	if scale == 0 {
		scale = 0.01
	}
	features := cfg.FeatureGrid * cfg.FeatureGrid
	rng := rand.New(rand.NewSource(cfg.Seed))
	weights := make([]float64, cfg.Classes*features)
	for i := range weights {
		weights[i] = (rng.Float64()*2 - 1) * scale
	}
	return &LinearClassifier{
		classes:  cfg.Classes,
		grid:     cfg.FeatureGrid,
		params:   &Parameters{Weights: weights, Bias: make([]float64, cfg.Classes)},
		poolName: DefaultPool,
		pool:     AveragePool,
	}, nil
}

func (m *LinearClassifier) Classes() int { return m.classes }
func (m *LinearClassifier) FeatureGrid() int { return m.grid }
func (m *LinearClassifier) Parameters() *Parameters { return m.params }
func (m *LinearClassifier) PoolName() string { return m.poolName }

// ReplacePool installs a new pooling stage. Structural policies call
// this once at session start.
func (m *LinearClassifier) ReplacePool(name string, fn PoolFunc) error {
	if name == "" || fn == nil {
		return errors.New("model: pooling replacement needs a name and a function")
	}
	m.poolName = name
	m.pool = fn
	return nil
}

// SetParameters swaps in restored parameters, rejecting shape drift.
func (m *LinearClassifier) SetParameters(p *Parameters) error {
	features := m.grid * m.grid
	if len(p.Weights) != m.classes*features || len(p.Bias) != m.classes {
		return fmt.Errorf("model: parameter shape mismatch (want %dx%d weights, %d bias)",
			m.classes, features, m.classes)
	}
	m.params = p
	return nil
}

// LossAndGrad computes mean softmax cross-entropy over the batch and
// the matching mean gradients. Soft targets, when a policy set them,
// replace the one-hot labels.
func (m *LinearClassifier) LossAndGrad(b *data.Batch) (float64, *Gradients, error) {
	if b.Size() == 0 {
		return 0, nil, errors.New("model: empty batch")
	}
	features := m.grid * m.grid
	grads := &Gradients{
		Weights: make([]float64, len(m.params.Weights)),
		Bias:    make([]float64, len(m.params.Bias)),
	}
	total := 0.0
	for i := range b.Inputs {
		feats, logits, err := m.forward(b, i, features)
		if err != nil {
			return 0, nil, err
		}
		probs := softmax(logits)

		target, err := m.target(b, i)
		if err != nil {
			return 0, nil, err
		}
		for c := 0; c < m.classes; c++ {
			if target[c] > 0 {
				total += -target[c] * math.Log(math.Max(probs[c], 1e-12))
			}
		}

		for c := 0; c < m.classes; c++ {
			g := probs[c] - target[c]
			grads.Bias[c] += g
			wStart := c * features
			for j := 0; j < features; j++ {
				grads.Weights[wStart+j] += g * feats[j]
			}
		}
	}
	inv := 1.0 / float64(b.Size())
	for i := range grads.Weights {
		grads.Weights[i] *= inv
	}
	for i := range grads.Bias {
		grads.Bias[i] *= inv
	}
	return total * inv, grads, nil
}

// Predict returns the argmax class per sample.
func (m *LinearClassifier) Predict(b *data.Batch) ([]int, error) {
	features := m.grid * m.grid
	out := make([]int, b.Size())
	for i := range b.Inputs {
		_, logits, err := m.forward(b, i, features)
		if err != nil {
			return nil, err
		}
		best := 0
		for c := 1; c < m.classes; c++ {
			if logits[c] > logits[best] {
				best = c
			}
		}
		out[i] = best
	}
	return out, nil
}

func (m *LinearClassifier) forward(b *data.Batch, i, features int) ([]float64, []float64, error) {
	if len(b.Inputs[i]) != b.Pixels() {
		return nil, nil, fmt.Errorf("model: sample %d has %d values for a %dx%d grid",
			i, len(b.Inputs[i]), b.Height, b.Width)
	}
	feats := m.pool(b.Inputs[i], b.Height, b.Width, m.grid)
	if len(feats) != features {
		return nil, nil, fmt.Errorf("model: pooling %q produced %d features, want %d",
			m.poolName, len(feats), features)
	}
	logits := make([]float64, m.classes)
	for c := 0; c < m.classes; c++ {
		sum := m.params.Bias[c]
		wStart := c * features
		for j := 0; j < features; j++ {
			sum += m.params.Weights[wStart+j] * feats[j]
		}
		logits[c] = sum
	}
	return feats, logits, nil
}

func (m *LinearClassifier) target(b *data.Batch, i int) ([]float64, error) {
	if b.Targets != nil {
		if len(b.Targets[i]) != m.classes {
			return nil, fmt.Errorf("model: sample %d soft target has %d classes, want %d",
				i, len(b.Targets[i]), m.classes)
		}
		return b.Targets[i], nil
	}
	label := b.Labels[i]
	if label < 0 || label >= m.classes {
		return nil, fmt.Errorf("model: sample %d label %d out of range [0, %d)", i, label, m.classes)
	}
	onehot := make([]float64, m.classes)
	onehot[label] = 1
	return onehot, nil
}

// AveragePool reduces an h×w grid to grid×grid by averaging each cell.
func AveragePool(input []float64, h, w, grid int) []float64 {
	out := make([]float64, grid*grid)
	for gy := 0; gy < grid; gy++ {
		y0, y1 := cell(gy, grid, h)
		for gx := 0; gx < grid; gx++ {
			x0, x1 := cell(gx, grid, w)
			sum := 0.0
			n := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					sum += input[y*w+x]
					n++
				}
			}
			if n > 0 {
				out[gy*grid+gx] = sum / float64(n)
			}
		}
	}
	return out
}

// cell maps pool cell g of grid onto the half-open pixel range it
// covers in a dimension of extent n. Cells always cover at least one
// pixel even when n < grid.
func cell(g, grid, n int) (int, int) {
	lo := g * n / grid
	hi := (g + 1) * n / grid
	if hi <= lo {
		lo = min(g, n-1)
		hi = lo + 1
	}
	return lo, hi
}

func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	sum := 0.0
	out := make([]float64, len(logits))
	for i, v := range logits {
		e := math.Exp(v - maxLogit)
		out[i] = e
		sum += e
	}
	inv := 1.0 / sum
	for i := range out {
		out[i] *= inv
	}
	return out
}
