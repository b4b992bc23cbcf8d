package policy

import (
	"trainforge/internal/model"
)

func init() {
	Register("blurpool", func(p Params) (Policy, error) {
		a := newArgs(p)
		if err := a.Err(); err != nil {
			return nil, err
		}
		return &BlurPool{}, nil
	})
}

// BlurPoolName is the pooling-stage name BlurPool installs; Attach
// checks it to stay idempotent.
const BlurPoolName = "blurpool"

// BlurPool replaces the model's pooling stage with blur-then-pool: a
// 3x3 binomial blur smooths the input before the average pool, which
// reduces aliasing when upstream policies shrink the spatial size.
// Attaching to a model that already carries the blurpool stage is a
// no-op.
type BlurPool struct{}

func (b *BlurPool) Name() string { return "blurpool" }
func (b *BlurPool) Scope() Scope { return Structural }
func (b *BlurPool) TrainingOnly() bool { return false }
func (b *BlurPool) Target() string { return "pool" }

func (b *BlurPool) Attach(m model.Model) error {
	if m.PoolName() == BlurPoolName {
		return nil
	}
	return m.ReplacePool(BlurPoolName, blurThenPool)
}

func blurThenPool(input []float64, h, w, grid int) []float64 {
	return model.AveragePool(blur3x3(input, h, w), h, w, grid)
}

// blur3x3 applies a separable [1 2 1]/4 binomial kernel with edge
// clamping.
func blur3x3(in []float64, h, w int) []float64 {
	tmp := make([]float64, len(in))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := in[y*w+clampIdx(x-1, w)]
			c := in[y*w+x]
			r := in[y*w+clampIdx(x+1, w)]
			tmp[y*w+x] = (l + 2*c + r) / 4
		}
	}
	out := make([]float64, len(in))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u := tmp[clampIdx(y-1, h)*w+x]
			c := tmp[y*w+x]
			d := tmp[clampIdx(y+1, h)*w+x]
			out[y*w+x] = (u + 2*c + d) / 4
		}
	}
	return out
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
