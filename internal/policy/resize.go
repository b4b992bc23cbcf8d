package policy

import (
	"fmt"
	"math"

	"trainforge/internal/data"
)

func init() {
	Register("progressive_resizing", func(p Params) (Policy, error) {
		a := newArgs(p)
		pol := &ProgressiveResizing{
			InitialScale:     a.Float("initial_scale", 0.5),
			FinetuneFraction: a.Float("finetune_fraction", 0.2),
		}
		if err := a.Err(); err != nil {
			return nil, err
		}
		if err := pol.validate(); err != nil {
			return nil, err
		}
		return pol, nil
	})
}

// ProgressiveResizing trains on shrunken inputs early in the session
// and grows them back to full size, reaching it before the final
// finetune fraction begins. Scale at progress p:
//
//	scale(p) = initial + (1-initial) * min(1, p / (1-finetune))
type ProgressiveResizing struct {
	InitialScale     float64
	FinetuneFraction float64
}

func (r *ProgressiveResizing) Name() string { return "progressive_resizing" }
func (r *ProgressiveResizing) Scope() Scope { return PerBatch }
func (r *ProgressiveResizing) TrainingOnly() bool { return true }

func (r *ProgressiveResizing) validate() error {
	if r.InitialScale <= 0 || r.InitialScale > 1 {
		return fmt.Errorf("initial_scale must be in (0, 1] (got %g)", r.InitialScale)
	}
	if r.FinetuneFraction < 0 || r.FinetuneFraction >= 1 {
		return fmt.Errorf("finetune_fraction must be in [0, 1) (got %g)", r.FinetuneFraction)
	}
	return nil
}

// ScaleAt returns the spatial scale used at a progress fraction.
func (r *ProgressiveResizing) ScaleAt(progress float64) float64 {
	ramp := 1 - r.FinetuneFraction
	var frac float64
	if ramp <= 0 {
		frac = 1
	} else {
		frac = math.Min(1, math.Max(0, progress)/ramp)
	}
	return r.InitialScale + (1-r.InitialScale)*frac
}

func (r *ProgressiveResizing) Apply(ctx StepContext, b *data.Batch) error {
	scale := r.ScaleAt(ctx.Progress)
	h := int(math.Round(scale * float64(b.Height)))
	w := int(math.Round(scale * float64(b.Width)))
	if h < 1 {
		h = 1
	}
	if w < 1 {
		w = 1
	}
	if h >= b.Height && w >= b.Width {
		return nil
	}
	for i, in := range b.Inputs {
		b.Inputs[i] = resample(in, b.Height, b.Width, h, w)
	}
	b.Height = h
	b.Width = w
	return nil
}

// resample shrinks an h×w grid to h2×w2 by area averaging.
func resample(in []float64, h, w, h2, w2 int) []float64 {
	out := make([]float64, h2*w2)
	for y2 := 0; y2 < h2; y2++ {
		y0 := y2 * h / h2
		y1 := (y2 + 1) * h / h2
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for x2 := 0; x2 < w2; x2++ {
			x0 := x2 * w / w2
			x1 := (x2 + 1) * w / w2
			if x1 <= x0 {
				x1 = x0 + 1
			}
			sum := 0.0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					sum += in[y*w+x]
				}
			}
			out[y2*w2+x2] = sum / float64((y1-y0)*(x1-x0))
		}
	}
	return out
}
