package policy

import (
	"fmt"

	"trainforge/internal/data"
)

func init() {
	Register("cutout", func(p Params) (Policy, error) {
		a := newArgs(p)
		pol := &CutOut{Length: a.Int("length", 4)}
		if err := a.Err(); err != nil {
			return nil, err
		}
		if pol.Length <= 0 {
			return nil, fmt.Errorf("length must be > 0 (got %d)", pol.Length)
		}
		return pol, nil
	})
}

// CutOut zero-masks one random Length×Length square per sample.
type CutOut struct {
	Length int
}

func (c *CutOut) Name() string { return "cutout" }
func (c *CutOut) Scope() Scope { return PerSample }
func (c *CutOut) TrainingOnly() bool { return true }

func (c *CutOut) Apply(ctx StepContext, b *data.Batch) error {
	if ctx.RNG == nil {
		return fmt.Errorf("cutout needs a step RNG")
	}
	side := c.Length
	if side > b.Height {
		side = b.Height
	}
	if side > b.Width {
		side = b.Width
	}
	for i := range b.Inputs {
		oy := ctx.RNG.Intn(b.Height - side + 1)
		ox := ctx.RNG.Intn(b.Width - side + 1)
		for y := oy; y < oy+side; y++ {
			for x := ox; x < ox+side; x++ {
				b.SetAt(i, y, x, 0)
			}
		}
	}
	return nil
}
