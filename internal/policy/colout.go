package policy

import (
	"fmt"

	"trainforge/internal/data"
)

func init() {
	Register("colout", func(p Params) (Policy, error) {
		a := newArgs(p)
		pol := &ColOut{
			PRow: a.Float("p_row", 0.15),
			PCol: a.Float("p_col", 0.15),
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

// ColOut drops a fraction of rows and columns from every sample in the
// batch, shrinking its spatial size and therefore the work downstream.
// The same rows and columns are dropped across the batch so samples
// keep a common shape.
type ColOut struct {
	PRow float64
	PCol float64
}

func (c *ColOut) Name() string { return "colout" }
func (c *ColOut) Scope() Scope { return PerBatch }
func (c *ColOut) TrainingOnly() bool { return true }

func (c *ColOut) validate() error {
	if c.PRow < 0 || c.PRow >= 1 {
		return fmt.Errorf("p_row must be in [0, 1) (got %g)", c.PRow)
	}
	if c.PCol < 0 || c.PCol >= 1 {
		return fmt.Errorf("p_col must be in [0, 1) (got %g)", c.PCol)
	}
	return nil
}

func (c *ColOut) Apply(ctx StepContext, b *data.Batch) error {
	if ctx.RNG == nil {
		return fmt.Errorf("colout needs a step RNG")
	}
	keepRows := keepIndices(ctx, b.Height, c.PRow)
	keepCols := keepIndices(ctx, b.Width, c.PCol)
	if len(keepRows) == b.Height && len(keepCols) == b.Width {
		return nil
	}

	for i, in := range b.Inputs {
		out := make([]float64, 0, len(keepRows)*len(keepCols))
		for _, y := range keepRows {
			row := in[y*b.Width : (y+1)*b.Width]
			for _, x := range keepCols {
				out = append(out, row[x])
			}
		}
		b.Inputs[i] = out
	}
	b.Height = len(keepRows)
	b.Width = len(keepCols)
	return nil
}

// keepIndices drops round(p*n) distinct indices, keeping at least one
// and preserving ascending order.
func keepIndices(ctx StepContext, n int, p float64) []int {
	drop := int(p * float64(n))
	if drop >= n {
		drop = n - 1
	}
	if drop <= 0 {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	perm := ctx.RNG.Perm(n)
	dropped := make(map[int]bool, drop)
	for _, i := range perm[:drop] {
		dropped[i] = true
	}
	out := make([]int, 0, n-drop)
	for i := 0; i < n; i++ {
		if !dropped[i] {
			out = append(out, i)
		}
	}
	return out
}
