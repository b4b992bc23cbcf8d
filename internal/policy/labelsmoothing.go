package policy

import (
	"fmt"

	"trainforge/internal/data"
)

func init() {
	Register("label_smoothing", func(p Params) (Policy, error) {
		a := newArgs(p)
		pol := &LabelSmoothing{
			Alpha:   a.Float("alpha", 0.1),
			Classes: a.Int("classes", 0),
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

// LabelSmoothing replaces hard labels with smoothed soft targets:
// target = (1-alpha)*onehot + alpha/classes.
type LabelSmoothing struct {
	Alpha   float64
	Classes int
}

func (l *LabelSmoothing) Name() string { return "label_smoothing" }
func (l *LabelSmoothing) Scope() Scope { return PerBatch }
func (l *LabelSmoothing) TrainingOnly() bool { return true }

func (l *LabelSmoothing) validate() error {
	if l.Alpha <= 0 || l.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1) (got %g)", l.Alpha)
	}
	if l.Classes <= 1 {
		return fmt.Errorf("classes must be > 1 (got %d)", l.Classes)
	}
	return nil
}

func (l *LabelSmoothing) Apply(_ StepContext, b *data.Batch) error {
	uniform := l.Alpha / float64(l.Classes)
	targets := make([][]float64, b.Size())
	for i, label := range b.Labels {
		if label < 0 || label >= l.Classes {
			return fmt.Errorf("label %d out of range for %d classes", label, l.Classes)
		}
		t := make([]float64, l.Classes)
		for c := range t {
			t[c] = uniform
		}
		t[label] += 1 - l.Alpha
		targets[i] = t
	}
	b.Targets = targets
	return nil
}
