// Package session orchestrates bounded training runs: it drives epochs
// and steps within a duration budget, applies the active policy set at
// the right lifecycle points, and reports the invocation's elapsed time
// and final metric. Chained invocations share model and optimizer state
// through the caller; each invocation reports only its own elapsed
// time, and summing across a chain is the caller's job.
package session

import (
	"fmt"
	"time"

	"trainforge/internal/data"
	"trainforge/internal/model"
	"trainforge/internal/optim"
	"trainforge/internal/policy"
)

// Unit is the dimension a duration budget is expressed in.
type Unit string

const (
	Epochs Unit = "epochs"
	Steps  Unit = "steps"
)

// Duration is a training duration budget. A zero or negative value is
// invalid: a deliberate no-op resume is expressed by not starting a
// session at all.
type Duration struct {
	Value int
	Unit  Unit
}

func (d Duration) Validate() error {
	if d.Unit != Epochs && d.Unit != Steps {
		return fmt.Errorf("duration unit must be %q or %q (got %q)", Epochs, Steps, d.Unit)
	}
	if d.Value <= 0 {
		return fmt.Errorf("duration budget must be > 0 (got %d %s)", d.Value, d.Unit)
	}
	return nil
}

func (d Duration) String() string {
	return fmt.Sprintf("%d %s", d.Value, d.Unit)
}

// Config assembles the collaborators and knobs for one session.
type Config struct {
	Model     model.Model
	Optimizer *optim.SGD
	Schedule  optim.Schedule
	Loader    *data.Loader
	// EvalLoader, when set, is run through the model at the end of
	// every completed epoch with training-only policies skipped.
	EvalLoader *data.Loader
	Policies   policy.Set
	// Device names the compute target; it is resolved once at session
	// start.
	Device string
	Budget Duration
	// CompletedSteps carries elapsed duration from prior sessions in
	// the chain so the data order and policy randomness continue where
	// the previous session stopped. Zero for a fresh session.
	CompletedSteps int
	Seed           int64
	LogEvery       int
}

// Result is a session outcome. On failure the partial counters and
// elapsed time accumulated up to the failing step are still reported.
type Result struct {
	SessionID string
	// Elapsed is wall-clock time spent in this invocation only.
	Elapsed time.Duration
	Steps   int
	Epochs  int
	// CompletedSteps is the chain total after this session, i.e. the
	// value to carry into a resume.
	CompletedSteps int
	FinalLoss      float64
	// EvalAccuracy is the last epoch's evaluation metric, or NaN when
	// no eval pass ran.
	EvalAccuracy float64
}
