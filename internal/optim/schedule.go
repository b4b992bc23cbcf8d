package optim

import (
	"fmt"
	"math"
	"sort"
)

// Schedule maps a session progress fraction in [0, 1] to a learning
// rate multiplier. Schedules are pure functions of progress with no
// internal state, which makes resuming a session with a fresh schedule
// trivially consistent.
type Schedule func(progress float64) float64

// Constant returns scale at every progress fraction.
func Constant(scale float64) Schedule {
	return func(float64) float64 { return scale }
}

// LinearWarmup ramps linearly from 0 to 1 over the first warmup
// fraction of the session, then holds at 1.
func LinearWarmup(warmup float64) (Schedule, error) {
	if warmup <= 0 || warmup > 1 {
		return nil, fmt.Errorf("optim: warmup fraction must be in (0, 1] (got %g)", warmup)
	}
	return func(progress float64) float64 {
		p := clamp01(progress)
		if p >= warmup {
			return 1
		}
		return p / warmup
	}, nil
}

// Cosine anneals from 1 down to floor over the session:
// scale(p) = floor + (1-floor) * (1 + cos(pi*p)) / 2.
func Cosine(floor float64) (Schedule, error) {
	if floor < 0 || floor >= 1 {
		return nil, fmt.Errorf("optim: cosine floor must be in [0, 1) (got %g)", floor)
	}
	return func(progress float64) float64 {
		p := clamp01(progress)
		return floor + (1-floor)*(1+math.Cos(math.Pi*p))/2
	}, nil
}

// StepDecay multiplies the scale by gamma at each milestone fraction.
func StepDecay(gamma float64, milestones ...float64) (Schedule, error) {
	if gamma <= 0 || gamma > 1 {
		return nil, fmt.Errorf("optim: step decay gamma must be in (0, 1] (got %g)", gamma)
	}
	for _, m := range milestones {
		if m <= 0 || m >= 1 {
			return nil, fmt.Errorf("optim: milestone %g outside (0, 1)", m)
		}
	}
	ms := append([]float64(nil), milestones...)
	sort.Float64s(ms)
	return func(progress float64) float64 {
		p := clamp01(progress)
		scale := 1.0
		for _, m := range ms {
			if p >= m {
				scale *= gamma
			}
		}
		return scale
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
