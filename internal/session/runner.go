package session

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"trainforge/internal/data"
	"trainforge/internal/device"
	"trainforge/internal/logging"
	"trainforge/internal/metrics"
	"trainforge/internal/policy"
)

const defaultLogEvery = 50

// Runner executes one bounded training session. Build it with New,
// drive it with Run; a Runner is single-use.
type Runner struct {
	cfg           Config
	dev           device.Device
	totalSteps    int
	stepsPerEpoch int
}

// New validates cfg and resolves the device. All validation failures
// are ConfigError; an unknown or unavailable device additionally
// unwraps to device.ErrUnsupportedDevice.
func New(cfg Config) (*Runner, error) {
	if cfg.Model == nil {
		return nil, configErrf("model is required")
	}
	if cfg.Optimizer == nil {
		return nil, configErrf("optimizer is required")
	}
	if cfg.Schedule == nil {
		return nil, configErrf("schedule is required")
	}
	if cfg.Loader == nil {
		return nil, configErrf("loader is required")
	}
	if err := cfg.Budget.Validate(); err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	if cfg.CompletedSteps < 0 {
		return nil, configErrf("completed steps must be >= 0 (got %d)", cfg.CompletedSteps)
	}
	if err := cfg.Policies.Validate(); err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	dev, err := device.Resolve(cfg.Device)
	if err != nil {
		return nil, &ConfigError{Reason: "device", Err: err}
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = defaultLogEvery
	}

	spe := cfg.Loader.BatchesPerEpoch()
	var total int
	switch cfg.Budget.Unit {
	case Epochs:
		if cfg.CompletedSteps%spe != 0 {
			return nil, configErrf(
				"an epoch budget needs an epoch-aligned resume point (completed %d steps, %d steps per epoch)",
				cfg.CompletedSteps, spe)
		}
		total = cfg.Budget.Value * spe
	case Steps:
		total = cfg.Budget.Value
	}

	return &Runner{cfg: cfg, dev: dev, totalSteps: total, stepsPerEpoch: spe}, nil
}

// Run drives the session to its budget or first failure. On failure
// the returned Result still carries the elapsed time and counters
// accumulated up to the failing step.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	st := &run{
		Runner:     r,
		batchPols:  r.cfg.Policies.BatchPolicies(),
		globalStep: r.cfg.CompletedSteps,
		res: Result{
			SessionID:      uuid.NewString(),
			CompletedSteps: r.cfg.CompletedSteps,
			EvalAccuracy:   math.NaN(),
		},
	}

	for _, sp := range r.cfg.Policies.StructuralPolicies() {
		if err := sp.Attach(r.cfg.Model); err != nil {
			return st.res, &PolicyError{Policy: sp.Name(), Err: err}
		}
	}

	logging.Info("session started", logging.Session,
		"id", st.res.SessionID,
		"budget", r.cfg.Budget.String(),
		"device", string(r.dev.Target),
		"carried_steps", r.cfg.CompletedSteps,
		"policies", r.cfg.Policies.Names(),
	)

	epoch := st.globalStep / r.stepsPerEpoch
	skip := st.globalStep % r.stepsPerEpoch
	for st.stepsDone < r.totalSteps {
		if err := st.runEpoch(ctx, epoch, skip); err != nil {
			return st.res, err
		}
		skip = 0
		if st.globalStep%r.stepsPerEpoch == 0 {
			st.res.Epochs++
			if err := st.endOfEpoch(ctx, epoch); err != nil {
				return st.res, err
			}
			epoch++
		}
	}

	logging.Info("session finished", logging.Session,
		"id", st.res.SessionID,
		"steps", st.res.Steps,
		"epochs", st.res.Epochs,
		"elapsed", st.res.Elapsed.String(),
		"final_loss", st.res.FinalLoss,
	)
	return st.res, nil
}

// run holds one invocation's mutable loop state.
type run struct {
	*Runner
	batchPols  []policy.BatchPolicy
	window     metrics.Window
	stepsDone  int
	globalStep int
	res        Result
}

// runEpoch consumes batches of the given epoch until the epoch or the
// session budget is exhausted. skip discards leading batches when a
// step-budget resume lands mid-epoch.
func (st *run) runEpoch(ctx context.Context, epoch, skip int) error {
	epochCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	batches, errCh := st.cfg.Loader.Batches(epochCtx, epoch)

	next := func() (data.Batch, bool, error) {
		select {
		case <-ctx.Done():
			return data.Batch{}, false, ctx.Err()
		case b, ok := <-batches:
			if !ok {
				if err, open := <-errCh; open && err != nil {
					return data.Batch{}, false, &CollaboratorError{Stage: "data provider", Err: err}
				}
				return data.Batch{}, false, nil
			}
			return b, true, nil
		}
	}

	for skipped := 0; skipped < skip; skipped++ {
		if _, ok, err := next(); err != nil {
			return err
		} else if !ok {
			return &CollaboratorError{Stage: "data provider",
				Err: fmt.Errorf("epoch %d ended before resume offset %d", epoch, skip)}
		}
	}

	for st.stepsDone < st.totalSteps {
		startData := time.Now()
		b, ok, err := next()
		if err != nil {
			st.res.Elapsed += time.Since(startData)
			return err
		}
		if !ok {
			return nil
		}
		dataTime := time.Since(startData)

		startCompute := time.Now()
		if err := st.step(epoch, &b); err != nil {
			st.res.Elapsed += dataTime + time.Since(startCompute)
			return err
		}
		computeTime := time.Since(startCompute)

		st.res.Elapsed += dataTime + computeTime
		st.window.Record(b.Size(), dataTime, computeTime, st.res.FinalLoss)
		if st.stepsDone%st.cfg.LogEvery == 0 {
			snap := st.window.Snapshot()
			logging.Info("progress", logging.Session,
				"step", st.stepsDone,
				"of", st.totalSteps,
				"samples_per_sec", fmt.Sprintf("%.1f", snap.SamplesPerSec),
				"data_ms", fmt.Sprintf("%.2f", snap.AvgDataMS),
				"compute_ms", fmt.Sprintf("%.2f", snap.AvgComputeMS),
				"loss", fmt.Sprintf("%.4f", snap.LastLoss),
			)
		}
	}
	return nil
}

// step applies the policy chain and one optimizer update to a batch.
func (st *run) step(epoch int, b *data.Batch) error {
	progress := float64(st.stepsDone) / float64(st.totalSteps)
	sctx := policy.StepContext{
		Epoch:    epoch,
		Progress: progress,
		RNG:      stepRNG(st.cfg.Seed, st.globalStep),
	}
	for _, bp := range st.batchPols {
		if err := bp.Apply(sctx, b); err != nil {
			return &PolicyError{Policy: bp.Name(), Err: err}
		}
	}

	loss, grads, err := st.cfg.Model.LossAndGrad(b)
	if err != nil {
		return &CollaboratorError{Stage: "model", Err: err}
	}
	if err := st.cfg.Optimizer.Step(st.cfg.Model.Parameters(), grads, st.cfg.Schedule(progress)); err != nil {
		return &CollaboratorError{Stage: "optimizer", Err: err}
	}

	st.res.FinalLoss = loss
	st.stepsDone++
	st.globalStep++
	st.res.Steps = st.stepsDone
	st.res.CompletedSteps = st.globalStep
	return nil
}

// endOfEpoch runs the evaluation pass when an eval loader is
// configured. Training-only policies are skipped; structural policies
// stay attached.
func (st *run) endOfEpoch(ctx context.Context, epoch int) error {
	if st.cfg.EvalLoader == nil {
		return nil
	}
	progress := float64(st.stepsDone) / float64(st.totalSteps)
	acc, err := st.evaluate(ctx, epoch, progress)
	if err != nil {
		return err
	}
	st.res.EvalAccuracy = acc
	logging.Info("epoch complete", logging.Session,
		"epoch", epoch,
		"eval_accuracy", fmt.Sprintf("%.4f", acc),
	)
	return nil
}

func (st *run) evaluate(ctx context.Context, epoch int, progress float64) (float64, error) {
	evalCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	batches, errCh := st.cfg.EvalLoader.Batches(evalCtx, 0)

	sctx := policy.StepContext{
		Epoch:    epoch,
		Progress: progress,
		RNG:      stepRNG(st.cfg.Seed, -1),
	}
	correct, total := 0, 0
	for b := range batches {
		for _, bp := range st.batchPols {
			if bp.TrainingOnly() {
				continue
			}
			if err := bp.Apply(sctx, &b); err != nil {
				return 0, &PolicyError{Policy: bp.Name(), Err: err}
			}
		}
		preds, err := st.cfg.Model.Predict(&b)
		if err != nil {
			return 0, &CollaboratorError{Stage: "model", Err: err}
		}
		for i, p := range preds {
			if p == b.Labels[i] {
				correct++
			}
		}
		total += b.Size()
	}
	if err, open := <-errCh; open && err != nil {
		return 0, &CollaboratorError{Stage: "data provider", Err: err}
	}
	return metrics.Accuracy(correct, total), nil
}

// stepRNG derives a deterministic per-step randomness stream. Keying
// by the chain-global step index keeps policy randomness identical
// between one long session and the same steps split across resumes.
func stepRNG(seed int64, globalStep int) *rand.Rand {
	return rand.New(rand.NewSource(seed ^ (int64(globalStep+2) * 0x5deece66d)))
}
