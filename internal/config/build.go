package config

import (
	"fmt"

	"trainforge/internal/data"
	"trainforge/internal/model"
	"trainforge/internal/optim"
	"trainforge/internal/policy"
	"trainforge/internal/session"
)

// Duration converts the budget section.
func (c *Config) Duration() session.Duration {
	return session.Duration{Value: c.Budget.Value, Unit: session.Unit(c.Budget.Unit)}
}

// BuildModel constructs the reference classifier from the model and
// dataset sections.
func (c *Config) BuildModel() (*model.LinearClassifier, error) {
	return model.NewLinearClassifier(model.LinearConfig{
		Classes:     c.Dataset.Classes,
		FeatureGrid: c.Model.FeatureGrid,
		InitScale:   c.Model.InitScale,
		Seed:        c.Seed,
	})
}

// BuildOptimizer constructs the SGD optimizer.
func (c *Config) BuildOptimizer() (*optim.SGD, error) {
	return optim.NewSGD(optim.SGDConfig{
		LR:          c.Optim.LR,
		Momentum:    c.Optim.Momentum,
		WeightDecay: c.Optim.WeightDecay,
	})
}

// BuildSchedule constructs the learning-rate schedule named by the
// schedule section.
func (c *Config) BuildSchedule() (optim.Schedule, error) {
	switch c.Schedule.Name {
	case "", "constant":
		scale := c.Schedule.Scale
		if scale == 0 {
			scale = 1
		}
		return optim.Constant(scale), nil
	case "linear_warmup":
		return optim.LinearWarmup(c.Schedule.Warmup)
	case "cosine":
		return optim.Cosine(c.Schedule.Floor)
	case "step_decay":
		return optim.StepDecay(c.Schedule.Gamma, c.Schedule.Milestones...)
	default:
		return nil, fmt.Errorf("unknown schedule %q", c.Schedule.Name)
	}
}

// BuildPolicies constructs the ordered policy set through the
// registry. Declaration order is preserved.
func (c *Config) BuildPolicies() (policy.Set, error) {
	set := make(policy.Set, 0, len(c.Policies))
	for _, pc := range c.Policies {
		p, err := policy.Build(pc.Name, policy.Params(pc.Params))
		if err != nil {
			return nil, err
		}
		set = append(set, p)
	}
	return set, nil
}

// BuildLoaders constructs the training loader and, when eval_size is
// nonzero, the evaluation loader. The eval dataset uses a shifted seed
// so it never overlaps the training distribution draws.
func (c *Config) BuildLoaders() (train, eval *data.Loader, err error) {
	trainSet, err := data.NewSynthetic(data.SyntheticOptions{
		Size:    c.Dataset.Size,
		Height:  c.Dataset.Height,
		Width:   c.Dataset.Width,
		Classes: c.Dataset.Classes,
		Seed:    c.Seed,
	})
	if err != nil {
		return nil, nil, err
	}
	train, err = data.NewLoader(trainSet, data.LoaderOptions{
		BatchSize:  c.Loader.BatchSize,
		NumWorkers: c.Loader.NumWorkers,
		Seed:       c.Seed,
		DropLast:   c.Loader.DropLast,
	})
	if err != nil {
		return nil, nil, err
	}
	if c.Dataset.EvalSize == 0 {
		return train, nil, nil
	}

	evalSet, err := data.NewSynthetic(data.SyntheticOptions{
		Size:    c.Dataset.EvalSize,
		Height:  c.Dataset.Height,
		Width:   c.Dataset.Width,
		Classes: c.Dataset.Classes,
		Seed:    c.Seed + 1,
	})
	if err != nil {
		return nil, nil, err
	}
	eval, err = data.NewLoader(evalSet, data.LoaderOptions{
		BatchSize:  c.Loader.BatchSize,
		NumWorkers: c.Loader.NumWorkers,
		Seed:       c.Seed + 1,
	})
	if err != nil {
		return nil, nil, err
	}
	return train, eval, nil
}
