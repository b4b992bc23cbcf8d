package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trainforge/internal/config"
	"trainforge/internal/logging"
	"trainforge/internal/session"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		savePath   string
		o          config.Overrides
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Train for a bounded duration per the given config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg.ApplyOverrides(o)
			if err := cfg.Validate(); err != nil {
				return err
			}
			sc, err := buildSession(cfg)
			if err != nil {
				return err
			}
			return runSession(cmd, sc, savePath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/demo.yaml", "Path to the session config")
	cmd.Flags().StringVar(&savePath, "save", "", "Write a checkpoint to this path on success")
	addOverrideFlags(cmd, &o)
	return cmd
}

func addOverrideFlags(cmd *cobra.Command, o *config.Overrides) {
	cmd.Flags().StringVar(&o.Device, "device", "", "Compute target (cpu or accelerator)")
	cmd.Flags().IntVar(&o.BudgetValue, "budget", 0, "Session duration value")
	cmd.Flags().StringVar(&o.BudgetUnit, "budget-unit", "", "Session duration unit (epochs or steps)")
	cmd.Flags().IntVar(&o.BatchSize, "batch-size", 0, "Samples per batch")
	cmd.Flags().IntVar(&o.NumWorkers, "num-workers", 0, "Loader worker goroutines")
	cmd.Flags().Int64Var(&o.Seed, "seed", 0, "Base RNG seed")
	cmd.Flags().IntVar(&o.LogEvery, "log-every", 0, "Steps between progress lines")
}

func buildSession(cfg *config.Config) (session.Config, error) {
	m, err := cfg.BuildModel()
	if err != nil {
		return session.Config{}, err
	}
	opt, err := cfg.BuildOptimizer()
	if err != nil {
		return session.Config{}, err
	}
	sched, err := cfg.BuildSchedule()
	if err != nil {
		return session.Config{}, err
	}
	pols, err := cfg.BuildPolicies()
	if err != nil {
		return session.Config{}, err
	}
	train, eval, err := cfg.BuildLoaders()
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Model:      m,
		Optimizer:  opt,
		Schedule:   sched,
		Loader:     train,
		EvalLoader: eval,
		Policies:   pols,
		Device:     cfg.Device,
		Budget:     cfg.Duration(),
		Seed:       cfg.Seed,
		LogEvery:   cfg.LogEvery,
	}, nil
}

func runSession(cmd *cobra.Command, sc session.Config, savePath string) error {
	r, err := session.New(sc)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := r.Run(ctx)
	if err != nil {
		logging.Error("session failed", logging.Session,
			"elapsed", res.Elapsed, "steps", res.Steps, "err", err)
		return err
	}

	kv := []any{
		"session", res.SessionID,
		"elapsed", res.Elapsed,
		"steps", res.Steps,
		"epochs", res.Epochs,
		"final_loss", fmt.Sprintf("%.4f", res.FinalLoss),
	}
	if !math.IsNaN(res.EvalAccuracy) {
		kv = append(kv, "eval_accuracy", fmt.Sprintf("%.4f", res.EvalAccuracy))
	}
	logging.Info("session complete", logging.Session, kv...)

	if savePath != "" {
		ck := session.Capture(sc.Model, sc.Optimizer, res, sc.Seed)
		if err := ck.Save(savePath); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
		logging.Info("checkpoint saved", logging.Session, "path", savePath)
	}
	return nil
}
