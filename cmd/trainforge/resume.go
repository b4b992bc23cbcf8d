package main

import (
	"github.com/spf13/cobra"

	"trainforge/internal/config"
	"trainforge/internal/logging"
	"trainforge/internal/session"
)

func newResumeCmd() *cobra.Command {
	var (
		configPath string
		ckptPath   string
		savePath   string
		o          config.Overrides
	)
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue a checkpointed session under a new budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg.ApplyOverrides(o)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ck, err := session.LoadCheckpoint(ckptPath)
			if err != nil {
				return err
			}
			// Data order continuity depends on the original seed.
			if cfg.Seed != ck.Seed {
				logging.Warn("config seed differs from checkpoint, using checkpoint seed",
					logging.Session, "config_seed", cfg.Seed, "checkpoint_seed", ck.Seed)
				cfg.Seed = ck.Seed
			}

			sc, err := buildSession(cfg)
			if err != nil {
				return err
			}
			if err := ck.Restore(sc.Model, sc.Optimizer); err != nil {
				return err
			}
			sc.CompletedSteps = ck.CompletedSteps

			logging.Info("resuming session", logging.Session,
				"from", ck.SessionID, "completed_steps", ck.CompletedSteps, "budget", sc.Budget.String())
			return runSession(cmd, sc, savePath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/demo.yaml", "Path to the session config")
	cmd.Flags().StringVar(&ckptPath, "checkpoint", "checkpoint.json", "Checkpoint to resume from")
	cmd.Flags().StringVar(&savePath, "save", "", "Write a checkpoint to this path on success")
	addOverrideFlags(cmd, &o)
	return cmd
}
