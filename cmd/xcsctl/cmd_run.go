package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xcs/internal/config"
	"xcs/internal/learn"
	"xcs/internal/stats"
	"xcs/pkg/xcs"
)

type runFlags struct {
	configPath  string
	train       string
	test        string
	iterations  string
	seed        int64
	n           int
	workers     int
	outName     string
	reboot      string
	continueRun string
	runID       string
}

func (c *cli) newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Train a population on a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, &cfg, f)
			if err := cfg.Validate(); err != nil {
				return err
			}

			// The store named in the config file applies unless a flag overrides it.
			kind, dbPath := cfg.Run.Store, cfg.Run.DBPath
			if cmd.Flags().Changed("store") {
				kind = c.flags.store
			}
			if cmd.Flags().Changed("db-path") {
				dbPath = c.flags.dbPath
			}
			client, err := c.clientWithStore(kind, dbPath)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Run(cmd.Context(), xcs.RunRequest{
				Config:        cfg,
				RunID:         f.runID,
				ContinueRunID: f.continueRun,
				OnCheckpoint: func(r learn.CheckpointReport) {
					fmt.Fprintf(c.stdout, "checkpoint %d: train accuracy %.4f coverage %.4f\n",
						r.Iteration, r.Train.Accuracy, r.Train.Coverage)
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprint(c.stdout, stats.FormatSummary(stats.RunSummary{
				RunID:      summary.RunID,
				Iterations: summary.Iterations,
				MacroSize:  summary.MacroSize,
				MicroSize:  summary.MicroSize,
				Capacity:   cfg.XCS.N,
				Train:      summary.Train,
				Test:       summary.Test,
				Elapsed:    summary.Elapsed,
				RunDir:     summary.ArtifactsDir,
			}))
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "YAML or JSON configuration file")
	fl.StringVar(&f.train, "train", "", "training dataset (tab separated .txt/.tsv, otherwise comma separated)")
	fl.StringVar(&f.test, "test", "", "optional test dataset")
	fl.StringVar(&f.iterations, "iterations", "", "dot separated learning checkpoints, e.g. 1000.5000")
	fl.Int64Var(&f.seed, "seed", 0, "random seed")
	fl.IntVar(&f.n, "n", 0, "population capacity in micro-classifiers")
	fl.IntVar(&f.workers, "workers", 0, "goroutines used for matching")
	fl.StringVar(&f.outName, "out-name", "", "prefix of the run ID and rule population file")
	fl.StringVar(&f.reboot, "reboot", "", "rule population file (or prefix) to start from")
	fl.StringVar(&f.continueRun, "continue", "", "resume from the stored population of this run")
	fl.StringVar(&f.runID, "run-id", "", "explicit run ID")
	return cmd
}

// applyRunFlags overlays the flags the user actually set on cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, f runFlags) {
	changed := cmd.Flags().Changed
	if changed("train") {
		cfg.Run.TrainFile = f.train
	}
	if changed("test") {
		cfg.Run.TestFile = f.test
	}
	if changed("iterations") {
		cfg.Run.LearningIterations = f.iterations
	}
	if changed("seed") {
		seed := f.seed
		cfg.Run.Seed = &seed
	}
	if changed("n") {
		cfg.XCS.N = f.n
	}
	if changed("workers") {
		cfg.Run.Workers = f.workers
	}
	if changed("out-name") {
		cfg.Run.OutName = f.outName
	}
	if changed("reboot") {
		cfg.Run.RebootPath = f.reboot
	}
}
