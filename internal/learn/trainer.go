package learn

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"github.com/google/uuid"

	"xcs/internal/env"
	"xcs/internal/model"
	"xcs/internal/population"
	"xcs/internal/storage"
)

// Reward is paid for a correct action; a wrong one earns nothing.
const Reward = 1000.0

type Config struct {
	// RunID names the run in the store; a random UUID is used when empty.
	RunID string
	// Checkpoints are the iterations at which a full evaluation runs. The
	// last one is the iteration budget.
	Checkpoints []int
	// TrackingFrequency of 0 tracks once per pass over the training data.
	TrackingFrequency int
	// StartIteration resumes the iteration counter after a reboot.
	StartIteration int
	// Exploration is the probability that a step picks a random advocated
	// action instead of the best one.
	Exploration            float64
	DoActionSetSubsumption bool
}

// CheckpointReport is the full evaluation taken at a checkpoint.
type CheckpointReport struct {
	Iteration  int
	Track      model.PopTrack
	Train      Evaluation
	Test       *Evaluation
	Evaluation population.Evaluation
}

type Result struct {
	RunID       string
	Iterations  int
	Track       []model.PopTrack
	Checkpoints []CheckpointReport
	Snapshot    model.PopulationSnapshot
}

type Option func(*Trainer)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Trainer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithStore persists a population snapshot at every checkpoint and the learn
// track at the end of the run.
func WithStore(store storage.Store) Option {
	return func(t *Trainer) {
		t.store = store
	}
}

// WithCheckpointHook is called after every checkpoint evaluation.
func WithCheckpointHook(hook func(CheckpointReport)) Option {
	return func(t *Trainer) {
		t.onCheckpoint = hook
	}
}

// Trainer drives the explore loop over an environment.
type Trainer struct {
	cfg          Config
	pop          *population.ClassifierSet
	env          *env.Environment
	rng          *rand.Rand
	logger       *slog.Logger
	store        storage.Store
	onCheckpoint func(CheckpointReport)

	window *accuracyWindow
	track  []model.PopTrack
}

func NewTrainer(cfg Config, pop *population.ClassifierSet, environment *env.Environment, rng *rand.Rand, opts ...Option) (*Trainer, error) {
	if pop == nil {
		return nil, fmt.Errorf("classifier set is required")
	}
	if environment == nil {
		return nil, fmt.Errorf("environment is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(cfg.Checkpoints) == 0 {
		return nil, fmt.Errorf("at least one learning checkpoint is required")
	}
	if !slices.IsSorted(cfg.Checkpoints) {
		return nil, fmt.Errorf("learning checkpoints must be increasing: %v", cfg.Checkpoints)
	}
	if cfg.Exploration < 0 || cfg.Exploration > 1 {
		return nil, fmt.Errorf("exploration must be in [0, 1], got %g", cfg.Exploration)
	}
	if cfg.TrackingFrequency <= 0 {
		cfg.TrackingFrequency = environment.NumTrainInstances()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	t := &Trainer{
		cfg:    cfg,
		pop:    pop,
		env:    environment,
		rng:    rng,
		logger: slog.Default(),
		window: newAccuracyWindow(cfg.TrackingFrequency),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Trainer) RunID() string { return t.cfg.RunID }

func (t *Trainer) MaxIterations() int {
	return t.cfg.Checkpoints[len(t.cfg.Checkpoints)-1]
}

// Run learns until the last checkpoint or until ctx is cancelled.
func (t *Trainer) Run(ctx context.Context) (Result, error) {
	maxIter := t.MaxIterations()
	result := Result{RunID: t.cfg.RunID}
	t.logger.Info("learning started",
		"run_id", t.cfg.RunID,
		"start_iteration", t.cfg.StartIteration,
		"max_iterations", maxIter,
		"tracking_frequency", t.cfg.TrackingFrequency,
	)

	iteration := t.cfg.StartIteration
	for iteration < maxIter {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		t.Step(iteration)
		iteration++

		if iteration%t.cfg.TrackingFrequency == 0 {
			t.recordTrack(iteration)
		}
		if slices.Contains(t.cfg.Checkpoints, iteration) {
			report, err := t.checkpoint(ctx, iteration)
			if err != nil {
				return result, err
			}
			result.Checkpoints = append(result.Checkpoints, report)
		}
	}

	result.Iterations = iteration
	result.Track = append([]model.PopTrack(nil), t.track...)
	result.Snapshot = t.snapshot(iteration)
	if t.store != nil {
		track := model.LearnTrack{
			VersionedRecord: storage.Versioned(),
			RunID:           t.cfg.RunID,
			Points:          result.Track,
		}
		if err := t.store.SaveLearnTrack(ctx, track); err != nil {
			return result, fmt.Errorf("save learn track: %w", err)
		}
	}
	t.logger.Info("learning finished",
		"run_id", t.cfg.RunID,
		"iterations", iteration,
		"macro_size", t.pop.Size(),
		"micro_size", t.pop.MicroSize(),
	)
	return result, nil
}

// Step runs one explore iteration on the current training instance and
// advances the environment.
func (t *Trainer) Step(iteration int) {
	inst := t.env.Current()
	t.pop.MakeMatchSet(inst.State, iteration)

	pa := buildPredictionArray(t.pop)
	var action model.Action
	rewarded := false
	switch {
	case pa.empty():
		// Covering left the match set empty; the step is not tracked.
		action = randomAction(t.rng, t.pop.Space().Actions)
		rewarded = action.Label != "" && action.Label == inst.Action.Label
	case t.rng.Float64() < t.cfg.Exploration:
		chosen := pa.random(t.rng)
		action = actionFor(chosen)
		rewarded = correct(chosen, inst.Action)
	default:
		chosen := pa.best(t.rng)
		action = actionFor(chosen)
		rewarded = correct(chosen, inst.Action)
		t.window.add(rewarded)
		trackedAccuracy.Set(t.window.accuracy())
	}

	t.pop.MakeActionSet(action)
	reward := 0.0
	if rewarded {
		reward = Reward
	}
	t.pop.UpdateSets(reward)
	if t.cfg.DoActionSetSubsumption {
		t.pop.DoActionSetSubsumption()
	}
	t.pop.RunGA(iteration, inst.State)
	t.pop.ClearSets()
	t.env.Next()
	iterationsTotal.Inc()
}

func (t *Trainer) recordTrack(iteration int) {
	t.pop.RunPopAveEval()
	point := t.pop.PopTrack(t.window.accuracy(), iteration, t.cfg.TrackingFrequency)
	t.track = append(t.track, point)
	t.logger.Info(point.String())
}

func (t *Trainer) checkpoint(ctx context.Context, iteration int) (CheckpointReport, error) {
	t.pop.RunPopAveEval()
	t.pop.RunAttGeneralitySum(true)
	report := CheckpointReport{
		Iteration:  iteration,
		Track:      t.pop.PopTrack(t.window.accuracy(), iteration, t.cfg.TrackingFrequency),
		Train:      Evaluate(t.pop, t.env.Train(), t.rng),
		Evaluation: t.pop.Evaluation(),
	}
	if test := t.env.Test(); test != nil {
		eval := Evaluate(t.pop, test, t.rng)
		report.Test = &eval
	}
	t.logger.Info("checkpoint evaluation",
		"iteration", iteration,
		"train_accuracy", report.Train.Accuracy,
		"train_coverage", report.Train.Coverage,
		"macro_size", t.pop.Size(),
		"micro_size", t.pop.MicroSize(),
	)

	if t.store != nil {
		if err := t.store.SavePopulation(ctx, t.snapshot(iteration)); err != nil {
			return report, fmt.Errorf("save population at iteration %d: %w", iteration, err)
		}
	}
	if t.onCheckpoint != nil {
		t.onCheckpoint(report)
	}
	return report, nil
}

func (t *Trainer) snapshot(iteration int) model.PopulationSnapshot {
	snap := t.pop.Snapshot(t.cfg.RunID, iteration)
	snap.VersionedRecord = storage.Versioned()
	return snap
}
