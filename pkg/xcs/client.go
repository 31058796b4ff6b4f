package xcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"xcs/internal/classifier"
	"xcs/internal/config"
	"xcs/internal/env"
	"xcs/internal/learn"
	"xcs/internal/model"
	"xcs/internal/population"
	"xcs/internal/stats"
	"xcs/internal/storage"
)

const (
	defaultRunsDir = "runs"
	defaultDBPath  = "xcs.db"
)

var ErrRunNotFound = errors.New("run not found")

type Options struct {
	StoreKind string
	DBPath    string
	// RunsDir receives one artifact directory per run.
	RunsDir string
	Logger  *slog.Logger
}

type Client struct {
	store   storage.Store
	runsDir string
	logger  *slog.Logger
	ready   bool
}

type RunRequest struct {
	Config config.Config
	// RunID defaults to a random UUID.
	RunID string
	// Train and Test override the dataset files named in Config.
	Train *env.Dataset
	Test  *env.Dataset
	// ContinueRunID resumes from the stored population of an earlier run.
	ContinueRunID string
	OnCheckpoint  func(learn.CheckpointReport)
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Seed         int64
	Iterations   int
	MacroSize    int
	MicroSize    int
	Train        stats.EvaluationSummary
	Test         *stats.EvaluationSummary
	Track        []model.PopTrack
	Elapsed      time.Duration
	StartedAt    time.Time
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = "memory"
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, runsDir: runsDir, logger: logger}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	if c.ready {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.ready = true
	return nil
}

// Run trains a population on the request's data, persists the population and
// learn track to the store, and writes the run artifacts to disk.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	checkpoints, err := cfg.LearningCheckpoints()
	if err != nil {
		return RunSummary{}, err
	}

	train, test, err := loadData(cfg, req)
	if err != nil {
		return RunSummary{}, err
	}

	seed := time.Now().UnixNano()
	if cfg.Run.Seed != nil {
		seed = *cfg.Run.Seed
	}
	runID := req.RunID
	if runID == "" {
		runID = cfg.Run.OutName + "-" + uuid.NewString()[:8]
	}
	logger := c.logger.With("run_id", runID)

	factory, err := classifier.NewFactory(cfg.ClassifierParams(train.Space))
	if err != nil {
		return RunSummary{}, err
	}
	pop, err := population.New(cfg.PopulationParams(), train.Space, factory, rand.New(rand.NewSource(seed+1)),
		population.WithLogger(logger))
	if err != nil {
		return RunSummary{}, err
	}

	start, err := c.seedPopulation(ctx, pop, cfg, req.ContinueRunID)
	if err != nil {
		return RunSummary{}, err
	}
	if start >= checkpoints[len(checkpoints)-1] {
		return RunSummary{}, fmt.Errorf("continued run is already at iteration %d, beyond the last checkpoint", start)
	}

	environment, err := env.New(*train, test)
	if err != nil {
		return RunSummary{}, err
	}
	trainer, err := learn.NewTrainer(learn.Config{
		RunID:                  runID,
		Checkpoints:            checkpoints,
		TrackingFrequency:      cfg.Run.TrackingFrequency,
		StartIteration:         start,
		Exploration:            cfg.XCS.Exploration,
		DoActionSetSubsumption: cfg.GA.DoActionSetSubsumption,
	}, pop, environment, rand.New(rand.NewSource(seed)),
		learn.WithLogger(logger),
		learn.WithStore(c.store),
		learn.WithCheckpointHook(req.OnCheckpoint),
	)
	if err != nil {
		return RunSummary{}, err
	}

	startedAt := time.Now()
	result, err := trainer.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	elapsed := time.Since(startedAt)

	summary := RunSummary{
		RunID:      runID,
		Seed:       seed,
		Iterations: result.Iterations,
		MacroSize:  pop.Size(),
		MicroSize:  pop.MicroSize(),
		Track:      result.Track,
		Elapsed:    elapsed,
		StartedAt:  startedAt,
	}
	checkpointSummaries := make([]stats.CheckpointSummary, 0, len(result.Checkpoints))
	for _, report := range result.Checkpoints {
		checkpointSummaries = append(checkpointSummaries, checkpointSummary(report))
	}
	if n := len(checkpointSummaries); n > 0 {
		summary.Train = checkpointSummaries[n-1].Train
		summary.Test = checkpointSummaries[n-1].Test
	}

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config:      runConfig(runID, seed, cfg),
		Track:       result.Track,
		Checkpoints: checkpointSummaries,
	}, pop)
	if err != nil {
		return RunSummary{}, fmt.Errorf("write run artifacts: %w", err)
	}
	summary.ArtifactsDir = runDir

	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:         runID,
		TrainFile:     cfg.Run.TrainFile,
		Iterations:    result.Iterations,
		N:             cfg.XCS.N,
		Seed:          seed,
		MacroSize:     summary.MacroSize,
		MicroSize:     summary.MicroSize,
		TrainAccuracy: summary.Train.Accuracy,
		CreatedAtUTC:  startedAt.UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, fmt.Errorf("update run index: %w", err)
	}
	return summary, nil
}

// seedPopulation fills pop from a stored run or a rule population file and
// returns the iteration learning resumes at.
func (c *Client) seedPopulation(ctx context.Context, pop *population.ClassifierSet, cfg config.Config, continueRunID string) (int, error) {
	switch {
	case continueRunID != "":
		snapshot, err := c.Population(ctx, continueRunID)
		if err != nil {
			return 0, err
		}
		if err := pop.RestoreSnapshot(snapshot); err != nil {
			return 0, err
		}
		return snapshot.Iteration, nil
	case cfg.Run.RebootPath != "":
		path := cfg.Run.RebootPath
		if !strings.HasSuffix(path, population.RulePopSuffix) {
			path += population.RulePopSuffix
		}
		return 0, pop.RebootFile(path)
	default:
		return 0, nil
	}
}

// Runs lists the indexed runs, newest first.
func (c *Client) Runs() ([]stats.RunIndexEntry, error) {
	return stats.ListRunIndex(c.runsDir)
}

// Population returns the latest stored population snapshot of a run. Runs
// made against a store that did not outlive them are read back from their
// rule population file.
func (c *Client) Population(ctx context.Context, runID string) (model.PopulationSnapshot, error) {
	if err := c.Init(ctx); err != nil {
		return model.PopulationSnapshot{}, err
	}
	snapshot, ok, err := c.store.GetPopulation(ctx, runID)
	if err != nil {
		return model.PopulationSnapshot{}, err
	}
	if ok {
		return snapshot, nil
	}

	header, rows, ok, err := stats.ReadRulePopulation(c.runsDir, runID)
	if err != nil {
		return model.PopulationSnapshot{}, err
	}
	if !ok {
		return model.PopulationSnapshot{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	snapshot = model.PopulationSnapshot{
		VersionedRecord: storage.Versioned(),
		RunID:           runID,
		Header:          header,
		Rows:            rows,
	}
	if checkpoints, ok, err := stats.ReadCheckpoints(c.runsDir, runID); err == nil && ok && len(checkpoints) > 0 {
		last := checkpoints[len(checkpoints)-1]
		snapshot.Iteration = last.Iteration
		snapshot.MicroSize = last.MicroSize
	}
	return snapshot, nil
}

// LearnTrack returns the tracking points of a run, from the store when it
// has them and from the run directory otherwise.
func (c *Client) LearnTrack(ctx context.Context, runID string) ([]model.PopTrack, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	track, ok, err := c.store.GetLearnTrack(ctx, runID)
	if err != nil {
		return nil, err
	}
	if ok {
		return track.Points, nil
	}
	points, ok, err := stats.ReadLearnTrackFile(c.runsDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return points, nil
}

// StoredRuns lists the run IDs with a population in the store.
func (c *Client) StoredRuns(ctx context.Context) ([]string, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListRuns(ctx)
}

func (c *Client) Export(runID, outDir string) (string, error) {
	return stats.ExportRunArtifacts(c.runsDir, runID, outDir)
}

func loadData(cfg config.Config, req RunRequest) (*env.Dataset, *env.Dataset, error) {
	opts := env.LoadOptions{
		InstanceIDLabel:        cfg.Data.InstanceIDLabel,
		PhenotypeLabel:         cfg.Data.PhenotypeLabel,
		MissingLabel:           cfg.Data.MissingLabel,
		DiscreteAttributeLimit: cfg.Data.DiscreteAttributeLimit,
	}
	train := req.Train
	if train == nil {
		if cfg.Run.TrainFile == "" {
			return nil, nil, fmt.Errorf("a training dataset or train_file is required")
		}
		ds, err := env.LoadFile(cfg.Run.TrainFile, opts)
		if err != nil {
			return nil, nil, err
		}
		train = &ds
	}
	test := req.Test
	if test == nil && cfg.Run.TestFile != "" {
		ds, err := env.LoadFile(cfg.Run.TestFile, opts)
		if err != nil {
			return nil, nil, err
		}
		test = &ds
	}
	return train, test, nil
}

func checkpointSummary(report learn.CheckpointReport) stats.CheckpointSummary {
	s := stats.CheckpointSummary{
		Iteration:         report.Iteration,
		MacroSize:         report.Track.MacroSize,
		MicroSize:         report.Track.MicroSize,
		MeanGenerality:    report.Evaluation.MeanGenerality,
		Train:             evaluationSummary(report.Train),
		AttributeSpec:     report.Evaluation.AttributeSpec,
		AttributeAccuracy: report.Evaluation.AttributeAccuracy,
	}
	if report.Test != nil {
		test := evaluationSummary(*report.Test)
		s.Test = &test
	}
	return s
}

func evaluationSummary(e learn.Evaluation) stats.EvaluationSummary {
	return stats.EvaluationSummary{Instances: e.Instances, Accuracy: e.Accuracy, Coverage: e.Coverage}
}

func runConfig(runID string, seed int64, cfg config.Config) stats.RunConfig {
	return stats.RunConfig{
		RunID:              runID,
		OutName:            cfg.Run.OutName,
		TrainFile:          cfg.Run.TrainFile,
		TestFile:           cfg.Run.TestFile,
		RebootPath:         cfg.Run.RebootPath,
		LearningIterations: cfg.Run.LearningIterations,
		TrackingFrequency:  cfg.Run.TrackingFrequency,
		Seed:               seed,
		Workers:            cfg.Run.Workers,
		N:                  cfg.XCS.N,
		Exploration:        cfg.XCS.Exploration,
		Selection:          cfg.GA.Selection,
		Crossover:          cfg.GA.Crossover,
		DoSubsumption:      cfg.GA.DoSubsumption,
		DoASSubsumption:    cfg.GA.DoActionSetSubsumption,
	}
}
