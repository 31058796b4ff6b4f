package learn

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"xcs/internal/classifier"
	"xcs/internal/config"
	"xcs/internal/env"
	"xcs/internal/model"
	"xcs/internal/population"
	"xcs/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPopulation(t *testing.T, cfg config.Config, space model.ProblemSpace, seed int64) (*population.ClassifierSet, *classifier.Factory) {
	t.Helper()
	factory, err := classifier.NewFactory(cfg.ClassifierParams(space))
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	pop, err := population.New(cfg.PopulationParams(), space, factory, rand.New(rand.NewSource(seed)),
		population.WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("new classifier set: %v", err)
	}
	return pop, factory
}

func multiplexerTrainer(t *testing.T, addressBits int, n int, checkpoints []int, opts ...Option) (*Trainer, *population.ClassifierSet) {
	t.Helper()
	ds, err := env.GenerateMultiplexer(nil, addressBits, 0)
	if err != nil {
		t.Fatalf("generate multiplexer: %v", err)
	}
	environment, err := env.New(ds, nil)
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	rng := rand.New(rand.NewSource(11))
	environment.Shuffle(rng)

	cfg := config.Default()
	cfg.XCS.N = n
	pop, _ := newPopulation(t, cfg, ds.Space, 12)
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	trainer, err := NewTrainer(Config{
		Checkpoints: checkpoints,
		Exploration: cfg.XCS.Exploration,
	}, pop, environment, rng, opts...)
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	return trainer, pop
}

func TestNewTrainerValidation(t *testing.T) {
	ds, err := env.GenerateMultiplexer(nil, 1, 0)
	if err != nil {
		t.Fatalf("generate multiplexer: %v", err)
	}
	environment, err := env.New(ds, nil)
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	pop, _ := newPopulation(t, config.Default(), ds.Space, 1)
	rng := rand.New(rand.NewSource(1))

	cases := map[string]Config{
		"no checkpoints":       {},
		"decreasing":           {Checkpoints: []int{10, 5}},
		"exploration too high": {Checkpoints: []int{10}, Exploration: 1.5},
	}
	for name, cfg := range cases {
		if _, err := NewTrainer(cfg, pop, environment, rng); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := NewTrainer(Config{Checkpoints: []int{1}}, nil, environment, rng); err == nil {
		t.Fatal("expected error for missing population")
	}

	trainer, err := NewTrainer(Config{Checkpoints: []int{1}}, pop, environment, rng)
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	if trainer.RunID() == "" {
		t.Fatal("expected generated run id")
	}
	if trainer.cfg.TrackingFrequency != 8 {
		t.Fatalf("expected tracking frequency to default to dataset size, got %d", trainer.cfg.TrackingFrequency)
	}
}

func TestTrainerLearnsThreeMultiplexer(t *testing.T) {
	trainer, pop := multiplexerTrainer(t, 1, 200, []int{500, 4000})
	result, err := trainer.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Iterations != 4000 {
		t.Fatalf("expected 4000 iterations, got %d", result.Iterations)
	}
	if len(result.Checkpoints) != 2 {
		t.Fatalf("expected two checkpoint reports, got %d", len(result.Checkpoints))
	}
	if len(result.Track) != 4000/8 {
		t.Fatalf("expected one track point per pass, got %d", len(result.Track))
	}
	final := result.Checkpoints[1].Train
	if final.Coverage != 1 {
		t.Fatalf("expected full coverage, got %.3f", final.Coverage)
	}
	if final.Accuracy < 0.9 {
		t.Fatalf("expected the 3-multiplexer to be learned, accuracy %.3f", final.Accuracy)
	}
	if pop.MicroSize() > 200 {
		t.Fatalf("population exceeds capacity: %d", pop.MicroSize())
	}
	if pop.MicroSize() != pop.NumerositySum() {
		t.Fatalf("micro size %d disagrees with numerosity sum %d", pop.MicroSize(), pop.NumerositySum())
	}
}

func TestTrainerPersistsToStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init store: %v", err)
	}
	var hooked []int
	trainer, pop := multiplexerTrainer(t, 1, 100, []int{40, 80},
		WithStore(store),
		WithCheckpointHook(func(r CheckpointReport) { hooked = append(hooked, r.Iteration) }))

	if _, err := trainer.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(hooked) != 2 || hooked[0] != 40 || hooked[1] != 80 {
		t.Fatalf("unexpected checkpoint hook calls: %v", hooked)
	}

	snap, ok, err := store.GetPopulation(ctx, trainer.RunID())
	if err != nil || !ok {
		t.Fatalf("get population: ok=%t err=%v", ok, err)
	}
	if snap.Iteration != 80 {
		t.Fatalf("expected latest snapshot at iteration 80, got %d", snap.Iteration)
	}
	if snap.MicroSize != pop.MicroSize() || len(snap.Rows) != pop.Size() {
		t.Fatalf("snapshot does not describe the population: %+v", snap.MicroSize)
	}
	if snap.SchemaVersion != storage.Versioned().SchemaVersion {
		t.Fatalf("snapshot is not versioned: %+v", snap.VersionedRecord)
	}

	track, ok, err := store.GetLearnTrack(ctx, trainer.RunID())
	if err != nil || !ok {
		t.Fatalf("get learn track: ok=%t err=%v", ok, err)
	}
	if len(track.Points) != 80/8 {
		t.Fatalf("expected %d track points, got %d", 80/8, len(track.Points))
	}
	if track.Points[0].Iteration != 8 {
		t.Fatalf("expected first track point at iteration 8, got %d", track.Points[0].Iteration)
	}
}

func TestTrainerStopsOnCancel(t *testing.T) {
	trainer, _ := multiplexerTrainer(t, 1, 50, []int{1000})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := trainer.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTrainerResumesFromStartIteration(t *testing.T) {
	trainer, _ := multiplexerTrainer(t, 1, 50, []int{20})
	trainer.cfg.StartIteration = 16
	result, err := trainer.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Iterations != 20 {
		t.Fatalf("expected to stop at 20, got %d", result.Iterations)
	}
	if len(result.Checkpoints) != 1 || len(result.Track) != 0 {
		t.Fatalf("expected one checkpoint and no track point, got %d and %d", len(result.Checkpoints), len(result.Track))
	}
}
