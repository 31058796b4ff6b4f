//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"xcs/internal/model"
)

func TestSQLiteStorePopulationAndTrackRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "xcs.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	snapshot := model.PopulationSnapshot{
		VersionedRecord: Versioned(),
		RunID:           "run-1",
		Iteration:       500,
		Header:          []string{"A_0", "A_1", "Phenotype"},
		Rows:            [][]string{{"1", "#", "0"}, {"#", "0", "1"}},
		MicroSize:       7,
	}
	if err := store.SavePopulation(ctx, snapshot); err != nil {
		t.Fatalf("save population: %v", err)
	}
	snapshot.Iteration = 600
	if err := store.SavePopulation(ctx, snapshot); err != nil {
		t.Fatalf("overwrite population: %v", err)
	}

	loaded, ok, err := store.GetPopulation(ctx, "run-1")
	if err != nil {
		t.Fatalf("get population: %v", err)
	}
	if !ok || !reflect.DeepEqual(loaded, snapshot) {
		t.Fatalf("unexpected population loaded: %+v", loaded)
	}

	track := model.LearnTrack{
		VersionedRecord: Versioned(),
		RunID:           "run-1",
		Points:          []model.PopTrack{{Iteration: 500, Epoch: 1, MacroSize: 2, MicroSize: 7, Accuracy: 0.9}},
	}
	if err := store.SaveLearnTrack(ctx, track); err != nil {
		t.Fatalf("save learn track: %v", err)
	}
	loadedTrack, ok, err := store.GetLearnTrack(ctx, "run-1")
	if err != nil {
		t.Fatalf("get learn track: %v", err)
	}
	if !ok || !reflect.DeepEqual(loadedTrack, track) {
		t.Fatalf("unexpected learn track loaded: %+v", loadedTrack)
	}

	ids, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"run-1"}) {
		t.Fatalf("unexpected run ids: %v", ids)
	}
}

func TestSQLiteStoreMissingRecords(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "xcs.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.GetPopulation(ctx, "absent"); err != nil || ok {
		t.Fatalf("expected no population, ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.GetLearnTrack(ctx, "absent"); err != nil || ok {
		t.Fatalf("expected no learn track, ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "xcs.db"))
	if _, _, err := store.GetPopulation(context.Background(), "x"); err == nil {
		t.Fatal("expected error before init")
	}
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore("sqlite", filepath.Join(t.TempDir(), "xcs.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close: %v", err)
	}
}
