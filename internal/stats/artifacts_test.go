package stats

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"xcs/internal/model"
)

type fakeRules struct{ rows string }

func (f fakeRules) WriteRulePopulation(w io.Writer) error {
	_, err := io.WriteString(w, f.rows)
	return err
}

func sampleTrack() []model.PopTrack {
	return []model.PopTrack{
		{Iteration: 8, Epoch: 1, MacroSize: 12, MicroSize: 20, Accuracy: 0.5},
		{Iteration: 16, Epoch: 2, MacroSize: 10, MicroSize: 24, Accuracy: 0.75, MeanGenerality: 0.25, GeneralityKnown: true},
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	artifacts := RunArtifacts{
		Config: RunConfig{RunID: "run-123", OutName: "mux", LearningIterations: "8.16", N: 100, Seed: 1, Selection: "tournament"},
		Track:  sampleTrack(),
		Checkpoints: []CheckpointSummary{{
			Iteration: 16,
			MacroSize: 10,
			MicroSize: 24,
			Train:     EvaluationSummary{Instances: 8, Accuracy: 0.875, Coverage: 1},
		}},
	}
	runDir, err := WriteRunArtifacts(baseDir, artifacts, fakeRules{rows: "A_0\tPhenotype\n1\t0\n#\t1\n"})
	require.NoError(t, err)

	files := []string{configFile, learnTrackFile, checkpointsFile, "mux_RulePop.txt"}
	for _, file := range files {
		_, err := os.Stat(filepath.Join(runDir, file))
		require.NoError(t, err, file)
	}

	cfg, ok, err := ReadRunConfig(baseDir, "run-123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, artifacts.Config, cfg)

	checkpoints, ok, err := ReadCheckpoints(baseDir, "run-123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, artifacts.Checkpoints, checkpoints)

	track, ok, err := ReadLearnTrackFile(baseDir, "run-123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, artifacts.Track, track)

	header, rows, ok, err := ReadRulePopulation(baseDir, "run-123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"A_0", "Phenotype"}, header)
	require.Equal(t, [][]string{{"1", "0"}, {"#", "1"}}, rows)

	exported, err := ExportRunArtifacts(baseDir, "run-123", outDir)
	require.NoError(t, err)
	for _, file := range files {
		_, err := os.Stat(filepath.Join(exported, file))
		require.NoError(t, err, file)
	}

	_, err = WriteRunArtifacts(baseDir, RunArtifacts{}, nil)
	require.Error(t, err)
}

func TestReadMissingArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	_, ok, err := ReadRunConfig(baseDir, "absent")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = ReadLearnTrackFile(baseDir, "absent")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = ExportRunArtifacts(baseDir, "absent", t.TempDir())
	require.Error(t, err)
}

func TestLearnTrackTable(t *testing.T) {
	track := append(sampleTrack(), model.PopTrack{Iteration: 24, Epoch: 3, Accuracy: 1, PhenotypeRange: 0.5, Continuous: true})
	var buf bytes.Buffer
	require.NoError(t, WriteLearnTrack(&buf, track))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "Iteration\tEpoch\tMacroPop\tMicroPop\tAccuracy\tAveGenerality\tPhenRange", lines[0])
	require.Equal(t, "8\t1\t12\t20\t0.5\tNA\tNA", lines[1])

	back, err := ReadLearnTrack(&buf)
	require.NoError(t, err)
	require.Equal(t, track, back)

	_, err = ReadLearnTrack(strings.NewReader("Iteration\tEpoch\n"))
	require.Error(t, err)
	_, err = ReadLearnTrack(strings.NewReader(strings.Join(learnTrackHeader, "\t") + "\nx\t1\t1\t1\t1\tNA\tNA\n"))
	require.Error(t, err)
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-1", TrainAccuracy: 0.8, CreatedAtUTC: "2026-02-10T10:00:00Z"}))
	require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-2", TrainAccuracy: 0.9, CreatedAtUTC: "2026-02-11T10:00:00Z"}))
	require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-1", TrainAccuracy: 0.95, CreatedAtUTC: "2026-02-12T10:00:00Z"}))

	index, err := ListRunIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, index, 2)
	require.Equal(t, "run-1", index[0].RunID)
	require.Equal(t, 0.95, index[0].TrainAccuracy)
	require.Equal(t, "run-2", index[1].RunID)

	require.Error(t, AppendRunIndex(baseDir, RunIndexEntry{}))
}

func TestWriteRunConfigRunIDMismatch(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, WriteRunConfig(baseDir, "run-a", RunConfig{N: 10}))
	cfg, ok, err := ReadRunConfig(baseDir, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "run-a", cfg.RunID)

	require.Error(t, WriteRunConfig(baseDir, "run-a", RunConfig{RunID: "run-b"}))
	require.Error(t, WriteRunConfig(baseDir, " ", RunConfig{}))
}

func TestWriteRulePopulationFileReportsWriterError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x_RulePop.txt")
	err := WriteRulePopulationFile(path, failingRules{})
	require.ErrorContains(t, err, "write rule population")
	require.Equal(t, filepath.Join("dir", "rules_RulePop.txt"), RulePopulationPath("dir", ""))
}

type failingRules struct{}

func (failingRules) WriteRulePopulation(io.Writer) error { return fmt.Errorf("boom") }
