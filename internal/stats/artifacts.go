package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"xcs/internal/model"
)

const (
	runIndexFile      = "run_index.json"
	configFile        = "config.json"
	learnTrackFile    = "learn_track.txt"
	checkpointsFile   = "checkpoints.json"
	rulePopulationTag = "rules"
)

// RunConfig records the settings a run was started with.
type RunConfig struct {
	RunID              string  `json:"run_id"`
	OutName            string  `json:"out_name"`
	TrainFile          string  `json:"train_file,omitempty"`
	TestFile           string  `json:"test_file,omitempty"`
	RebootPath         string  `json:"reboot_path,omitempty"`
	LearningIterations string  `json:"learning_iterations"`
	TrackingFrequency  int     `json:"tracking_frequency"`
	Seed               int64   `json:"seed"`
	Workers            int     `json:"workers"`
	N                  int     `json:"n"`
	Exploration        float64 `json:"exploration"`
	Selection          string  `json:"selection"`
	Crossover          string  `json:"crossover"`
	DoSubsumption      bool    `json:"do_subsumption"`
	DoASSubsumption    bool    `json:"do_action_set_subsumption"`
}

// EvaluationSummary is the accuracy and coverage of one dataset.
type EvaluationSummary struct {
	Instances int     `json:"instances"`
	Accuracy  float64 `json:"accuracy"`
	Coverage  float64 `json:"coverage"`
}

// CheckpointSummary is what a checkpoint evaluation leaves on disk.
type CheckpointSummary struct {
	Iteration         int                `json:"iteration"`
	MacroSize         int                `json:"macro_size"`
	MicroSize         int                `json:"micro_size"`
	MeanGenerality    float64            `json:"mean_generality"`
	Train             EvaluationSummary  `json:"train"`
	Test              *EvaluationSummary `json:"test,omitempty"`
	AttributeSpec     []int              `json:"attribute_spec,omitempty"`
	AttributeAccuracy []float64          `json:"attribute_accuracy,omitempty"`
}

// RuleTableWriter writes a rule population in the reboot format.
type RuleTableWriter interface {
	WriteRulePopulation(w io.Writer) error
}

type RunArtifacts struct {
	Config      RunConfig           `json:"config"`
	Track       []model.PopTrack    `json:"track"`
	Checkpoints []CheckpointSummary `json:"checkpoints"`
}

type RunIndexEntry struct {
	RunID         string  `json:"run_id"`
	TrainFile     string  `json:"train_file,omitempty"`
	Iterations    int     `json:"iterations"`
	N             int     `json:"n"`
	Seed          int64   `json:"seed"`
	MacroSize     int     `json:"macro_size"`
	MicroSize     int     `json:"micro_size"`
	TrainAccuracy float64 `json:"train_accuracy"`
	CreatedAtUTC  string  `json:"created_at_utc"`
}

// WriteRunArtifacts writes the run's config, learn track, checkpoint reports
// and, when rules is non-nil, the final rule population under
// baseDir/<run id>. It returns the run directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts, rules RuleTableWriter) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := WriteLearnTrackFile(filepath.Join(runDir, learnTrackFile), artifacts.Track); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, checkpointsFile), artifacts.Checkpoints); err != nil {
		return "", err
	}
	if rules != nil {
		if err := WriteRulePopulationFile(RulePopulationPath(runDir, artifacts.Config.OutName), rules); err != nil {
			return "", err
		}
	}
	return runDir, nil
}

// RulePopulationPath names the rule population file of a run; the reboot
// reader accepts it as is.
func RulePopulationPath(runDir, outName string) string {
	if outName == "" {
		outName = rulePopulationTag
	}
	return filepath.Join(runDir, outName+"_RulePop.txt")
}

func WriteRulePopulationFile(path string, rules RuleTableWriter) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rules.WriteRulePopulation(file); err != nil {
		file.Close()
		return fmt.Errorf("write rule population: %w", err)
	}
	return file.Close()
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the indexed runs, newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies every file of a run directory into outDir/<run id>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	entries, err := os.ReadDir(src)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func WriteRunConfig(baseDir, runID string, cfg RunConfig) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(cfg.RunID) == "" {
		cfg.RunID = strings.TrimSpace(runID)
	}
	if cfg.RunID != strings.TrimSpace(runID) {
		return fmt.Errorf("run config run id mismatch: got=%s want=%s", cfg.RunID, strings.TrimSpace(runID))
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, configFile), cfg)
}

func ReadCheckpoints(baseDir, runID string) ([]CheckpointSummary, bool, error) {
	var checkpoints []CheckpointSummary
	ok, err := readJSON(filepath.Join(baseDir, runID, checkpointsFile), &checkpoints)
	return checkpoints, ok, err
}

// ReadRulePopulation returns the header and rows of a run's rule population
// file.
func ReadRulePopulation(baseDir, runID string) ([]string, [][]string, bool, error) {
	cfg, ok, err := ReadRunConfig(baseDir, runID)
	if err != nil || !ok {
		return nil, nil, false, err
	}
	file, err := os.Open(RulePopulationPath(filepath.Join(baseDir, runID), cfg.OutName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, false, fmt.Errorf("read rule population: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, false, fmt.Errorf("rule population of %s has no header", runID)
	}
	return records[0], records[1:], true, nil
}

var learnTrackHeader = []string{"Iteration", "Epoch", "MacroPop", "MicroPop", "Accuracy", "AveGenerality", "PhenRange"}

// WriteLearnTrack writes one tab separated row per tracking point. Unknown
// generality is written as NA.
func WriteLearnTrack(w io.Writer, track []model.PopTrack) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	if err := writer.Write(learnTrackHeader); err != nil {
		return err
	}
	for _, p := range track {
		gen := "NA"
		if p.GeneralityKnown {
			gen = strconv.FormatFloat(p.MeanGenerality, 'f', -1, 64)
		}
		phen := "NA"
		if p.Continuous {
			phen = strconv.FormatFloat(p.PhenotypeRange, 'f', -1, 64)
		}
		if err := writer.Write([]string{
			strconv.Itoa(p.Iteration),
			strconv.Itoa(p.Epoch),
			strconv.Itoa(p.MacroSize),
			strconv.Itoa(p.MicroSize),
			strconv.FormatFloat(p.Accuracy, 'f', -1, 64),
			gen,
			phen,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteLearnTrackFile(path string, track []model.PopTrack) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteLearnTrack(file, track); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func ReadLearnTrack(r io.Reader) ([]model.PopTrack, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.PopTrack{}, nil
		}
		return nil, err
	}
	if len(header) != len(learnTrackHeader) {
		return nil, fmt.Errorf("learn track header must have %d columns, got %d", len(learnTrackHeader), len(header))
	}

	track := make([]model.PopTrack, 0, 64)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		p, err := parseTrackRow(record)
		if err != nil {
			return nil, fmt.Errorf("learn track line %d: %w", line, err)
		}
		track = append(track, p)
	}
	return track, nil
}

func ReadLearnTrackFile(baseDir, runID string) ([]model.PopTrack, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, learnTrackFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()
	track, err := ReadLearnTrack(file)
	if err != nil {
		return nil, false, err
	}
	return track, true, nil
}

func parseTrackRow(record []string) (model.PopTrack, error) {
	var p model.PopTrack
	ints := []*int{&p.Iteration, &p.Epoch, &p.MacroSize, &p.MicroSize}
	for i, dst := range ints {
		v, err := strconv.Atoi(record[i])
		if err != nil {
			return p, err
		}
		*dst = v
	}
	acc, err := strconv.ParseFloat(record[4], 64)
	if err != nil {
		return p, err
	}
	p.Accuracy = acc
	if record[5] != "NA" {
		if p.MeanGenerality, err = strconv.ParseFloat(record[5], 64); err != nil {
			return p, err
		}
		p.GeneralityKnown = true
	}
	if record[6] != "NA" {
		if p.PhenotypeRange, err = strconv.ParseFloat(record[6], 64); err != nil {
			return p, err
		}
		p.Continuous = true
	}
	return p, nil
}

func readJSON(path string, value any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
