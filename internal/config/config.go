package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"xcs/internal/classifier"
	"xcs/internal/model"
	"xcs/internal/population"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	if err := configValidate.RegisterValidation("checkpoints", validateCheckpoints); err != nil {
		panic(fmt.Sprintf("register checkpoints validation: %v", err))
	}
}

// Config is the full run configuration.
type Config struct {
	Run  RunConfig  `json:"run" yaml:"run"`
	Data DataConfig `json:"data" yaml:"data"`
	XCS  XCSConfig  `json:"xcs" yaml:"xcs"`
	GA   GAConfig   `json:"ga" yaml:"ga"`
}

type RunConfig struct {
	TrainFile string `json:"train_file" yaml:"train_file"`
	TestFile  string `json:"test_file,omitempty" yaml:"test_file,omitempty"`
	OutDir    string `json:"out_dir" yaml:"out_dir" validate:"required"`
	// OutName prefixes every output file.
	OutName string `json:"out_name" yaml:"out_name" validate:"required"`
	// LearningIterations lists dot-separated checkpoints; the last one is
	// the iteration budget.
	LearningIterations string `json:"learning_iterations" yaml:"learning_iterations" validate:"required,checkpoints"`
	// TrackingFrequency of 0 tracks once per pass over the training data.
	TrackingFrequency int `json:"tracking_frequency" yaml:"tracking_frequency" validate:"gte=0"`
	// Seed is nil for a time-based seed.
	Seed       *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	Workers    int    `json:"workers" yaml:"workers" validate:"gte=0,lte=256"`
	Store      string `json:"store" yaml:"store" validate:"oneof=memory sqlite"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty" validate:"required_if=Store sqlite"`
	RebootPath string `json:"reboot_path,omitempty" yaml:"reboot_path,omitempty"`
}

type DataConfig struct {
	InstanceIDLabel        string `json:"instance_id_label" yaml:"instance_id_label"`
	PhenotypeLabel         string `json:"phenotype_label" yaml:"phenotype_label" validate:"required"`
	MissingLabel           string `json:"missing_label" yaml:"missing_label"`
	DiscreteAttributeLimit int    `json:"discrete_attribute_limit" yaml:"discrete_attribute_limit" validate:"gte=1"`
}

type XCSConfig struct {
	N                int     `json:"n" yaml:"n" validate:"gte=1"`
	PSpec            float64 `json:"p_spec" yaml:"p_spec" validate:"gte=0,lte=1"`
	Nu               float64 `json:"nu" yaml:"nu" validate:"gt=0"`
	Chi              float64 `json:"chi" yaml:"chi" validate:"gte=0,lte=1"`
	Mu               float64 `json:"mu" yaml:"mu" validate:"gte=0,lte=1"`
	OffsetEpsilon    float64 `json:"offset_epsilon" yaml:"offset_epsilon" validate:"gt=0"`
	Alpha            float64 `json:"alpha" yaml:"alpha" validate:"gt=0"`
	Beta             float64 `json:"beta" yaml:"beta" validate:"gt=0,lte=1"`
	Delta            float64 `json:"delta" yaml:"delta" validate:"gte=0"`
	ThetaGA          int     `json:"theta_ga" yaml:"theta_ga" validate:"gte=0"`
	ThetaMNA         int     `json:"theta_mna" yaml:"theta_mna" validate:"gte=1"`
	ThetaDel         int     `json:"theta_del" yaml:"theta_del" validate:"gte=0"`
	ThetaSub         int     `json:"theta_sub" yaml:"theta_sub" validate:"gte=0"`
	ErrSub           float64 `json:"err_sub" yaml:"err_sub" validate:"gte=0"`
	InitPrediction   float64 `json:"init_pred" yaml:"init_pred"`
	InitError        float64 `json:"init_err" yaml:"init_err" validate:"gte=0"`
	InitFitness      float64 `json:"init_fit" yaml:"init_fit" validate:"gt=0"`
	FitnessReduction float64 `json:"fitness_reduction" yaml:"fitness_reduction" validate:"gt=0,lte=1"`
	// Exploration is the probability of an explore step choosing a random
	// action.
	Exploration float64 `json:"exploration" yaml:"exploration" validate:"gte=0,lte=1"`
}

type GAConfig struct {
	Selection              string  `json:"selection" yaml:"selection" validate:"oneof=roulette tournament"`
	ThetaSel               float64 `json:"theta_sel" yaml:"theta_sel" validate:"gt=0,lte=1"`
	Crossover              string  `json:"crossover" yaml:"crossover" validate:"oneof=uniform twopoint"`
	DoSubsumption          bool    `json:"do_subsumption" yaml:"do_subsumption"`
	DoActionSetSubsumption bool    `json:"do_action_set_subsumption" yaml:"do_action_set_subsumption"`
}

// Default returns the Butz and Wilson parameter settings.
func Default() Config {
	return Config{
		Run: RunConfig{
			OutDir:             ".",
			OutName:            "xcs",
			LearningIterations: "1000.5000.10000",
			TrackingFrequency:  0,
			Workers:            1,
			Store:              "memory",
		},
		Data: DataConfig{
			InstanceIDLabel:        "InstanceID",
			PhenotypeLabel:         "Class",
			MissingLabel:           "NA",
			DiscreteAttributeLimit: 10,
		},
		XCS: XCSConfig{
			N:                1000,
			PSpec:            0.5,
			Nu:               5,
			Chi:              0.8,
			Mu:               0.04,
			OffsetEpsilon:    10,
			Alpha:            0.1,
			Beta:             0.2,
			Delta:            0.1,
			ThetaGA:          25,
			ThetaMNA:         2,
			ThetaDel:         20,
			ThetaSub:         20,
			ErrSub:           10,
			InitPrediction:   10,
			InitError:        0,
			InitFitness:      0.01,
			FitnessReduction: 0.1,
			Exploration:      0.5,
		},
		GA: GAConfig{
			Selection:              "tournament",
			ThetaSel:               0.5,
			Crossover:              "uniform",
			DoSubsumption:          true,
			DoActionSetSubsumption: false,
		},
	}
}

// Load overlays the file at path on Default, applies XCS_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFile accepts YAML, falling back to JSON.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("XCS_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: XCS_SEED: %v", ErrInvalid, err)
		}
		cfg.Run.Seed = &seed
	}
	if v := os.Getenv("XCS_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: XCS_WORKERS: %v", ErrInvalid, err)
		}
		cfg.Run.Workers = workers
	}
	if v := os.Getenv("XCS_N"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: XCS_N: %v", ErrInvalid, err)
		}
		cfg.XCS.N = n
	}
	if v := os.Getenv("XCS_STORE"); v != "" {
		cfg.Run.Store = v
	}
	if v := os.Getenv("XCS_DB_PATH"); v != "" {
		cfg.Run.DBPath = v
	}
	return nil
}

func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// LearningCheckpoints parses the checkpoint list. The last value is the
// iteration budget.
func (c Config) LearningCheckpoints() ([]int, error) {
	return parseCheckpoints(c.Run.LearningIterations)
}

func (c Config) MaxIterations() int {
	points, err := c.LearningCheckpoints()
	if err != nil || len(points) == 0 {
		return 0
	}
	return points[len(points)-1]
}

// PopulationParams converts the engine section.
func (c Config) PopulationParams() population.Params {
	return population.Params{
		N:                c.XCS.N,
		ThetaMNA:         c.XCS.ThetaMNA,
		ThetaGA:          c.XCS.ThetaGA,
		Chi:              c.XCS.Chi,
		FitnessReduction: c.XCS.FitnessReduction,
		Selection:        population.SelectionMethod(c.GA.Selection),
		ThetaSel:         c.GA.ThetaSel,
		Crossover:        population.CrossoverMethod(c.GA.Crossover),
		DoSubsumption:    c.GA.DoSubsumption,
		Workers:          c.Run.Workers,
	}
}

// ClassifierParams converts the rule constants for the given problem space.
func (c Config) ClassifierParams(space model.ProblemSpace) classifier.Params {
	return classifier.Params{
		Space:          space,
		PSpec:          c.XCS.PSpec,
		Mu:             c.XCS.Mu,
		Beta:           c.XCS.Beta,
		Alpha:          c.XCS.Alpha,
		Nu:             c.XCS.Nu,
		OffsetEpsilon:  c.XCS.OffsetEpsilon,
		Delta:          c.XCS.Delta,
		ThetaDel:       c.XCS.ThetaDel,
		ThetaSub:       c.XCS.ThetaSub,
		ErrSub:         c.XCS.ErrSub,
		InitPrediction: c.XCS.InitPrediction,
		InitError:      c.XCS.InitError,
		InitFitness:    c.XCS.InitFitness,
	}
}

func validateCheckpoints(fl validator.FieldLevel) bool {
	_, err := parseCheckpoints(fl.Field().String())
	return err == nil
}

func parseCheckpoints(raw string) ([]int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	points := make([]int, 0, len(parts))
	prev := 0
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("checkpoint %q: %w", part, err)
		}
		if v <= prev {
			return nil, fmt.Errorf("checkpoints must be positive and increasing: %q", raw)
		}
		points = append(points, v)
		prev = v
	}
	return points, nil
}
