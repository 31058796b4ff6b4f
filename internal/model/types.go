package model

import (
	"fmt"
	"strconv"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Feature is one attribute value of an input state.
type Feature struct {
	Text    string  `json:"text,omitempty"`
	Num     float64 `json:"num,omitempty"`
	Missing bool    `json:"missing,omitempty"`
}

// State is the input presented to the population in one iteration.
type State []Feature

// Attribute describes one input column.
type Attribute struct {
	Name       string  `json:"name"`
	Continuous bool    `json:"continuous"`
	Min        float64 `json:"min,omitempty"`
	Max        float64 `json:"max,omitempty"`
}

// Range returns the span of a continuous attribute.
func (a Attribute) Range() float64 {
	return a.Max - a.Min
}

// ActionSpace is the universe of actions a classifier may advocate.
// Discrete spaces enumerate Labels; continuous spaces are [Min, Max].
type ActionSpace struct {
	Discrete bool     `json:"discrete"`
	Labels   []string `json:"labels,omitempty"`
	Min      float64  `json:"min,omitempty"`
	Max      float64  `json:"max,omitempty"`
}

// ProblemSpace is the environment metadata the engine consumes.
type ProblemSpace struct {
	Attributes []Attribute `json:"attributes"`
	Actions    ActionSpace `json:"actions"`
}

func (p ProblemSpace) NumAttributes() int {
	return len(p.Attributes)
}

// Action is the action chosen by the learning loop. Label is used by discrete
// spaces and Value by continuous ones.
type Action struct {
	Label string
	Value float64
}

func DiscreteAction(label string) Action {
	return Action{Label: label}
}

func ContinuousAction(value float64) Action {
	return Action{Value: value}
}

func (a Action) String() string {
	if a.Label != "" {
		return a.Label
	}
	return strconv.FormatFloat(a.Value, 'g', -1, 64)
}

// PopTrack is the per-checkpoint evaluation summary.
type PopTrack struct {
	Iteration      int     `json:"iteration"`
	Epoch          int     `json:"epoch"`
	MacroSize      int     `json:"macro_size"`
	MicroSize      int     `json:"micro_size"`
	Accuracy       float64 `json:"accuracy"`
	MeanGenerality float64 `json:"mean_generality"`
	// GeneralityKnown is false when the population was empty.
	GeneralityKnown bool    `json:"generality_known"`
	PhenotypeRange  float64 `json:"phenotype_range,omitempty"`
	Continuous      bool    `json:"continuous,omitempty"`
}

func (t PopTrack) String() string {
	gen := "NA"
	if t.GeneralityKnown {
		gen = strconv.FormatFloat(t.MeanGenerality, 'f', 4, 64)
	}
	s := fmt.Sprintf("Epoch: %d\t Iteration: %d\t MacroPop: %d\t MicroPop: %d\t AccEstimate: %.4f\t AveGen: %s",
		t.Epoch, t.Iteration, t.MacroSize, t.MicroSize, t.Accuracy, gen)
	if t.Continuous {
		s += fmt.Sprintf("\t PhenRange: %.4f", t.PhenotypeRange)
	}
	return s
}

// PopulationSnapshot is a stored copy of a rule population in its TSV form.
type PopulationSnapshot struct {
	VersionedRecord
	RunID     string     `json:"run_id"`
	Iteration int        `json:"iteration"`
	Header    []string   `json:"header"`
	Rows      [][]string `json:"rows"`
	MicroSize int        `json:"micro_size"`
}

// LearnTrack is the stored sequence of checkpoint summaries for a run.
type LearnTrack struct {
	VersionedRecord
	RunID  string     `json:"run_id"`
	Points []PopTrack `json:"points"`
}
