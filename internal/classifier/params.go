package classifier

import (
	"fmt"

	"xcs/internal/model"
)

// Params holds the learning constants shared by every rule of a population.
type Params struct {
	Space model.ProblemSpace

	// PSpec is the probability that covering specifies an attribute.
	PSpec float64
	// Mu is the per-attribute mutation probability.
	Mu float64

	Beta          float64
	Alpha         float64
	Nu            float64
	OffsetEpsilon float64
	Delta         float64
	ThetaDel      int
	ThetaSub      int
	ErrSub        float64

	InitPrediction float64
	InitError      float64
	InitFitness    float64
}

func (p Params) validate() error {
	if p.Space.NumAttributes() == 0 {
		return fmt.Errorf("problem space has no attributes")
	}
	if p.Space.Actions.Discrete && len(p.Space.Actions.Labels) == 0 {
		return fmt.Errorf("discrete action space has no labels")
	}
	if !p.Space.Actions.Discrete && p.Space.Actions.Max <= p.Space.Actions.Min {
		return fmt.Errorf("continuous action range is empty: [%g, %g]", p.Space.Actions.Min, p.Space.Actions.Max)
	}
	if p.Beta <= 0 || p.Beta > 1 {
		return fmt.Errorf("beta must be in (0, 1]")
	}
	if p.OffsetEpsilon <= 0 {
		return fmt.Errorf("offset epsilon must be > 0")
	}
	return nil
}
