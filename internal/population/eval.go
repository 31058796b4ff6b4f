package population

import (
	"xcs/internal/model"
)

// Evaluation holds the population-wide summaries computed at checkpoints.
type Evaluation struct {
	MeanGenerality float64
	// GeneralityKnown is false when the population is empty.
	GeneralityKnown bool
	// PhenotypeRange is the mean interval width over the action range, for
	// continuous actions only.
	PhenotypeRange float64
	// AttributeSpec counts, per attribute, the micro-classifiers testing it.
	AttributeSpec []int
	// AttributeAccuracy is AttributeSpec weighted by accuracy.
	AttributeAccuracy []float64
}

func (s *ClassifierSet) Evaluation() Evaluation {
	e := s.eval
	e.AttributeSpec = append([]int(nil), s.eval.AttributeSpec...)
	e.AttributeAccuracy = append([]float64(nil), s.eval.AttributeAccuracy...)
	return e
}

// RunPopAveEval computes mean generality and, for continuous actions, the
// mean normalized phenotype range.
func (s *ClassifierSet) RunPopAveEval() {
	numAtt := s.space.NumAttributes()
	if s.microSize == 0 || numAtt == 0 {
		s.eval.GeneralityKnown = false
		s.eval.MeanGenerality = 0
	} else {
		generalSum := 0
		for _, cl := range s.pop {
			generalSum += (numAtt - len(cl.SpecifiedAttributes())) * cl.Numerosity()
		}
		s.eval.GeneralityKnown = true
		s.eval.MeanGenerality = float64(generalSum) / float64(s.microSize*numAtt)
	}

	actions := s.space.Actions
	if actions.Discrete || s.microSize == 0 {
		s.eval.PhenotypeRange = 0
		return
	}
	rangeSum := 0.0
	for _, cl := range s.pop {
		rangeSum += cl.Phenotype().Width() * float64(cl.Numerosity())
	}
	s.eval.PhenotypeRange = (rangeSum / float64(s.microSize)) / (actions.Max - actions.Min)
}

// RunAttGeneralitySum tallies per-attribute specification frequency. It only
// runs for full evaluation summaries.
func (s *ClassifierSet) RunAttGeneralitySum(full bool) {
	if !full {
		return
	}
	numAtt := s.space.NumAttributes()
	s.eval.AttributeSpec = make([]int, numAtt)
	s.eval.AttributeAccuracy = make([]float64, numAtt)
	for _, cl := range s.pop {
		for _, att := range cl.SpecifiedAttributes() {
			s.eval.AttributeSpec[att] += cl.Numerosity()
			s.eval.AttributeAccuracy[att] += float64(cl.Numerosity()) * cl.Accuracy()
		}
	}
}

// PopTrack builds the checkpoint record from the last RunPopAveEval.
func (s *ClassifierSet) PopTrack(accuracy float64, iteration, trackingFrequency int) model.PopTrack {
	epoch := 0
	if trackingFrequency > 0 {
		epoch = iteration / trackingFrequency
	}
	return model.PopTrack{
		Iteration:       iteration,
		Epoch:           epoch,
		MacroSize:       len(s.pop),
		MicroSize:       s.microSize,
		Accuracy:        accuracy,
		MeanGenerality:  s.eval.MeanGenerality,
		GeneralityKnown: s.eval.GeneralityKnown,
		PhenotypeRange:  s.eval.PhenotypeRange,
		Continuous:      !s.space.Actions.Discrete,
	}
}
