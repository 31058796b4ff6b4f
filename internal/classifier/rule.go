package classifier

import (
	"math"
	"sort"

	"xcs/internal/model"
)

// Predicate is the test a rule applies to one specified attribute: an exact
// value for discrete attributes, a closed interval for continuous ones.
type Predicate struct {
	Text string
	Lo   float64
	Hi   float64
}

// Rule is an XCS macro-classifier.
type Rule struct {
	params *Params

	// specified is sorted; condition[i] tests attribute specified[i].
	specified []int
	condition []Predicate
	phenotype model.Phenotype

	prediction    float64
	err           float64
	fitness       float64
	accuracy      float64
	actionSetSize float64

	numerosity    int
	experience    int
	gaTimestamp   int
	initTimestamp int
	gaCount       int
}

var _ model.Classifier = (*Rule)(nil)

func newRule(params *Params, iteration int, phenotype model.Phenotype) *Rule {
	return &Rule{
		params:        params,
		phenotype:     phenotype,
		prediction:    params.InitPrediction,
		err:           params.InitError,
		fitness:       params.InitFitness,
		accuracy:      0,
		actionSetSize: 1,
		numerosity:    1,
		gaTimestamp:   iteration,
		initTimestamp: iteration,
	}
}

func (r *Rule) Phenotype() model.Phenotype { return r.phenotype }

func (r *Rule) SpecifiedAttributes() []int {
	return append([]int(nil), r.specified...)
}

// Condition returns the predicate for attribute att, if specified.
func (r *Rule) Condition(att int) (Predicate, bool) {
	i := sort.SearchInts(r.specified, att)
	if i < len(r.specified) && r.specified[i] == att {
		return r.condition[i], true
	}
	return Predicate{}, false
}

func (r *Rule) Numerosity() int { return r.numerosity }

func (r *Rule) AddNumerosity(delta int) int {
	r.numerosity += delta
	return r.numerosity
}

func (r *Rule) Prediction() float64     { return r.prediction }
func (r *Rule) SetPrediction(v float64) { r.prediction = v }
func (r *Rule) Error() float64          { return r.err }
func (r *Rule) SetError(v float64)      { r.err = v }
func (r *Rule) Fitness() float64        { return r.fitness }
func (r *Rule) SetFitness(v float64)    { r.fitness = v }
func (r *Rule) Accuracy() float64       { return r.accuracy }
func (r *Rule) SetAccuracy(v float64)   { r.accuracy = v }
func (r *Rule) GATimestamp() int        { return r.gaTimestamp }
func (r *Rule) SetGATimestamp(iter int) { r.gaTimestamp = iter }
func (r *Rule) Experience() int         { return r.experience }
func (r *Rule) ActionSetSize() float64  { return r.actionSetSize }
func (r *Rule) GACount() int            { return r.gaCount }
func (r *Rule) InitTimestamp() int      { return r.initTimestamp }
func (r *Rule) UpdateGACount()          { r.gaCount++ }
func (r *Rule) UpdateActionExp()        { r.experience++ }
func (r *Rule) Params() *Params         { return r.params }

func (r *Rule) Match(state model.State) bool {
	for i, att := range r.specified {
		if att >= len(state) {
			return false
		}
		f := state[att]
		if f.Missing {
			continue
		}
		if !r.params.Space.Attributes[att].Continuous {
			if f.Text != r.condition[i].Text {
				return false
			}
			continue
		}
		if f.Num < r.condition[i].Lo || f.Num > r.condition[i].Hi {
			return false
		}
	}
	return true
}

func (r *Rule) Equals(other model.Classifier) bool {
	o, ok := other.(*Rule)
	if !ok || o == nil {
		return false
	}
	if r.phenotype != o.phenotype || len(r.specified) != len(o.specified) {
		return false
	}
	for i, att := range r.specified {
		if o.specified[i] != att || o.condition[i] != r.condition[i] {
			return false
		}
	}
	return true
}

func (r *Rule) IsPossibleSubsumer() bool {
	return r.experience > r.params.ThetaSub && r.err < r.params.ErrSub
}

// IsMoreGeneral reports whether r tests strictly fewer attributes than other
// and every test of r is implied by other's test on the same attribute.
func (r *Rule) IsMoreGeneral(other model.Classifier) bool {
	o, ok := other.(*Rule)
	if !ok || o == nil {
		return false
	}
	if len(r.specified) >= len(o.specified) {
		return false
	}
	if !r.phenotype.Contains(o.phenotype) {
		return false
	}
	for i, att := range r.specified {
		op, ok := o.Condition(att)
		if !ok {
			return false
		}
		mine := r.condition[i]
		if r.params.Space.Attributes[att].Continuous {
			if mine.Lo > op.Lo || mine.Hi < op.Hi {
				return false
			}
			continue
		}
		if mine.Text != op.Text {
			return false
		}
	}
	return true
}

func (r *Rule) Subsumes(other model.Classifier) bool {
	if !r.phenotype.Contains(other.Phenotype()) {
		return false
	}
	return r.IsPossibleSubsumer() && r.IsMoreGeneral(other)
}

func (r *Rule) DeletionVote(meanFitness float64) float64 {
	vote := r.actionSetSize * float64(r.numerosity)
	perMicro := r.fitness / float64(r.numerosity)
	if r.experience > r.params.ThetaDel && perMicro < r.params.Delta*meanFitness {
		vote *= meanFitness / math.Max(perMicro, 1e-9)
	}
	return vote
}

// UpdateActionSetSize moves the action-set size estimate toward numerositySum,
// averaging while the rule is inexperienced and using beta afterwards.
func (r *Rule) UpdateActionSetSize(numerositySum int) {
	target := float64(numerositySum)
	if float64(r.experience) < 1/r.params.Beta {
		r.actionSetSize += (target - r.actionSetSize) / float64(r.experience)
		return
	}
	r.actionSetSize += r.params.Beta * (target - r.actionSetSize)
}

// UpdateParameters updates error before prediction, then recomputes the raw
// accuracy from the new error.
func (r *Rule) UpdateParameters(reward float64) {
	diff := math.Abs(reward - r.prediction)
	if float64(r.experience) < 1/r.params.Beta {
		r.err += (diff - r.err) / float64(r.experience)
		r.prediction += (reward - r.prediction) / float64(r.experience)
	} else {
		r.err += r.params.Beta * (diff - r.err)
		r.prediction += r.params.Beta * (reward - r.prediction)
	}

	if r.err < r.params.OffsetEpsilon {
		r.accuracy = 1
		return
	}
	r.accuracy = r.params.Alpha * math.Pow(r.err/r.params.OffsetEpsilon, -r.params.Nu)
}

func (r *Rule) UpdateFitness() {
	r.fitness += r.params.Beta * (r.accuracy - r.fitness)
}

func (r *Rule) Offspring(iteration int) model.Classifier {
	return &Rule{
		params:        r.params,
		specified:     append([]int(nil), r.specified...),
		condition:     append([]Predicate(nil), r.condition...),
		phenotype:     r.phenotype,
		prediction:    r.prediction,
		err:           r.err,
		fitness:       r.fitness,
		accuracy:      r.accuracy,
		actionSetSize: r.actionSetSize,
		numerosity:    1,
		gaTimestamp:   iteration,
		initTimestamp: iteration,
	}
}

// specify sets the predicate for att, keeping specified sorted.
func (r *Rule) specify(att int, p Predicate) {
	i := sort.SearchInts(r.specified, att)
	if i < len(r.specified) && r.specified[i] == att {
		r.condition[i] = p
		return
	}
	r.specified = append(r.specified, 0)
	r.condition = append(r.condition, Predicate{})
	copy(r.specified[i+1:], r.specified[i:])
	copy(r.condition[i+1:], r.condition[i:])
	r.specified[i] = att
	r.condition[i] = p
}

func (r *Rule) generalize(att int) bool {
	i := sort.SearchInts(r.specified, att)
	if i >= len(r.specified) || r.specified[i] != att {
		return false
	}
	r.specified = append(r.specified[:i], r.specified[i+1:]...)
	r.condition = append(r.condition[:i], r.condition[i+1:]...)
	return true
}
