package population

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"xcs/internal/model"
)

var (
	ErrUnknownSelection = errors.New("unknown ga selection method")
	ErrUnknownCrossover = errors.New("unknown crossover method")
)

type SelectionMethod string

const (
	SelectionRoulette   SelectionMethod = "roulette"
	SelectionTournament SelectionMethod = "tournament"
)

type CrossoverMethod string

const (
	CrossoverUniform  CrossoverMethod = "uniform"
	CrossoverTwoPoint CrossoverMethod = "twopoint"
)

// Params are the engine settings. They are copied into the ClassifierSet at
// construction; nothing reads global state.
type Params struct {
	// N bounds the micro-population size.
	N int
	// ThetaMNA is the number of distinct phenotypes a match set must hold
	// before covering stops.
	ThetaMNA int
	// ThetaGA is the mean action-set age that triggers the GA.
	ThetaGA int
	// Chi is the crossover probability.
	Chi              float64
	FitnessReduction float64
	Selection        SelectionMethod
	// ThetaSel is the tournament sampling fraction.
	ThetaSel      float64
	Crossover     CrossoverMethod
	DoSubsumption bool
	// Workers > 1 fans matching out over that many goroutines.
	Workers int
}

type Option func(*ClassifierSet)

func WithLogger(logger *slog.Logger) Option {
	return func(s *ClassifierSet) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSelector overrides the parent selector built from Params.Selection.
func WithSelector(selector ParentSelector) Option {
	return func(s *ClassifierSet) {
		if selector != nil {
			s.selector = selector
		}
	}
}

// ClassifierSet owns the rule population and the per-iteration match and
// action sets. The sets hold indices into the population; every removal goes
// through removeMacroClassifier, which renumbers them.
//
// A ClassifierSet is not safe for concurrent use.
type ClassifierSet struct {
	params   Params
	space    model.ProblemSpace
	factory  model.ClassifierFactory
	selector ParentSelector
	rng      *rand.Rand
	logger   *slog.Logger

	pop       []model.Classifier
	microSize int
	matchSet  []int
	actionSet []int

	eval Evaluation
}

func New(params Params, space model.ProblemSpace, factory model.ClassifierFactory, rng *rand.Rand, opts ...Option) (*ClassifierSet, error) {
	if factory == nil {
		return nil, fmt.Errorf("classifier factory is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if params.N <= 0 {
		return nil, fmt.Errorf("population capacity N must be > 0")
	}
	if params.ThetaMNA <= 0 {
		return nil, fmt.Errorf("theta_mna must be > 0")
	}
	switch params.Crossover {
	case CrossoverUniform, CrossoverTwoPoint:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCrossover, params.Crossover)
	}
	selector, err := NewSelector(params.Selection, params.ThetaSel)
	if err != nil {
		return nil, err
	}

	s := &ClassifierSet{
		params:   params,
		space:    space,
		factory:  factory,
		selector: selector,
		rng:      rng,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *ClassifierSet) Params() Params { return s.params }

func (s *ClassifierSet) Space() model.ProblemSpace { return s.space }

// Size is the macro-population size.
func (s *ClassifierSet) Size() int { return len(s.pop) }

// MicroSize is the numerosity-weighted population size.
func (s *ClassifierSet) MicroSize() int { return s.microSize }

func (s *ClassifierSet) At(ref int) model.Classifier { return s.pop[ref] }

func (s *ClassifierSet) Classifiers() []model.Classifier {
	return slices.Clone(s.pop)
}

func (s *ClassifierSet) MatchSet() []int { return slices.Clone(s.matchSet) }

func (s *ClassifierSet) ActionSet() []int { return slices.Clone(s.actionSet) }

// NumerositySum recomputes the micro-population from the stored rules. It
// equals MicroSize between operations.
func (s *ClassifierSet) NumerositySum() int {
	sum := 0
	for _, cl := range s.pop {
		sum += cl.Numerosity()
	}
	return sum
}

// AddClassifierToPopulation inserts cl and returns the new micro size. Unless
// covering, a value-identical rule in the match set absorbs cl instead of a
// new entry being appended.
func (s *ClassifierSet) AddClassifierToPopulation(cl model.Classifier, covering bool) int {
	if !covering {
		if old := s.identicalClassifier(cl); old != nil {
			old.AddNumerosity(1)
			s.microSize++
			return s.microSize
		}
	}
	s.pop = append(s.pop, cl)
	s.microSize++
	return s.microSize
}

func (s *ClassifierSet) identicalClassifier(cl model.Classifier) model.Classifier {
	for _, ref := range s.matchSet {
		if cl.Equals(s.pop[ref]) {
			return s.pop[ref]
		}
	}
	return nil
}

// removeMacroClassifier drops the rule at ref and renumbers the match and
// action sets. Callers own the micro-size bookkeeping for the removed
// numerosity.
func (s *ClassifierSet) removeMacroClassifier(ref int) {
	s.pop = slices.Delete(s.pop, ref, ref+1)
	s.matchSet = reindex(s.matchSet, ref)
	s.actionSet = reindex(s.actionSet, ref)
}

// reindex removes every reference to removed and shifts later ones down.
func reindex(refs []int, removed int) []int {
	out := refs[:0]
	for _, ref := range refs {
		switch {
		case ref == removed:
		case ref > removed:
			out = append(out, ref-1)
		default:
			out = append(out, ref)
		}
	}
	return out
}

// ClearSets empties the match and action sets for the next iteration.
func (s *ClassifierSet) ClearSets() {
	s.matchSet = s.matchSet[:0]
	s.actionSet = s.actionSet[:0]
}

func (s *ClassifierSet) fitnessSum(refs []int) float64 {
	sum := 0.0
	for _, ref := range refs {
		sum += s.pop[ref].Fitness()
	}
	return sum
}

func (s *ClassifierSet) popFitnessSum() float64 {
	sum := 0.0
	for _, cl := range s.pop {
		sum += cl.Fitness()
	}
	return sum
}
