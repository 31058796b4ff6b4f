package model

import "math/rand"

// Classifier is the capability contract the population engine consumes. A
// classifier is a macro-classifier: Numerosity counts the identical
// micro-classifiers folded into it.
//
// Match must not mutate the receiver; it is evaluated concurrently.
type Classifier interface {
	Phenotype() Phenotype
	// SpecifiedAttributes lists the attribute indices the condition tests.
	SpecifiedAttributes() []int

	Numerosity() int
	// AddNumerosity applies delta and returns the new numerosity.
	AddNumerosity(delta int) int

	Prediction() float64
	SetPrediction(float64)
	Error() float64
	SetError(float64)
	Fitness() float64
	SetFitness(float64)
	Accuracy() float64
	SetAccuracy(float64)
	GATimestamp() int
	SetGATimestamp(iteration int)

	Match(state State) bool
	Equals(other Classifier) bool
	Subsumes(other Classifier) bool
	IsPossibleSubsumer() bool
	IsMoreGeneral(other Classifier) bool

	// DeletionVote weights the roulette used to pick a deletion victim.
	DeletionVote(meanFitness float64) float64

	UpdateActionExp()
	UpdateActionSetSize(numerositySum int)
	UpdateParameters(reward float64)
	UpdateFitness()
	UpdateGACount()

	// Offspring clones the rule for the GA with numerosity one, zero
	// experience and the given timestamp.
	Offspring(iteration int) Classifier
	UniformCrossover(rng *rand.Rand, other Classifier) bool
	TwoPointCrossover(rng *rand.Rand, other Classifier) bool
	Mutate(rng *rand.Rand, state State) bool

	// Row serializes the rule in rule-population column order.
	Row() []string
}

// ClassifierFactory builds classifiers for covering and for rebooting a
// persisted population.
type ClassifierFactory interface {
	Cover(rng *rand.Rand, iteration int, state State, phenotype Phenotype) Classifier
	Parse(row []string) (Classifier, error)
	Header() []string
}
