package env

import (
	"fmt"
	"math/rand"
)

// Environment presents dataset instances one at a time, cycling through the
// training data in order.
type Environment struct {
	train *Dataset
	test  *Dataset
	pos   int
}

// New builds an environment over train. test may be nil; when set it must
// share train's attribute layout.
func New(train Dataset, test *Dataset) (*Environment, error) {
	if len(train.Instances) == 0 {
		return nil, fmt.Errorf("training dataset has no instances")
	}
	if test != nil && test.Space.NumAttributes() != train.Space.NumAttributes() {
		return nil, fmt.Errorf("test dataset has %d attributes, training dataset has %d",
			test.Space.NumAttributes(), train.Space.NumAttributes())
	}
	return &Environment{train: &train, test: test}, nil
}

func (e *Environment) Train() *Dataset { return e.train }

// Test returns the evaluation dataset, or nil.
func (e *Environment) Test() *Dataset { return e.test }

// Current is the instance the learner is looking at.
func (e *Environment) Current() Instance {
	return e.train.Instances[e.pos]
}

// Next advances to the following training instance, wrapping at the end.
func (e *Environment) Next() {
	e.pos = (e.pos + 1) % len(e.train.Instances)
}

func (e *Environment) Reset() {
	e.pos = 0
}

// NumTrainInstances is the length of one pass over the training data.
func (e *Environment) NumTrainInstances() int {
	return len(e.train.Instances)
}

// Shuffle reorders the training instances and rewinds.
func (e *Environment) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(e.train.Instances), func(i, j int) {
		e.train.Instances[i], e.train.Instances[j] = e.train.Instances[j], e.train.Instances[i]
	})
	e.pos = 0
}
