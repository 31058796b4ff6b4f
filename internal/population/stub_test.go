package population

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"xcs/internal/model"
)

// stubClassifier is a ternary rule over single-character attributes with
// fixed deletion votes and trivial learning updates.
type stubClassifier struct {
	cond       string
	phenotype  model.Phenotype
	numerosity int
	prediction float64
	err        float64
	fitness    float64
	accuracy   float64
	timestamp  int
	vote       float64
	subsumer   bool
	experience int
	gaCount    int
	noMutation bool
}

func newStub(cond, action string) *stubClassifier {
	return &stubClassifier{
		cond:       cond,
		phenotype:  model.DiscretePhenotype(action),
		numerosity: 1,
		fitness:    1,
		vote:       1,
	}
}

func (c *stubClassifier) Phenotype() model.Phenotype { return c.phenotype }

func (c *stubClassifier) SpecifiedAttributes() []int {
	var out []int
	for i, ch := range c.cond {
		if ch != '#' {
			out = append(out, i)
		}
	}
	return out
}

func (c *stubClassifier) Numerosity() int { return c.numerosity }

func (c *stubClassifier) AddNumerosity(delta int) int {
	c.numerosity += delta
	return c.numerosity
}

func (c *stubClassifier) Prediction() float64     { return c.prediction }
func (c *stubClassifier) SetPrediction(v float64) { c.prediction = v }
func (c *stubClassifier) Error() float64          { return c.err }
func (c *stubClassifier) SetError(v float64)      { c.err = v }
func (c *stubClassifier) Fitness() float64        { return c.fitness }
func (c *stubClassifier) SetFitness(v float64)    { c.fitness = v }
func (c *stubClassifier) Accuracy() float64       { return c.accuracy }
func (c *stubClassifier) SetAccuracy(v float64)   { c.accuracy = v }
func (c *stubClassifier) GATimestamp() int        { return c.timestamp }
func (c *stubClassifier) SetGATimestamp(i int)    { c.timestamp = i }
func (c *stubClassifier) IsPossibleSubsumer() bool {
	return c.subsumer
}

func (c *stubClassifier) Match(state model.State) bool {
	for i, ch := range c.cond {
		if ch == '#' {
			continue
		}
		if i >= len(state) || state[i].Text != string(ch) {
			return false
		}
	}
	return true
}

func (c *stubClassifier) Equals(other model.Classifier) bool {
	o, ok := other.(*stubClassifier)
	return ok && o.cond == c.cond && o.phenotype == c.phenotype
}

func (c *stubClassifier) IsMoreGeneral(other model.Classifier) bool {
	o, ok := other.(*stubClassifier)
	if !ok || len(c.SpecifiedAttributes()) >= len(o.SpecifiedAttributes()) {
		return false
	}
	for _, i := range c.SpecifiedAttributes() {
		if o.cond[i] != c.cond[i] {
			return false
		}
	}
	return true
}

func (c *stubClassifier) Subsumes(other model.Classifier) bool {
	return c.phenotype == other.Phenotype() && c.subsumer && c.IsMoreGeneral(other)
}

func (c *stubClassifier) DeletionVote(float64) float64 { return c.vote }

func (c *stubClassifier) UpdateActionExp()        { c.experience++ }
func (c *stubClassifier) UpdateActionSetSize(int) {}
func (c *stubClassifier) UpdateGACount()          { c.gaCount++ }

func (c *stubClassifier) UpdateParameters(reward float64) {
	c.prediction += 0.2 * (reward - c.prediction)
	c.accuracy = 1
}

func (c *stubClassifier) UpdateFitness() {
	c.fitness += 0.2 * (c.accuracy - c.fitness)
}

func (c *stubClassifier) Offspring(iteration int) model.Classifier {
	child := *c
	child.numerosity = 1
	child.experience = 0
	child.timestamp = iteration
	child.gaCount = 0
	return &child
}

func (c *stubClassifier) UniformCrossover(_ *rand.Rand, other model.Classifier) bool {
	o := other.(*stubClassifier)
	if o.cond == c.cond {
		return false
	}
	c.cond, o.cond = o.cond, c.cond
	return true
}

func (c *stubClassifier) TwoPointCrossover(rng *rand.Rand, other model.Classifier) bool {
	return c.UniformCrossover(rng, other)
}

// Mutate specifies the first general attribute with the state's value.
func (c *stubClassifier) Mutate(_ *rand.Rand, state model.State) bool {
	if c.noMutation {
		return false
	}
	i := strings.IndexByte(c.cond, '#')
	if i < 0 || i >= len(state) {
		return false
	}
	c.cond = c.cond[:i] + state[i].Text + c.cond[i+1:]
	return true
}

func (c *stubClassifier) Row() []string {
	row := strings.Split(c.cond, "")
	return append(row,
		c.phenotype.Label,
		strconv.FormatFloat(c.prediction, 'g', -1, 64),
		strconv.FormatFloat(c.err, 'g', -1, 64),
		strconv.Itoa(c.numerosity),
		strconv.FormatFloat(c.fitness, 'g', -1, 64),
	)
}

type stubFactory struct {
	numAttributes int
}

// Cover specifies every attribute with the state's value.
func (f stubFactory) Cover(_ *rand.Rand, iteration int, state model.State, phenotype model.Phenotype) model.Classifier {
	var b strings.Builder
	for _, feature := range state {
		b.WriteString(feature.Text)
	}
	c := newStub(b.String(), phenotype.Label)
	c.phenotype = phenotype
	c.timestamp = iteration
	return c
}

func (f stubFactory) Parse(row []string) (model.Classifier, error) {
	n := f.numAttributes
	if len(row) < n+5 {
		return nil, fmt.Errorf("short row: %v", row)
	}
	c := newStub(strings.Join(row[:n], ""), row[n])
	var err error
	if c.numerosity, err = strconv.Atoi(row[n+3]); err != nil {
		return nil, err
	}
	if c.fitness, err = strconv.ParseFloat(row[n+4], 64); err != nil {
		return nil, err
	}
	return c, nil
}

func (f stubFactory) Header() []string {
	header := make([]string, 0, f.numAttributes+5)
	for i := 0; i < f.numAttributes; i++ {
		header = append(header, fmt.Sprintf("A%d", i))
	}
	return append(header, "Phenotype", "Prediction", "Error", "Numerosity", "Fitness")
}

func binarySpace(numAttributes int, labels ...string) model.ProblemSpace {
	attrs := make([]model.Attribute, numAttributes)
	for i := range attrs {
		attrs[i] = model.Attribute{Name: fmt.Sprintf("A%d", i)}
	}
	return model.ProblemSpace{
		Attributes: attrs,
		Actions:    model.ActionSpace{Discrete: true, Labels: labels},
	}
}

func defaultTestParams() Params {
	return Params{
		N:                100,
		ThetaMNA:         2,
		ThetaGA:          25,
		Chi:              0.8,
		FitnessReduction: 0.1,
		Selection:        SelectionTournament,
		ThetaSel:         0.5,
		Crossover:        CrossoverUniform,
		DoSubsumption:    true,
	}
}

func newTestSet(t *testing.T, params Params, space model.ProblemSpace, seed int64) *ClassifierSet {
	t.Helper()
	s, err := New(params, space, stubFactory{numAttributes: space.NumAttributes()}, rand.New(rand.NewSource(seed)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("new classifier set: %v", err)
	}
	return s
}

// seed installs rules directly, counting their full numerosity.
func seed(s *ClassifierSet, rules ...model.Classifier) {
	for _, cl := range rules {
		s.pop = append(s.pop, cl)
		s.microSize += cl.Numerosity()
	}
}

func stateOf(bits string) model.State {
	state := make(model.State, len(bits))
	for i, ch := range bits {
		state[i] = model.Feature{Text: string(ch)}
	}
	return state
}

func assertMicroInvariant(t *testing.T, s *ClassifierSet) {
	t.Helper()
	if got, want := s.MicroSize(), s.NumerositySum(); got != want {
		t.Fatalf("micro size invariant broken: micro=%d numerosity sum=%d", got, want)
	}
}
