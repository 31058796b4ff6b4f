package population

import (
	"math/rand"
	"slices"
	"strings"
	"testing"

	"xcs/internal/model"
)

func TestMakeMatchSetCoversDistinctPhenotypes(t *testing.T) {
	s := newTestSet(t, defaultTestParams(), binarySpace(3, "0", "1", "2"), 3)
	state := stateOf("101")

	s.MakeMatchSet(state, 7)

	if s.Size() != 2 || s.MicroSize() != 2 {
		t.Fatalf("expected two covering rules, size=%d micro=%d", s.Size(), s.MicroSize())
	}
	if len(s.MatchSet()) != 0 {
		t.Fatalf("match set should be reset after covering, got %v", s.MatchSet())
	}
	phenotypes := map[model.Phenotype]bool{}
	for _, cl := range s.Classifiers() {
		if !cl.Match(state) {
			t.Fatalf("covering rule %+v does not match the state", cl)
		}
		if cl.GATimestamp() != 7 {
			t.Fatalf("covering rule timestamp = %d, want 7", cl.GATimestamp())
		}
		phenotypes[cl.Phenotype()] = true
	}
	if len(phenotypes) != 2 {
		t.Fatalf("expected two distinct phenotypes, got %v", phenotypes)
	}
	assertMicroInvariant(t, s)
}

func TestMakeMatchSetIsIdempotentWithoutCovering(t *testing.T) {
	s := newTestSet(t, defaultTestParams(), binarySpace(2, "0", "1"), 1)
	seed(s, newStub("1#", "0"), newStub("#1", "1"), newStub("0#", "1"))
	state := stateOf("11")

	s.MakeMatchSet(state, 1)
	first := s.MatchSet()
	s.ClearSets()
	s.MakeMatchSet(state, 2)

	if !slices.Equal(first, []int{0, 1}) || !slices.Equal(s.MatchSet(), first) {
		t.Fatalf("expected match set [0 1] twice, got %v then %v", first, s.MatchSet())
	}
	if s.Size() != 3 {
		t.Fatalf("no covering expected, size=%d", s.Size())
	}
}

func TestMakeMatchSetCapsThresholdAtActionCount(t *testing.T) {
	params := defaultTestParams()
	params.ThetaMNA = 5
	s := newTestSet(t, params, binarySpace(2, "0"), 1)

	s.MakeMatchSet(stateOf("01"), 1)
	if s.Size() != 1 {
		t.Fatalf("expected a single covering rule, got %d", s.Size())
	}
}

func TestMakeMatchSetCoveringTriggersDeletion(t *testing.T) {
	params := defaultTestParams()
	params.N = 1
	s := newTestSet(t, params, binarySpace(2, "0", "1"), 1)

	s.MakeMatchSet(stateOf("01"), 1)
	if s.MicroSize() != 1 {
		t.Fatalf("expected deletion back to N=1, micro=%d", s.MicroSize())
	}
	assertMicroInvariant(t, s)
}

func TestMakeMatchSetContinuousCovering(t *testing.T) {
	space := binarySpace(1)
	space.Actions = model.ActionSpace{Min: 0, Max: 10}
	params := defaultTestParams()
	params.ThetaMNA = 1
	s := newTestSet(t, params, space, 5)

	s.MakeMatchSet(stateOf("1"), 1)
	if s.Size() != 1 {
		t.Fatalf("expected one covering rule, got %d", s.Size())
	}
	p := s.At(0).Phenotype()
	if !p.Continuous() || p.Lo < 0 || p.Hi > 10 || p.Lo > p.Hi {
		t.Fatalf("unexpected covered interval %+v", p)
	}
}

func TestMakeActionSet(t *testing.T) {
	s := newTestSet(t, defaultTestParams(), binarySpace(2, "0", "1"), 1)
	seed(s, newStub("1#", "0"), newStub("#1", "1"), newStub("11", "0"))
	s.MakeMatchSet(stateOf("11"), 1)
	s.MakeActionSet(model.DiscreteAction("0"))

	if !slices.Equal(s.ActionSet(), []int{0, 2}) {
		t.Fatalf("unexpected action set %v", s.ActionSet())
	}
}

func TestMakeEvalMatchSetNeverCovers(t *testing.T) {
	s := newTestSet(t, defaultTestParams(), binarySpace(2, "0", "1"), 1)
	s.MakeEvalMatchSet(stateOf("11"))
	if s.Size() != 0 || len(s.MatchSet()) != 0 {
		t.Fatalf("evaluation matching must not cover, size=%d", s.Size())
	}
}

func TestParallelMatchingAgreesWithSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	symbols := []string{"0", "1", "#"}
	rules := make([]model.Classifier, 500)
	for i := range rules {
		var b strings.Builder
		for j := 0; j < 6; j++ {
			b.WriteString(symbols[rng.Intn(len(symbols))])
		}
		rules[i] = newStub(b.String(), "0")
	}

	sequential := newTestSet(t, defaultTestParams(), binarySpace(6, "0", "1"), 1)
	params := defaultTestParams()
	params.Workers = 4
	parallel := newTestSet(t, params, binarySpace(6, "0", "1"), 1)
	seed(sequential, rules...)
	seed(parallel, rules...)

	for trial := 0; trial < 20; trial++ {
		var b strings.Builder
		for j := 0; j < 6; j++ {
			b.WriteString(symbols[rng.Intn(2)])
		}
		state := stateOf(b.String())
		sequential.ClearSets()
		parallel.ClearSets()
		sequential.MakeEvalMatchSet(state)
		parallel.MakeEvalMatchSet(state)
		if !slices.Equal(sequential.MatchSet(), parallel.MatchSet()) {
			t.Fatalf("state %s: sequential %v != parallel %v", b.String(), sequential.MatchSet(), parallel.MatchSet())
		}
	}
}

type panickyMatcher struct {
	*stubClassifier
}

func (panickyMatcher) Match(model.State) bool { panic("corrupt condition") }

func TestParallelMatchSurfacesWorkerPanic(t *testing.T) {
	params := defaultTestParams()
	params.Workers = 4
	s := newTestSet(t, params, binarySpace(3, "0", "1"), 1)
	rules := make([]model.Classifier, 2*minParallelMatch)
	for i := range rules {
		rules[i] = newStub("1##", "0")
	}
	rules[len(rules)-1] = panickyMatcher{newStub("1##", "0")}
	seed(s, rules...)

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		s.MakeEvalMatchSet(stateOf("111"))
	}()
	err, ok := recovered.(error)
	if !ok || !strings.Contains(err.Error(), "corrupt condition") {
		t.Fatalf("expected the worker panic on the caller, got %v", recovered)
	}
}
