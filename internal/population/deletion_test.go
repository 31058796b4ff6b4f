package population

import (
	"math"
	"testing"
)

func TestDeleteFromPopulationFollowsVotes(t *testing.T) {
	params := defaultTestParams()
	params.N = 1
	s := newTestSet(t, params, binarySpace(2, "0", "1"), 17)
	for i, vote := range []float64{1, 2, 3} {
		cl := newStub([]string{"0#", "1#", "##"}[i], "0")
		cl.vote = vote
		cl.numerosity = 1_000_000
		seed(s, cl)
	}

	const trials = 60000
	counts := make([]int, 3)
	for i := 0; i < trials; i++ {
		ref, ok := s.DeleteFromPopulation()
		if !ok {
			t.Fatalf("trial %d selected nothing", i)
		}
		counts[ref]++
	}

	for i, want := range []float64{1.0 / 6, 2.0 / 6, 3.0 / 6} {
		got := float64(counts[i]) / trials
		if math.Abs(got-want) > 0.01 {
			t.Fatalf("rule %d deleted with frequency %.4f, want %.4f", i, got, want)
		}
	}
	assertMicroInvariant(t, s)
}

func TestDeletionRestoresCapacity(t *testing.T) {
	params := defaultTestParams()
	params.N = 3
	s := newTestSet(t, params, binarySpace(2, "0", "1"), 2)
	big := newStub("1#", "0")
	big.numerosity = 4
	seed(s, big, newStub("#1", "1"), newStub("11", "0"))
	s.matchSet = []int{0, 1, 2}
	s.actionSet = []int{1, 2}

	s.Deletion()

	if s.MicroSize() != 3 {
		t.Fatalf("expected micro size 3 after deletion, got %d", s.MicroSize())
	}
	assertMicroInvariant(t, s)
	for _, ref := range append(s.MatchSet(), s.ActionSet()...) {
		if ref < 0 || ref >= s.Size() {
			t.Fatalf("set reference %d out of range for size %d", ref, s.Size())
		}
	}
}

func TestDeletionWithZeroVotesLeavesPopulationIntact(t *testing.T) {
	params := defaultTestParams()
	params.N = 1
	s := newTestSet(t, params, binarySpace(2, "0", "1"), 2)
	a, b := newStub("1#", "0"), newStub("#1", "1")
	a.vote, b.vote = 0, 0
	seed(s, a, b)

	if _, ok := s.DeleteFromPopulation(); ok {
		t.Fatal("expected the roulette to select nothing")
	}
	s.Deletion()

	if s.Size() != 2 || s.MicroSize() != 2 {
		t.Fatalf("population changed: size=%d micro=%d", s.Size(), s.MicroSize())
	}
	assertMicroInvariant(t, s)
}

func TestDeletionRemovesExhaustedRule(t *testing.T) {
	params := defaultTestParams()
	params.N = 1
	s := newTestSet(t, params, binarySpace(2, "0", "1"), 2)
	a, b := newStub("1#", "0"), newStub("#1", "1")
	a.vote = 0
	seed(s, a, b)
	s.matchSet = []int{0, 1}

	ref, ok := s.DeleteFromPopulation()
	if !ok || ref != 1 {
		t.Fatalf("expected rule 1 deleted, got ref=%d ok=%v", ref, ok)
	}
	if s.Size() != 1 || s.At(0) != a {
		t.Fatalf("expected only rule a to remain")
	}
	if len(s.MatchSet()) != 1 || s.MatchSet()[0] != 0 {
		t.Fatalf("unexpected match set %v", s.MatchSet())
	}
}
