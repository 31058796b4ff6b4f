package model

import (
	"math/rand"
	"strings"
	"testing"
)

func TestPhenotypeAdvocates(t *testing.T) {
	if !DiscretePhenotype("1").Advocates(DiscreteAction("1")) {
		t.Fatal("equal labels should advocate")
	}
	if DiscretePhenotype("1").Advocates(DiscreteAction("0")) {
		t.Fatal("different labels should not advocate")
	}
	p := ContinuousPhenotype(2, 4)
	for _, v := range []float64{2, 3, 4} {
		if !p.Advocates(ContinuousAction(v)) {
			t.Fatalf("interval [2,4] should advocate %v", v)
		}
	}
	if p.Advocates(ContinuousAction(4.01)) {
		t.Fatal("interval [2,4] should not advocate 4.01")
	}
}

func TestPhenotypeContains(t *testing.T) {
	outer := ContinuousPhenotype(0, 10)
	if !outer.Contains(ContinuousPhenotype(2, 3)) || outer.Contains(ContinuousPhenotype(-1, 3)) {
		t.Fatal("unexpected interval containment")
	}
	if outer.Contains(DiscretePhenotype("1")) {
		t.Fatal("kinds never contain each other")
	}
	if !DiscretePhenotype("a").Contains(DiscretePhenotype("a")) {
		t.Fatal("a label contains itself")
	}
}

func TestContinuousPhenotypeOrdersBounds(t *testing.T) {
	p := ContinuousPhenotype(5, 1)
	if p.Lo != 1 || p.Hi != 5 || p.Width() != 4 {
		t.Fatalf("unexpected interval %+v", p)
	}
}

func TestParsePhenotypeRoundTrip(t *testing.T) {
	for _, p := range []Phenotype{DiscretePhenotype("yes"), ContinuousPhenotype(0.25, 7.5)} {
		got, err := ParsePhenotype(p.String(), p.Continuous())
		if err != nil {
			t.Fatalf("parse %q: %v", p.String(), err)
		}
		if got != p {
			t.Fatalf("round trip %q gave %+v", p.String(), got)
		}
	}
	if _, err := ParsePhenotype("3", true); err == nil {
		t.Fatal("expected error for interval without separator")
	}
	if _, err := ParsePhenotype(" ", false); err == nil {
		t.Fatal("expected error for empty label")
	}
}

func TestRandomIntervalStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		p := RandomInterval(rng, -2, 3)
		if p.Lo < -2 || p.Hi > 3 || p.Lo > p.Hi {
			t.Fatalf("interval %+v escapes [-2, 3]", p)
		}
	}
}

func TestPopTrackString(t *testing.T) {
	track := PopTrack{Iteration: 200, Epoch: 2, MacroSize: 10, MicroSize: 40, Accuracy: 0.5}
	want := "Epoch: 2\t Iteration: 200\t MacroPop: 10\t MicroPop: 40\t AccEstimate: 0.5000\t AveGen: NA"
	if got := track.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	track.GeneralityKnown = true
	track.MeanGenerality = 0.25
	track.Continuous = true
	track.PhenotypeRange = 0.1
	if got := track.String(); !strings.HasSuffix(got, "AveGen: 0.2500\t PhenRange: 0.1000") {
		t.Fatalf("unexpected continuous progress line %q", got)
	}
}
