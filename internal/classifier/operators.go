package classifier

import (
	"math/rand"
	"sort"

	"xcs/internal/model"
)

// UniformCrossover swaps each attribute test specified in either parent with
// probability one half. It reports whether either rule changed.
func (r *Rule) UniformCrossover(rng *rand.Rand, other model.Classifier) bool {
	o, ok := other.(*Rule)
	if !ok || o == nil {
		return false
	}
	changed := false
	for _, att := range unionSpecified(r, o) {
		if rng.Float64() >= 0.5 {
			continue
		}
		if swapAttribute(r, o, att) {
			changed = true
		}
	}
	return changed
}

// TwoPointCrossover swaps every attribute test between two random cut points.
func (r *Rule) TwoPointCrossover(rng *rand.Rand, other model.Classifier) bool {
	o, ok := other.(*Rule)
	if !ok || o == nil {
		return false
	}
	n := r.params.Space.NumAttributes()
	lo := rng.Intn(n + 1)
	hi := rng.Intn(n + 1)
	if lo > hi {
		lo, hi = hi, lo
	}
	changed := false
	for att := lo; att < hi; att++ {
		if swapAttribute(r, o, att) {
			changed = true
		}
	}
	return changed
}

// Mutate flips the specification of each attribute with probability Mu:
// specified tests are dropped, unspecified ones take the state's value. The
// phenotype mutates with the same probability.
func (r *Rule) Mutate(rng *rand.Rand, state model.State) bool {
	changed := false
	for att := 0; att < r.params.Space.NumAttributes(); att++ {
		if rng.Float64() >= r.params.Mu {
			continue
		}
		if r.generalize(att) {
			changed = true
			continue
		}
		if att >= len(state) || state[att].Missing {
			continue
		}
		r.specify(att, r.predicateFor(rng, att, state[att]))
		changed = true
	}

	if rng.Float64() < r.params.Mu && r.mutatePhenotype(rng) {
		changed = true
	}
	return changed
}

func (r *Rule) mutatePhenotype(rng *rand.Rand) bool {
	actions := r.params.Space.Actions
	if actions.Discrete {
		if len(actions.Labels) < 2 {
			return false
		}
		choices := make([]string, 0, len(actions.Labels)-1)
		for _, label := range actions.Labels {
			if label != r.phenotype.Label {
				choices = append(choices, label)
			}
		}
		r.phenotype = model.DiscretePhenotype(choices[rng.Intn(len(choices))])
		return true
	}

	span := actions.Max - actions.Min
	shift := (rng.Float64()*2 - 1) * span * 0.1
	lo, hi := r.phenotype.Lo, r.phenotype.Hi
	if rng.Intn(2) == 0 {
		lo += shift
	} else {
		hi += shift
	}
	if lo < actions.Min {
		lo = actions.Min
	}
	if hi > actions.Max {
		hi = actions.Max
	}
	next := model.ContinuousPhenotype(lo, hi)
	if next == r.phenotype {
		return false
	}
	r.phenotype = next
	return true
}

// predicateFor builds a test matching f: its value for discrete attributes,
// a random interval around it for continuous ones.
func (r *Rule) predicateFor(rng *rand.Rand, att int, f model.Feature) Predicate {
	attr := r.params.Space.Attributes[att]
	if !attr.Continuous {
		return Predicate{Text: f.Text}
	}
	radius := rng.Float64() * attr.Range() / 2
	return Predicate{Lo: f.Num - radius, Hi: f.Num + radius}
}

func swapAttribute(a, b *Rule, att int) bool {
	pa, okA := a.Condition(att)
	pb, okB := b.Condition(att)
	if okA == okB && pa == pb {
		return false
	}
	if okA {
		b.specify(att, pa)
	} else {
		b.generalize(att)
	}
	if okB {
		a.specify(att, pb)
	} else {
		a.generalize(att)
	}
	return true
}

func unionSpecified(a, b *Rule) []int {
	seen := make(map[int]struct{}, len(a.specified)+len(b.specified))
	out := make([]int, 0, len(a.specified)+len(b.specified))
	for _, list := range [][]int{a.specified, b.specified} {
		for _, att := range list {
			if _, ok := seen[att]; ok {
				continue
			}
			seen[att] = struct{}{}
			out = append(out, att)
		}
	}
	sort.Ints(out)
	return out
}
