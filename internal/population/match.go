package population

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"xcs/internal/model"
)

// minParallelMatch is the population size below which fan-out costs more
// than it saves.
const minParallelMatch = 64

// MakeMatchSet collects every rule matching state and covers until the match
// set advocates ThetaMNA distinct phenotypes. When covering reaches the
// threshold the population is trimmed back to N and the match set is left
// empty.
func (s *ClassifierSet) MakeMatchSet(state model.State, iteration int) {
	start := time.Now()
	matched := make(map[model.Phenotype]struct{})
	for _, ref := range s.matchingRefs(state) {
		s.matchSet = append(s.matchSet, ref)
		matched[s.pop[ref].Phenotype()] = struct{}{}
	}
	matchDuration.Observe(time.Since(start).Seconds())

	threshold := s.coverThreshold()
	if len(matched) >= threshold {
		return
	}

	for {
		phenotype := s.coverPhenotype(matched)
		cl := s.factory.Cover(s.rng, iteration, state, phenotype)
		s.AddClassifierToPopulation(cl, true)
		s.matchSet = append(s.matchSet, len(s.pop)-1)
		matched[phenotype] = struct{}{}
		coveringTotal.Inc()

		if len(matched) >= threshold {
			s.Deletion()
			s.logger.Debug("covering complete, match set reset",
				"iteration", iteration,
				"covered_phenotypes", len(matched),
				"macro_size", len(s.pop),
				"micro_size", s.microSize,
			)
			s.matchSet = s.matchSet[:0]
			return
		}
	}
}

// MakeEvalMatchSet builds the match set without covering or deletion.
func (s *ClassifierSet) MakeEvalMatchSet(state model.State) {
	s.matchSet = append(s.matchSet, s.matchingRefs(state)...)
}

// MakeActionSet keeps the match-set members advocating action.
func (s *ClassifierSet) MakeActionSet(action model.Action) {
	for _, ref := range s.matchSet {
		if s.pop[ref].Phenotype().Advocates(action) {
			s.actionSet = append(s.actionSet, ref)
		}
	}
}

// matchingRefs returns, in ascending order, the indices of rules matching
// state. Workers only read the population and each writes its own hit slots.
// A panic inside a worker's Match is re-raised on the calling goroutine.
func (s *ClassifierSet) matchingRefs(state model.State) []int {
	n := len(s.pop)
	hits := make([]bool, n)

	workers := s.params.Workers
	if workers <= 1 || n < minParallelMatch {
		for i, cl := range s.pop {
			hits[i] = cl.Match(state)
		}
	} else {
		pop := s.pop
		chunk := (n + workers - 1) / workers
		var g errgroup.Group
		g.SetLimit(workers)
		for lo := 0; lo < n; lo += chunk {
			lo, hi := lo, min(lo+chunk, n)
			g.Go(func() (err error) {
				i := lo
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("match rule %d: %v", i, r)
					}
				}()
				for ; i < hi; i++ {
					hits[i] = pop[i].Match(state)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			panic(err)
		}
	}

	refs := make([]int, 0, n)
	for i, hit := range hits {
		if hit {
			refs = append(refs, i)
		}
	}
	return refs
}

// coverThreshold caps ThetaMNA at the number of discrete actions so covering
// always terminates.
func (s *ClassifierSet) coverThreshold() int {
	actions := s.space.Actions
	if actions.Discrete && len(actions.Labels) < s.params.ThetaMNA {
		return len(actions.Labels)
	}
	return s.params.ThetaMNA
}

// coverPhenotype picks a discrete label not yet advocated, uniformly, or a
// random interval for continuous actions.
func (s *ClassifierSet) coverPhenotype(matched map[model.Phenotype]struct{}) model.Phenotype {
	actions := s.space.Actions
	if !actions.Discrete {
		return model.RandomInterval(s.rng, actions.Min, actions.Max)
	}
	free := make([]string, 0, len(actions.Labels))
	for _, label := range actions.Labels {
		if _, ok := matched[model.DiscretePhenotype(label)]; !ok {
			free = append(free, label)
		}
	}
	return model.DiscretePhenotype(free[s.rng.Intn(len(free))])
}
