package population

// maxDeletionMisses bounds consecutive roulette walks that select nothing
// before Deletion gives up on restoring the size bound for this call.
const maxDeletionMisses = 16

// Deletion removes micro-classifiers until the population fits in N. After
// maxDeletionMisses consecutive empty roulette walks it logs and returns, so
// MicroSize can stay above N until a later call succeeds.
func (s *ClassifierSet) Deletion() {
	misses := 0
	for s.microSize > s.params.N {
		if _, ok := s.DeleteFromPopulation(); ok {
			misses = 0
			continue
		}
		misses++
		if misses >= maxDeletionMisses {
			s.logger.Error("deletion abandoned: roulette keeps selecting no classifier",
				"attempts", misses,
				"micro_size", s.microSize,
				"capacity", s.params.N,
			)
			return
		}
	}
}

// DeleteFromPopulation removes one micro-classifier chosen by a roulette
// wheel over deletion votes. It returns the index the victim held before
// the call; ok is false when the walk selected nothing.
func (s *ClassifierSet) DeleteFromPopulation() (ref int, ok bool) {
	if len(s.pop) == 0 || s.microSize <= 0 {
		return -1, false
	}
	meanFitness := s.popFitnessSum() / float64(s.microSize)

	votes := make([]float64, len(s.pop))
	total := 0.0
	for i, cl := range s.pop {
		votes[i] = cl.DeletionVote(meanFitness)
		total += votes[i]
	}

	choice := total * s.rng.Float64()
	sum := 0.0
	for i, vote := range votes {
		sum += vote
		if sum > choice {
			s.decrement(i)
			deletionsTotal.Inc()
			return i, true
		}
	}

	deletionAnomalies.Inc()
	s.logger.Warn("no eligible classifier found for deletion",
		"vote_total", total,
		"choice_point", choice,
		"macro_size", len(s.pop),
		"micro_size", s.microSize,
	)
	return -1, false
}

// decrement takes one micro-classifier from the rule at ref and removes the
// rule once its numerosity is exhausted.
func (s *ClassifierSet) decrement(ref int) {
	remaining := s.pop[ref].AddNumerosity(-1)
	s.microSize--
	if remaining < 1 {
		s.removeMacroClassifier(ref)
	}
}
