package population

// accuracyScale keeps relative accuracies in a convenient numeric range.
const accuracyScale = 1000.0

// UpdateSets applies the reward to every action-set rule. Relative accuracy
// needs the whole niche's accuracy sum, so it is rescaled in a second pass.
func (s *ClassifierSet) UpdateSets(reward float64) {
	numerositySum := 0
	for _, ref := range s.actionSet {
		numerositySum += s.pop[ref].Numerosity()
	}

	accuracySum := 0.0
	for _, ref := range s.actionSet {
		cl := s.pop[ref]
		cl.UpdateActionExp()
		cl.UpdateActionSetSize(numerositySum)
		cl.UpdateParameters(reward)
		accuracySum += cl.Accuracy() * float64(cl.Numerosity())
	}

	for _, ref := range s.actionSet {
		cl := s.pop[ref]
		if accuracySum > 0 {
			cl.SetAccuracy(accuracyScale * cl.Accuracy() * float64(cl.Numerosity()) / accuracySum)
		}
		cl.UpdateFitness()
	}
}
