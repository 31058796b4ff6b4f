package learn

import (
	"math/rand"

	"xcs/internal/env"
	"xcs/internal/population"
)

// Evaluation scores the population on a dataset without learning.
type Evaluation struct {
	Instances int     `json:"instances"`
	Correct   int     `json:"correct"`
	Covered   int     `json:"covered"`
	Accuracy  float64 `json:"accuracy"`
	Coverage  float64 `json:"coverage"`
}

// Evaluate predicts every instance of ds with the exploit policy. Instances
// no rule matches count as uncovered and wrong. The population's match and
// action sets are left cleared.
func Evaluate(pop *population.ClassifierSet, ds *env.Dataset, rng *rand.Rand) Evaluation {
	var e Evaluation
	if ds == nil {
		return e
	}
	for _, inst := range ds.Instances {
		e.Instances++
		pop.MakeEvalMatchSet(inst.State)
		pa := buildPredictionArray(pop)
		pop.ClearSets()
		if pa.empty() {
			continue
		}
		e.Covered++
		if correct(pa.best(rng), inst.Action) {
			e.Correct++
		}
	}
	if e.Instances > 0 {
		e.Accuracy = float64(e.Correct) / float64(e.Instances)
		e.Coverage = float64(e.Covered) / float64(e.Instances)
	}
	return e
}

// accuracyWindow keeps the outcomes of the last size exploit steps.
type accuracyWindow struct {
	outcomes []bool
	next     int
	filled   int
	hits     int
}

func newAccuracyWindow(size int) *accuracyWindow {
	if size < 1 {
		size = 1
	}
	return &accuracyWindow{outcomes: make([]bool, size)}
}

func (w *accuracyWindow) add(hit bool) {
	if w.filled == len(w.outcomes) {
		if w.outcomes[w.next] {
			w.hits--
		}
	} else {
		w.filled++
	}
	w.outcomes[w.next] = hit
	if hit {
		w.hits++
	}
	w.next = (w.next + 1) % len(w.outcomes)
}

func (w *accuracyWindow) accuracy() float64 {
	if w.filled == 0 {
		return 0
	}
	return float64(w.hits) / float64(w.filled)
}
