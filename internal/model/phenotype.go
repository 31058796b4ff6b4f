package model

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

type PhenotypeKind uint8

const (
	DiscreteKind PhenotypeKind = iota
	ContinuousKind
)

// Phenotype is the action side of a rule: a discrete label or a closed
// interval [Lo, Hi]. It is comparable and can be used as a map key.
type Phenotype struct {
	Kind  PhenotypeKind
	Label string
	Lo    float64
	Hi    float64
}

func DiscretePhenotype(label string) Phenotype {
	return Phenotype{Kind: DiscreteKind, Label: label}
}

func ContinuousPhenotype(lo, hi float64) Phenotype {
	if lo > hi {
		lo, hi = hi, lo
	}
	return Phenotype{Kind: ContinuousKind, Lo: lo, Hi: hi}
}

func (p Phenotype) Continuous() bool {
	return p.Kind == ContinuousKind
}

// Advocates reports whether a rule with this phenotype belongs in the action
// set of the selected action.
func (p Phenotype) Advocates(a Action) bool {
	if p.Kind == DiscreteKind {
		return p.Label == a.Label
	}
	return a.Value >= p.Lo && a.Value <= p.Hi
}

// Contains reports whether other is covered by p: equal labels, or an
// interval inside p's interval.
func (p Phenotype) Contains(other Phenotype) bool {
	if p.Kind != other.Kind {
		return false
	}
	if p.Kind == DiscreteKind {
		return p.Label == other.Label
	}
	return p.Lo <= other.Lo && p.Hi >= other.Hi
}

func (p Phenotype) Width() float64 {
	if p.Kind == DiscreteKind {
		return 0
	}
	return p.Hi - p.Lo
}

func (p Phenotype) String() string {
	if p.Kind == DiscreteKind {
		return p.Label
	}
	return strconv.FormatFloat(p.Lo, 'g', -1, 64) + ";" + strconv.FormatFloat(p.Hi, 'g', -1, 64)
}

// ParsePhenotype reads the String form back.
func ParsePhenotype(raw string, continuous bool) (Phenotype, error) {
	raw = strings.TrimSpace(raw)
	if !continuous {
		if raw == "" {
			return Phenotype{}, fmt.Errorf("empty phenotype")
		}
		return DiscretePhenotype(raw), nil
	}
	lo, hi, ok := strings.Cut(raw, ";")
	if !ok {
		return Phenotype{}, fmt.Errorf("continuous phenotype %q: expected lo;hi", raw)
	}
	l, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return Phenotype{}, fmt.Errorf("continuous phenotype low bound: %w", err)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return Phenotype{}, fmt.Errorf("continuous phenotype high bound: %w", err)
	}
	return ContinuousPhenotype(l, h), nil
}

// RandomInterval draws an interval inside [min, max] around a uniformly
// chosen point, with each half-width up to half the range.
func RandomInterval(rng *rand.Rand, min, max float64) Phenotype {
	span := max - min
	center := min + rng.Float64()*span
	lo := center - rng.Float64()*span/2
	hi := center + rng.Float64()*span/2
	if lo < min {
		lo = min
	}
	if hi > max {
		hi = max
	}
	return ContinuousPhenotype(lo, hi)
}
