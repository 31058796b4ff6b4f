package classifier

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"xcs/internal/model"
)

const generalSymbol = "#"

// statColumns follow the attribute columns in a rule-population row. The
// numerosity column therefore sits at NumAttributes()+3.
var statColumns = []string{
	"Phenotype",
	"Prediction",
	"Error",
	"Numerosity",
	"Fitness",
	"Accuracy",
	"ActionExp",
	"ActionSetSize",
	"GATimestamp",
	"InitTimestamp",
	"GACount",
	"Specificity",
}

// Factory creates rules sharing one Params value.
type Factory struct {
	params *Params
}

var _ model.ClassifierFactory = (*Factory)(nil)

func NewFactory(params Params) (*Factory, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("classifier params: %w", err)
	}
	return &Factory{params: &params}, nil
}

func (f *Factory) Params() Params {
	return *f.params
}

// Cover builds a rule matching state: each non-missing attribute is specified
// with probability PSpec.
func (f *Factory) Cover(rng *rand.Rand, iteration int, state model.State, phenotype model.Phenotype) model.Classifier {
	r := newRule(f.params, iteration, phenotype)
	for att := 0; att < f.params.Space.NumAttributes() && att < len(state); att++ {
		if state[att].Missing {
			continue
		}
		if rng.Float64() >= f.params.PSpec {
			continue
		}
		r.specify(att, r.predicateFor(rng, att, state[att]))
	}
	return r
}

// Build creates a rule from explicit attribute tests. Keys index attributes.
func (f *Factory) Build(iteration int, tests map[int]Predicate, phenotype model.Phenotype) *Rule {
	r := newRule(f.params, iteration, phenotype)
	for att, p := range tests {
		r.specify(att, p)
	}
	return r
}

func (f *Factory) Header() []string {
	header := make([]string, 0, f.params.Space.NumAttributes()+len(statColumns))
	for _, attr := range f.params.Space.Attributes {
		header = append(header, attr.Name)
	}
	return append(header, statColumns...)
}

func (r *Rule) Row() []string {
	n := r.params.Space.NumAttributes()
	row := make([]string, 0, n+len(statColumns))
	for att := 0; att < n; att++ {
		p, ok := r.Condition(att)
		switch {
		case !ok:
			row = append(row, generalSymbol)
		case r.params.Space.Attributes[att].Continuous:
			row = append(row, formatFloat(p.Lo)+";"+formatFloat(p.Hi))
		default:
			row = append(row, p.Text)
		}
	}
	return append(row,
		r.phenotype.String(),
		formatFloat(r.prediction),
		formatFloat(r.err),
		strconv.Itoa(r.numerosity),
		formatFloat(r.fitness),
		formatFloat(r.accuracy),
		strconv.Itoa(r.experience),
		formatFloat(r.actionSetSize),
		strconv.Itoa(r.gaTimestamp),
		strconv.Itoa(r.initTimestamp),
		strconv.Itoa(r.gaCount),
		formatFloat(float64(len(r.specified))/float64(n)),
	)
}

// Parse rebuilds a rule from a Row.
func (f *Factory) Parse(row []string) (model.Classifier, error) {
	n := f.params.Space.NumAttributes()
	if len(row) < n+len(statColumns)-1 {
		return nil, fmt.Errorf("rule row has %d columns, want %d", len(row), n+len(statColumns))
	}

	phenotype, err := model.ParsePhenotype(row[n], !f.params.Space.Actions.Discrete)
	if err != nil {
		return nil, err
	}
	r := newRule(f.params, 0, phenotype)
	for att := 0; att < n; att++ {
		cell := strings.TrimSpace(row[att])
		if cell == generalSymbol || cell == "" {
			continue
		}
		p, err := parsePredicate(cell, f.params.Space.Attributes[att].Continuous)
		if err != nil {
			return nil, fmt.Errorf("attribute %d: %w", att, err)
		}
		r.specify(att, p)
	}

	p := rowParser{row: row, base: n}
	r.prediction = p.number(1)
	r.err = p.number(2)
	r.numerosity = p.integer(3)
	r.fitness = p.number(4)
	r.accuracy = p.number(5)
	r.experience = p.integer(6)
	r.actionSetSize = p.number(7)
	r.gaTimestamp = p.integer(8)
	r.initTimestamp = p.integer(9)
	r.gaCount = p.integer(10)
	if p.err != nil {
		return nil, p.err
	}
	if r.numerosity < 1 {
		return nil, fmt.Errorf("rule numerosity must be >= 1, got %d", r.numerosity)
	}
	return r, nil
}

type rowParser struct {
	row  []string
	base int
	err  error
}

func (p *rowParser) cell(offset int) string {
	if p.base+offset >= len(p.row) {
		return ""
	}
	return strings.TrimSpace(p.row[p.base+offset])
}

func (p *rowParser) number(offset int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.cell(offset), 64)
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", statColumns[offset], err)
	}
	return v
}

func (p *rowParser) integer(offset int) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.cell(offset))
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", statColumns[offset], err)
	}
	return v
}

func parsePredicate(cell string, continuous bool) (Predicate, error) {
	if !continuous {
		return Predicate{Text: cell}, nil
	}
	lo, hi, ok := strings.Cut(cell, ";")
	if !ok {
		return Predicate{}, fmt.Errorf("interval %q: expected lo;hi", cell)
	}
	l, err := strconv.ParseFloat(lo, 64)
	if err != nil {
		return Predicate{}, err
	}
	h, err := strconv.ParseFloat(hi, 64)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Lo: l, Hi: h}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
