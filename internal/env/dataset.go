package env

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"xcs/internal/model"
)

// Instance is one labelled row of a dataset.
type Instance struct {
	ID     string
	State  model.State
	Action model.Action
}

// Dataset is a loaded table with its inferred problem space.
type Dataset struct {
	Name      string
	Header    []string
	Space     model.ProblemSpace
	Instances []Instance
}

type LoadOptions struct {
	InstanceIDLabel string
	PhenotypeLabel  string
	MissingLabel    string
	// DiscreteAttributeLimit is the largest number of distinct values a
	// column may hold and still be treated as discrete.
	DiscreteAttributeLimit int
	// Comma overrides the separator; zero picks tab for .txt/.tsv files and
	// comma otherwise.
	Comma rune
}

// LoadFile reads a dataset from path.
func LoadFile(path string, opts LoadOptions) (Dataset, error) {
	if strings.TrimSpace(path) == "" {
		return Dataset{}, fmt.Errorf("dataset path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, err
	}
	defer f.Close()

	if opts.Comma == 0 {
		opts.Comma = separatorFor(path)
	}
	ds, err := Load(f, opts)
	if err != nil {
		return Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	ds.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ds, nil
}

func separatorFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".tsv":
		return '\t'
	default:
		return ','
	}
}

// Load reads a header line followed by one instance per row. Each column is
// inferred discrete when it holds at most DiscreteAttributeLimit distinct
// values, otherwise continuous; the phenotype column follows the same rule.
func Load(in io.Reader, opts LoadOptions) (Dataset, error) {
	if opts.PhenotypeLabel == "" {
		return Dataset{}, fmt.Errorf("phenotype label is required")
	}
	if opts.DiscreteAttributeLimit <= 0 {
		return Dataset{}, fmt.Errorf("discrete attribute limit must be > 0")
	}
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	header, err := reader.Read()
	if err == io.EOF {
		return Dataset{}, fmt.Errorf("dataset is empty")
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	phenotypeCol, idCol := -1, -1
	var attrCols []int
	for i, name := range header {
		switch {
		case name == opts.PhenotypeLabel:
			phenotypeCol = i
		case opts.InstanceIDLabel != "" && name == opts.InstanceIDLabel:
			idCol = i
		default:
			attrCols = append(attrCols, i)
		}
	}
	if phenotypeCol < 0 {
		return Dataset{}, fmt.Errorf("phenotype column %q not found in header", opts.PhenotypeLabel)
	}
	if len(attrCols) == 0 {
		return Dataset{}, fmt.Errorf("dataset has no attribute columns")
	}

	var records [][]string
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("read dataset row %d: %w", row, err)
		}
		if blankRecord(record) {
			continue
		}
		if len(record) != len(header) {
			return Dataset{}, fmt.Errorf("dataset row %d has %d columns, header has %d", row, len(record), len(header))
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return Dataset{}, fmt.Errorf("dataset has no instances")
	}

	space := model.ProblemSpace{Attributes: make([]model.Attribute, len(attrCols))}
	for a, col := range attrCols {
		attr, err := inferAttribute(header[col], column(records, col), opts)
		if err != nil {
			return Dataset{}, err
		}
		space.Attributes[a] = attr
	}
	actions, err := inferActions(column(records, phenotypeCol), opts)
	if err != nil {
		return Dataset{}, err
	}
	space.Actions = actions

	instances := make([]Instance, 0, len(records))
	for row, record := range records {
		inst := Instance{State: make(model.State, len(attrCols))}
		if idCol >= 0 {
			inst.ID = record[idCol]
		} else {
			inst.ID = strconv.Itoa(row + 1)
		}
		for a, col := range attrCols {
			inst.State[a] = featureOf(record[col], space.Attributes[a].Continuous, opts.MissingLabel)
		}
		raw := record[phenotypeCol]
		if actions.Discrete {
			inst.Action = model.DiscreteAction(raw)
		} else {
			v, _ := strconv.ParseFloat(raw, 64)
			inst.Action = model.ContinuousAction(v)
		}
		instances = append(instances, inst)
	}

	return Dataset{
		Header:    header,
		Space:     space,
		Instances: instances,
	}, nil
}

func inferAttribute(name string, values []string, opts LoadOptions) (model.Attribute, error) {
	distinct := distinctValues(values, opts.MissingLabel)
	if len(distinct) <= opts.DiscreteAttributeLimit {
		return model.Attribute{Name: name}, nil
	}
	lo, hi, err := numericRange(values, opts.MissingLabel)
	if err != nil {
		return model.Attribute{}, fmt.Errorf("attribute %q has %d distinct values but is not numeric: %w", name, len(distinct), err)
	}
	return model.Attribute{Name: name, Continuous: true, Min: lo, Max: hi}, nil
}

func inferActions(values []string, opts LoadOptions) (model.ActionSpace, error) {
	for i, v := range values {
		if v == "" || v == opts.MissingLabel {
			return model.ActionSpace{}, fmt.Errorf("instance %d has no phenotype", i+1)
		}
	}
	distinct := distinctValues(values, opts.MissingLabel)
	if len(distinct) <= opts.DiscreteAttributeLimit {
		return model.ActionSpace{Discrete: true, Labels: distinct}, nil
	}
	lo, hi, err := numericRange(values, opts.MissingLabel)
	if err != nil {
		return model.ActionSpace{}, fmt.Errorf("phenotype has %d distinct values but is not numeric: %w", len(distinct), err)
	}
	return model.ActionSpace{Min: lo, Max: hi}, nil
}

func featureOf(raw string, continuous bool, missing string) model.Feature {
	if raw == "" || raw == missing {
		return model.Feature{Missing: true}
	}
	f := model.Feature{Text: raw}
	if continuous {
		f.Num, _ = strconv.ParseFloat(raw, 64)
	}
	return f
}

// distinctValues returns the sorted distinct non-missing values.
func distinctValues(values []string, missing string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, 16)
	for _, v := range values {
		if v == "" || v == missing {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func numericRange(values []string, missing string) (float64, float64, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v == "" || v == missing {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, 0, err
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi, nil
}

func column(records [][]string, col int) []string {
	out := make([]string, len(records))
	for i, record := range records {
		out[i] = record[col]
	}
	return out
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// WriteTable writes ds as a tab-separated table with the phenotype in the
// last column.
func WriteTable(w io.Writer, ds Dataset, phenotypeLabel string) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	header := make([]string, 0, len(ds.Space.Attributes)+1)
	for _, attr := range ds.Space.Attributes {
		header = append(header, attr.Name)
	}
	if err := writer.Write(append(header, phenotypeLabel)); err != nil {
		return err
	}
	for _, inst := range ds.Instances {
		row := make([]string, 0, len(inst.State)+1)
		for _, f := range inst.State {
			if f.Missing {
				row = append(row, "NA")
				continue
			}
			row = append(row, f.Text)
		}
		if err := writer.Write(append(row, inst.Action.String())); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTableFile writes ds to path, creating parent directories.
func WriteTableFile(path string, ds Dataset, phenotypeLabel string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("table file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTable(f, ds, phenotypeLabel); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
