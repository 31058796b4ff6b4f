package population

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"xcs/internal/model"
)

var ErrReboot = errors.New("population reboot failed")

// RulePopSuffix is appended to an output prefix to name the rule population file.
const RulePopSuffix = "_RulePop.txt"

// RebootFile replaces the population with the rules stored in path.
func (s *ClassifierSet) RebootFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReboot, err)
	}
	defer f.Close()

	if err := s.Reboot(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.logger.Info("rebooted rule population",
		"path", path,
		"macro_size", len(s.pop),
		"micro_size", s.microSize,
	)
	return nil
}

// Reboot replaces the population with rules read from a tab-separated table
// whose first line is a header. micro size is the sum of the numerosity
// column, which sits at NumAttributes()+3.
func (s *ClassifierSet) Reboot(r io.Reader) error {
	rows, err := readTable(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReboot, err)
	}
	return s.loadRows(rows)
}

// Snapshot captures the population in its table form.
func (s *ClassifierSet) Snapshot(runID string, iteration int) model.PopulationSnapshot {
	rows := make([][]string, 0, len(s.pop))
	for _, cl := range s.pop {
		rows = append(rows, cl.Row())
	}
	return model.PopulationSnapshot{
		RunID:     runID,
		Iteration: iteration,
		Header:    s.factory.Header(),
		Rows:      rows,
		MicroSize: s.microSize,
	}
}

// RestoreSnapshot replaces the population with a stored snapshot.
func (s *ClassifierSet) RestoreSnapshot(snapshot model.PopulationSnapshot) error {
	rows := make([][]string, 0, len(snapshot.Rows))
	for _, row := range snapshot.Rows {
		rows = append(rows, append([]string(nil), row...))
	}
	return s.loadRows(rows)
}

// WriteRulePopulation writes the population in the table form Reboot reads.
func (s *ClassifierSet) WriteRulePopulation(w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	if err := writer.Write(s.factory.Header()); err != nil {
		return err
	}
	for _, cl := range s.pop {
		if err := writer.Write(cl.Row()); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (s *ClassifierSet) loadRows(rows [][]string) error {
	numerosityCol := s.space.NumAttributes() + 3
	pop := make([]model.Classifier, 0, len(rows))
	micro := 0
	for i, row := range rows {
		if numerosityCol >= len(row) {
			return fmt.Errorf("%w: row %d has no numerosity column", ErrReboot, i+1)
		}
		numerosity, err := strconv.Atoi(strings.TrimSpace(row[numerosityCol]))
		if err != nil {
			return fmt.Errorf("%w: row %d numerosity: %w", ErrReboot, i+1, err)
		}
		cl, err := s.factory.Parse(row)
		if err != nil {
			return fmt.Errorf("%w: row %d: %w", ErrReboot, i+1, err)
		}
		pop = append(pop, cl)
		micro += numerosity
	}

	s.pop = pop
	s.microSize = micro
	s.ClearSets()
	return nil
}

func readTable(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("missing header")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if blankRecord(record) {
			continue
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
