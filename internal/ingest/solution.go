package ingest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"osemosys_toolkit/internal/config"
	"osemosys_toolkit/internal/model"
)

// Solution holds the result tables read from a solver output file.
type Solution struct {
	Tables map[string]*model.Table
	// NotFound lists variables present in the file but unknown to the schema.
	NotFound []string
	// Infeasible is set when the solver marked variables as out of bounds.
	Infeasible bool
}

// Log reports the diagnostics of a parsed solution: a warning when it may be
// infeasible and the variables the schema does not know about.
func (s *Solution) Log(logger *slog.Logger) {
	if s.Infeasible {
		logger.Warn("solution file contains variables out of bounds; the solution may be infeasible")
	}
	if len(s.NotFound) > 0 {
		logger.Debug("variables not in schema", "variables", strings.Join(s.NotFound, ", "))
	}
}

// Tabulate groups entries by variable and turns each group into a table
// shaped by the schema. Unknown variables are recorded in NotFound.
func Tabulate(entries []Entry, schema config.Schema) (*Solution, error) {
	groups := make(map[string][]Entry)
	for _, e := range entries {
		groups[e.Variable] = append(groups[e.Variable], e)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	sol := &Solution{Tables: make(map[string]*model.Table)}
	for _, name := range names {
		dims, dtypes, ok, err := resultDimensions(schema, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			sol.NotFound = append(sol.NotFound, name)
			continue
		}

		t := model.NewTable(name, dims...)
		for _, e := range groups[name] {
			tokens := strings.Split(e.Index, ",")
			key, err := castKey(tokens, dtypes)
			if err != nil {
				return nil, &FormatError{Line: e.Line, Text: fmt.Sprintf("%s(%s)", name, e.Index), Err: err}
			}
			t.Put(e.Value, key...)
		}
		sol.Tables[name] = t
	}

	return sol, nil
}

// ParseSolution reads a solver file and tabulates its entries.
func ParseSolution(r io.Reader, reader EntryReader, schema config.Schema) (*Solution, error) {
	entries, infeasible, err := reader.ReadEntries(r)
	if err != nil {
		return nil, err
	}
	sol, err := Tabulate(entries, schema)
	if err != nil {
		return nil, err
	}
	sol.Infeasible = infeasible
	return sol, nil
}

// ReaderFor returns the entry reader of a line-oriented solver format.
func ReaderFor(solver string) (EntryReader, error) {
	switch strings.ToLower(solver) {
	case "cbc":
		return CBCReader{}, nil
	case "gurobi":
		return GurobiReader{}, nil
	case "cplex":
		return nil, fmt.Errorf("cplex solutions are column oriented, use CPLEXParser")
	default:
		return nil, fmt.Errorf("unknown solver %q", solver)
	}
}

// Parse reads the output of any supported solver. years is the YEAR set of
// the model input and is only needed for CPLEX.
func Parse(solver string, r io.Reader, schema config.Schema, years []model.Label) (*Solution, error) {
	if strings.EqualFold(solver, "cplex") {
		p, err := NewCPLEXParser(schema, years)
		if err != nil {
			return nil, err
		}
		return p.Parse(r)
	}
	reader, err := ReaderFor(solver)
	if err != nil {
		return nil, err
	}
	return ParseSolution(r, reader, schema)
}

// resultDimensions returns the table dimensions of a result variable with
// repeated names disambiguated. ok is false for names that are not results.
func resultDimensions(schema config.Schema, name string) ([]string, []model.DType, bool, error) {
	def, found := schema[name]
	if !found || def.Kind != config.KindResult {
		return nil, nil, false, nil
	}
	dims, dtypes, err := schema.Dimensions(name)
	if err != nil {
		if errors.Is(err, config.ErrUnknownVariable) {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}
	if model.HasDuplicates(dims) {
		renamed := model.RenameDuplicates(dims)
		slog.Debug("renamed duplicate dimensions", "variable", name, "from", dims, "to", renamed)
		dims = renamed
	}
	return dims, dtypes, true, nil
}

func castKey(tokens []string, dtypes []model.DType) ([]model.Label, error) {
	if len(tokens) != len(dtypes) {
		return nil, fmt.Errorf("expected %d indices, got %d", len(dtypes), len(tokens))
	}
	key := make([]model.Label, len(tokens))
	for i, tok := range tokens {
		l, err := model.ParseLabel(tok, dtypes[i])
		if err != nil {
			return nil, fmt.Errorf("index %d: %q is not a valid %s", i, tok, dtypes[i])
		}
		key[i] = l
	}
	return key, nil
}
