package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const outOfBoundsMarker = "**"

// CBCReader reads CBC solution files.
//
// Expected format:
//
//	Optimal - objective value 4483.96429
//	      0 NewCapacity(SIMPLICITY,GAS,2014)  1.3  0
//	**    1 RateOfActivity(SIMPLICITY,ID,GAS,1,2014)  -0.2  0
//
// A leading "**" marks a variable outside its bounds. The row is kept and
// the solution flagged as possibly infeasible.
type CBCReader struct{}

func (CBCReader) ReadEntries(r io.Reader) ([]Entry, bool, error) {
	infeasible := false
	entries, err := scanEntries(r, 1, func(line string, lineNum int) (Entry, error) {
		if strings.HasPrefix(line, outOfBoundsMarker) {
			infeasible = true
			line = strings.TrimSpace(strings.TrimPrefix(line, outOfBoundsMarker))
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return Entry{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
		}
		return parseEntry(fields[1], fields[2], lineNum)
	})
	return entries, infeasible, err
}

// GurobiReader reads Gurobi solution files.
//
// Expected format:
//
//	# Solution for model obj
//	# Objective value = 4483.96429
//	NewCapacity(SIMPLICITY,GAS,2014) 1.3
type GurobiReader struct{}

func (GurobiReader) ReadEntries(r io.Reader) ([]Entry, bool, error) {
	entries, err := scanEntries(r, 2, func(line string, lineNum int) (Entry, error) {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return Entry{}, fmt.Errorf("expected 2 fields, got %d", len(fields))
		}
		return parseEntry(fields[0], fields[1], lineNum)
	})
	return entries, false, err
}

type lineFunc func(line string, lineNum int) (Entry, error)

// scanEntries skips the header lines, then hands every non-blank line to
// parse. Entries with a value of exactly zero are dropped.
func scanEntries(r io.Reader, headerLines int, parse lineFunc) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var entries []Entry
	lineNum := 0
	for sc.Scan() {
		lineNum++
		if lineNum <= headerLines {
			continue
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		e, err := parse(line, lineNum)
		if err != nil {
			return nil, &FormatError{Line: lineNum, Text: sc.Text(), Err: err}
		}
		if e.Value == 0 {
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading solution line %d: %w", lineNum+1, err)
	}
	return entries, nil
}

func parseEntry(variable, value string, lineNum int) (Entry, error) {
	name, index, err := splitVariable(variable)
	if err != nil {
		return Entry{}, err
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing value %q: %w", value, err)
	}
	return Entry{Variable: name, Index: index, Value: v, Line: lineNum}, nil
}
