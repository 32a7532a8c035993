package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"osemosys_toolkit/internal/config"
	"osemosys_toolkit/internal/model"
)

// ErrYearRangeRequired is returned when CPLEX output is read without the
// model's YEAR set.
var ErrYearRangeRequired = errors.New("reading CPLEX results requires the YEAR set of the model input")

// CPLEXParser reads transformed CPLEX solution files, one tab separated row
// per variable and index with one value column per model year:
//
//	NewCapacity	SIMPLICITY	GAS	0	1.3	0	1.6
//
// Every index except the trailing YEAR is spelled out; the k-th value column
// belongs to StartYear+k.
type CPLEXParser struct {
	Schema    config.Schema
	StartYear int
	EndYear   int
}

// NewCPLEXParser builds a parser covering the span of years.
func NewCPLEXParser(schema config.Schema, years []model.Label) (*CPLEXParser, error) {
	if len(years) == 0 {
		return nil, ErrYearRangeRequired
	}
	p := &CPLEXParser{Schema: schema}
	for i, y := range years {
		n, ok := y.Int()
		if !ok {
			return nil, fmt.Errorf("year %q is not an integer", y)
		}
		if i == 0 || n < p.StartYear {
			p.StartYear = n
		}
		if i == 0 || n > p.EndYear {
			p.EndYear = n
		}
	}
	return p, nil
}

// cplexEmpty lists the cell values CPLEX writes for variables at zero.
var cplexEmpty = map[string]bool{"": true, "0": true, "0.0": true}

func (p *CPLEXParser) Parse(r io.Reader) (*Solution, error) {
	if p.EndYear < p.StartYear {
		return nil, ErrYearRangeRequired
	}

	sol := &Solution{Tables: make(map[string]*model.Table)}
	seen := make(map[string]bool)
	dtypesOf := make(map[string][]model.DType)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		raw := sc.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		fields := strings.Split(raw, "\t")
		name := strings.TrimSpace(fields[0])

		t, ok := sol.Tables[name]
		if !ok {
			if seen[name] {
				continue
			}
			seen[name] = true

			dims, dtypes, found, err := resultDimensions(p.Schema, name)
			if err != nil {
				return nil, err
			}
			if !found {
				sol.NotFound = append(sol.NotFound, name)
				continue
			}
			if last := dims[len(dims)-1]; last != "YEAR" {
				return nil, &FormatError{Line: lineNum, Text: raw, Err: fmt.Errorf("%s is not indexed by YEAR last", name)}
			}
			t = model.NewTable(name, dims...)
			sol.Tables[name] = t
			dtypesOf[name] = dtypes
		}

		if err := p.readRow(t, dtypesOf[name], fields); err != nil {
			return nil, &FormatError{Line: lineNum, Text: raw, Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading CPLEX line %d: %w", lineNum+1, err)
	}
	return sol, nil
}

// readRow stores the non-zero year columns of one line.
func (p *CPLEXParser) readRow(t *model.Table, dtypes []model.DType, fields []string) error {
	n := len(t.Dims)
	if len(fields) < n {
		return fmt.Errorf("expected %d index columns, got %d", n-1, len(fields)-1)
	}

	key, err := castKey(fields[1:n], dtypes[:n-1])
	if err != nil {
		return err
	}
	key = append(key, model.Label{})

	for k, cell := range fields[n:] {
		year := p.StartYear + k
		if year > p.EndYear {
			break
		}
		cell = strings.TrimSpace(cell)
		if cplexEmpty[cell] {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return fmt.Errorf("year %d: parsing value %q: %w", year, cell, err)
		}
		if v == 0 {
			continue
		}
		key[n-1] = model.I(year)
		t.Put(v, key...)
	}
	return nil
}
