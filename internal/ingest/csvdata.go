package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"osemosys_toolkit/internal/config"
	"osemosys_toolkit/internal/model"
)

const valueColumn = "VALUE"

// CSVDataReader reads model input data from a folder holding one
// <Name>.csv file per set or parameter.
//
// Expected format:
//
//	REGION,TECHNOLOGY,YEAR,VALUE
//	SIMPLICITY,GAS,2014,1.5
//
// Set files carry a single VALUE column listing the members.
type CSVDataReader struct {
	Schema config.Schema
}

func NewCSVDataReader(schema config.Schema) *CSVDataReader {
	return &CSVDataReader{Schema: schema}
}

// ReadDir reads every CSV file in dir that names a schema variable. Other
// files are skipped.
func (p *CSVDataReader) ReadDir(dir string) (map[string]*model.Table, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(paths)

	tables := make(map[string]*model.Table)
	for _, path := range paths {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		def, ok := p.Schema.Lookup(stem)
		if !ok {
			slog.Debug("skipping file not in schema", "file", path)
			continue
		}

		t, err := p.readFile(def, path)
		if err != nil {
			return nil, err
		}
		tables[def.Name] = t
	}
	return tables, nil
}

func (p *CSVDataReader) readFile(def config.Definition, path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := p.Read(def.Name, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// Read parses the CSV data of one variable.
func (p *CSVDataReader) Read(name string, r io.Reader) (*model.Table, error) {
	def, ok := p.Schema[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownVariable, name)
	}
	dims, dtypes, err := p.Schema.Dimensions(name)
	if err != nil {
		return nil, err
	}
	if def.Kind != config.KindSet {
		dims = model.RenameDuplicates(dims)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return model.NewTable(name, dims...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if err := validateHeader(header, def, dims); err != nil {
		return nil, err
	}

	t := model.NewTable(name, dims...)
	lineNum := 1 // header was line 1

	for {
		lineNum++
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}

		if err := p.parseRecord(t, def, dtypes, record, lineNum); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// validateHeader accepts the schema indices followed by VALUE. A set file
// holds the VALUE column only. Repeated indices may appear either as
// declared or already disambiguated.
func validateHeader(header []string, def config.Definition, dims []string) error {
	if def.Kind == config.KindSet {
		if len(header) != 1 || strings.TrimSpace(header[0]) != valueColumn {
			return fmt.Errorf("expected a single %q column, got %q", valueColumn, strings.Join(header, ","))
		}
		return nil
	}

	if len(header) != len(dims)+1 {
		return fmt.Errorf("expected %d columns, got %d", len(dims)+1, len(header))
	}

	expected := append(append([]string(nil), dims...), valueColumn)
	for i, col := range expected {
		got := strings.TrimSpace(header[i])
		if got != col && (i >= len(def.Indices) || got != def.Indices[i]) {
			return fmt.Errorf("expected column %d to be %q, got %q", i, col, header[i])
		}
	}

	return nil
}

func (p *CSVDataReader) parseRecord(t *model.Table, def config.Definition, dtypes []model.DType, record []string, lineNum int) error {
	if def.Kind == config.KindSet {
		l, err := model.ParseLabel(record[0], def.DType)
		if err != nil {
			return fmt.Errorf("line %d: %q is not a valid %s", lineNum, record[0], def.DType)
		}
		t.Put(1, l)
		return nil
	}

	n := len(dtypes)
	key, err := castKey(record[:n], dtypes)
	if err != nil {
		return fmt.Errorf("line %d: %w", lineNum, err)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(record[n]), 64)
	if err != nil {
		return fmt.Errorf("line %d: parsing value %q: %w", lineNum, record[n], err)
	}
	t.Put(value, key...)
	return nil
}
