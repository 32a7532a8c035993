// Package export writes result tables to disk.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"osemosys_toolkit/internal/model"
)

// WriteCSV writes one <Name>.csv per table into dir, creating dir if needed.
// Files are written in table name order.
func WriteCSV(dir string, tables map[string]*model.Table) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name+".csv")
		if err := writeFile(path, tables[name]); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, t *model.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteTable(f, t); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteTable writes t as CSV with a header of its dimensions followed by
// VALUE. Rows are written in key order. A set is written as a single VALUE
// column of its members.
func WriteTable(w io.Writer, t *model.Table) error {
	cw := csv.NewWriter(w)
	if len(t.Dims) == 1 && t.Dims[0] == t.Name {
		return writeSet(cw, t)
	}

	header := make([]string, 0, len(t.Dims)+1)
	header = append(header, t.Dims...)
	header = append(header, "VALUE")
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, row := range t.Rows() {
		for i, l := range row.Key {
			record[i] = l.String()
		}
		record[len(record)-1] = strconv.FormatFloat(row.Value, 'g', -1, 64)
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeSet(cw *csv.Writer, t *model.Table) error {
	if err := cw.Write([]string{"VALUE"}); err != nil {
		return err
	}
	for _, m := range t.Members() {
		if err := cw.Write([]string{m.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
