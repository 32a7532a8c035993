package model

import (
	"fmt"
	"sort"
)

// Row is one entry of a table: a key (one label per dimension) and its value.
type Row struct {
	Key   []Label
	Value float64
}

// Table is a named relation keyed by an ordered tuple of dimension labels
// with exactly one float value per key. Absent keys mean zero.
//
// Tables are built with Put and are treated as immutable afterwards: every
// operation in this package returns a new table.
type Table struct {
	Name string
	Dims []string

	rows  []Row
	index map[string]int // encoded key -> position in rows
}

func NewTable(name string, dims ...string) *Table {
	d := make([]string, len(dims))
	copy(d, dims)
	return &Table{
		Name:  name,
		Dims:  d,
		index: make(map[string]int),
	}
}

// NewSet builds a set table: a single dimension named after the set with
// value 1 for each member.
func NewSet(name string, members ...Label) *Table {
	t := NewTable(name, name)
	for _, m := range members {
		t.Put(1, m)
	}
	return t
}

// Put stores value under key, replacing any existing value. It panics when
// the key length does not match the number of dimensions.
func (t *Table) Put(value float64, key ...Label) {
	if len(key) != len(t.Dims) {
		panic(fmt.Sprintf("table %s: key has %d labels, want %d", t.Name, len(key), len(t.Dims)))
	}
	k := encodeKey(key)
	if i, ok := t.index[k]; ok {
		t.rows[i].Value = value
		return
	}
	stored := make([]Label, len(key))
	copy(stored, key)
	t.index[k] = len(t.rows)
	t.rows = append(t.rows, Row{Key: stored, Value: value})
}

// add accumulates value under key.
func (t *Table) add(value float64, key []Label) {
	k := encodeKey(key)
	if i, ok := t.index[k]; ok {
		t.rows[i].Value += value
		return
	}
	t.Put(value, key...)
}

// Get returns the value stored under key.
func (t *Table) Get(key ...Label) (float64, bool) {
	if len(key) != len(t.Dims) {
		return 0, false
	}
	i, ok := t.index[encodeKey(key)]
	if !ok {
		return 0, false
	}
	return t.rows[i].Value, true
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Empty() bool {
	return len(t.rows) == 0
}

// Rows returns a copy of the rows sorted by key in dimension order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		key := make([]Label, len(r.Key))
		copy(key, r.Key)
		out[i] = Row{Key: key, Value: r.Value}
	}
	sort.Slice(out, func(i, j int) bool { return lessKey(out[i].Key, out[j].Key) })
	return out
}

// DimIndex returns the position of dim, or -1.
func (t *Table) DimIndex(dim string) int {
	for i, d := range t.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// Labels returns the sorted unique labels of a dimension.
func (t *Table) Labels(dim string) ([]Label, error) {
	i := t.DimIndex(dim)
	if i < 0 {
		return nil, fmt.Errorf("table %s has no dimension %q", t.Name, dim)
	}
	seen := make(map[Label]bool)
	var out []Label
	for _, r := range t.rows {
		if !seen[r.Key[i]] {
			seen[r.Key[i]] = true
			out = append(out, r.Key[i])
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Less(out[b]) })
	return out, nil
}

// Members returns the sorted members of a set table. For a table with more
// than one dimension it returns the labels of the first one.
func (t *Table) Members() []Label {
	if len(t.Dims) == 0 {
		return nil
	}
	labels, _ := t.Labels(t.Dims[0])
	return labels
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	return t.Renamed(t.Name)
}

// Renamed returns a copy of t with a new name.
func (t *Table) Renamed(name string) *Table {
	out := NewTable(name, t.Dims...)
	for _, r := range t.rows {
		out.Put(r.Value, r.Key...)
	}
	return out
}

// WithDims returns a copy of t with its dimensions relabelled. The number of
// dimensions must not change.
func (t *Table) WithDims(dims ...string) (*Table, error) {
	if len(dims) != len(t.Dims) {
		return nil, fmt.Errorf("table %s: cannot relabel %d dimensions as %d", t.Name, len(t.Dims), len(dims))
	}
	out := t.Clone()
	copy(out.Dims, dims)
	return out, nil
}

func (t *Table) String() string {
	return fmt.Sprintf("%s%v (%d rows)", t.Name, t.Dims, len(t.rows))
}
