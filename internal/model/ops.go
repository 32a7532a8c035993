package model

import (
	"fmt"
	"sort"
)

type binop func(x, y float64) float64

func mul(x, y float64) float64 { return x * y }
func add(x, y float64) float64 { return x + y }
func sub(x, y float64) float64 { return x - y }
func div(x, y float64) float64 { return x / y }

// Mul multiplies two tables aligned on their shared dimensions. Keys absent
// from either operand are dropped (inner join). The result carries the
// dimensions of a followed by the dimensions of b not present in a.
func Mul(a, b *Table) *Table {
	return join(a, b, mul, nil)
}

// MulFill multiplies two tables, treating a key missing from one operand as
// fill (outer join).
func MulFill(a, b *Table, fill float64) *Table {
	return join(a, b, mul, &fill)
}

// AddFill adds two tables, treating a key missing from one operand as fill.
func AddFill(a, b *Table, fill float64) *Table {
	return join(a, b, add, &fill)
}

// SubFill subtracts b from a, treating a key missing from one operand as fill.
func SubFill(a, b *Table, fill float64) *Table {
	return join(a, b, sub, &fill)
}

// Div divides a by b on matching keys only.
func Div(a, b *Table) *Table {
	return join(a, b, div, nil)
}

// join aligns a and b by dimension name. With a nil fill only matching keys
// are kept. With a fill, a row without a partner is kept when the other
// operand's dimensions are a subset of its own, so its key is complete.
func join(a, b *Table, op binop, fill *float64) *Table {
	var sharedA, sharedB, extraB []int
	for j, d := range b.Dims {
		if i := a.DimIndex(d); i >= 0 {
			sharedA = append(sharedA, i)
			sharedB = append(sharedB, j)
		} else {
			extraB = append(extraB, j)
		}
	}

	dims := make([]string, 0, len(a.Dims)+len(extraB))
	dims = append(dims, a.Dims...)
	for _, j := range extraB {
		dims = append(dims, b.Dims[j])
	}
	out := NewTable(a.Name, dims...)

	groups := make(map[string][]int, len(b.rows))
	for j, r := range b.rows {
		k := encodeAt(r.Key, sharedB)
		groups[k] = append(groups[k], j)
	}

	bSubsetOfA := len(extraB) == 0
	aSubsetOfB := len(sharedA) == len(a.Dims)

	matched := make(map[string]bool)
	key := make([]Label, len(dims))
	for _, ra := range a.rows {
		k := encodeAt(ra.Key, sharedA)
		partners, ok := groups[k]
		if !ok {
			if fill != nil && bSubsetOfA {
				out.Put(op(ra.Value, *fill), ra.Key...)
			}
			continue
		}
		matched[k] = true
		copy(key, ra.Key)
		for _, j := range partners {
			rb := b.rows[j]
			for n, idx := range extraB {
				key[len(a.Dims)+n] = rb.Key[idx]
			}
			out.Put(op(ra.Value, rb.Value), key...)
		}
	}

	if fill == nil || !aSubsetOfB {
		return out
	}

	// Position in b of every result dimension
	pos := make([]int, len(dims))
	for i, d := range dims {
		pos[i] = b.DimIndex(d)
	}
	for _, rb := range b.rows {
		if matched[encodeAt(rb.Key, sharedB)] {
			continue
		}
		for i, p := range pos {
			key[i] = rb.Key[p]
		}
		out.Put(op(*fill, rb.Value), key...)
	}
	return out
}

// GroupSum aggregates t by dims, summing values over every other dimension.
func GroupSum(t *Table, dims ...string) (*Table, error) {
	idx := make([]int, len(dims))
	for n, d := range dims {
		i := t.DimIndex(d)
		if i < 0 {
			return nil, fmt.Errorf("group %s by %v: no dimension %q", t.Name, dims, d)
		}
		idx[n] = i
	}

	out := NewTable(t.Name, dims...)
	key := make([]Label, len(dims))
	for _, r := range t.rows {
		for n, i := range idx {
			key[n] = r.Key[i]
		}
		out.add(r.Value, key)
	}
	return out, nil
}

// DropZeros returns a copy of t without rows whose value is exactly zero.
func DropZeros(t *Table) *Table {
	out := NewTable(t.Name, t.Dims...)
	for _, r := range t.rows {
		if r.Value != 0 {
			out.Put(r.Value, r.Key...)
		}
	}
	return out
}

// Reorder returns a copy of t with its dimensions permuted into dims.
func Reorder(t *Table, dims ...string) (*Table, error) {
	if len(dims) != len(t.Dims) {
		return nil, fmt.Errorf("reorder %s%v as %v: dimension count differs", t.Name, t.Dims, dims)
	}
	idx := make([]int, len(dims))
	for n, d := range dims {
		i := t.DimIndex(d)
		if i < 0 {
			return nil, fmt.Errorf("reorder %s%v as %v: no dimension %q", t.Name, t.Dims, dims, d)
		}
		idx[n] = i
	}

	out := NewTable(t.Name, dims...)
	key := make([]Label, len(dims))
	for _, r := range t.rows {
		for n, i := range idx {
			key[n] = r.Key[i]
		}
		out.Put(r.Value, key...)
	}
	return out, nil
}

// ExpandDefaults returns a copy of t holding a row for every combination of
// the members of its dimensions. Combinations missing from t take def.
func ExpandDefaults(t *Table, members map[string][]Label, def float64) (*Table, error) {
	lists := make([][]Label, len(t.Dims))
	for i, d := range t.Dims {
		m, ok := members[d]
		if !ok {
			// Renamed duplicate dimensions (_REGION) share the members of REGION
			m, ok = members[trimDuplicatePrefix(d)]
		}
		if !ok {
			return nil, fmt.Errorf("expand %s: no members for dimension %q", t.Name, d)
		}
		sorted := make([]Label, len(m))
		copy(sorted, m)
		sort.Slice(sorted, func(a, b int) bool { return sorted[a].Less(sorted[b]) })
		lists[i] = sorted
	}

	out := t.Clone()
	if len(lists) == 0 {
		return out, nil
	}
	key := make([]Label, len(lists))
	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(lists) {
			if _, ok := out.Get(key...); !ok {
				out.Put(def, key...)
			}
			return
		}
		for _, l := range lists[depth] {
			key[depth] = l
			walk(depth + 1)
		}
	}
	walk(0)
	return out, nil
}
