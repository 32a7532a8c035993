package model

import (
	"strconv"
	"strings"
)

// DType is the element type of a dimension or a value column.
type DType string

const (
	DTypeString DType = "str"
	DTypeInt    DType = "int"
	DTypeFloat  DType = "float"
)

// Label is a single dimension value: a set member such as a region code,
// a technology code or a year.
type Label struct {
	str   string
	num   int
	isInt bool
}

// S returns a string label.
func S(s string) Label {
	return Label{str: s}
}

// I returns an integer label.
func I(n int) Label {
	return Label{num: n, isInt: true}
}

// ParseLabel casts raw text to a label of the given dtype.
func ParseLabel(raw string, dtype DType) (Label, error) {
	raw = strings.TrimSpace(raw)
	if dtype != DTypeInt {
		return S(raw), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// Some writers emit integer sets as floats ("2015.0")
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return Label{}, err
		}
		n = int(f)
	}
	return I(n), nil
}

func (l Label) IsInt() bool { return l.isInt }

// Int returns the integer value and whether the label is an integer.
func (l Label) Int() (int, bool) {
	return l.num, l.isInt
}

func (l Label) String() string {
	if l.isInt {
		return strconv.Itoa(l.num)
	}
	return l.str
}

// Less orders integers numerically and strings lexically. Integers sort
// before strings.
func (l Label) Less(o Label) bool {
	switch {
	case l.isInt && o.isInt:
		return l.num < o.num
	case l.isInt != o.isInt:
		return l.isInt
	default:
		return l.str < o.str
	}
}

// encode writes a collision-free representation of l to b.
func (l Label) encode(b *strings.Builder) {
	if l.isInt {
		b.WriteByte('i')
		b.WriteString(strconv.Itoa(l.num))
	} else {
		b.WriteByte('s')
		b.WriteString(l.str)
	}
	b.WriteByte(0x1f)
}

func encodeKey(key []Label) string {
	var b strings.Builder
	for _, l := range key {
		l.encode(&b)
	}
	return b.String()
}

func encodeAt(key []Label, idx []int) string {
	var b strings.Builder
	for _, i := range idx {
		key[i].encode(&b)
	}
	return b.String()
}

func lessKey(a, b []Label) bool {
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		return a[i].Less(b[i])
	}
	return false
}
