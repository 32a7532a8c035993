// Package config loads the variable schema describing every set, parameter
// and result of an OSeMOSYS model: its kind, element type and indices.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"osemosys_toolkit/internal/model"
)

//go:embed osemosys.yaml
var defaultSchema []byte

// ErrUnknownVariable is returned when a name is not defined in the schema.
var ErrUnknownVariable = errors.New("unknown variable")

// Kind distinguishes sets, input parameters and results.
type Kind string

const (
	KindSet    Kind = "set"
	KindParam  Kind = "param"
	KindResult Kind = "result"
)

// Definition describes one named variable.
type Definition struct {
	Name       string      `yaml:"-" validate:"required,varname"`
	Kind       Kind        `yaml:"type" validate:"oneof=set param result"`
	DType      model.DType `yaml:"dtype" validate:"required"`
	Indices    []string    `yaml:"indices,omitempty"`
	Default    float64     `yaml:"default,omitempty"`
	Calculated bool        `yaml:"calculated,omitempty"`
	ShortName  string      `yaml:"short_name,omitempty" validate:"omitempty,max=31,varname"`
}

// Schema maps a variable name to its definition. It is read-only once loaded.
type Schema map[string]Definition

// Default returns the schema of the standard OSeMOSYS model.
func Default() (Schema, error) {
	s, err := Parse(defaultSchema)
	if err != nil {
		return nil, fmt.Errorf("embedded schema: %w", err)
	}
	return s, nil
}

// Load reads and validates a schema file.
func Load(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML schema, keyed by variable name, and validates it.
// Duplicate names are rejected by the decoder.
func Parse(data []byte) (Schema, error) {
	var raw map[string]Definition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("schema defines no variables")
	}

	s := make(Schema, len(raw))
	for name, def := range raw {
		def.Name = name
		s[name] = def
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Lookup returns the definition registered under name or under a short name.
func (s Schema) Lookup(name string) (Definition, bool) {
	if def, ok := s[name]; ok {
		return def, true
	}
	for _, def := range s {
		if def.ShortName != "" && def.ShortName == name {
			return def, true
		}
	}
	return Definition{}, false
}

// Dimensions returns the index names of a variable and the element type of
// each index. A set is indexed by itself.
func (s Schema) Dimensions(name string) ([]string, []model.DType, error) {
	def, ok := s[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}

	if def.Kind == KindSet {
		return []string{name}, []model.DType{def.DType}, nil
	}

	dims := make([]string, len(def.Indices))
	dtypes := make([]model.DType, len(def.Indices))
	for i, idx := range def.Indices {
		set, ok := s[idx]
		if !ok || set.Kind != KindSet {
			return nil, nil, fmt.Errorf("%s: index %q is not a defined set", name, idx)
		}
		dims[i] = idx
		dtypes[i] = set.DType
	}
	return dims, dtypes, nil
}

func (s Schema) Sets() []string    { return s.names(KindSet) }
func (s Schema) Params() []string  { return s.names(KindParam) }
func (s Schema) Results() []string { return s.names(KindResult) }

// Calculated lists the results derived after a solve rather than read from
// the solver output.
func (s Schema) Calculated() []string {
	var out []string
	for name, def := range s {
		if def.Kind == KindResult && def.Calculated {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (s Schema) names(kind Kind) []string {
	var out []string
	for name, def := range s {
		if def.Kind == kind {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
