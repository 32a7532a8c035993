package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osemosys_toolkit/internal/model"
)

func TestDefault(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	assert.Contains(t, s.Sets(), "REGION")
	assert.Contains(t, s.Params(), "OperationalLife")
	assert.Contains(t, s.Results(), "NewCapacity")
	assert.Contains(t, s.Calculated(), "AccumulatedNewCapacity")
	assert.NotContains(t, s.Calculated(), "NewCapacity")

	def := s["YEAR"]
	assert.Equal(t, "YEAR", def.Name)
	assert.Equal(t, KindSet, def.Kind)
	assert.Equal(t, model.DTypeInt, def.DType)
}

func TestSchema_Dimensions(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	dims, dtypes, err := s.Dimensions("RateOfActivity")
	require.NoError(t, err)
	assert.Equal(t, []string{"REGION", "TIMESLICE", "TECHNOLOGY", "MODE_OF_OPERATION", "YEAR"}, dims)
	assert.Equal(t, []model.DType{model.DTypeString, model.DTypeString, model.DTypeString, model.DTypeInt, model.DTypeInt}, dtypes)

	dims, dtypes, err = s.Dimensions("YEAR")
	require.NoError(t, err)
	assert.Equal(t, []string{"YEAR"}, dims)
	assert.Equal(t, []model.DType{model.DTypeInt}, dtypes)

	_, _, err = s.Dimensions("NotAVariable")
	assert.True(t, errors.Is(err, ErrUnknownVariable))
}

func TestSchema_Lookup(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	def, ok := s.Lookup("TotalTechModelPeriodActivity")
	require.True(t, ok)
	assert.Equal(t, "TotalTechnologyModelPeriodActivity", def.Name)

	def, ok = s.Lookup("YearSplit")
	require.True(t, ok)
	assert.Equal(t, "YearSplit", def.Name)

	_, ok = s.Lookup("Nope")
	assert.False(t, ok)
}

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"set", `
SET_NAME:
  dtype: str
  type: set
  short_name: SET
`},
		{"parameter", `
Parameter_Name:
  indices: [SET]
  type: param
  dtype: float
  default: 0
SET:
  dtype: str
  type: set
`},
		{"result", `
Result_Name:
  indices: [SET]
  type: result
  dtype: float
  default: 0
  calculated: true
  short_name: Result
SET:
  dtype: int
  type: set
`},
		{"long name with short name", `
ThisIsAVeryLongParameterNameExceedingLimits:
  indices: [SET]
  type: param
  dtype: float
  default: 0
  short_name: ShortName
SET:
  dtype: str
  type: set
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.NoError(t, err)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		problem string
	}{
		{"space in name", `
Set Name:
  dtype: str
  type: set
`, "letters and underscores"},
		{"digit in name", `
Set1:
  dtype: str
  type: set
`, "letters and underscores"},
		{"special char in name", `
Set-Name:
  dtype: str
  type: set
`, "letters and underscores"},
		{"bad type", `
SET:
  dtype: str
  type: sets
`, "must be 'set', 'param' or 'result'"},
		{"float set", `
SET:
  dtype: float
  type: set
`, "set dtype"},
		{"string param", `
Param:
  indices: [SET]
  type: param
  dtype: str
  default: 0
SET:
  dtype: str
  type: set
`, "must be 'int' or 'float'"},
		{"undefined index", `
Param:
  indices: [REGION]
  type: param
  dtype: float
  default: 0
SET:
  dtype: str
  type: set
`, `index "REGION" is not a defined set`},
		{"long name without short name", `
ThisIsAVeryLongParameterNameExceedingLimits:
  indices: [SET]
  type: param
  dtype: float
  default: 0
SET:
  dtype: str
  type: set
`, "needs a short_name"},
		{"int param with float default", `
Param:
  indices: [SET]
  type: param
  dtype: int
  default: 0.5
SET:
  dtype: str
  type: set
`, "not an integer"},
		{"param without indices", `
Param:
  type: param
  dtype: float
  default: 0
`, "indices are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSchema))
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestParse_DuplicateKey(t *testing.T) {
	_, err := Parse([]byte(`
SET:
  dtype: str
  type: set
SET:
  dtype: int
  type: set
`))
	assert.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse([]byte(""))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("YEAR:\n  dtype: int\n  type: set\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"YEAR"}, s.Sets())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestVarNameValidation(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"letters", "NewCapacity", true},
		{"underscore", "_REGION", true},
		{"digit", "Capacity2", false},
		{"space", "New Capacity", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { err = validate.Var(tt.value, "varname") })
			assert.Equal(t, tt.valid, err == nil)
		})
	}
}
