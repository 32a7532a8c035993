package ingest

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osemosys_toolkit/internal/config"
	"osemosys_toolkit/internal/model"
)

func defaultSchema(t *testing.T) config.Schema {
	t.Helper()
	s, err := config.Default()
	require.NoError(t, err)
	return s
}

func value(t *testing.T, tbl *model.Table, key ...model.Label) float64 {
	t.Helper()
	v, ok := tbl.Get(key...)
	require.Truef(t, ok, "%s has no row %v", tbl.Name, key)
	return v
}

const cbcSolution = `Optimal - objective value 4483.96429
      0 NewCapacity(SIMPLICITY,GAS,2014)  1.3  0
      1 NewCapacity(SIMPLICITY,GAS,2015)  0  0
      2 NewCapacity(SIMPLICITY,GAS,2016)  1.6  0
      3 RateOfActivity(SIMPLICITY,ID,GAS,1,2014)  0.5  0
      4 AnnualCost(SIMPLICITY,2014)  10  0
`

func TestCBCReader_ReadEntries(t *testing.T) {
	entries, infeasible, err := CBCReader{}.ReadEntries(strings.NewReader(cbcSolution))
	require.NoError(t, err)
	assert.False(t, infeasible)
	require.Len(t, entries, 4)

	assert.Equal(t, Entry{Variable: "NewCapacity", Index: "SIMPLICITY,GAS,2014", Value: 1.3, Line: 2}, entries[0])
	assert.Equal(t, "NewCapacity", entries[1].Variable)
	assert.Equal(t, "SIMPLICITY,GAS,2016", entries[1].Index)
	assert.Equal(t, "RateOfActivity", entries[2].Variable)
}

func TestCBCReader_OutOfBounds(t *testing.T) {
	input := `Infeasible - objective value 4483.96429
**    0 NewCapacity(SIMPLICITY,GAS,2014)  -1.3  0
      1 NewCapacity(SIMPLICITY,GAS,2016)  1.6  0
`
	entries, infeasible, err := CBCReader{}.ReadEntries(strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, infeasible)
	require.Len(t, entries, 2)
	assert.InDelta(t, -1.3, entries[0].Value, 0.001)
}

func TestGurobiReader_ReadEntries(t *testing.T) {
	input := `# Solution for model obj
# Objective value = 4483.96429
NewCapacity(SIMPLICITY,GAS,2014) 1.3
NewCapacity(SIMPLICITY,GAS,2015) 0

RateOfActivity(SIMPLICITY,ID,GAS,1,2014) 0.5
`
	entries, infeasible, err := GurobiReader{}.ReadEntries(strings.NewReader(input))
	require.NoError(t, err)
	assert.False(t, infeasible)
	require.Len(t, entries, 2)
	assert.Equal(t, "NewCapacity", entries[0].Variable)
	assert.Equal(t, 3, entries[0].Line)
	assert.InDelta(t, 0.5, entries[1].Value, 0.001)
}

func TestReaders_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		reader EntryReader
		input  string
		line   int
	}{
		{"cbc no parentheses", CBCReader{}, "header\n 0 NewCapacity 1.3 0\n", 2},
		{"cbc bad value", CBCReader{}, "header\n 0 NewCapacity(R,GAS,2014) abc 0\n", 2},
		{"cbc too few fields", CBCReader{}, "header\n 0 NewCapacity(R,GAS,2014)\n", 2},
		{"gurobi bad value", GurobiReader{}, "#\n#\nNewCapacity(R,GAS,2014) x\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.reader.ReadEntries(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat))

			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.line, fe.Line)
			assert.Contains(t, fe.Text, "NewCapacity")
		})
	}
}

func TestTabulate(t *testing.T) {
	entries := []Entry{
		{Variable: "NewCapacity", Index: "SIMPLICITY,GAS,2014", Value: 1.3, Line: 2},
		{Variable: "NewCapacity", Index: "SIMPLICITY,GAS,2016", Value: 1.6, Line: 3},
		{Variable: "AnnualCost", Index: "SIMPLICITY,2014", Value: 10, Line: 4},
		{Variable: "RateOfActivity", Index: "SIMPLICITY,ID,GAS,1,2014", Value: 0.5, Line: 5},
	}

	sol, err := Tabulate(entries, defaultSchema(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"AnnualCost"}, sol.NotFound)
	require.Len(t, sol.Tables, 2)

	nc := sol.Tables["NewCapacity"]
	assert.Equal(t, []string{"REGION", "TECHNOLOGY", "YEAR"}, nc.Dims)
	assert.InDelta(t, 1.6, value(t, nc, model.S("SIMPLICITY"), model.S("GAS"), model.I(2016)), 0.001)

	roa := sol.Tables["RateOfActivity"]
	assert.InDelta(t, 0.5, value(t, roa, model.S("SIMPLICITY"), model.S("ID"), model.S("GAS"), model.I(1), model.I(2014)), 0.001)
}

func TestTabulate_IndexMismatch(t *testing.T) {
	entries := []Entry{{Variable: "NewCapacity", Index: "SIMPLICITY,GAS", Value: 1, Line: 7}}

	_, err := Tabulate(entries, defaultSchema(t))
	require.Error(t, err)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 7, fe.Line)
	assert.Equal(t, "NewCapacity(SIMPLICITY,GAS)", fe.Text)
	assert.Contains(t, fe.Error(), "expected 3 indices, got 2")
}

func TestTabulate_BadYear(t *testing.T) {
	entries := []Entry{{Variable: "NewCapacity", Index: "SIMPLICITY,GAS,y2014", Value: 1, Line: 2}}

	_, err := Tabulate(entries, defaultSchema(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
	assert.Contains(t, err.Error(), "y2014")
}

func TestTabulate_DuplicateDimensions(t *testing.T) {
	entries := []Entry{
		{Variable: "Trade", Index: "UTOPIA,SIMPLICITY,ID,ELC,2014", Value: 2, Line: 2},
		{Variable: "Trade", Index: "SIMPLICITY,UTOPIA,ID,ELC,2014", Value: -2, Line: 3},
	}

	sol, err := Tabulate(entries, defaultSchema(t))
	require.NoError(t, err)

	trade := sol.Tables["Trade"]
	assert.Equal(t, []string{"REGION", "_REGION", "TIMESLICE", "FUEL", "YEAR"}, trade.Dims)

	// The disambiguated table still aligns with REGION-indexed data
	rate := model.NewTable("DiscountRate", "REGION")
	rate.Put(0.05, model.S("SIMPLICITY"))
	rate.Put(0.1, model.S("UTOPIA"))

	joined := model.Mul(trade, rate)
	assert.Equal(t, trade.Dims, joined.Dims)
	assert.InDelta(t, 0.2, value(t, joined, model.S("UTOPIA"), model.S("SIMPLICITY"), model.S("ID"), model.S("ELC"), model.I(2014)), 0.001)
	assert.InDelta(t, -0.1, value(t, joined, model.S("SIMPLICITY"), model.S("UTOPIA"), model.S("ID"), model.S("ELC"), model.I(2014)), 0.001)
}

func TestParseSolution(t *testing.T) {
	input := `Infeasible - objective value 4483.96429
**    0 NewCapacity(SIMPLICITY,GAS,2014)  1.3  0
      1 NewCapacity(SIMPLICITY,GAS,2016)  1.6  0
`
	sol, err := ParseSolution(strings.NewReader(input), CBCReader{}, defaultSchema(t))
	require.NoError(t, err)
	assert.True(t, sol.Infeasible)
	assert.Equal(t, 2, sol.Tables["NewCapacity"].Len())
}

func TestSolution_Log(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})).With("run_id", "r1")

	sol := &Solution{Infeasible: true, NotFound: []string{"AnnualCost", "Objective"}}
	sol.Log(logger)

	out := logs.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "the solution may be infeasible")
	assert.Contains(t, out, `variables="AnnualCost, Objective"`)
	assert.Equal(t, 2, strings.Count(out, "run_id=r1"))
}

func TestSolution_LogQuiet(t *testing.T) {
	var logs bytes.Buffer
	(&Solution{}).Log(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	assert.Empty(t, logs.String())
}

func TestReaderFor(t *testing.T) {
	r, err := ReaderFor("cbc")
	require.NoError(t, err)
	assert.IsType(t, CBCReader{}, r)

	r, err = ReaderFor("Gurobi")
	require.NoError(t, err)
	assert.IsType(t, GurobiReader{}, r)

	_, err = ReaderFor("cplex")
	assert.Error(t, err)
	_, err = ReaderFor("glpk")
	assert.Error(t, err)
}

func TestParse_DispatchesOnSolver(t *testing.T) {
	schema := defaultSchema(t)
	years := []model.Label{model.I(2014), model.I(2015)}

	sol, err := Parse("cbc", strings.NewReader(cbcSolution), schema, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sol.Tables["NewCapacity"].Len())

	sol, err = Parse("cplex", strings.NewReader("NewCapacity\tSIMPLICITY\tGAS\t1.3\t0\n"), schema, years)
	require.NoError(t, err)
	assert.Equal(t, 1, sol.Tables["NewCapacity"].Len())

	_, err = Parse("cplex", strings.NewReader(""), schema, nil)
	assert.True(t, errors.Is(err, ErrYearRangeRequired))
}
