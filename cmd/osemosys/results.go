package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"osemosys_toolkit/internal/config"
	"osemosys_toolkit/internal/export"
	"osemosys_toolkit/internal/ingest"
	"osemosys_toolkit/internal/model"
	"osemosys_toolkit/internal/results"
)

type resultsOptions struct {
	inputCSV      string
	configPath    string
	writeDefaults bool
}

func newResultsCmd() *cobra.Command {
	var opts resultsOptions

	cmd := &cobra.Command{
		Use:   "results <solver> <solution> <outdir>",
		Short: "Parse a solution file, calculate results and write them as CSV",
		Long: `Reads the solution written by cbc, gurobi or cplex, derives every result the
solution and input data allow, and writes one <Name>.csv per table to outdir.
Results that cannot be calculated are logged and skipped.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResults(cmd, args[0], args[1], args[2], opts)
		},
	}
	cmd.Flags().StringVar(&opts.inputCSV, "input-csv", "", "folder of model input data CSV files")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "schema file (defaults to the standard OSeMOSYS schema)")
	cmd.Flags().BoolVar(&opts.writeDefaults, "write-defaults", false, "write a row for every index combination, filling the default value")
	return cmd
}

func runResults(cmd *cobra.Command, solver, solutionPath, outDir string, opts resultsOptions) error {
	start := time.Now()

	schema, err := loadSchema(opts.configPath)
	if err != nil {
		return err
	}
	data, err := loadInputData(opts.inputCSV, schema)
	if err != nil {
		return err
	}

	f, err := os.Open(solutionPath)
	if err != nil {
		return fmt.Errorf("opening solution: %w", err)
	}
	sol, err := ingest.Parse(solver, f, schema, modelYears(data))
	f.Close()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", solutionPath, err)
	}
	sol.Log(slog.Default())
	slog.Info("solution parsed", "solver", solver, "tables", len(sol.Tables), "not_found", len(sol.NotFound))

	pkg := results.New(sol.Tables, data)
	computed, missing, err := results.Calculate(pkg, schema.Calculated())
	if err != nil && !errors.Is(err, results.ErrNoResults) {
		return err
	}
	if err != nil {
		slog.Warn("no results could be calculated from the solution and input data")
	}

	out := make(map[string]*model.Table, len(sol.Tables)+len(computed))
	for name, t := range sol.Tables {
		out[name] = t
	}
	for name, t := range computed {
		out[name] = t
	}

	if opts.writeDefaults {
		out, err = withDefaults(out, schema, data)
		if err != nil {
			return err
		}
	}

	if err := export.WriteCSV(outDir, out); err != nil {
		return err
	}

	slog.Info("results written", "dir", outDir, "tables", len(out), "missing", len(missing), "elapsed", time.Since(start))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d tables to %s, %d results not available\n", len(out), outDir, len(missing))
	return nil
}

// withDefaults expands every table to all combinations of its set members,
// filling the schema default where the solution has no value.
func withDefaults(tables map[string]*model.Table, schema config.Schema, data map[string]*model.Table) (map[string]*model.Table, error) {
	members := make(map[string][]model.Label)
	for _, name := range schema.Sets() {
		if t, ok := data[name]; ok {
			members[name] = t.Members()
		}
	}

	out := make(map[string]*model.Table, len(tables))
	for name, t := range tables {
		def, ok := schema.Lookup(name)
		if !ok {
			out[name] = t
			continue
		}
		expanded, err := model.ExpandDefaults(t, members, def.Default)
		if err != nil {
			return nil, fmt.Errorf("writing defaults: %w", err)
		}
		out[name] = expanded
	}
	return out, nil
}
