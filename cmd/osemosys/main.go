// Command osemosys post-processes OSeMOSYS solver output into result tables.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"osemosys_toolkit/internal/config"
	"osemosys_toolkit/internal/ingest"
	"osemosys_toolkit/internal/model"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "osemosys",
		Short:        "Derive and export results of solved OSeMOSYS models",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newResultsCmd(), newValidateCmd(), newServeCmd())
	return root
}

// loadSchema reads the schema at path, or the standard OSeMOSYS schema when
// path is empty.
func loadSchema(path string) (config.Schema, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// loadInputData reads the model input CSV folder. An empty dir yields no data.
func loadInputData(dir string, schema config.Schema) (map[string]*model.Table, error) {
	if dir == "" {
		return map[string]*model.Table{}, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input data: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input data: %s is not a directory", dir)
	}

	data, err := ingest.NewCSVDataReader(schema).ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("input data: %w", err)
	}
	slog.Info("input data loaded", "dir", dir, "tables", len(data))
	return data, nil
}

// modelYears returns the YEAR set of the input data, if any.
func modelYears(data map[string]*model.Table) []model.Label {
	if years, ok := data["YEAR"]; ok {
		return years.Members()
	}
	return nil
}
