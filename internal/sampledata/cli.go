package sampledata

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/perfboard/pkg/logger"
)

// SetupLogging initializes the process logger. verbose lowers the level to
// debug so every aggregated record is logged.
func SetupLogging(out io.Writer, verbose bool) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithOutput(out), logger.WithLevel(level)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the sample data loader.
func ShowHelp() {
	os.Stdout.WriteString(`Perfboard Sample Data Loader
============================

Aggregates department_kpi, publication_list and research_project_data
(.csv or .xlsx) into per-month department performance records.

Usage:
  go run ./cmd/load-sample [options]

Options:
  -dir string
        Directory holding the source files (default "public")
  -clear
        Remove every stored performance record before loading
  -generate
        Write synthetic .xlsx fixtures into -dir before loading
  -seed uint
        Seed for -generate (default 1)
  -verbose
        Log every aggregated record
  -help
        Show this help message

The database, cache and log settings come from the same PERFBOARD_*
environment variables and config file as the server.

Examples:
  # Load the bundled CSV files
  go run ./cmd/load-sample -dir public

  # Replace everything with generated fixtures
  go run ./cmd/load-sample -dir /tmp/fixtures -generate -clear
`)
}
