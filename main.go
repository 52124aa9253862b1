// =============================================================================
// dataprep - Main Entry Point
// =============================================================================
//
// This is the main entry point for the dataprep CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   dataprep                  - Same as 'dataprep prepare'
//   dataprep prepare          - Load the raw data file and print its first rows
//   dataprep logging-config   - Print the logging configuration
//   dataprep version          - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Loading, profiling, settings and logging
//   - pkg/           : Shared utilities and error kinds
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/dataprep/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
