// =============================================================================
// dataprep - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Running the root
// command without a subcommand runs 'prepare'.
//
// COBRA CLI STRUCTURE:
//   rootCmd (dataprep)
//   ├── prepareCmd (dataprep prepare)
//   ├── loggingConfigCmd (dataprep logging-config)
//   └── versionCmd (dataprep version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration, falling back to defaults
//   3. Setting up data directories and logging once per process
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/dataprep/internal/config"
	"github.com/ginjaninja78/dataprep/internal/logging"
	"github.com/ginjaninja78/dataprep/internal/settings"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// A missing file means built-in defaults.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// Callbacks are the callbacks custom log handlers can select through
// LOGGING_CUSTOM_CALLBACK. Register more before Execute.
var Callbacks = logging.NewCallbacks().
	Register("dataprep.stderr", func(rec logging.Record) error {
		_, err := fmt.Fprintln(os.Stderr, rec.Text)
		return err
	})

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dataprep",
	Short: "dataprep - starter template for small data-processing scripts",
	Long: `dataprep loads a raw CSV or XLSX file into a typed table, prints its first
rows and writes a JSON profile of its columns. Logging goes to the console,
rotating per-channel log files and optional callback sinks.

Directory layout under base_data_dir:
  raw/  interim/  timeseries/raw/  timeseries/interim/  logs/

Example Usage:
  dataprep                             # Same as 'dataprep prepare'
  dataprep prepare --file sales.csv    # Load another raw file
  dataprep prepare --all               # Profile every raw file
  dataprep logging-config --format yaml`,

	SilenceUsage: true,

	// Without a subcommand the root command prepares the default raw file.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrepare(cmd.OutOrStdout(), prepareOpts)
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig reads the configuration and applies the --verbose override.
func loadConfig() (*config.MainConfig, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}
	if verbose {
		cfg.Debug = true
	}
	return cfg, nil
}

// newSettings initializes the process settings from a loaded configuration.
var newSettings = func(cfg *config.MainConfig) (*settings.Settings, error) {
	return settings.Init(cfg, Callbacks)
}

// loadSettings loads the configuration and initializes the process settings.
func loadSettings() (*settings.Settings, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newSettings(cfg)
}

// printf writes to w, ignoring write errors on the terminal.
func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the global flags.
func init() {
	// Persistent flags are available to this command and all subcommands.
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (defaults apply when it does not exist)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	addPrepareFlags(rootCmd)
}
