// =============================================================================
// dataprep - Logging Config Command
// =============================================================================
//
// This file defines the 'logging-config' command, which prints the logging
// configuration produced from the current settings.
//
// COMMAND USAGE:
//   dataprep logging-config [--format json|yaml]
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// loggingConfigFormat is the output format: "json" or "yaml".
var loggingConfigFormat string

// loggingConfigCmd represents the 'logging-config' command.
var loggingConfigCmd = &cobra.Command{
	Use:   "logging-config",
	Short: "Print the logging configuration",
	Long: `Print the logging configuration built from the current settings: formatters,
the channel filter with its logger-to-channel mapping, handlers, loggers and
the root logger.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoggingConfig(cmd.OutOrStdout(), loggingConfigFormat)
	},
}

// init registers the logging-config command with the root command.
func init() {
	rootCmd.AddCommand(loggingConfigCmd)
	loggingConfigCmd.Flags().StringVar(&loggingConfigFormat, "format", "json", "Output format: json or yaml")
}

func runLoggingConfig(out io.Writer, format string) error {
	format = strings.ToLower(format)
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported format %q (use json or yaml)", format)
	}

	s, err := loadSettings()
	if err != nil {
		return err
	}
	cfg := s.Provider.LoggingConfig()

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "    ")
		return enc.Encode(cfg)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
