// =============================================================================
// dataprep - Version Command
// =============================================================================
//
// This file defines the 'version' command, which displays the application
// version and build information.
//
// COMMAND USAGE:
//   dataprep version
//
// OUTPUT:
//   dataprep
//   Version:    0.1.0
//   Build Date: 2024-01-01
//   Go Version: go1.24.0
//
// =============================================================================

package cmd

import (
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// =============================================================================
// VERSION INFORMATION
// =============================================================================
// These variables are set at build time using ldflags.
// Example build command:
//   go build -ldflags "-X 'github.com/ginjaninja78/dataprep/cmd.Version=0.1.0'"

// Version is the application version.
var Version = "0.1.0"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

// versionCmd represents the 'version' command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Long:  `Display the application version, build date, and Go runtime version.`,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func printVersion(w io.Writer) {
	printf(w, "dataprep\n")
	printf(w, "Version:    %s\n", Version)
	printf(w, "Build Date: %s\n", BuildDate)
	printf(w, "Go Version: %s\n", runtime.Version())
}

// init registers the version command with the root command.
func init() {
	rootCmd.AddCommand(versionCmd)
}
