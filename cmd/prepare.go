// =============================================================================
// dataprep - Prepare Command
// =============================================================================
//
// This file defines the 'prepare' command, which loads raw data, prints the
// first rows and writes a JSON profile into the interim directory.
//
// COMMAND USAGE:
//   dataprep prepare [flags]
//
// FLAGS:
//   --file        : Raw file to load (default: raw_file from the configuration)
//   --rows        : Number of rows to print (default: head_rows)
//   --all         : Profile every supported file in the raw directory
//   --sheets      : Load every worksheet of an XLSX workbook
//   --no-profile  : Skip writing the profile
//
// PROCESSING PIPELINE:
//   1. Load configuration and initialize settings
//   2. Load the raw file into a typed table
//   3. Print the first rows
//   4. Write the profile
//   5. Log the elapsed time
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/dataprep/internal/dataloader"
	"github.com/ginjaninja78/dataprep/internal/profile"
	"github.com/ginjaninja78/dataprep/internal/settings"
	"github.com/ginjaninja78/dataprep/internal/types"
	"github.com/ginjaninja78/dataprep/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// prepareOptions holds the flags shared by 'prepare' and the root command.
type prepareOptions struct {
	file      string
	rows      int
	all       bool
	sheets    bool
	noProfile bool
}

var prepareOpts prepareOptions

// =============================================================================
// PREPARE COMMAND DEFINITION
// =============================================================================

// prepareCmd represents the 'prepare' command.
var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Load the raw data file, print its first rows and profile it",
	Long: `The prepare command loads a file from the raw data directory into a typed
table (CSV or XLSX), prints its first rows and writes a JSON profile of every
column into the interim directory.

With --sheets every worksheet of an XLSX workbook is printed and profiled
separately. With --all every supported file in the raw directory is profiled
concurrently and a summary table is printed instead.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrepare(cmd.OutOrStdout(), prepareOpts)
	},
}

// init registers the prepare command with the root command.
func init() {
	rootCmd.AddCommand(prepareCmd)
	addPrepareFlags(prepareCmd)
}

func addPrepareFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&prepareOpts.file, "file", "", "Raw file to load (default: raw_file from the configuration)")
	cmd.Flags().IntVar(&prepareOpts.rows, "rows", 0, "Number of rows to print (default: head_rows from the configuration)")
	cmd.Flags().BoolVar(&prepareOpts.all, "all", false, "Profile every supported file in the raw directory")
	cmd.Flags().BoolVar(&prepareOpts.sheets, "sheets", false, "Load every worksheet of an XLSX workbook")
	cmd.Flags().BoolVar(&prepareOpts.noProfile, "no-profile", false, "Skip writing the JSON profile")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runPrepare loads the raw file, prints its head and writes its profile.
// Loader errors are returned unchanged.
func runPrepare(out io.Writer, opts prepareOptions) error {
	start := time.Now()

	s, err := loadSettings()
	if err != nil {
		return err
	}
	cfg := s.Config
	log := s.Logger(cfg.ProjectName + ".prepare")

	profiler := profile.New(s.Loader(), s.Dirs.Interim, cfg.OutputFormat, log)
	log.Debug().
		Str("run_id", profiler.RunID()).
		Str("raw_dir", s.Dirs.Raw).
		Msg("prepare started")

	if opts.all {
		return runPrepareAll(out, s, profiler, log, start)
	}

	file := opts.file
	if file == "" {
		file = cfg.RawFile
	}

	var sheets []dataloader.Sheet
	if opts.sheets {
		sheets, err = s.Loader().LoadSheets(file)
	} else {
		var frame *types.Frame
		frame, err = s.Loader().LoadRawData(file)
		sheets = []dataloader.Sheet{{Frame: frame}}
	}
	if err != nil {
		return err
	}

	rows := opts.rows
	if rows <= 0 {
		rows = cfg.HeadRows
	}
	for i, sheet := range sheets {
		if i > 0 {
			printf(out, "\n")
		}
		if sheet.Name != "" {
			printf(out, "Sheet: %s\n", sheet.Name)
		}
		if err := printSheet(out, profiler, sheet, rows, opts.noProfile); err != nil {
			return err
		}
	}

	elapsed := time.Since(start)
	log.Info().Dur("elapsed", elapsed).Msgf("Elapsed time: %s", elapsed)
	return nil
}

// printSheet prints the head and shape of one loaded sheet and writes its
// profile unless noProfile is set.
func printSheet(out io.Writer, profiler *profile.Profiler, sheet dataloader.Sheet, rows int, noProfile bool) error {
	frame := sheet.Frame
	if err := renderHead(out, frame.Head(rows)); err != nil {
		return fmt.Errorf("failed to print table: %w", err)
	}
	nrows, ncols := frame.Shape()
	printf(out, "\n[%d rows x %d columns]\n", nrows, ncols)

	if noProfile {
		return nil
	}
	result := profiler.Write(frame, sheet.Name)
	if result.Error != nil {
		return result.Error
	}
	printf(out, "Profile: %s\n", result.OutputFile)
	return nil
}

// runPrepareAll profiles every supported raw file and prints a summary.
func runPrepareAll(out io.Writer, s *settings.Settings, profiler *profile.Profiler, log zerolog.Logger, start time.Time) error {
	files, err := utils.DiscoverFiles(s.Dirs.Raw, dataloader.Patterns()...)
	if err != nil {
		return fmt.Errorf("failed to list raw files: %w", err)
	}

	if len(files) == 0 {
		printf(out, "No raw files found in %s\n", s.Dirs.Raw)
		return nil
	}

	results := profiler.RunAll(files)

	var failed int
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status, output := "ok", filepath.Base(r.OutputFile)
		if !r.Success {
			failed++
			status, output = "error: "+r.Error.Error(), ""
			log.Error().Err(r.Error).Str("file", filepath.Base(r.FilePath)).Msg("profiling failed")
		}
		rows = append(rows, []string{
			filepath.Base(r.FilePath),
			strconv.Itoa(r.Stats.Rows),
			strconv.Itoa(r.Stats.Columns),
			output,
			status,
		})
	}

	table := tablewriter.NewTable(out)
	table.Header([]string{"File", "Rows", "Columns", "Profile", "Status"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	log.Info().
		Int("files", len(files)).
		Int("failed", failed).
		Dur("elapsed", elapsed).
		Msgf("Elapsed time: %s", elapsed)

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(files))
	}
	return nil
}

// renderHead prints frame as a table with a leading row index column.
func renderHead(out io.Writer, frame *types.Frame) error {
	table := tablewriter.NewTable(out)

	headers := append([]string{""}, frame.Headers...)
	table.Header(headers)

	rows := make([][]string, 0, len(frame.Rows))
	for i, row := range frame.Rows {
		cells := make([]string, 0, len(headers))
		cells = append(cells, strconv.Itoa(i))
		for j := range frame.Headers {
			var v any
			if j < len(row) {
				v = row[j]
			}
			cells = append(cells, types.FormatCell(v))
		}
		rows = append(rows, cells)
	}

	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
