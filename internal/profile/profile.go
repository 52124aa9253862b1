// =============================================================================
// dataprep - Profile Module
// =============================================================================
//
// This module summarizes loaded frames and writes the summaries as JSON into
// the interim data directory.
//
// PROFILING PIPELINE:
//   1. Load the raw file through the data loader
//   2. Compute per-column statistics
//   3. Write the profile as JSON under a generated file name
//
// CONCURRENCY:
//   RunAll profiles each file in its own goroutine. A Profiler holds no
//   mutable state after construction, so one instance serves every file.
//
// =============================================================================

package profile

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ginjaninja78/dataprep/internal/dataloader"
	"github.com/ginjaninja78/dataprep/internal/types"
	"github.com/ginjaninja78/dataprep/pkg/utils"
)

// =============================================================================
// PROFILE STRUCTURES
// =============================================================================

// Profile summarizes one frame.
type Profile struct {
	RunID      string          `json:"run_id"`
	SourceFile string          `json:"source_file"`
	Sheet      string          `json:"sheet,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	Rows       int             `json:"rows"`
	Columns    []ColumnProfile `json:"columns"`
}

// ColumnProfile summarizes one column. Min, Max and Mean are only set for
// numeric columns with at least one value.
type ColumnProfile struct {
	Name    string           `json:"name"`
	Type    types.ColumnType `json:"type"`
	Count   int              `json:"count"`
	Missing int              `json:"missing"`
	Unique  int              `json:"unique"`
	Min     *float64         `json:"min,omitempty"`
	Max     *float64         `json:"max,omitempty"`
	Mean    *float64         `json:"mean,omitempty"`
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of profiling a single file.
type Result struct {
	// FilePath is the raw file that was profiled.
	FilePath string

	// OutputFile is the path of the written profile. Empty on failure.
	OutputFile string

	// Success indicates whether the file was profiled and written.
	Success bool

	// Error is set when Success is false.
	Error error

	// Profile is the computed profile. Nil if loading failed.
	Profile *Profile

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about one profiling run.
type ProcessingStats struct {
	// Rows is the number of data rows loaded.
	Rows int

	// Columns is the number of columns loaded.
	Columns int

	// ProcessingTime is the time taken to load, profile and write the file.
	ProcessingTime time.Duration
}

// =============================================================================
// PROFILER
// =============================================================================

// Profiler loads raw files and writes their profiles.
type Profiler struct {
	loader       *dataloader.Loader
	outputDir    string
	outputFormat string
	runID        string
	log          zerolog.Logger
}

// New creates a Profiler writing into outputDir. outputFormat follows
// utils.GenerateOutputFileName; {original} is the raw file name without its
// extension and {run} is the run id shared by every file of this Profiler.
func New(loader *dataloader.Loader, outputDir, outputFormat string, log zerolog.Logger) *Profiler {
	if outputFormat == "" {
		outputFormat = "{original}_{timestamp}_{uuid}"
	}
	return &Profiler{
		loader:       loader,
		outputDir:    outputDir,
		outputFormat: outputFormat,
		runID:        uuid.New().String(),
		log:          log,
	}
}

// RunID returns the id stamped on every profile of this Profiler.
func (p *Profiler) RunID() string {
	return p.runID
}

// Run profiles a single raw file.
//
// PARAMETERS:
//   - fileName: The raw file, relative to the loader's raw directory.
//
// RETURNS:
//   - A Result describing the outcome. Errors are reported in the Result.
func (p *Profiler) Run(fileName string) Result {
	start := time.Now()

	frame, err := p.loader.LoadRawData(fileName)
	if err != nil {
		return Result{FilePath: p.loader.Path(fileName), Error: err}
	}
	return p.write(frame, "", start)
}

// Write profiles an already loaded frame and writes the profile. A non-empty
// sheet name is appended to {original} so every worksheet of a workbook gets
// its own profile file.
func (p *Profiler) Write(frame *types.Frame, sheet string) Result {
	return p.write(frame, sheet, time.Now())
}

func (p *Profiler) write(frame *types.Frame, sheet string, start time.Time) Result {
	result := Result{FilePath: frame.SourceFile}
	result.Stats.Rows, result.Stats.Columns = frame.Shape()

	prof := Build(frame)
	prof.RunID = p.runID
	prof.Sheet = sheet
	result.Profile = &prof

	base := filepath.Base(frame.SourceFile)
	original := strings.TrimSuffix(base, filepath.Ext(base))
	if sheet != "" {
		original += "_" + sheet
	}
	name := utils.GenerateOutputFileName(p.outputFormat, ".json", map[string]string{
		"original": original,
		"run":      p.runID,
	})
	out := filepath.Join(p.outputDir, name)
	if err := utils.SaveAsJSON(prof, out); err != nil {
		result.Error = fmt.Errorf("failed to write profile: %w", err)
		return result
	}

	result.OutputFile = out
	result.Success = true
	result.Stats.ProcessingTime = time.Since(start)

	p.log.Info().
		Str("file", base).
		Str("output", name).
		Int("rows", result.Stats.Rows).
		Dur("elapsed", result.Stats.ProcessingTime).
		Msg("profile written")

	return result
}

// RunAll profiles every file concurrently. Results are ordered by file path.
func (p *Profiler) RunAll(fileNames []string) []Result {
	var wg sync.WaitGroup
	results := make(chan Result, len(fileNames))

	for _, name := range fileNames {
		wg.Add(1)
		go func(fileName string) {
			defer wg.Done()
			results <- p.Run(fileName)
		}(name)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var collected []Result
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].FilePath < collected[j].FilePath
	})
	return collected
}

// =============================================================================
// STATISTICS
// =============================================================================

// Build computes the profile of frame. RunID is left empty.
func Build(frame *types.Frame) Profile {
	rows, _ := frame.Shape()
	prof := Profile{
		SourceFile: frame.SourceFile,
		CreatedAt:  time.Now().UTC(),
		Rows:       rows,
		Columns:    make([]ColumnProfile, len(frame.Headers)),
	}

	for col, name := range frame.Headers {
		cp := ColumnProfile{Name: name}
		if col < len(frame.Types) {
			cp.Type = frame.Types[col]
		}

		values, err := frame.Column(name)
		if err != nil {
			prof.Columns[col] = cp
			continue
		}

		seen := make(map[string]struct{})
		var sum float64
		lo, hi := math.Inf(1), math.Inf(-1)
		numeric := 0

		for _, v := range values {
			if v == nil {
				cp.Missing++
				continue
			}
			cp.Count++
			seen[types.FormatCell(v)] = struct{}{}

			if f, ok := asFloat(v); ok {
				numeric++
				sum += f
				lo = math.Min(lo, f)
				hi = math.Max(hi, f)
			}
		}

		cp.Unique = len(seen)
		if numeric > 0 {
			mean := sum / float64(numeric)
			cp.Min, cp.Max, cp.Mean = &lo, &hi, &mean
		}
		prof.Columns[col] = cp
	}

	return prof
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
