// =============================================================================
// dataprep - Data Loader Module
// =============================================================================
//
// This module resolves raw data files against the raw data directory and
// loads them into typed frames. CSV files go through the CSV parser, XLSX
// workbooks through the XLSX parser (first sheet, or every sheet through
// LoadSheets).
//
// ERROR HANDLING:
//   Parser errors are returned unchanged, so callers can inspect their
//   structured error code (NOT_FOUND, PARSE, PERMISSION).
//
// =============================================================================

package dataloader

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/dataprep/internal/config"
	"github.com/ginjaninja78/dataprep/internal/csvparser"
	"github.com/ginjaninja78/dataprep/internal/types"
	"github.com/ginjaninja78/dataprep/internal/xlsxparser"
	"github.com/ginjaninja78/dataprep/pkg/errors"
)

// Loader loads files from a raw data directory.
type Loader struct {
	// RawDir is the directory relative file names are resolved against.
	RawDir string

	// CSV controls how CSV files are parsed. NAValues also apply to XLSX.
	CSV config.CSVSettings

	// Log receives debug output. The zero value discards it.
	Log zerolog.Logger
}

// New returns a Loader for rawDir.
func New(rawDir string, csv config.CSVSettings, log zerolog.Logger) *Loader {
	return &Loader{RawDir: rawDir, CSV: csv, Log: log}
}

// Path resolves fileName against the raw directory. Absolute names are
// returned unchanged.
func (l *Loader) Path(fileName string) string {
	if filepath.IsAbs(fileName) {
		return fileName
	}
	return filepath.Join(l.RawDir, fileName)
}

// LoadRawData parses fileName from the raw directory into a frame.
//
// PARAMETERS:
//   - fileName: The file to load, relative to the raw directory.
//
// RETURNS:
//   - The typed frame.
//   - The parser's error, unchanged.
func (l *Loader) LoadRawData(fileName string) (*types.Frame, error) {
	path := l.Path(fileName)
	start := time.Now()

	var (
		frame *types.Frame
		err   error
	)
	if isWorkbook(path) {
		frame, err = xlsxparser.Parse(path, xlsxparser.Options{NAValues: l.CSV.NAValues})
	} else {
		frame, err = csvparser.Parse(path, l.CSV)
	}
	if err != nil {
		return nil, err
	}

	l.logLoaded(path, "", frame, start)
	return frame, nil
}

// Sheet is one named frame of a file loaded by LoadSheets.
type Sheet struct {
	// Name is the worksheet name. Empty for CSV files.
	Name  string
	Frame *types.Frame
}

// LoadSheets loads every worksheet of a workbook in the raw directory,
// ordered by sheet name. Worksheets without a header row are skipped. Any
// other file loads as a single unnamed sheet.
func (l *Loader) LoadSheets(fileName string) ([]Sheet, error) {
	path := l.Path(fileName)
	if !isWorkbook(path) {
		frame, err := l.LoadRawData(fileName)
		if err != nil {
			return nil, err
		}
		return []Sheet{{Frame: frame}}, nil
	}

	start := time.Now()
	frames, err := xlsxparser.ParseMultiSheet(path, l.CSV.NAValues)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, errors.New(errors.ErrCodeParse, fmt.Sprintf("no columns to parse from workbook %s", path))
	}

	names := make([]string, 0, len(frames))
	for name := range frames {
		names = append(names, name)
	}
	sort.Strings(names)

	sheets := make([]Sheet, len(names))
	for i, name := range names {
		sheets[i] = Sheet{Name: name, Frame: frames[name]}
		l.logLoaded(path, name, frames[name], start)
	}
	return sheets, nil
}

func (l *Loader) logLoaded(path, sheet string, frame *types.Frame, start time.Time) {
	rows, cols := frame.Shape()
	event := l.Log.Debug().Str("file", path)
	if sheet != "" {
		event = event.Str("sheet", sheet)
	}
	event.
		Int("rows", rows).
		Int("columns", cols).
		Dur("elapsed", time.Since(start)).
		Msg("loaded raw data")
}

func isWorkbook(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// supportedExtensions lists the extensions LoadRawData reads.
var supportedExtensions = []string{".csv", ".txt", ".tsv", ".xlsx", ".xlsm"}

// IsSupported reports whether fileName has an extension LoadRawData reads.
func IsSupported(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, supported := range supportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// Patterns returns one glob pattern per supported extension, for use with
// utils.DiscoverFiles.
func Patterns() []string {
	patterns := make([]string, len(supportedExtensions))
	for i, ext := range supportedExtensions {
		patterns[i] = "*" + ext
	}
	return patterns
}
