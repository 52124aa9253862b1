// =============================================================================
// dataprep - XLSX Parser Module
// =============================================================================
//
// This module loads worksheets from XLSX workbooks into typed frames, so a raw
// data directory can hold spreadsheets next to CSV files.
//
// SHEET LAYOUT:
//   The first non-empty row of a sheet is the header row. Every following
//   non-empty row is a data row. Cell values are read as displayed by the
//   spreadsheet and then typed with the same inference rules as CSV files.
//
// =============================================================================

package xlsxparser

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/dataprep/internal/csvparser"
	"github.com/ginjaninja78/dataprep/internal/types"
	"github.com/ginjaninja78/dataprep/pkg/errors"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls how a sheet is read.
type Options struct {
	// Sheet is the worksheet to read. Empty means the first sheet.
	Sheet string

	// NAValues are cell values treated as missing.
	NAValues []string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads one worksheet of the workbook at path.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//   - opts: The sheet to read and the missing-value markers.
//
// RETURNS:
//   - The parsed frame.
//   - An error if the workbook cannot be opened or the sheet is empty.
func Parse(path string, opts Options) (*types.Frame, error) {
	f, err := openWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New(errors.ErrCodeParse, fmt.Sprintf("workbook %s has no sheets", path))
		}
		sheet = sheets[0]
	}

	return parseSheet(f, path, sheet, opts.NAValues)
}

// ParseMultiSheet reads every worksheet of the workbook, keyed by sheet name.
// Sheets without a header row are skipped.
func ParseMultiSheet(path string, naValues []string) (map[string]*types.Frame, error) {
	f, err := openWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	frames := make(map[string]*types.Frame)
	for _, sheet := range f.GetSheetList() {
		frame, err := parseSheet(f, path, sheet, naValues)
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeNotFound) {
				continue
			}
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		frames[sheet] = frame
	}

	return frames, nil
}

// openWorkbook opens path, reporting missing or unreadable files the same
// way the CSV parser does. Anything else is a malformed workbook.
func openWorkbook(path string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		code := errors.ErrCodeParse
		switch {
		case stderrors.Is(err, os.ErrNotExist):
			code = errors.ErrCodeNotFound
		case stderrors.Is(err, os.ErrPermission):
			code = errors.ErrCodePermission
		}
		return nil, errors.Wrap(code, fmt.Sprintf("failed to open workbook %s", path), err)
	}
	return f, nil
}

// parseSheet reads a single sheet from an already opened workbook.
func parseSheet(f *excelize.File, path, sheet string, naValues []string) (*types.Frame, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, fmt.Sprintf("failed to read sheet %s", sheet), err)
	}

	headerIndex := -1
	for i, row := range rows {
		if !isRowEmpty(row) {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 {
		return nil, errors.New(errors.ErrCodeNotFound, fmt.Sprintf("sheet %s has no header row", sheet))
	}

	headers := csvparser.CleanHeaders(rows[headerIndex])

	var data [][]string
	for i := headerIndex + 1; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}
		if len(row) > len(headers) {
			return nil, errors.New(errors.ErrCodeParse,
				fmt.Sprintf("expected %d fields in row %d of sheet %s, saw %d", len(headers), i+1, sheet, len(row)))
		}
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = strings.TrimSpace(cell)
		}
		data = append(data, cells)
	}

	return csvparser.BuildFrame(path, headers, data, naValues), nil
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
