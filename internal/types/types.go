// =============================================================================
// dataprep - Shared Types
// =============================================================================
//
// This package contains the tabular types shared by the CSV and XLSX parsers
// and the data loader. Keeping them here avoids an import cycle between the
// parsers and the loader.
//
// =============================================================================

package types

import "fmt"

// =============================================================================
// COLUMN TYPES
// =============================================================================

// ColumnType is the inferred type of a column.
type ColumnType string

const (
	// ColumnInt holds int64 values.
	ColumnInt ColumnType = "int64"
	// ColumnFloat holds float64 values.
	ColumnFloat ColumnType = "float64"
	// ColumnBool holds bool values.
	ColumnBool ColumnType = "bool"
	// ColumnString holds string values.
	ColumnString ColumnType = "string"
)

// =============================================================================
// FRAME
// =============================================================================

// Frame is a parsed table with typed columns.
type Frame struct {
	// SourceFile is the path the frame was loaded from.
	SourceFile string

	// Headers contains the column names, in file order.
	Headers []string

	// Types contains the inferred type of each column.
	Types []ColumnType

	// Rows contains the typed cell values. Each cell is an int64, float64,
	// bool, string, or nil for a missing value.
	Rows [][]any

	// RawRows contains the cells as read from the file.
	// This is useful for debugging and error reporting.
	RawRows [][]string
}

// Shape returns the number of rows and columns.
func (f *Frame) Shape() (rows, cols int) {
	return len(f.Rows), len(f.Headers)
}

// Head returns a frame holding at most the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n < 0 || n > len(f.Rows) {
		n = len(f.Rows)
	}
	head := &Frame{
		SourceFile: f.SourceFile,
		Headers:    f.Headers,
		Types:      f.Types,
		Rows:       f.Rows[:n],
	}
	if len(f.RawRows) >= n {
		head.RawRows = f.RawRows[:n]
	}
	return head
}

// ColumnIndex returns the position of the named column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, h := range f.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns all values of the named column.
func (f *Frame) Column(name string) ([]any, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}

	values := make([]any, len(f.Rows))
	for i, row := range f.Rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values, nil
}

// FormatCell renders a cell value for display.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NaN"
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}
