// =============================================================================
// dataprep - CSV Parser Module
// =============================================================================
//
// This module parses raw CSV files into a typed types.Frame. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon, ...)
//   - Multi-line headers
//   - Custom data start rows
//   - Non UTF-8 encodings (UTF-16, ISO-8859-1, Windows-1252) and BOMs
//   - Column type inference (int64, float64, bool, string)
//
// TYPE INFERENCE:
//   A column is int64 when every non-missing cell parses as an integer,
//   float64 when every non-missing cell parses as a number, bool when every
//   non-missing cell is true/false, and string otherwise. An integer column
//   with missing cells becomes float64, the same way a dataframe library
//   would promote it.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/dataprep/internal/config"
	"github.com/ginjaninja78/dataprep/internal/types"
	"github.com/ginjaninja78/dataprep/pkg/errors"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns a typed frame.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings.
//
// RETURNS:
//   - The parsed frame.
//   - NOT_FOUND / PERMISSION when the file cannot be opened, PARSE when the
//     content is malformed or empty.
func Parse(filePath string, settings config.CSVSettings) (*types.Frame, error) {
	parser, err := NewStreamingParser(filePath, settings)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	var rawRows [][]string
	for parser.Next() {
		rawRows = append(rawRows, parser.Record())
	}
	if err := parser.Err(); err != nil {
		return nil, err
	}

	return BuildFrame(filePath, parser.Headers(), rawRows, settings.NAValues), nil
}

// BuildFrame infers column types for rawRows and assembles the frame.
// Rows shorter than headers are padded with missing values.
func BuildFrame(source string, headers []string, rawRows [][]string, naValues []string) *types.Frame {
	na := make(map[string]bool, len(naValues)+1)
	na[""] = true
	for _, v := range naValues {
		na[v] = true
	}

	colTypes := make([]types.ColumnType, len(headers))
	for col := range headers {
		colTypes[col] = inferColumnType(rawRows, col, na)
	}

	rows := make([][]any, len(rawRows))
	for i, raw := range rawRows {
		row := make([]any, len(headers))
		for col := range headers {
			if col >= len(raw) {
				continue
			}
			row[col] = convertCell(raw[col], colTypes[col], na)
		}
		rows[i] = row
	}

	return &types.Frame{
		SourceFile: source,
		Headers:    headers,
		Types:      colTypes,
		Rows:       rows,
		RawRows:    rawRows,
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = []rune(settings.Delimiter)[0]
		} else {
			reader.Comma = ','
		}
	}

	// Row length is checked against the header ourselves so short rows can
	// be padded instead of rejected.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// newDecodingReader wraps r so that it yields UTF-8 for the named encoding.
func newDecodingReader(r io.Reader, name string) (io.Reader, error) {
	var enc encoding.Encoding

	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case "UTF-16", "UTF16":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "UTF-16LE":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case "UTF-16BE":
		enc = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		enc = charmap.ISO8859_1
	case "WINDOWS-1252", "CP1252":
		enc = charmap.Windows1252
	default:
		return nil, errors.New(errors.ErrCodeParse, fmt.Sprintf("unsupported encoding %q", name))
	}

	return transform.NewReader(r, enc.NewDecoder()), nil
}

// extractHeaders merges header rows into a single set of headers.
//
// MULTI-LINE HEADER HANDLING:
//   Row 1: "Transaction", "", "Policy", ""
//   Row 2: "Number", "Amount", "Number", "Date"
//   Result: "Transaction Number", "Amount", "Policy Number", "Date"
func extractHeaders(headerRows [][]string, settings config.CSVSettings) ([]string, error) {
	if settings.HeaderRows <= 0 {
		return nil, errors.New(errors.ErrCodeParse, "header_rows must be at least 1")
	}

	if len(headerRows) < settings.HeaderRows {
		return nil, errors.New(errors.ErrCodeParse, "file has fewer rows than header_rows setting")
	}

	if settings.HeaderRows == 1 {
		return CleanHeaders(headerRows[0]), nil
	}

	maxCols := 0
	for i := 0; i < settings.HeaderRows; i++ {
		if len(headerRows[i]) > maxCols {
			maxCols = len(headerRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < settings.HeaderRows; row++ {
			if col < len(headerRows[row]) {
				value := strings.TrimSpace(headerRows[row][col])
				if value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return CleanHeaders(headers), nil
}

// CleanHeaders trims headers, names empty ones "Unnamed: <index>" and
// de-duplicates repeats as "name.1", "name.2", ...
func CleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]int, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Unnamed: %d", i)
		}

		if n, dup := seen[header]; dup {
			candidate := fmt.Sprintf("%s.%d", header, n)
			for seen[candidate] > 0 {
				n++
				candidate = fmt.Sprintf("%s.%d", header, n)
			}
			seen[header] = n + 1
			seen[candidate] = 1
			header = candidate
		} else {
			seen[header] = 1
		}

		cleaned[i] = header
	}

	return cleaned
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

// =============================================================================
// TYPE INFERENCE
// =============================================================================

func inferColumnType(rows [][]string, col int, na map[string]bool) types.ColumnType {
	isInt, isFloat, isBool := true, true, true
	seen, missing := false, false

	for _, row := range rows {
		if col >= len(row) || na[row[col]] {
			missing = true
			continue
		}
		cell := row[col]
		seen = true

		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(cell); !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			return types.ColumnString
		}
	}

	switch {
	case !seen:
		// All missing: a column of NaN.
		return types.ColumnFloat
	case isInt && !missing:
		return types.ColumnInt
	case isInt || isFloat:
		return types.ColumnFloat
	case isBool:
		return types.ColumnBool
	default:
		return types.ColumnString
	}
}

func convertCell(cell string, colType types.ColumnType, na map[string]bool) any {
	if na[cell] {
		return nil
	}

	switch colType {
	case types.ColumnInt:
		v, _ := strconv.ParseInt(cell, 10, 64)
		return v
	case types.ColumnFloat:
		v, _ := strconv.ParseFloat(cell, 64)
		return v
	case types.ColumnBool:
		v, _ := parseBool(cell)
		return v
	default:
		return cell
	}
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	default:
		return false, false
	}
}

// =============================================================================
// STREAMING PARSER FOR LARGE FILES
// =============================================================================

// StreamingParser reads a CSV file one record at a time. Parse is built on
// top of it; use it directly when a file does not fit in memory.
//
// USAGE:
//   parser, err := NewStreamingParser(filePath, settings)
//   if err != nil {
//       return err
//   }
//   defer parser.Close()
//
//   for parser.Next() {
//       record := parser.Record()
//       // Process the row...
//   }
//
//   if err := parser.Err(); err != nil {
//       return err
//   }
type StreamingParser struct {
	file      *os.File
	reader    *csv.Reader
	path      string
	headers   []string
	current   []string
	rowNumber int
	err       error
	settings  config.CSVSettings
}

// NewStreamingParser opens filePath, reads the header rows and positions
// the parser at the first data row.
func NewStreamingParser(filePath string, settings config.CSVSettings) (*StreamingParser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		code := errors.ErrCodeInternal
		switch {
		case stderrors.Is(err, os.ErrNotExist):
			code = errors.ErrCodeNotFound
		case stderrors.Is(err, os.ErrPermission):
			code = errors.ErrCodePermission
		}
		return nil, errors.Wrap(code, fmt.Sprintf("failed to open file %s", filePath), err)
	}

	decoded, err := newDecodingReader(bufio.NewReader(file), settings.Encoding)
	if err != nil {
		file.Close()
		return nil, err
	}

	reader := csv.NewReader(decoded)
	configureReader(reader, settings)

	parser := &StreamingParser{
		file:     file,
		reader:   reader,
		path:     filePath,
		settings: settings,
	}

	if err := parser.readHeaders(); err != nil {
		file.Close()
		return nil, err
	}

	if err := parser.skipToDataStart(); err != nil {
		file.Close()
		return nil, err
	}

	return parser, nil
}

// readHeaders reads and merges the header rows, skipping leading blank lines.
func (p *StreamingParser) readHeaders() error {
	headerRows := make([][]string, 0, p.settings.HeaderRows)

	for len(headerRows) < p.settings.HeaderRows {
		row, err := p.reader.Read()
		if err == io.EOF {
			if len(headerRows) == 0 {
				return errors.New(errors.ErrCodeParse, fmt.Sprintf("no columns to parse from file %s", p.path))
			}
			return errors.New(errors.ErrCodeParse, "unexpected end of file while reading headers")
		}
		if err != nil {
			return p.parseError(err)
		}
		p.rowNumber++
		if len(headerRows) == 0 && isRowEmpty(row) {
			continue
		}
		headerRows = append(headerRows, row)
	}

	headers, err := extractHeaders(headerRows, p.settings)
	if err != nil {
		return err
	}

	p.headers = headers
	return nil
}

// skipToDataStart skips rows until the data start row.
func (p *StreamingParser) skipToDataStart() error {
	targetRow := p.settings.DataStartRow
	if targetRow <= 0 {
		targetRow = p.settings.HeaderRows + 1
	}

	for p.rowNumber < targetRow-1 {
		_, err := p.reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return p.parseError(err)
		}
		p.rowNumber++
	}

	return nil
}

// Next advances to the next non-empty row. It returns false at the end of
// the file or on error.
func (p *StreamingParser) Next() bool {
	for p.err == nil {
		row, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = p.parseError(err)
			return false
		}
		p.rowNumber++

		if isRowEmpty(row) {
			continue
		}

		if len(row) > len(p.headers) {
			p.err = errors.WrapWithContext(
				errors.ErrCodeParse,
				fmt.Sprintf("expected %d fields in line %d, saw %d", len(p.headers), p.rowNumber, len(row)),
				nil,
				map[string]any{"file": p.path, "line": p.rowNumber},
			)
			return false
		}

		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		p.current = row
		return true
	}
	return false
}

// Record returns the current row as read from the file.
func (p *StreamingParser) Record() []string {
	return p.current
}

// Headers returns the parsed headers.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file.
func (p *StreamingParser) Close() error {
	return p.file.Close()
}

func (p *StreamingParser) parseError(err error) error {
	var pe *csv.ParseError
	if stderrors.As(err, &pe) {
		return errors.WrapWithContext(
			errors.ErrCodeParse,
			fmt.Sprintf("malformed CSV in file %s", p.path),
			err,
			map[string]any{"file": p.path, "line": pe.Line, "column": pe.Column},
		)
	}
	return errors.Wrap(errors.ErrCodeInternal, fmt.Sprintf("failed to read CSV file %s", p.path), err)
}
