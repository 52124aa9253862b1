package utils

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ginjaninja78/dataprep/pkg/errors"
)

// jsonOptions controls SaveAsJSON output.
type jsonOptions struct {
	indent     string
	escapeHTML bool
}

// JSONOption customizes SaveAsJSON.
type JSONOption func(*jsonOptions)

// WithIndent sets the number of spaces used per indentation level.
// Zero produces compact output.
func WithIndent(spaces int) JSONOption {
	return func(o *jsonOptions) {
		if spaces <= 0 {
			o.indent = ""
			return
		}
		o.indent = fmt.Sprintf("%*s", spaces, "")
	}
}

// WithEscapeHTML escapes <, > and & inside strings.
func WithEscapeHTML(escape bool) JSONOption {
	return func(o *jsonOptions) { o.escapeHTML = escape }
}

// SaveAsJSON writes data to filePath as UTF-8 JSON, creating the parent
// directory first. Output is indented with four spaces and keeps non-ASCII
// characters as-is unless overridden by opts.
//
// Errors carry SERIALIZATION when data cannot be encoded, PERMISSION when the
// target is not writable and INTERNAL for anything else.
func SaveAsJSON(data any, filePath string, opts ...JSONOption) error {
	o := jsonOptions{indent: "    "}
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := EnsureDir(filepath.Dir(filePath)); err != nil {
		if errors.IsCode(err, errors.ErrCodePermission) {
			return errors.Wrap(errors.ErrCodePermission, fmt.Sprintf("permission denied when writing to %s", filePath), err)
		}
		return errors.Wrap(errors.ErrCodeInternal, "failed to save JSON file", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(o.escapeHTML)
	if o.indent != "" {
		enc.SetIndent("", o.indent)
	}
	if err := enc.Encode(data); err != nil {
		if isSerializationError(err) {
			return errors.Wrap(errors.ErrCodeSerialization, "data is not JSON serializable", err)
		}
		return errors.Wrap(errors.ErrCodeInternal, "failed to save JSON file", err)
	}

	if err := os.WriteFile(filePath, buf.Bytes(), 0o644); err != nil {
		if classifyFSError(err) == errors.ErrCodePermission {
			return errors.Wrap(errors.ErrCodePermission, fmt.Sprintf("permission denied when writing to %s", filePath), err)
		}
		return errors.Wrap(errors.ErrCodeInternal, "failed to save JSON file", err)
	}

	return nil
}

// OpenJSON reads and parses a JSON file into generic values
// (map[string]any, []any, float64, string, bool, nil).
func OpenJSON(filePath string) (any, error) {
	var data any
	if err := OpenJSONInto(filePath, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// OpenJSONInto reads filePath and decodes it into v.
//
// A malformed document yields PARSE with "document" and "offset" in the error
// context. Unreadable files yield PERMISSION, missing files NOT_FOUND.
func OpenJSONInto(filePath string, v any) error {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		switch classifyFSError(err) {
		case errors.ErrCodePermission:
			return errors.Wrap(errors.ErrCodePermission, fmt.Sprintf("permission denied when reading %s", filePath), err)
		case errors.ErrCodeNotFound:
			return errors.Wrap(errors.ErrCodeNotFound, fmt.Sprintf("failed to read JSON file %s", filePath), err)
		default:
			return errors.Wrap(errors.ErrCodeInternal, "failed to read JSON file", err)
		}
	}

	if err := json.Unmarshal(raw, v); err != nil {
		var syntaxErr *json.SyntaxError
		if stderrors.As(err, &syntaxErr) {
			return errors.WrapWithContext(
				errors.ErrCodeParse,
				fmt.Sprintf("invalid JSON in file %s", filePath),
				err,
				map[string]any{
					"document": string(raw),
					"offset":   syntaxErr.Offset,
				},
			)
		}
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) {
			return errors.WrapWithContext(
				errors.ErrCodeParse,
				fmt.Sprintf("invalid JSON in file %s", filePath),
				err,
				map[string]any{
					"document": string(raw),
					"offset":   typeErr.Offset,
				},
			)
		}
		return errors.Wrap(errors.ErrCodeInternal, "failed to read JSON file", err)
	}

	return nil
}

func isSerializationError(err error) bool {
	var unsupportedType *json.UnsupportedTypeError
	var unsupportedValue *json.UnsupportedValueError
	var marshalerErr *json.MarshalerError
	return stderrors.As(err, &unsupportedType) ||
		stderrors.As(err, &unsupportedValue) ||
		stderrors.As(err, &marshalerErr)
}
