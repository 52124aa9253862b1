// =============================================================================
// dataprep - File Manager Utility
// =============================================================================
//
// This module provides the filesystem helpers used by the settings, the data
// loader and the CLI:
//   - Directory management (EnsureDir)
//   - File discovery (GetDirectoryFilesList, DiscoverFiles)
//   - Output file naming (GenerateOutputFileName)
//
// ERROR HANDLING:
//   Filesystem failures are returned as *errors.StructuredError values with
//   the original cause attached. Permission problems always carry the
//   PERMISSION code so callers can tell them apart from missing paths.
//
// =============================================================================

package utils

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/dataprep/pkg/errors"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDir creates the directory and any missing parents, then returns the
// absolute path so calls can be chained:
//
//	raw, err := utils.EnsureDir(filepath.Join(base, "raw"))
//
// It is a no-op when the directory already exists. An empty path means the
// current directory.
func EnsureDir(path string) (string, error) {
	if path == "" {
		path = "."
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", errors.Wrap(classifyFSError(err), fmt.Sprintf("failed to create directory %s", path), err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, fmt.Sprintf("failed to resolve directory %s", path), err)
	}

	return filepath.Clean(abs), nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// GetDirectoryFilesList returns the names of the regular files directly inside
// directory. Subdirectories are skipped; symlinks count when they point at a
// regular file. No ordering is guaranteed.
func GetDirectoryFilesList(directory string) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, errors.Wrap(classifyFSError(err), fmt.Sprintf("failed to list directory %s", directory), err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
			continue
		}

		// Follow symlinks the way a stat would.
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(directory, entry.Name()))
			if err == nil && info.Mode().IsRegular() {
				names = append(names, entry.Name())
			}
		}
	}

	return names, nil
}

// DiscoverFiles returns the sorted paths of the regular files in directory
// whose name matches any of the glob patterns. Matching ignores case. No
// patterns means "*.csv".
func DiscoverFiles(directory string, patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"*.csv"}
	}

	names, err := GetDirectoryFilesList(directory)
	if err != nil {
		return nil, err
	}

	var result []string
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, pattern := range patterns {
			ok, err := filepath.Match(strings.ToLower(pattern), lower)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, fmt.Sprintf("invalid file pattern %q", pattern), err)
			}
			if ok {
				result = append(result, filepath.Join(directory, name))
				break
			}
		}
	}
	sort.Strings(result)

	return result, nil
}

// FileExists reports whether path exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName builds a file name from a format string.
//
// PLACEHOLDERS:
//   {uuid}      - A random UUID
//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//   {date}      - Current date (YYYYMMDD)
//   {time}      - Current time (HHMMSS)
//   {<key>}     - Any key supplied in params
//
// The extension ext (".json", ".csv", ...) is appended when the result does
// not already end with it.
//
// EXAMPLE:
//   format: "{original}_{timestamp}_{uuid}"
//   params: {"original": "example"}
//   output: "example_20240115_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890.json"
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// classifyFSError maps an os error onto the structured error kinds.
func classifyFSError(err error) errors.ErrorCode {
	switch {
	case stderrors.Is(err, fs.ErrPermission):
		return errors.ErrCodePermission
	case stderrors.Is(err, fs.ErrNotExist):
		return errors.ErrCodeNotFound
	default:
		return errors.ErrCodeInternal
	}
}
