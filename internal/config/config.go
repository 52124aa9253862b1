// =============================================================================
// dataprep - Configuration Module
// =============================================================================
//
// This module is responsible for loading the main application configuration.
// Every setting has a default, so the CLI runs without any configuration file
// at all; a YAML file only needs the keys it wants to override.
//
// CONFIGURATION FILE (config.yaml):
//   project_name: dataprep
//   debug: false
//   base_data_dir: ./data
//   raw_file: example.csv
//   logging:
//     console: rich
//     max_bytes: 5242880
//     backups: 3
//     loggers:
//       - names: [dataprep.prepare]
//         level: INFO
//         handlers: [console, file]
//   csv_settings:
//     delimiter: ","
//     encoding: UTF-8
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/dataprep/pkg/utils"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// ProjectName names the root logger and the root log file.
	// Default: "dataprep"
	ProjectName string `yaml:"project_name"`

	// Debug lowers the root log level to DEBUG.
	Debug bool `yaml:"debug"`

	// BaseDataDir is the directory holding raw/, interim/, timeseries/ and logs/.
	// Default: "./data"
	BaseDataDir string `yaml:"base_data_dir"`

	// RawFile is the file the prepare command loads from the raw directory.
	// Default: "example.csv"
	RawFile string `yaml:"raw_file"`

	// HeadRows is the number of rows printed by the prepare command.
	// Default: 5
	HeadRows int `yaml:"head_rows"`

	// OutputFormat names the interim profile written by the prepare command.
	// Placeholders are those of utils.GenerateOutputFileName.
	// Default: "{original}_{timestamp}_{uuid}"
	OutputFormat string `yaml:"output_format"`

	// Logging holds the logging sink settings.
	Logging LoggingSettings `yaml:"logging"`

	// CSVSettings controls how raw CSV files are parsed.
	CSVSettings CSVSettings `yaml:"csv_settings"`
}

// LoggingSettings holds the logging options handed to the configuration
// builder, plus the loggers registered at startup.
type LoggingSettings struct {
	// Console selects the console sink: "rich" (colorized, when a terminal
	// is attached) or "plain".
	// Default: "rich"
	Console string `yaml:"console"`

	// MaxBytes is the size at which a log file is rotated.
	// Default: 5 MiB
	MaxBytes int64 `yaml:"max_bytes"`

	// Backups is the number of rotated files kept. 0 keeps none.
	// Default: 3
	Backups *int `yaml:"backups"`

	// Loggers are registered with the configuration builder in order.
	Loggers []LoggerRegistration `yaml:"loggers"`
}

// LoggerRegistration mirrors one AddLoggers call.
type LoggerRegistration struct {
	// Names are full dotted logger names.
	Names []string `yaml:"names"`

	// Level is the logger level. Default: "INFO"
	Level string `yaml:"level"`

	// Handlers are handler kinds: "console", "file", "custom".
	Handlers []string `yaml:"handlers"`
}

// BackupCount returns the configured number of rotated files, or
// DefaultBackups when unset.
func (l LoggingSettings) BackupCount() int {
	if l.Backups == nil {
		return DefaultBackups
	}
	return *l.Backups
}

// UseRich reports whether the rich console was requested.
func (l LoggingSettings) UseRich() bool {
	return strings.EqualFold(l.Console, ConsoleRich)
}

// =============================================================================
// CSV SETTINGS
// =============================================================================

// CSVSettings holds CSV parsing settings.
type CSVSettings struct {
	// Delimiter is the field separator. Accepts a single character or one
	// of "tab", "pipe", "semicolon".
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is the input character encoding.
	// Supported: "UTF-8", "UTF-16", "UTF-16LE", "UTF-16BE", "ISO-8859-1"
	// (alias "latin1"), "Windows-1252".
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// HeaderRows is the number of header rows; multi-line headers are merged.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-indexed row where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`

	// NAValues are cell values treated as missing.
	// Default: "", "NA", "N/A", "NaN", "nan", "null", "NULL", "None"
	NAValues []string `yaml:"na_values"`
}

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// ConsoleRich selects the colorized console sink.
	ConsoleRich = "rich"
	// ConsolePlain selects the plain stream sink.
	ConsolePlain = "plain"

	// DefaultMaxBytes is the default rotation threshold.
	DefaultMaxBytes int64 = 5 * 1024 * 1024
	// DefaultBackups is the default number of rotated files kept.
	DefaultBackups = 3
)

var defaultNAValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None"}

var validHandlerKinds = map[string]bool{"console": true, "file": true, "custom": true}

var validLevels = map[string]bool{"TRACE": true, "DEBUG": true, "INFO": true, "WARN": true, "WARNING": true, "ERROR": true, "CRITICAL": true, "FATAL": true}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct with defaults applied.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads configPath when it is an existing file and falls back
// to Default() otherwise. Read and validation failures are returned.
func LoadOrDefault(configPath string) (*MainConfig, error) {
	if configPath == "" || !utils.FileExists(configPath) {
		return Default(), nil
	}
	return LoadMainConfig(configPath)
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.ProjectName == "" {
		config.ProjectName = "dataprep"
	}
	if config.BaseDataDir == "" {
		config.BaseDataDir = "./data"
	}
	if config.RawFile == "" {
		config.RawFile = "example.csv"
	}
	if config.HeadRows == 0 {
		config.HeadRows = 5
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "{original}_{timestamp}_{uuid}"
	}

	// Logging defaults.
	if config.Logging.Console == "" {
		config.Logging.Console = ConsoleRich
	}
	if config.Logging.MaxBytes == 0 {
		config.Logging.MaxBytes = DefaultMaxBytes
	}
	if config.Logging.Backups == nil {
		backups := DefaultBackups
		config.Logging.Backups = &backups
	}
	for i := range config.Logging.Loggers {
		if config.Logging.Loggers[i].Level == "" {
			config.Logging.Loggers[i].Level = "INFO"
		}
	}

	// CSV settings defaults.
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}
	if config.CSVSettings.HeaderRows == 0 {
		config.CSVSettings.HeaderRows = 1
	}
	if config.CSVSettings.DataStartRow == 0 {
		config.CSVSettings.DataStartRow = config.CSVSettings.HeaderRows + 1
	}
	if config.CSVSettings.NAValues == nil {
		config.CSVSettings.NAValues = append([]string(nil), defaultNAValues...)
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	if strings.ContainsAny(config.ProjectName, " /\\") {
		return fmt.Errorf("project_name %q must not contain spaces or path separators", config.ProjectName)
	}

	switch strings.ToLower(config.Logging.Console) {
	case ConsoleRich, ConsolePlain:
	default:
		return fmt.Errorf("logging.console must be %q or %q, got %q", ConsoleRich, ConsolePlain, config.Logging.Console)
	}

	if config.Logging.MaxBytes < 0 {
		return fmt.Errorf("logging.max_bytes must not be negative")
	}
	if config.Logging.BackupCount() < 0 {
		return fmt.Errorf("logging.backups must not be negative")
	}

	for i, reg := range config.Logging.Loggers {
		if len(reg.Names) == 0 {
			return fmt.Errorf("logging.loggers[%d]: names must not be empty", i)
		}
		if !validLevels[strings.ToUpper(reg.Level)] {
			return fmt.Errorf("logging.loggers[%d]: unknown level %q", i, reg.Level)
		}
		for _, h := range reg.Handlers {
			if !validHandlerKinds[h] {
				return fmt.Errorf("logging.loggers[%d]: unknown handler %q", i, h)
			}
		}
	}

	if config.CSVSettings.HeaderRows < 0 {
		return fmt.Errorf("csv_settings.header_rows must not be negative")
	}
	if config.CSVSettings.DataStartRow <= config.CSVSettings.HeaderRows {
		return fmt.Errorf("csv_settings.data_start_row must come after the header rows")
	}

	return nil
}
