package logging

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ---- Produced configuration ----

// Handler classes understood by Configure.
const (
	ClassStream       = "stream"
	ClassRich         = "rich"
	ClassRotatingFile = "rotating_file"
	ClassCallable     = "callable"
)

// FilterName is the name of the channel filter in every configuration.
const FilterName = "logging_channel"

// FilterFactoryChannel identifies the channel filter factory.
const FilterFactoryChannel = "channel"

// Formatter preset names.
const (
	FormatterSimple   = "simple"
	FormatterVerbose  = "verbose"
	FormatterDetailed = "detailed"
	FormatterRich     = "rich"
)

// LoggerFieldName is the record field holding the dotted logger name.
const LoggerFieldName = "logger"

// LoggingConfig is the declarative configuration consumed by Configure.
type LoggingConfig struct {
	Version                int                      `json:"version" yaml:"version"`
	DisableExistingLoggers bool                     `json:"disable_existing_loggers" yaml:"disable_existing_loggers"`
	Filters                map[string]FilterSpec    `json:"filters" yaml:"filters"`
	Formatters             map[string]FormatterSpec `json:"formatters" yaml:"formatters"`
	Handlers               map[string]HandlerSpec   `json:"handlers" yaml:"handlers"`
	Loggers                map[string]LoggerSpec    `json:"loggers" yaml:"loggers"`
	Root                   RootSpec                 `json:"root" yaml:"root"`
}

// FilterSpec describes a channel filter and the mapping it is built with.
type FilterSpec struct {
	Factory        string            `json:"()" yaml:"()"`
	ProjectName    string            `json:"project_name" yaml:"project_name"`
	ChannelMapping map[string]string `json:"channel_mapping" yaml:"channel_mapping"`
}

// FormatterSpec is a line template with {token} placeholders:
// time, channel, level, logger, caller, line, message, process, thread.
type FormatterSpec struct {
	Format string `json:"format" yaml:"format"`
}

// HandlerSpec describes one sink.
type HandlerSpec struct {
	Class     string   `json:"class" yaml:"class"`
	Level     string   `json:"level" yaml:"level"`
	Formatter string   `json:"formatter" yaml:"formatter"`
	Filters   []string `json:"filters,omitempty" yaml:"filters,omitempty"`

	// Rotating file settings.
	Filename    string `json:"filename,omitempty" yaml:"filename,omitempty"`
	MaxBytes    int64  `json:"max_bytes,omitempty" yaml:"max_bytes,omitempty"`
	BackupCount int    `json:"backup_count,omitempty" yaml:"backup_count,omitempty"`
	Encoding    string `json:"encoding,omitempty" yaml:"encoding,omitempty"`

	// Rich console settings.
	Rich *RichOptions `json:"rich,omitempty" yaml:"rich,omitempty"`
}

// RichOptions selects the parts printed by the rich console.
type RichOptions struct {
	ShowTime  bool `json:"show_time" yaml:"show_time"`
	ShowLevel bool `json:"show_level" yaml:"show_level"`
	ShowPath  bool `json:"show_path" yaml:"show_path"`
}

// LoggerSpec configures one named logger.
type LoggerSpec struct {
	Level     string   `json:"level" yaml:"level"`
	Handlers  []string `json:"handlers" yaml:"handlers"`
	Propagate bool     `json:"propagate" yaml:"propagate"`
}

// RootSpec configures the root logger.
type RootSpec struct {
	Level    string   `json:"level" yaml:"level"`
	Handlers []string `json:"handlers" yaml:"handlers"`
}

// Formatters returns the static formatter presets.
func Formatters() map[string]FormatterSpec {
	return map[string]FormatterSpec{
		FormatterSimple:   {Format: "{channel} | {level}: {message}"},
		FormatterVerbose:  {Format: "{time} {channel} | {level}: {logger}:{line}: {message}"},
		FormatterDetailed: {Format: "{time} {channel} | {level}: pid={process} tid={thread} {logger}:{line}: {message}"},
		FormatterRich:     {Format: "{channel} | {message}"},
	}
}

// ---- Levels ----

// ParseLevel maps a level name to a zerolog level. An empty name or NOTSET
// means everything passes.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NOTSET", "TRACE":
		return zerolog.TraceLevel, nil
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "INFO":
		return zerolog.InfoLevel, nil
	case "WARN", "WARNING":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	case "CRITICAL", "FATAL":
		return zerolog.FatalLevel, nil
	case "PANIC":
		return zerolog.PanicLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// LevelName is the display name of a zerolog level.
func LevelName(l zerolog.Level) string {
	switch l {
	case zerolog.TraceLevel:
		return "TRACE"
	case zerolog.DebugLevel:
		return "DEBUG"
	case zerolog.InfoLevel:
		return "INFO"
	case zerolog.WarnLevel:
		return "WARNING"
	case zerolog.ErrorLevel:
		return "ERROR"
	case zerolog.FatalLevel:
		return "CRITICAL"
	case zerolog.PanicLevel:
		return "PANIC"
	default:
		return strings.ToUpper(l.String())
	}
}
