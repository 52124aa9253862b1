package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configure(t *testing.T, cfg LoggingConfig, callbacks *Callbacks) (*Dispatcher, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	d, err := Configure(cfg, callbacks, WithConsole(&buf))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, &buf
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func TestDispatcher_NonPropagatingLogger(t *testing.T) {
	p := newTestProvider(t, Options{})
	p.AddLoggers([]string{"proj.etl"}, "INFO", "console", "file")
	d, console := configure(t, p.LoggingConfig(), nil)

	l := d.Logger("proj.etl")
	l.Info().Msg("loaded")

	assert.Contains(t, console.String(), " etl | INFO: proj.etl:")
	assert.Contains(t, console.String(), ": loaded\n")
	assert.Contains(t, readLog(t, filepath.Join(p.Options().LogDir, "etl.log")), "loaded")
	assert.NotContains(t, readLog(t, filepath.Join(p.Options().LogDir, "proj.log")), "loaded")
}

func TestDispatcher_PropagatingLogger(t *testing.T) {
	p := newTestProvider(t, Options{})
	p.AddLoggers([]string{"proj.quiet"}, "INFO")
	d, console := configure(t, p.LoggingConfig(), nil)

	l := d.Logger("proj.quiet")
	l.Info().Msg("bubbled")

	assert.Contains(t, console.String(), "quiet | INFO: proj.quiet:")
	assert.Contains(t, readLog(t, filepath.Join(p.Options().LogDir, "proj.log")), "quiet | INFO: proj.quiet:")
}

func TestDispatcher_ChildInheritsAncestorRoute(t *testing.T) {
	p := newTestProvider(t, Options{})
	p.AddLoggers([]string{"proj.etl"}, "WARNING", "console")
	d, console := configure(t, p.LoggingConfig(), nil)

	child := d.Logger("proj.etl.step")
	child.Info().Msg("hidden")
	child.Warn().Msg("shown")

	out := console.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "etl | WARNING: proj.etl.step:")
	assert.NotContains(t, readLog(t, filepath.Join(p.Options().LogDir, "proj.log")), "shown")
}

func TestDispatcher_HandlerLevel(t *testing.T) {
	p := newTestProvider(t, Options{})
	p.AddLoggers([]string{"proj.db"}, "DEBUG", "console", "file")
	d, console := configure(t, p.LoggingConfig(), nil)

	l := d.Logger("proj.db")
	l.Debug().Msg("query plan")

	assert.NotContains(t, console.String(), "query plan")
	assert.Contains(t, readLog(t, filepath.Join(p.Options().LogDir, "db.log")), "db | DEBUG: proj.db:")
}

func TestDispatcher_RootLogger(t *testing.T) {
	p := newTestProvider(t, Options{})
	d, console := configure(t, p.LoggingConfig(), nil)

	l := d.Logger("")
	l.Info().Str("user", "bob").Int("rows", 3).Msg("hello")

	line := console.String()
	assert.Contains(t, line, "proj | INFO: root:")
	assert.True(t, strings.HasSuffix(line, ": hello rows=3 user=bob\n"), line)
}

func TestDispatcher_UnknownLoggerUsesRoot(t *testing.T) {
	p := newTestProvider(t, Options{})
	d, console := configure(t, p.LoggingConfig(), nil)

	l := d.Logger("urllib3.connectionpool")
	l.Debug().Msg("too low")
	l.Info().Msg("visible")

	assert.NotContains(t, console.String(), "too low")
	assert.Contains(t, console.String(), "urllib3 | INFO: urllib3.connectionpool:")
}

func TestDispatcher_Callable(t *testing.T) {
	var got []Record
	callbacks := NewCallbacks().Register("hooks.collect", func(r Record) error {
		got = append(got, r)
		return nil
	})
	t.Setenv(CallbackEnv, "hooks.collect")

	p := newTestProvider(t, Options{})
	p.AddLoggers([]string{"proj.alerts"}, "INFO", "custom")
	d, console := configure(t, p.LoggingConfig(), callbacks)

	before := time.Now()
	l := d.Logger("proj.alerts")
	l.Warn().Int("count", 3).Msg("disk almost full")
	after := time.Now()

	require.Len(t, got, 1)
	rec := got[0]
	assert.Equal(t, "WARNING", rec.Level)
	assert.Equal(t, "proj.alerts", rec.Logger)
	assert.Equal(t, "alerts", rec.Channel)
	assert.Equal(t, "disk almost full", rec.Message)
	assert.Equal(t, "dispatcher_test.go", strings.SplitN(rec.Caller, ":", 2)[0])
	assert.Equal(t, map[string]any{"count": json.Number("3")}, rec.Fields)
	assert.Contains(t, rec.Text, "alerts | WARNING: proj.alerts:")
	assert.False(t, rec.Time.Before(before), "record time %s truncated below %s", rec.Time, before)
	assert.False(t, rec.Time.After(after))
	assert.Empty(t, console.String())
}

func TestDispatcher_CallablePanicIsContained(t *testing.T) {
	callbacks := NewCallbacks().Register("hooks.panic", func(Record) error { panic("boom") })
	t.Setenv(CallbackEnv, "hooks.panic")

	p := newTestProvider(t, Options{})
	p.AddLoggers([]string{"proj.alerts"}, "INFO", "custom", "console")
	d, console := configure(t, p.LoggingConfig(), callbacks)

	l := d.Logger("proj.alerts")
	assert.NotPanics(t, func() { l.Info().Msg("still here") })
	assert.Contains(t, console.String(), "still here")
}

func TestDispatcher_RichConsole(t *testing.T) {
	stubRich(t, true)
	p, err := NewProvider(Options{ProjectName: "proj", LogDir: t.TempDir(), UseRich: true})
	require.NoError(t, err)
	p.AddLoggers([]string{"proj.etl"}, "INFO", "console")
	d, console := configure(t, p.LoggingConfig(), nil)

	l := d.Logger("proj.etl")
	l.Info().Msg("hello")

	out := console.String()
	assert.Contains(t, out, "etl | hello")
	assert.NotContains(t, out, "dispatcher_test.go")
	assert.NotContains(t, out, "proj.etl")
}

func TestDispatcher_DetailedFormatter(t *testing.T) {
	cfg := LoggingConfig{
		Formatters: Formatters(),
		Handlers: map[string]HandlerSpec{
			"console": {Class: ClassStream, Level: "DEBUG", Formatter: FormatterDetailed},
		},
		Root: RootSpec{Level: "DEBUG", Handlers: []string{"console"}},
	}
	d, console := configure(t, cfg, nil)

	l := d.Logger("x")
	l.Debug().Msg("ids")

	assert.Contains(t, console.String(), " | DEBUG: pid=")
	assert.Contains(t, console.String(), " tid=")
}

func TestConfigure_Errors(t *testing.T) {
	base := func() LoggingConfig {
		return LoggingConfig{
			Filters:    map[string]FilterSpec{FilterName: {Factory: FilterFactoryChannel, ProjectName: "proj"}},
			Formatters: Formatters(),
			Handlers: map[string]HandlerSpec{
				"console": {Class: ClassStream, Level: "INFO", Formatter: FormatterSimple, Filters: []string{FilterName}},
			},
			Root: RootSpec{Level: "INFO", Handlers: []string{"console"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*LoggingConfig)
	}{
		{"unknown formatter", func(c *LoggingConfig) {
			h := c.Handlers["console"]
			h.Formatter = "fancy"
			c.Handlers["console"] = h
		}},
		{"unknown filter", func(c *LoggingConfig) {
			h := c.Handlers["console"]
			h.Filters = []string{"nope"}
			c.Handlers["console"] = h
		}},
		{"unknown class", func(c *LoggingConfig) {
			h := c.Handlers["console"]
			h.Class = "syslog"
			c.Handlers["console"] = h
		}},
		{"unknown level", func(c *LoggingConfig) {
			h := c.Handlers["console"]
			h.Level = "LOUD"
			c.Handlers["console"] = h
		}},
		{"unknown filter factory", func(c *LoggingConfig) {
			c.Filters[FilterName] = FilterSpec{Factory: "regex"}
		}},
		{"unknown handler on logger", func(c *LoggingConfig) {
			c.Loggers = map[string]LoggerSpec{"a": {Level: "INFO", Handlers: []string{"file__a"}}}
		}},
		{"unknown handler on root", func(c *LoggingConfig) {
			c.Root.Handlers = append(c.Root.Handlers, "file__proj")
		}},
		{"file without name", func(c *LoggingConfig) {
			c.Handlers["file"] = HandlerSpec{Class: ClassRotatingFile, Level: "INFO", Formatter: FormatterVerbose}
		}},
		{"file with other encoding", func(c *LoggingConfig) {
			c.Handlers["file"] = HandlerSpec{Class: ClassRotatingFile, Level: "INFO", Formatter: FormatterVerbose, Filename: "x.log", Encoding: "latin1"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			_, err := Configure(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestSetDefault(t *testing.T) {
	p := newTestProvider(t, Options{})
	d, console := configure(t, p.LoggingConfig(), nil)

	SetDefault(d)
	t.Cleanup(func() { SetDefault(nil) })

	l := L("proj.cli")
	l.Info().Msg("via default")
	assert.Contains(t, console.String(), "proj | INFO: proj.cli:")
}

func TestCompileFormat(t *testing.T) {
	rec := Record{Channel: "etl", Level: "INFO", Logger: "proj.etl", Caller: "main.go:42", Message: "hi"}

	tests := []struct {
		format string
		want   string
	}{
		{"{channel} | {level}: {message}", "etl | INFO: hi"},
		{"{logger}:{line}: {message}", "proj.etl:42: hi"},
		{"{caller} {message}", "main.go:42 hi"},
		{"{unknown} {message}", "{unknown} hi"},
		{"{message", "{message"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.want, renderFormat(compileFormat(tt.format), rec))
		})
	}
}

func TestFileSink_Backups(t *testing.T) {
	dir := t.TempDir()

	rotating, err := newFileSink(HandlerSpec{Filename: filepath.Join(dir, "a.log"), MaxBytes: 2 << 20, BackupCount: 3})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rotating.Close() })
	assert.Equal(t, 2, rotating.file.MaxSize)
	assert.Equal(t, 3, rotating.file.MaxBackups)

	growing, err := newFileSink(HandlerSpec{Filename: filepath.Join(dir, "b.log"), MaxBytes: 2 << 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = growing.Close() })
	assert.Equal(t, noRotationMB, growing.file.MaxSize)
}

func TestNewRecord_Time(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 5, 250*int(time.Millisecond), time.UTC)

	tests := []struct {
		name string
		ts   string
		want time.Time
	}{
		{name: "second resolution stamp", ts: "2024-03-01T10:00:05Z", want: at},
		{name: "stamp in the previous second", ts: "2024-03-01T10:00:04Z", want: at},
		{name: "stale stamp", ts: "2024-03-01T09:00:00Z", want: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{name: "no stamp", ts: "", want: at},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string]any{"message": "m"}
			if tt.ts != "" {
				fields["time"] = tt.ts
			}
			rec := newRecord(zerolog.InfoLevel, at, fields)
			assert.True(t, tt.want.Equal(rec.Time), rec.Time)
		})
	}
}

func TestMaxSizeMB(t *testing.T) {
	const mib = 1024 * 1024
	assert.Equal(t, 5, maxSizeMB(5*mib))
	assert.Equal(t, 6, maxSizeMB(5*mib+1))
	assert.Equal(t, 1, maxSizeMB(10))
	assert.Equal(t, 5, maxSizeMB(0))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
		name string
	}{
		{"debug", zerolog.DebugLevel, "DEBUG"},
		{"INFO", zerolog.InfoLevel, "INFO"},
		{"warn", zerolog.WarnLevel, "WARNING"},
		{"WARNING", zerolog.WarnLevel, "WARNING"},
		{"Error", zerolog.ErrorLevel, "ERROR"},
		{"CRITICAL", zerolog.FatalLevel, "CRITICAL"},
		{"", zerolog.TraceLevel, "TRACE"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, LevelName(got))
		})
	}

	_, err := ParseLevel("LOUD")
	assert.Error(t, err)
}
