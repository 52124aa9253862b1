package logging

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher routes records from named loggers to the handlers of a
// LoggingConfig.
type Dispatcher struct {
	handlers map[string]*handler
	loggers  map[string]route
	root     route
}

type route struct {
	level     zerolog.Level
	hasLevel  bool
	handlers  []*handler
	propagate bool
}

// Option customizes Configure.
type Option func(*dispatchOptions)

type dispatchOptions struct {
	console io.Writer
}

// WithConsole sends console handler output to w instead of stderr.
func WithConsole(w io.Writer) Option {
	return func(o *dispatchOptions) { o.console = w }
}

// Configure builds every handler of cfg once and wires them to its loggers.
// Callable handlers resolve their callback in callbacks.
//
// RETURNS:
//   - The Dispatcher. Close it to release file handles.
//   - An error if a level is unknown, a handler class is unsupported, or a
//     formatter, filter or handler reference does not exist.
func Configure(cfg LoggingConfig, callbacks *Callbacks, opts ...Option) (*Dispatcher, error) {
	o := dispatchOptions{console: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	filters := make(map[string]*ChannelFilter, len(cfg.Filters))
	for name, spec := range cfg.Filters {
		if spec.Factory != FilterFactoryChannel {
			return nil, fmt.Errorf("filter %s: unknown factory %q", name, spec.Factory)
		}
		filters[name] = NewChannelFilter(spec.ProjectName, spec.ChannelMapping)
	}

	d := &Dispatcher{
		handlers: make(map[string]*handler, len(cfg.Handlers)),
		loggers:  make(map[string]route, len(cfg.Loggers)),
	}

	for name, spec := range cfg.Handlers {
		h, err := buildHandler(name, spec, cfg.Formatters, filters, callbacks, o)
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		d.handlers[name] = h
	}

	for name, spec := range cfg.Loggers {
		r, err := d.buildRoute(spec.Level, spec.Handlers)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("logger %s: %w", name, err)
		}
		r.propagate = spec.Propagate
		d.loggers[name] = r
	}

	root, err := d.buildRoute(cfg.Root.Level, cfg.Root.Handlers)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("root logger: %w", err)
	}
	d.root = root

	return d, nil
}

func buildHandler(name string, spec HandlerSpec, formatters map[string]FormatterSpec, filters map[string]*ChannelFilter, callbacks *Callbacks, o dispatchOptions) (*handler, error) {
	level, err := ParseLevel(spec.Level)
	if err != nil {
		return nil, fmt.Errorf("handler %s: %w", name, err)
	}
	formatter, ok := formatters[spec.Formatter]
	if !ok {
		return nil, fmt.Errorf("handler %s: unknown formatter %q", name, spec.Formatter)
	}

	h := &handler{name: name, level: level, format: compileFormat(formatter.Format)}
	for _, fname := range spec.Filters {
		f, ok := filters[fname]
		if !ok {
			return nil, fmt.Errorf("handler %s: unknown filter %q", name, fname)
		}
		h.filters = append(h.filters, f)
	}

	switch spec.Class {
	case ClassStream:
		h.sink = &streamSink{w: o.console}
	case ClassRich:
		h.sink = newRichSink(o.console, spec.Rich)
	case ClassRotatingFile:
		fs, err := newFileSink(spec)
		if err != nil {
			return nil, fmt.Errorf("handler %s: %w", name, err)
		}
		h.sink = fs
	case ClassCallable:
		h.sink = &callableSink{h: NewCallableHandler(callbacks)}
	default:
		return nil, fmt.Errorf("handler %s: unknown class %q", name, spec.Class)
	}
	return h, nil
}

func (d *Dispatcher) buildRoute(level string, names []string) (route, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return route{}, err
	}
	r := route{level: lvl, hasLevel: strings.TrimSpace(level) != ""}
	for _, n := range names {
		h, ok := d.handlers[n]
		if !ok {
			return route{}, fmt.Errorf("unknown handler %q", n)
		}
		r.handlers = append(r.handlers, h)
	}
	return r, nil
}

// Logger returns a zerolog logger for the dotted name. An empty name is
// the root logger.
//
// Handlers are collected from the logger and its configured ancestors until
// one of them does not propagate; the root handlers come last. The level
// is that of the nearest configured logger, or the root level.
func (d *Dispatcher) Logger(name string) zerolog.Logger {
	level, handlers := d.resolve(name)
	if len(handlers) == 0 {
		return zerolog.Nop()
	}

	display := name
	if display == "" {
		display = RootLoggerName
	}
	return zerolog.New(&routeWriter{handlers: handlers}).
		Level(level).
		With().
		Timestamp().
		Str(LoggerFieldName, display).
		Caller().
		Logger()
}

func (d *Dispatcher) resolve(name string) (zerolog.Level, []*handler) {
	var handlers []*handler
	level, levelSet := zerolog.NoLevel, false

	for n := name; n != ""; n = parentName(n) {
		r, ok := d.loggers[n]
		if !ok {
			continue
		}
		if !levelSet && r.hasLevel {
			level, levelSet = r.level, true
		}
		handlers = append(handlers, r.handlers...)
		if !r.propagate {
			if !levelSet {
				level = d.root.level
			}
			return level, handlers
		}
	}

	if !levelSet {
		level = d.root.level
	}
	return level, append(handlers, d.root.handlers...)
}

func parentName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}

// Close releases every handler.
func (d *Dispatcher) Close() error {
	var errs []error
	for name, h := range d.handlers {
		if h.sink == nil {
			continue
		}
		if err := h.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("handler %s: %w", name, err))
		}
	}
	return stderrors.Join(errs...)
}

// ---- Process default ----

var defaultDispatcher atomic.Pointer[Dispatcher]

// SetDefault installs d as the dispatcher used by L.
func SetDefault(d *Dispatcher) {
	defaultDispatcher.Store(d)
}

// L returns the named logger of the default dispatcher. Before SetDefault it
// writes to a plain console on stderr.
func L(name string) zerolog.Logger {
	if d := defaultDispatcher.Load(); d != nil {
		return d.Logger(name)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().
		Timestamp().
		Str(LoggerFieldName, name).
		Logger()
}
