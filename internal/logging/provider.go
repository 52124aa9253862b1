package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-isatty"

	"github.com/ginjaninja78/dataprep/pkg/utils"
)

// Default rotation settings.
const (
	DefaultMaxBytes int64 = 5 * 1024 * 1024
	DefaultBackups        = 3
)

// Handler kinds accepted by AddLoggers.
const (
	HandlerConsole = "console"
	HandlerFile    = "file"
	HandlerCustom  = "custom"
)

// richAvailable reports whether a colorized console can be used.
var richAvailable = func() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Options configure a Provider. They are fixed once the Provider exists.
type Options struct {
	ProjectName string
	Debug       bool
	LogDir      string
	UseRich     bool
	MaxBytes    int64
	Backups     int
}

// Provider accumulates handler and logger registrations and exports them as
// a LoggingConfig.
type Provider struct {
	mu sync.Mutex

	opts    Options
	useRich bool

	handlers map[string]HandlerSpec
	loggers  map[string]LoggerSpec
	channels map[string]string
}

var (
	initOnce sync.Once
	instance atomic.Pointer[Provider]
	initErr  error
)

// Init creates the process-wide Provider on its first call. Later calls
// return that same Provider and ignore opts.
func Init(opts Options) (*Provider, error) {
	initOnce.Do(func() {
		p, err := NewProvider(opts)
		if err != nil {
			initErr = err
			return
		}
		instance.Store(p)
	})
	if p := instance.Load(); p != nil {
		return p, nil
	}
	return nil, initErr
}

// Default returns the Provider created by Init, or nil before Init.
func Default() *Provider {
	return instance.Load()
}

// NewProvider creates a Provider, ensures the log directory exists and
// configures the root handlers.
//
// PARAMETERS:
//   - opts: The logging options. MaxBytes <= 0 and negative Backups fall
//     back to the defaults.
//
// RETURNS:
//   - The configured Provider.
//   - An error if the project name is invalid or the log directory cannot
//     be created.
func NewProvider(opts Options) (*Provider, error) {
	if opts.ProjectName == "" {
		return nil, fmt.Errorf("project name must not be empty")
	}
	if strings.ContainsAny(opts.ProjectName, `/\`) {
		return nil, fmt.Errorf("project name %q must not contain path separators", opts.ProjectName)
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Backups < 0 {
		opts.Backups = DefaultBackups
	}

	dir, err := utils.EnsureDir(opts.LogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	opts.LogDir = dir

	p := &Provider{
		opts:     opts,
		useRich:  opts.UseRich && richAvailable(),
		handlers: make(map[string]HandlerSpec),
		loggers:  make(map[string]LoggerSpec),
		channels: make(map[string]string),
	}
	p.configureRoot()
	return p, nil
}

// Options returns the options the Provider was created with.
func (p *Provider) Options() Options {
	return p.opts
}

// UseRich reports whether the console handler uses the rich console.
func (p *Provider) UseRich() bool {
	return p.useRich
}

// AddLoggers registers names at level and attaches the requested handler
// kinds ("console", "file", "custom"). Unknown kinds are ignored and an
// empty level means INFO. A logger with no attached handler propagates to
// its ancestors. Registering a name again replaces its previous spec.
func (p *Provider) AddLoggers(names []string, level string, handlers ...string) *Provider {
	if level == "" {
		level = "INFO"
	}
	level = strings.ToUpper(level)

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, name := range names {
		alias := AliasFor(name, p.opts.ProjectName, nil)

		attached := []string{}
		if slices.Contains(handlers, HandlerConsole) {
			attached = append(attached, HandlerConsole)
		}
		if slices.Contains(handlers, HandlerFile) {
			attached = append(attached, p.ensureFileHandler(alias, level))
		}
		if slices.Contains(handlers, HandlerCustom) {
			attached = append(attached, p.ensureCustomHandler(alias, level))
		}

		p.channels[name] = alias
		p.loggers[name] = LoggerSpec{
			Level:     level,
			Handlers:  attached,
			Propagate: len(attached) == 0,
		}
	}
	return p
}

// LoggingConfig returns a snapshot of the current configuration. The
// returned maps are copies and may be modified freely.
func (p *Provider) LoggingConfig() LoggingConfig {
	p.mu.Lock()
	defer p.mu.Unlock()

	mapping := make(map[string]string, len(p.channels))
	for k, v := range p.channels {
		mapping[k] = v
	}

	handlers := make(map[string]HandlerSpec, len(p.handlers))
	for k, v := range p.handlers {
		v.Filters = slices.Clone(v.Filters)
		if v.Rich != nil {
			r := *v.Rich
			v.Rich = &r
		}
		handlers[k] = v
	}

	loggers := make(map[string]LoggerSpec, len(p.loggers))
	for k, v := range p.loggers {
		v.Handlers = slices.Clone(v.Handlers)
		loggers[k] = v
	}

	return LoggingConfig{
		Version:                1,
		DisableExistingLoggers: false,
		Filters: map[string]FilterSpec{
			FilterName: {
				Factory:        FilterFactoryChannel,
				ProjectName:    p.opts.ProjectName,
				ChannelMapping: mapping,
			},
		},
		Formatters: Formatters(),
		Handlers:   handlers,
		Loggers:    loggers,
		Root: RootSpec{
			Level:    p.rootLevel(),
			Handlers: p.rootHandlers(),
		},
	}
}

func (p *Provider) rootLevel() string {
	if p.opts.Debug {
		return "DEBUG"
	}
	return "INFO"
}

func (p *Provider) rootHandlers() []string {
	return []string{HandlerConsole, p.rootFileHandlerName()}
}

func (p *Provider) rootFileHandlerName() string {
	return "file__" + p.opts.ProjectName
}

func (p *Provider) configureRoot() {
	if p.useRich {
		p.handlers[HandlerConsole] = HandlerSpec{
			Class:     ClassRich,
			Level:     p.rootLevel(),
			Formatter: FormatterRich,
			Filters:   []string{FilterName},
			Rich:      &RichOptions{ShowTime: true, ShowLevel: true, ShowPath: false},
		}
	} else {
		p.handlers[HandlerConsole] = HandlerSpec{
			Class:     ClassStream,
			Level:     p.rootLevel(),
			Formatter: FormatterVerbose,
			Filters:   []string{FilterName},
		}
	}

	p.handlers[p.rootFileHandlerName()] = p.fileHandler(p.opts.ProjectName+".log", p.rootLevel())
	p.channels[p.opts.ProjectName] = p.opts.ProjectName
}

func (p *Provider) fileHandler(file, level string) HandlerSpec {
	return HandlerSpec{
		Class:       ClassRotatingFile,
		Level:       level,
		Formatter:   FormatterVerbose,
		Filters:     []string{FilterName},
		Filename:    filepath.Join(p.opts.LogDir, file),
		MaxBytes:    p.opts.MaxBytes,
		BackupCount: p.opts.Backups,
		Encoding:    "utf-8",
	}
}

func (p *Provider) ensureFileHandler(alias, level string) string {
	name := "file__" + alias
	if _, ok := p.handlers[name]; !ok {
		p.handlers[name] = p.fileHandler(alias+".log", level)
	}
	return name
}

func (p *Provider) ensureCustomHandler(alias, level string) string {
	name := "custom__" + alias
	if _, ok := p.handlers[name]; !ok {
		p.handlers[name] = HandlerSpec{
			Class:     ClassCallable,
			Level:     level,
			Formatter: FormatterVerbose,
			Filters:   []string{FilterName},
		}
	}
	return name
}
