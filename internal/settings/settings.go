// =============================================================================
// dataprep - Settings Module
// =============================================================================
//
// This module holds the process settings: the data directory layout and the
// logging setup derived from the main configuration.
//
// DIRECTORY LAYOUT:
//   <base>/raw
//   <base>/interim
//   <base>/timeseries/raw
//   <base>/timeseries/interim
//   <base>/logs/<project>.log
//
// =============================================================================

package settings

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/dataprep/internal/config"
	"github.com/ginjaninja78/dataprep/internal/dataloader"
	"github.com/ginjaninja78/dataprep/internal/logging"
	"github.com/ginjaninja78/dataprep/pkg/utils"
)

// DataDirs are the absolute data directories, created on demand.
type DataDirs struct {
	Base      string
	Raw       string
	Interim   string
	TSRaw     string
	TSInterim string
	Logs      string
}

// Settings bundles everything a command needs.
type Settings struct {
	Config   *config.MainConfig
	Dirs     DataDirs
	Provider *logging.Provider
	Logging  *logging.Dispatcher
}

var (
	initOnce sync.Once
	instance *Settings
	initErr  error
)

// NewDataDirs creates the directory layout under base.
func NewDataDirs(base string) (DataDirs, error) {
	var dirs DataDirs
	targets := []struct {
		dst  *string
		path string
	}{
		{&dirs.Base, base},
		{&dirs.Raw, filepath.Join(base, "raw")},
		{&dirs.Interim, filepath.Join(base, "interim")},
		{&dirs.TSRaw, filepath.Join(base, "timeseries", "raw")},
		{&dirs.TSInterim, filepath.Join(base, "timeseries", "interim")},
		{&dirs.Logs, filepath.Join(base, "logs")},
	}
	for _, t := range targets {
		dir, err := utils.EnsureDir(t.path)
		if err != nil {
			return DataDirs{}, err
		}
		*t.dst = dir
	}
	return dirs, nil
}

// New builds Settings from cfg: it creates the data directories, builds the
// logging configuration, registers the configured loggers and installs the
// resulting dispatcher as the process default.
//
// PARAMETERS:
//   - cfg: The main configuration, with defaults applied.
//   - callbacks: Callbacks available to custom handlers. May be nil.
//
// RETURNS:
//   - The Settings. Close them to release log files.
//   - An error if a directory cannot be created or logging cannot be set up.
func New(cfg *config.MainConfig, callbacks *logging.Callbacks) (*Settings, error) {
	return build(cfg, callbacks, logging.NewProvider)
}

// Init is New run once per process. Later calls return the first result.
func Init(cfg *config.MainConfig, callbacks *logging.Callbacks) (*Settings, error) {
	initOnce.Do(func() {
		instance, initErr = build(cfg, callbacks, logging.Init)
	})
	return instance, initErr
}

func build(cfg *config.MainConfig, callbacks *logging.Callbacks, newProvider func(logging.Options) (*logging.Provider, error)) (*Settings, error) {
	dirs, err := NewDataDirs(cfg.BaseDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create data directories: %w", err)
	}

	provider, err := newProvider(logging.Options{
		ProjectName: cfg.ProjectName,
		Debug:       cfg.Debug,
		LogDir:      dirs.Logs,
		UseRich:     cfg.Logging.UseRich(),
		MaxBytes:    cfg.Logging.MaxBytes,
		Backups:     cfg.Logging.BackupCount(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	for _, reg := range cfg.Logging.Loggers {
		provider.AddLoggers(reg.Names, reg.Level, reg.Handlers...)
	}

	dispatcher, err := logging.Configure(provider.LoggingConfig(), callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to apply logging configuration: %w", err)
	}
	logging.SetDefault(dispatcher)

	return &Settings{
		Config:   cfg,
		Dirs:     dirs,
		Provider: provider,
		Logging:  dispatcher,
	}, nil
}

// Logger returns the named logger of these settings.
func (s *Settings) Logger(name string) zerolog.Logger {
	return s.Logging.Logger(name)
}

// Loader returns a data loader over the raw directory.
func (s *Settings) Loader() *dataloader.Loader {
	return dataloader.New(s.Dirs.Raw, s.Config.CSVSettings, s.Logger(s.Config.ProjectName+".dataloader"))
}

// Close releases the log files.
func (s *Settings) Close() error {
	return s.Logging.Close()
}
