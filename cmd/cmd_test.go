package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/dataprep/internal/config"
	"github.com/ginjaninja78/dataprep/internal/logging"
	"github.com/ginjaninja78/dataprep/internal/settings"
	"github.com/ginjaninja78/dataprep/pkg/errors"
	"github.com/ginjaninja78/dataprep/pkg/utils"
)

// useTempSettings points the commands at a fresh data directory and returns it.
func useTempSettings(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	base := filepath.Join(root, "data")
	cfgPath := filepath.Join(root, "config.yaml")

	content := fmt.Sprintf(`project_name: proj
base_data_dir: '%s'
head_rows: 2
output_format: "{original}_profile"
logging:
  console: plain
  loggers:
    - names: [proj.prepare]
      level: INFO
      handlers: [file]
`, base)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	prevCfg, prevVerbose, prevNew := cfgFile, verbose, newSettings
	var opened []*settings.Settings
	cfgFile, verbose = cfgPath, false
	newSettings = func(cfg *config.MainConfig) (*settings.Settings, error) {
		s, err := settings.New(cfg, Callbacks)
		if err == nil {
			opened = append(opened, s)
		}
		return s, err
	}

	t.Cleanup(func() {
		cfgFile, verbose, newSettings = prevCfg, prevVerbose, prevNew
		logging.SetDefault(nil)
		for _, s := range opened {
			_ = s.Close()
		}
	})
	return base
}

func writeRaw(t *testing.T, base, name, content string) {
	t.Helper()
	raw, err := utils.EnsureDir(filepath.Join(base, "raw"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(raw, name), []byte(content), 0o644))
}

func TestRunPrepare(t *testing.T) {
	base := useTempSettings(t)
	writeRaw(t, base, "example.csv", "city,temp\noslo,3.5\nrome,\nlima,19\n")

	var out bytes.Buffer
	require.NoError(t, runPrepare(&out, prepareOptions{}))

	text := out.String()
	assert.Contains(t, text, "oslo")
	assert.Contains(t, text, "NaN")
	assert.NotContains(t, text, "lima")
	assert.Contains(t, text, "[3 rows x 2 columns]")

	profilePath := filepath.Join(base, "interim", "example_profile.json")
	assert.Contains(t, text, profilePath)

	var prof map[string]any
	require.NoError(t, utils.OpenJSONInto(profilePath, &prof))
	assert.EqualValues(t, 3, prof["rows"])

	logData, err := os.ReadFile(filepath.Join(base, "logs", "prepare.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "prepare | INFO: proj.prepare:")
	assert.Contains(t, string(logData), "Elapsed time:")
}

func TestRunPrepare_Options(t *testing.T) {
	base := useTempSettings(t)
	writeRaw(t, base, "other.csv", "n\n1\n2\n3\n")

	var out bytes.Buffer
	require.NoError(t, runPrepare(&out, prepareOptions{file: "other.csv", rows: 3, noProfile: true}))

	assert.Contains(t, out.String(), "[3 rows x 1 columns]")
	assert.NotContains(t, out.String(), "Profile:")

	written, err := utils.GetDirectoryFilesList(filepath.Join(base, "interim"))
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestRunPrepare_MissingFile(t *testing.T) {
	useTempSettings(t)

	err := runPrepare(&bytes.Buffer{}, prepareOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestRunPrepare_All(t *testing.T) {
	base := useTempSettings(t)
	writeRaw(t, base, "a.csv", "x\n1\n")
	writeRaw(t, base, "b.csv", "y\n2\n")
	writeRaw(t, base, "C.CSV", "z\n3\n")
	writeRaw(t, base, "notes.md", "# ignored")

	var out bytes.Buffer
	require.NoError(t, runPrepare(&out, prepareOptions{all: true}))

	assert.Contains(t, out.String(), "a_profile.json")
	assert.Contains(t, out.String(), "b_profile.json")
	assert.Contains(t, out.String(), "C_profile.json")
	assert.NotContains(t, out.String(), "notes.md")
}

func TestRunPrepare_Sheets(t *testing.T) {
	base := useTempSettings(t)
	raw, err := utils.EnsureDir(filepath.Join(base, "raw"))
	require.NoError(t, err)

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	require.NoError(t, f.SetSheetName("Sheet1", "north"))
	require.NoError(t, f.SetSheetRow("north", "A1", &[]any{"city"}))
	require.NoError(t, f.SetSheetRow("north", "A2", &[]any{"oslo"}))
	_, err = f.NewSheet("south")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("south", "A1", &[]any{"city", "temp"}))
	require.NoError(t, f.SetSheetRow("south", "A2", &[]any{"lima", 19}))
	require.NoError(t, f.SaveAs(filepath.Join(raw, "cities.xlsx")))

	var out bytes.Buffer
	require.NoError(t, runPrepare(&out, prepareOptions{file: "cities.xlsx", sheets: true}))

	text := out.String()
	assert.Contains(t, text, "Sheet: north")
	assert.Contains(t, text, "Sheet: south")
	assert.Contains(t, text, "[1 rows x 1 columns]")
	assert.Contains(t, text, "[1 rows x 2 columns]")
	assert.FileExists(t, filepath.Join(base, "interim", "cities_north_profile.json"))
	assert.FileExists(t, filepath.Join(base, "interim", "cities_south_profile.json"))
}

func TestRunPrepare_AllReportsFailures(t *testing.T) {
	base := useTempSettings(t)
	writeRaw(t, base, "good.csv", "x\n1\n")
	writeRaw(t, base, "bad.csv", "x\n1,2\n")

	var out bytes.Buffer
	err := runPrepare(&out, prepareOptions{all: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 file(s) failed")
	assert.Contains(t, out.String(), "good_profile.json")
}

func TestRunLoggingConfig(t *testing.T) {
	useTempSettings(t)

	var out bytes.Buffer
	require.NoError(t, runLoggingConfig(&out, "json"))

	var cfg logging.LoggingConfig
	require.NoError(t, json.Unmarshal(out.Bytes(), &cfg))
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, []string{"console", "file__proj"}, cfg.Root.Handlers)
	assert.Equal(t, []string{"file__prepare"}, cfg.Loggers["proj.prepare"].Handlers)
	assert.Equal(t, "prepare", cfg.Filters[logging.FilterName].ChannelMapping["proj.prepare"])

	out.Reset()
	require.NoError(t, runLoggingConfig(&out, "YAML"))
	var fromYAML logging.LoggingConfig
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &fromYAML))
	assert.Equal(t, cfg.Root, fromYAML.Root)
}

func TestRunLoggingConfig_BadFormat(t *testing.T) {
	useTempSettings(t)
	assert.Error(t, runLoggingConfig(&bytes.Buffer{}, "toml"))
}

func TestLoadConfig_Verbose(t *testing.T) {
	useTempSettings(t)
	verbose = true

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "proj", cfg.ProjectName)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	useTempSettings(t)
	cfgFile = filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestPrintVersion(t *testing.T) {
	var out bytes.Buffer
	printVersion(&out)
	assert.Contains(t, out.String(), "Version:    "+Version)
}
