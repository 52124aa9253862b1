package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/dataprep/internal/config"
	"github.com/ginjaninja78/dataprep/internal/dataloader"
	"github.com/ginjaninja78/dataprep/internal/types"
	"github.com/ginjaninja78/dataprep/pkg/errors"
	"github.com/ginjaninja78/dataprep/pkg/utils"
)

func TestBuild(t *testing.T) {
	frame := &types.Frame{
		SourceFile: "x.csv",
		Headers:    []string{"n", "s"},
		Types:      []types.ColumnType{types.ColumnFloat, types.ColumnString},
		Rows: [][]any{
			{1.0, "a"},
			{nil, "a"},
			{3.0, nil},
		},
	}

	prof := Build(frame)
	assert.Equal(t, "x.csv", prof.SourceFile)
	assert.Equal(t, 3, prof.Rows)
	require.Len(t, prof.Columns, 2)

	n := prof.Columns[0]
	assert.Equal(t, types.ColumnFloat, n.Type)
	assert.Equal(t, 2, n.Count)
	assert.Equal(t, 1, n.Missing)
	assert.Equal(t, 2, n.Unique)
	require.NotNil(t, n.Mean)
	assert.InDelta(t, 2.0, *n.Mean, 1e-9)
	assert.Equal(t, 1.0, *n.Min)
	assert.Equal(t, 3.0, *n.Max)

	s := prof.Columns[1]
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 1, s.Unique)
	assert.Nil(t, s.Mean)
}

func newProfiler(t *testing.T, files map[string]string) (*Profiler, string) {
	t.Helper()
	raw := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(raw, name), []byte(content), 0o644))
	}
	out := filepath.Join(t.TempDir(), "interim")
	loader := dataloader.New(raw, config.Default().CSVSettings, zerolog.Nop())
	return New(loader, out, "{original}_{run}", zerolog.Nop()), out
}

func TestRun(t *testing.T) {
	p, out := newProfiler(t, map[string]string{"example.csv": "a,b\n1,x\n2,y\n"})

	result := p.Run("example.csv")
	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, filepath.Join(out, "example_"+p.RunID()+".json"), result.OutputFile)
	assert.Equal(t, 2, result.Stats.Rows)
	assert.Equal(t, 2, result.Stats.Columns)

	var saved Profile
	require.NoError(t, utils.OpenJSONInto(result.OutputFile, &saved))
	assert.Equal(t, p.RunID(), saved.RunID)
	assert.Equal(t, 2, saved.Rows)
	assert.Equal(t, types.ColumnInt, saved.Columns[0].Type)
}

func TestRun_LoadError(t *testing.T) {
	p, _ := newProfiler(t, nil)

	result := p.Run("missing.csv")
	assert.False(t, result.Success)
	assert.True(t, errors.IsCode(result.Error, errors.ErrCodeNotFound))
	assert.Empty(t, result.OutputFile)
	assert.Nil(t, result.Profile)
}

func TestRunAll(t *testing.T) {
	p, out := newProfiler(t, map[string]string{
		"b.csv":   "x\n1\n",
		"a.csv":   "y\n2\n",
		"bad.csv": "x,y\n1,2,3\n",
	})

	results := p.RunAll([]string{"b.csv", "bad.csv", "a.csv"})
	require.Len(t, results, 3)

	assert.True(t, strings.HasSuffix(results[0].FilePath, "a.csv"))
	assert.True(t, strings.HasSuffix(results[1].FilePath, "b.csv"))
	assert.True(t, strings.HasSuffix(results[2].FilePath, "bad.csv"))
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.False(t, results[2].Success)

	written, err := utils.GetDirectoryFilesList(out)
	require.NoError(t, err)
	assert.Len(t, written, 2)
}

func TestWrite(t *testing.T) {
	out := t.TempDir()
	p := New(nil, out, "{original}", zerolog.Nop())
	frame := &types.Frame{
		SourceFile: filepath.Join("raw", "sales.csv"),
		Headers:    []string{"amount"},
		Types:      []types.ColumnType{types.ColumnInt},
		Rows:       [][]any{{int64(4)}, {int64(6)}},
	}

	result := p.Write(frame, "")
	require.NoError(t, result.Error)
	assert.Equal(t, filepath.Join(out, "sales.json"), result.OutputFile)

	doc, err := utils.OpenJSON(result.OutputFile)
	require.NoError(t, err)
	columns := doc.(map[string]any)["columns"].([]any)
	assert.Equal(t, 5.0, columns[0].(map[string]any)["mean"])
}

func TestWrite_Sheet(t *testing.T) {
	out := t.TempDir()
	p := New(nil, out, "{original}", zerolog.Nop())
	frame := &types.Frame{
		SourceFile: filepath.Join("raw", "book.xlsx"),
		Headers:    []string{"item"},
		Types:      []types.ColumnType{types.ColumnString},
		Rows:       [][]any{{"rent"}},
	}

	result := p.Write(frame, "costs")
	require.NoError(t, result.Error)
	assert.Equal(t, filepath.Join(out, "book_costs.json"), result.OutputFile)

	var saved Profile
	require.NoError(t, utils.OpenJSONInto(result.OutputFile, &saved))
	assert.Equal(t, "costs", saved.Sheet)
}

func TestBuild_ShortRows(t *testing.T) {
	frame := &types.Frame{
		Headers: []string{"a", "b"},
		Types:   []types.ColumnType{types.ColumnInt, types.ColumnInt},
		Rows:    [][]any{{int64(1), int64(2)}, {int64(3)}},
	}

	prof := Build(frame)
	assert.Equal(t, 1, prof.Columns[1].Missing)
	assert.Equal(t, 1, prof.Columns[1].Count)
}
