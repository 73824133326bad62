package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "prices.csv")

	paths, err := ResolvePaths(PathsConfig{
		DataDir:     "data",
		ReportsDir:  "out/reports",
		DatasetFile: abs,
		JournalFile: "data/journal.db",
	}, base)
	require.NoError(t, err)

	assert.Equal(t, base, paths.BaseDir)
	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(base, "out", "reports"), paths.ReportsDir)
	assert.Equal(t, filepath.Join(base, "out", "reports", "charts"), paths.ChartsDir)
	assert.Equal(t, filepath.Join(base, "out", "reports", "exports"), paths.ExportsDir)
	assert.Equal(t, abs, paths.DatasetFile)
	assert.Equal(t, filepath.Join(base, "data", "journal.db"), paths.JournalFile)

	assert.Equal(t, filepath.Join(paths.ChartsDir, "ma.png"), paths.GetChartPath("ma.png"))
	assert.Equal(t, filepath.Join(paths.ExportsDir, "impact.csv"), paths.GetExportPath("impact.csv"))
	assert.Equal(t, filepath.Join(paths.ReportsDir, "summary.json"), paths.GetReportPath("summary.json"))
}

func TestResolvePaths_WorkingDirectory(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	paths, err := Default().ResolvedPaths()
	require.NoError(t, err)
	assert.Equal(t, wd, paths.BaseDir)
	assert.Equal(t, filepath.Join(wd, "data", "prices.csv"), paths.DatasetFile)
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	paths, err := ResolvePaths(Default().Paths, base)
	require.NoError(t, err)

	require.NoError(t, paths.EnsureDirectories())
	for _, dir := range []string{paths.DataDir, paths.ReportsDir, paths.ChartsDir, paths.ExportsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}

	assert.False(t, FileExists(paths.JournalFile))
	require.NoError(t, os.WriteFile(paths.JournalFile, nil, 0o644))
	assert.True(t, FileExists(paths.JournalFile))
}
