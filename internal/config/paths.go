package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved, absolute application paths
type Paths struct {
	BaseDir     string
	DataDir     string
	ReportsDir  string
	ChartsDir   string
	ExportsDir  string
	DatasetFile string
	JournalFile string
}

// ResolvePaths resolves the configured paths against baseDir. An empty
// baseDir means the working directory.
func ResolvePaths(cfg PathsConfig, baseDir string) (*Paths, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	reportsDir := resolve(cfg.ReportsDir)
	return &Paths{
		BaseDir:     baseDir,
		DataDir:     resolve(cfg.DataDir),
		ReportsDir:  reportsDir,
		ChartsDir:   filepath.Join(reportsDir, "charts"),
		ExportsDir:  filepath.Join(reportsDir, "exports"),
		DatasetFile: resolve(cfg.DatasetFile),
		JournalFile: resolve(cfg.JournalFile),
	}, nil
}

// ResolvedPaths resolves the configured paths against the working directory
func (c *Config) ResolvedPaths() (*Paths, error) {
	return ResolvePaths(c.Paths, "")
}

// EnsureDirectories creates all output directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.DataDir, p.ReportsDir, p.ChartsDir, p.ExportsDir}
	if p.JournalFile != "" {
		dirs = append(dirs, filepath.Dir(p.JournalFile))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetReportPath returns the full path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetChartPath returns the full path for a rendered chart
func (p *Paths) GetChartPath(filename string) string {
	return filepath.Join(p.ChartsDir, filename)
}

// GetExportPath returns the full path for an exported data file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("Path resolution",
		slog.String("base_dir", p.BaseDir),
		slog.String("data_dir", p.DataDir),
		slog.String("reports_dir", p.ReportsDir),
		slog.String("dataset_file", p.DatasetFile),
		slog.String("journal_file", p.JournalFile))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
