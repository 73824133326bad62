package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotAFile is returned when a source path names a directory
var ErrNotAFile = errors.New("path is a directory, not a file")

// ErrTemporaryFile is returned for office lock files such as ~$prices.xlsx
var ErrTemporaryFile = errors.New("temporary office lock file")

// ErrEmptyFile is returned for zero-byte sources
var ErrEmptyFile = errors.New("file is empty")

// FileValidator checks dataset sources and output locations before they are
// read or written
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateSource checks that path is a readable, non-empty regular file that
// is not an office lock file. A missing file wraps os.ErrNotExist.
func (v *FileValidator) ValidateSource(path string) error {
	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Rejecting temporary file",
			slog.String("file", path))
		return fmt.Errorf("%s: %w", path, ErrTemporaryFile)
	}

	info, err := os.Stat(path)
	if err != nil {
		v.logger.Error("Source file not accessible",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrNotAFile)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("Source file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("Source file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateExtension checks that path ends in one of allowed, compared
// case-insensitively with the leading dot
func (v *FileValidator) ValidateExtension(path string, allowed ...string) error {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return nil
		}
	}
	return fmt.Errorf("file %s has extension %q, want one of %s", filepath.Base(path), ext, strings.Join(allowed, ", "))
}

// ValidateOutputDirectory ensures dir exists or can be created and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	file, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(file.Name())

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
