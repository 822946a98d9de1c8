// Package validation checks the files the batch CLI reads and writes before
// any table work starts.
package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xalekter/charts-edit/internal/infrastructure"
)

// Errors returned by FileValidator. Callers match them with errors.Is.
var (
	ErrNotFound    = errors.New("file does not exist")
	ErrNotAFile    = errors.New("path is a directory")
	ErrEmptyFile   = errors.New("file is empty")
	ErrTooLarge    = errors.New("file exceeds the size limit")
	ErrTempFile    = errors.New("file is an office lock file")
	ErrNotWritable = errors.New("output location is not writable")
)

// FileValidator validates input tables and output locations
type FileValidator struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewFileValidator creates a new file validator. A non-positive maxBytes
// disables the size check.
func NewFileValidator(maxBytes int64, logger *slog.Logger) *FileValidator {
	return &FileValidator{
		maxBytes: maxBytes,
		logger:   infrastructure.WithComponent(logger, "file_validator"),
	}
}

// ValidateInput checks that path is a readable, non-empty regular file
// within the size limit.
func (v *FileValidator) ValidateInput(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		v.logger.Error("input file does not exist", slog.String("file", path))
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotAFile, path)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("skipping temporary Excel file", slog.String("file", path))
		return fmt.Errorf("%w: %s", ErrTempFile, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	if v.maxBytes > 0 && info.Size() > v.maxBytes {
		v.logger.Error("input file too large",
			slog.String("file", path),
			slog.Int64("size", info.Size()),
			slog.Int64("limit", v.maxBytes))
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, path, info.Size(), v.maxBytes)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutput ensures the directory of path exists or can be created,
// is writable, and that path itself is not a directory.
func (v *FileValidator) ValidateOutput(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %w", ErrNotWritable, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %w", ErrNotWritable, dir, err)
	}
	tmp.Close()
	os.Remove(tmp.Name())

	v.logger.Debug("output location validated", slog.String("file", path))
	return nil
}
