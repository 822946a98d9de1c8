package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xalekter/charts-edit/internal/config"
	apierrors "github.com/xalekter/charts-edit/internal/errors"
	"github.com/xalekter/charts-edit/internal/exporter"
	"github.com/xalekter/charts-edit/internal/session"
	"github.com/xalekter/charts-edit/internal/validation"
)

// axisFlags choose the plotted columns; empty values keep the defaults
// picked at load.
type axisFlags struct {
	x, y string
}

// openStore loads path into a fresh store and applies the axis overrides.
func openStore(path string, axes axisFlags, logger *slog.Logger) (*session.Store, session.LoadResult, error) {
	if err := validation.NewFileValidator(config.DefaultUploadMaxBytes, logger).ValidateInput(path); err != nil {
		if errors.Is(err, validation.ErrNotFound) {
			return nil, session.LoadResult{}, apierrors.NewStorageError("failed to read input", err)
		}
		return nil, session.LoadResult{}, apierrors.NewAppError(apierrors.ErrTypeValidation, "invalid input", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, session.LoadResult{}, apierrors.NewStorageError("failed to read input", err)
	}

	store := session.NewStore(logger)
	res, err := store.Load(raw, filepath.Base(path))
	if err != nil {
		return nil, res, apierrors.NewParsingError(fmt.Sprintf("failed to load %s", path), err)
	}
	logger.Info("dataset loaded",
		slog.String("path", path),
		slog.Int("rows", res.Rows),
		slog.Int("columns", len(res.Columns)))

	if axes.x != "" || axes.y != "" {
		x, y := store.Axes()
		if axes.x != "" {
			x = axes.x
		}
		if axes.y != "" {
			y = axes.y
		}
		if err := store.SelectAxes(x, y); err != nil {
			return nil, res, apierrors.NewAppValidationError(err.Error())
		}
	}
	return store, res, nil
}

// saveStore writes the live table to path, as a workbook when the name ends
// in .xlsx and as tab separated text otherwise.
func saveStore(store *session.Store, path string, logger *slog.Logger) error {
	if path == "" {
		path = exporter.DefaultFilename
	}
	if err := validation.NewFileValidator(0, logger).ValidateOutput(path); err != nil {
		return apierrors.NewStorageError("invalid output location", err)
	}

	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		data, err = store.ExportWorkbook()
	} else {
		data, err = store.Export()
	}
	if err != nil {
		return apierrors.NewEditingError("failed to export", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apierrors.NewStorageError("failed to write output", err)
	}
	return nil
}

// editingError classifies a store error for the exit status.
func editingError(err error) error {
	if errors.Is(err, session.ErrInvalidArgument) || errors.Is(err, session.ErrUnknownColumn) {
		return apierrors.NewAppValidationError(err.Error())
	}
	return apierrors.NewEditingError("edit failed", err)
}
