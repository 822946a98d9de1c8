package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	"github.com/xalekter/charts-edit/internal/table"
)

// DefaultFilename is the download name of a tab separated export.
const DefaultFilename = "modified_data.DOY"

// WriteOptions configures delimited writing.
type WriteOptions struct {
	Delimiter rune
	BOMPrefix bool // UTF-8 BOM for Excel
}

// TableWriter writes tables to delimited text or workbooks.
type TableWriter struct {
	logger *slog.Logger
}

// NewTableWriter creates a writer. A nil logger falls back to slog.Default.
func NewTableWriter(logger *slog.Logger) *TableWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableWriter{logger: logger.With(slog.String("component", "exporter"))}
}

// WriteDelimited writes the header row followed by every row's display
// values. Missing cells are written empty.
func (w *TableWriter) WriteDelimited(out io.Writer, t *table.Table, options WriteOptions) error {
	if options.Delimiter == 0 {
		options.Delimiter = '\t'
	}
	if options.BOMPrefix {
		if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	writer.Comma = options.Delimiter

	if err := writer.Write(t.Columns()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range t.Strings() {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	w.logger.Debug("Wrote delimited export",
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.Columns())),
		slog.String("delimiter", string(options.Delimiter)))
	return nil
}

// WriteTSV writes the tab separated export used for downloads.
func (w *TableWriter) WriteTSV(out io.Writer, t *table.Table) error {
	return w.WriteDelimited(out, t, WriteOptions{Delimiter: '\t'})
}
