package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/xalekter/charts-edit/internal/table"
)

// WorkbookFilename is the download name of a workbook export.
const WorkbookFilename = "modified_data.xlsx"

// SheetName is the sheet written by WriteWorkbook.
const SheetName = "Data"

// WriteWorkbook writes the table to a single-sheet .xlsx workbook. Numeric
// cells are stored as numbers, text as strings, missing cells are left empty.
func (w *TableWriter) WriteWorkbook(out io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	columns := t.Columns()
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i := 0; i < t.Len(); i++ {
		row, err := t.Row(i)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row.Cells))
		for c, v := range row.Cells {
			values[c] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Debug("Wrote workbook export",
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(columns)))
	return nil
}

func cellValue(v table.Value) interface{} {
	switch v.Kind() {
	case table.KindNumber:
		f, _ := v.Float()
		return f
	case table.KindText:
		return v.String()
	default:
		return nil
	}
}
