// Package exporter writes edited trace tables back out.
//
// TableWriter supports two targets:
//
// WriteTSV / WriteDelimited: header line plus one line per row, values in
// their display form. The download name is DefaultFilename.
//
// WriteWorkbook: a single "Data" sheet with typed cells, downloaded as
// WorkbookFilename.
//
// Example usage:
//
//	w := exporter.NewTableWriter(logger)
//	var buf bytes.Buffer
//	if err := w.WriteTSV(&buf, t); err != nil {
//	    return err
//	}
package exporter
