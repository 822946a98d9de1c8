// Package dataprocessing decodes uploaded trace files into tables.
//
// Three input shapes are supported and chosen from the upload filename:
//
//   - names ending in ".xlsx" are read with excelize, first sheet only
//   - names containing "csv" are comma separated text
//   - everything else is tab separated text
//
// In every case the first non-blank line is the header. Cells are typed on
// read: numbers become numeric cells, the usual missing-value spellings
// ("", "NA", "NaN", ...) become missing cells and everything else is text.
//
// Basic usage:
//
//	t, err := dataprocessing.ParseUpload(raw, "traces.csv")
//	if err != nil {
//	    return fmt.Errorf("load: %w", err)
//	}
package dataprocessing
