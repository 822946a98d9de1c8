package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/xalekter/charts-edit/internal/table"
)

// Format identifies how an uploaded file is decoded.
type Format int

const (
	FormatTab Format = iota
	FormatComma
	FormatWorkbook
)

// String returns a short name for logs.
func (f Format) String() string {
	switch f {
	case FormatComma:
		return "csv"
	case FormatWorkbook:
		return "xlsx"
	default:
		return "tsv"
	}
}

// ErrNoColumns is returned for input without a header line.
var ErrNoColumns = errors.New("no columns to parse from file")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectFormat picks the decoder from the filename: ".xlsx" files are
// workbooks, names containing "csv" are comma separated, anything else is
// tab separated.
func DetectFormat(filename string) Format {
	name := strings.ToLower(filename)
	switch {
	case filepath.Ext(name) == ".xlsx":
		return FormatWorkbook
	case strings.Contains(filename, "csv"):
		return FormatComma
	default:
		return FormatTab
	}
}

// ParseUpload decodes raw file bytes according to DetectFormat(filename).
func ParseUpload(raw []byte, filename string) (*table.Table, error) {
	switch DetectFormat(filename) {
	case FormatWorkbook:
		return ParseWorkbook(bytes.NewReader(raw))
	case FormatComma:
		return ParseDelimited(bytes.NewReader(raw), ',')
	default:
		return ParseDelimited(bytes.NewReader(raw), '\t')
	}
}

// ParseDelimited reads delimited text whose first line is the header.
// Short lines are padded with missing cells; lines with more fields than
// the header are rejected.
func ParseDelimited(r io.Reader, delim rune) (*table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited input: %w", err)
	}
	return build(records)
}

// ParseWorkbook reads the first sheet of an .xlsx workbook whose first row
// is the header.
func ParseWorkbook(r io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoColumns
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return build(rows)
}

func build(records [][]string) (*table.Table, error) {
	// Leading blank lines are skipped before the header.
	for len(records) > 0 && blank(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, ErrNoColumns
	}

	header := dedupe(records[0])
	width := len(header)
	t := table.New(header)

	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		if len(rec) > width {
			return nil, fmt.Errorf("error tokenizing data: expected %d fields in line %d, saw %d", width, i+2, len(rec))
		}
		cells := make([]table.Value, width)
		for c := range cells {
			if c < len(rec) {
				cells[c] = table.ParseValue(rec[c])
			}
		}
		if _, err := t.Append(cells); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// dedupe renames repeated header names to "name.1", "name.2", ... and fills
// blank names with "Unnamed: i".
func dedupe(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			seen[base]++
			name = base + "." + strconv.Itoa(seen[base])
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

func blank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
