package table

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind classifies a cell or a column.
type Kind int

const (
	KindMissing Kind = iota
	KindNumber
	KindText
)

// String returns the kind name used in API payloads.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "missing"
	}
}

// missingTokens are the cell spellings read as missing values.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
}

// Value is a single typed cell. The zero Value is missing.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Number returns a numeric cell. NaN is stored as missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Missing()
	}
	return Value{kind: KindNumber, num: f}
}

// Text returns a text cell.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Missing returns an empty cell.
func Missing() Value {
	return Value{}
}

// ParseValue reads a raw cell the way the loaders do: missing tokens become
// Missing, anything strconv accepts as a finite or infinite float becomes a
// Number, everything else is Text.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if _, ok := missingTokens[s]; ok {
		return Missing()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(f)
	}
	return Text(raw)
}

// Kind reports the cell kind.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the cell is empty.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Float returns the numeric payload and whether the cell is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// String returns the display form of the cell. Filtering and export both
// compare and write this form, so a numeric site code 1 reads as "1".
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.num == o.num && v.text == o.text
}

// MarshalJSON encodes numbers as JSON numbers, text as strings and missing
// cells as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsInf(v.num, 0) {
			return json.Marshal(FormatNumber(v.num))
		}
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts numbers, strings and null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Missing()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = Text(s)
	return nil
}

// FormatNumber renders a float without trailing zeros: 10 -> "10",
// 3.46 -> "3.46".
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
