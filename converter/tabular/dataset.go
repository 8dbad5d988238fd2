package tabular

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Dataset is an in-memory table used between parsing a source encoding and
// serializing the target one.
//
// Cells hold nil (missing), int64, float64, bool, string or json.RawMessage
// (nested JSON arrays). Every row has exactly len(Columns) cells.
type Dataset struct {
	Columns []string
	Rows    [][]any
}

// naValues are the cell spellings read as a missing value
var naValues = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"#N/A": true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

// fromStrings builds a Dataset from a header and string cells, inferring one
// type per column the way a spreadsheet user would expect.
func fromStrings(header []string, records [][]string) *Dataset {
	width := len(header)
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}

	ds := &Dataset{Columns: columnNames(header, width), Rows: make([][]any, len(records))}
	for r := range records {
		ds.Rows[r] = make([]any, width)
	}

	column := make([]string, len(records))
	for c := 0; c < width; c++ {
		for r, rec := range records {
			column[r] = ""
			if c < len(rec) {
				column[r] = rec[c]
			}
		}
		for r, v := range inferColumn(column) {
			ds.Rows[r][c] = v
		}
	}
	return ds
}

// columnNames names width columns from header, filling blanks with
// "Unnamed: i" and de-duplicating repeats
func columnNames(header []string, width int) []string {
	names := make([]string, width)
	for i := range names {
		if i < len(header) {
			names[i] = strings.TrimSpace(header[i])
		}
		if names[i] == "" {
			names[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}
	return mangleDuplicates(names)
}

// mangleDuplicates renames repeated column names to name.1, name.2, ...
func mangleDuplicates(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for i, name := range names {
		candidate := name
		for n := 1; taken[candidate]; n++ {
			candidate = name + "." + strconv.Itoa(n)
		}
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

type columnType int

const (
	typeInt columnType = iota
	typeFloat
	typeBool
	typeString
)

// inferColumn picks the narrowest type every non-missing cell fits into
func inferColumn(cells []string) []any {
	kind, seen := typeInt, false
	for _, s := range cells {
		if naValues[s] {
			continue
		}
		if !seen {
			kind, seen = cellType(s), true
			continue
		}
		kind = widen(kind, cellType(s))
		if kind == typeString {
			break
		}
	}

	out := make([]any, len(cells))
	for i, s := range cells {
		if naValues[s] {
			continue
		}
		switch kind {
		case typeInt:
			out[i], _ = strconv.ParseInt(s, 10, 64)
		case typeFloat:
			out[i], _ = strconv.ParseFloat(s, 64)
		case typeBool:
			out[i] = strings.EqualFold(s, "true")
		default:
			out[i] = s
		}
	}
	return out
}

// widen returns the type that holds values of both a and b.
// Ints widen to floats; any other mix falls back to strings.
func widen(a, b columnType) columnType {
	switch {
	case a == b:
		return a
	case a <= typeFloat && b <= typeFloat:
		return typeFloat
	default:
		return typeString
	}
}

func cellType(s string) columnType {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return typeInt
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return typeFloat
	}
	if strings.EqualFold(s, "true") || strings.EqualFold(s, "false") {
		return typeBool
	}
	return typeString
}

// formatCell renders a cell for the text encodings (CSV, TSV)
func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case json.RawMessage:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// formatFloat keeps a trailing ".0" on integral values so the column stays
// a float column when the output is parsed again.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
