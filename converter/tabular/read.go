package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"fileconvert/converter/failure"
	"fileconvert/converter/format"
)

// Read parses raw into a Dataset according to the source extension
func Read(src format.Extension, raw []byte) (*Dataset, error) {
	switch src {
	case format.CSV:
		return readDelimited(raw, ',')
	case format.TSV:
		return readDelimited(raw, '\t')
	case format.JSON:
		return readJSON(raw)
	case format.XLSX:
		return readXLSX(raw)
	default:
		return nil, failure.New(failure.UnsupportedFormat, "unsupported tabular source: %s", src)
	}
}

func readDelimited(raw []byte, comma rune) (*Dataset, error) {
	if !utf8.Valid(raw) {
		return nil, failure.New(failure.InvalidEncoding, "delimited input is not valid UTF-8")
	}

	// BOMOverride strips a leading byte order mark written by spreadsheet exports
	decoded := transform.NewReader(bytes.NewReader(raw), unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	r := csv.NewReader(decoded)
	r.Comma = comma
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, failure.New(failure.MalformedInput, "no columns to parse from input")
	}
	if err != nil {
		return nil, failure.Wrap(failure.MalformedInput, err, "cannot parse header row")
	}

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, failure.Wrap(failure.MalformedInput, err, "cannot parse row %d", len(records)+2)
		}
		if len(rec) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, failure.New(failure.MalformedInput,
				"expected %d fields on line %d, saw %d", len(header), line, len(rec))
		}
		records = append(records, rec)
	}

	return fromStrings(header, records), nil
}

// jsonTable accumulates flattened rows while tracking column first-appearance order
type jsonTable struct {
	columns []string
	index   map[string]int
	rows    []map[string]any
}

func readJSON(raw []byte) (*Dataset, error) {
	if !utf8.Valid(raw) {
		return nil, failure.New(failure.InvalidEncoding, "JSON input is not valid UTF-8")
	}
	if !gjson.ValidBytes(raw) {
		return nil, failure.New(failure.MalformedInput, "input is not valid JSON")
	}

	t := &jsonTable{index: make(map[string]int)}
	doc := gjson.ParseBytes(raw)

	switch {
	case doc.IsObject():
		t.addRow(doc)
	case doc.IsArray():
		var bad int
		doc.ForEach(func(i, elem gjson.Result) bool {
			if !elem.IsObject() {
				bad = int(i.Int()) + 1
				return false
			}
			t.addRow(elem)
			return true
		})
		if bad > 0 {
			return nil, failure.New(failure.MalformedInput, "JSON array element %d is not an object", bad)
		}
	default:
		return nil, failure.New(failure.MalformedInput, "JSON document must be an object or an array of objects")
	}

	ds := &Dataset{Columns: t.columns, Rows: make([][]any, len(t.rows))}
	for r, row := range t.rows {
		cells := make([]any, len(t.columns))
		for name, v := range row {
			cells[t.index[name]] = v
		}
		ds.Rows[r] = cells
	}
	return ds, nil
}

func (t *jsonTable) addRow(obj gjson.Result) {
	row := make(map[string]any)
	t.flatten("", obj, row)
	t.rows = append(t.rows, row)
}

// flatten walks nested objects, naming leaf columns by their dotted path
func (t *jsonTable) flatten(prefix string, obj gjson.Result, row map[string]any) {
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		if value.IsObject() {
			t.flatten(name, value, row)
			return true
		}

		if _, ok := t.index[name]; !ok {
			t.index[name] = len(t.columns)
			t.columns = append(t.columns, name)
		}
		row[name] = jsonValue(value)
		return true
	})
}

func jsonValue(v gjson.Result) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Number:
		if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return n
		}
		return v.Float()
	case gjson.String:
		return v.String()
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(v.Raw)); err != nil {
			return json.RawMessage(v.Raw)
		}
		return json.RawMessage(buf.Bytes())
	}
}
