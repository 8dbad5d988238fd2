package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"

	"github.com/tidwall/pretty"
	"github.com/xuri/excelize/v2"

	"fileconvert/converter/failure"
	"fileconvert/converter/format"
)

const sheetName = "Sheet1"

var prettyOptions = &pretty.Options{Width: 80, Prefix: "", Indent: "  ", SortKeys: false}

// Write serializes ds in the encoding named by dst
func Write(dst format.Extension, ds *Dataset) ([]byte, error) {
	if len(ds.Columns) == 0 {
		return nil, failure.New(failure.EncodingWriteFailure, "dataset has no columns to write")
	}

	var out []byte
	var err error
	switch dst {
	case format.CSV:
		out, err = writeDelimited(ds, ',')
	case format.TSV:
		out, err = writeDelimited(ds, '\t')
	case format.JSON:
		out, err = writeJSON(ds)
	case format.XLSX:
		out, err = writeXLSX(ds)
	default:
		return nil, failure.New(failure.UnsupportedFormat, "unsupported tabular target: %s", dst)
	}

	if err != nil {
		return nil, failure.Wrap(failure.EncodingWriteFailure, err, "cannot write %s", dst)
	}
	if len(out) == 0 {
		return nil, failure.New(failure.EncodingWriteFailure, "%s output is empty", dst)
	}
	return out, nil
}

func writeDelimited(ds *Dataset, comma rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma

	if err := writeRecord(w, &buf, ds.Columns); err != nil {
		return nil, err
	}
	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := writeRecord(w, &buf, record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeRecord writes one record. A lone empty field is written quoted:
// csv.Writer would emit a blank line, which readers skip.
func writeRecord(w *csv.Writer, buf *bytes.Buffer, record []string) error {
	if len(record) == 1 && record[0] == "" {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		buf.WriteString("\"\"\n")
		return nil
	}
	return w.Write(record)
}

// writeJSON emits an array of row objects with keys in column order.
// encoding/json would sort map keys, so objects are assembled by hand.
func writeJSON(ds *Dataset) ([]byte, error) {
	keys := make([][]byte, len(ds.Columns))
	for i, name := range ds.Columns {
		k, err := marshal(name)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for r, row := range ds.Rows {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for c, v := range row {
			if c > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[c])
			buf.WriteByte(':')
			val, err := jsonCell(v)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')

	return pretty.PrettyOptions(buf.Bytes(), prettyOptions), nil
}

func jsonCell(v any) ([]byte, error) {
	switch v := v.(type) {
	case nil:
		return []byte("null"), nil
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	case float64:
		return []byte(formatFloat(v)), nil
	case json.RawMessage:
		return v, nil
	default:
		return marshal(v)
	}
}

// marshal encodes v without escaping HTML characters; non-ASCII text is kept as is
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeXLSX(ds *Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(ds.Columns))
	for i, name := range ds.Columns {
		header[i] = name
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, err
	}

	for r, row := range ds.Rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			if raw, ok := v.(json.RawMessage); ok {
				v = string(raw)
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
