package tabular

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"fileconvert/converter/failure"
)

// builtinDateFormats are the predefined number format ids that render dates or times
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// literalFormatText matches quoted literals, escapes and [..] sections of a number format
var literalFormatText = regexp.MustCompile(`"[^"]*"|\\.|\[[^\]]*\]`)

// sheetReader reads typed cells from one worksheet
type sheetReader struct {
	f          *excelize.File
	sheet      string
	dateStyles map[int]bool
}

// readXLSX reads the first worksheet. Cells keep the type stored in the
// workbook: numbers come from the raw value, not the formatted display text.
func readXLSX(raw []byte) (*Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, failure.Wrap(failure.MalformedInput, err, "cannot open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, failure.New(failure.MalformedInput, "workbook has no sheets")
	}
	sheet := sheets[0]

	shown, err := f.GetRows(sheet)
	if err != nil {
		return nil, failure.Wrap(failure.MalformedInput, err, "cannot read sheet %q", sheet)
	}
	values, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, failure.Wrap(failure.MalformedInput, err, "cannot read sheet %q", sheet)
	}
	if len(shown) == 0 {
		return nil, failure.New(failure.MalformedInput, "sheet %q is empty", sheet)
	}

	width := 0
	for _, row := range shown {
		width = max(width, len(row))
	}
	for _, row := range values {
		width = max(width, len(row))
	}

	sr := &sheetReader{f: f, sheet: sheet, dateStyles: make(map[int]bool)}
	ds := &Dataset{Columns: columnNames(shown[0], width), Rows: make([][]any, len(shown)-1)}
	for r := 1; r < len(shown); r++ {
		cells := make([]any, width)
		for c := range cells {
			v, err := sr.cell(c+1, r+1, cellAt(shown, r, c), cellAt(values, r, c))
			if err != nil {
				return nil, failure.Wrap(failure.MalformedInput, err, "cannot read row %d", r+1)
			}
			cells[c] = v
		}
		ds.Rows[r-1] = cells
	}

	widenNumericColumns(ds)
	return ds, nil
}

func cellAt(rows [][]string, r, c int) string {
	if r < len(rows) && c < len(rows[r]) {
		return rows[r][c]
	}
	return ""
}

// cell converts one cell using its stored type; col and row are 1-based
func (sr *sheetReader) cell(col, row int, shown, value string) (any, error) {
	if naValues[shown] && naValues[value] {
		return nil, nil
	}

	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, err
	}
	typ, err := sr.f.GetCellType(sr.sheet, name)
	if err != nil {
		return nil, err
	}

	switch typ {
	case excelize.CellTypeBool:
		return value == "1" || strings.EqualFold(value, "true"), nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		date, err := sr.isDate(name)
		if err != nil {
			return nil, err
		}
		if date {
			return shown, nil
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f, nil
		}
		return shown, nil
	default:
		// shared and inline strings, string formula results, dates, errors
		if naValues[shown] {
			return nil, nil
		}
		return shown, nil
	}
}

// isDate reports whether the cell's number format renders a date or time
func (sr *sheetReader) isDate(cell string) (bool, error) {
	id, err := sr.f.GetCellStyle(sr.sheet, cell)
	if err != nil {
		return false, err
	}
	if date, ok := sr.dateStyles[id]; ok {
		return date, nil
	}

	style, err := sr.f.GetStyle(id)
	if err != nil {
		return false, err
	}
	date := builtinDateFormats[style.NumFmt]
	if !date && style.CustomNumFmt != nil {
		date = isDateFormat(*style.CustomNumFmt)
	}
	sr.dateStyles[id] = date
	return date, nil
}

func isDateFormat(code string) bool {
	code = strings.ToLower(literalFormatText.ReplaceAllString(code, ""))
	return strings.ContainsAny(code, "ydhms")
}

// widenNumericColumns turns ints into floats in columns that mix the two,
// so a column has a single numeric type like the other readers produce.
func widenNumericColumns(ds *Dataset) {
	for c := range ds.Columns {
		var hasFloat, other bool
		for _, row := range ds.Rows {
			switch row[c].(type) {
			case nil, int64:
			case float64:
				hasFloat = true
			default:
				other = true
			}
		}
		if !hasFloat || other {
			continue
		}
		for _, row := range ds.Rows {
			if n, ok := row[c].(int64); ok {
				row[c] = float64(n)
			}
		}
	}
}
