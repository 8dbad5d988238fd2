// Package tabular converts row/column data between CSV, TSV, JSON and XLSX.
//
// Sources are parsed into a Dataset and serialized again. JSON and XLSX cells
// keep the types stored in the document; CSV and TSV carry no type metadata,
// so their column types are inferred and values may come back as strings
// after a round trip.
package tabular

import (
	"fileconvert/converter/failure"
	"fileconvert/converter/format"
)

// Convert parses raw as src and serializes it as dst
func Convert(src, dst format.Extension, raw []byte) ([]byte, string, error) {
	if format.FamilyOf(src) != format.Tabular || format.FamilyOf(dst) != format.Tabular {
		return nil, "", failure.New(failure.UnsupportedFormat, "unsupported tabular conversion: %s -> %s", src, dst)
	}

	ds, err := Read(src, raw)
	if err != nil {
		return nil, "", err
	}

	out, err := Write(dst, ds)
	if err != nil {
		return nil, "", err
	}
	return out, format.MIMEType(dst), nil
}
