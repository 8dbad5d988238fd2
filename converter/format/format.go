// Package format detects file extensions and maps them to their format family,
// allowed conversion targets and MIME types.
package format

import (
	"path"
	"sort"
	"strings"
)

// Extension is a lowercase file extension without the leading dot
type Extension string

const (
	CSV  Extension = "csv"
	TSV  Extension = "tsv"
	JSON Extension = "json"
	XLSX Extension = "xlsx"
	TXT  Extension = "txt"
	MD   Extension = "md"
	PNG  Extension = "png"
	JPG  Extension = "jpg"
	JPEG Extension = "jpeg"
	WEBP Extension = "webp"
	BMP  Extension = "bmp"
	PDF  Extension = "pdf"
	ZIP  Extension = "zip"
)

// Family groups extensions that share one converter
type Family int

const (
	Unknown Family = iota
	Tabular
	Text
	Image
	PDFSource
)

func (f Family) String() string {
	switch f {
	case Tabular:
		return "tabular"
	case Text:
		return "text"
	case Image:
		return "image"
	case PDFSource:
		return "pdf"
	default:
		return "unknown"
	}
}

// Detect returns the normalized extension of filename, or "" if it has none.
// Both '/' and '\' are treated as path separators.
func Detect(filename string) Extension {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 || dot == len(base)-1 {
		// no dot, a dotfile like ".bashrc", or a trailing dot
		return ""
	}
	return Extension(strings.ToLower(base[dot+1:]))
}

// FamilyOf returns the family owning ext
func FamilyOf(ext Extension) Family {
	switch ext {
	case CSV, TSV, JSON, XLSX:
		return Tabular
	case TXT, MD:
		return Text
	case PNG, JPG, JPEG, WEBP, BMP:
		return Image
	case PDF:
		return PDFSource
	default:
		return Unknown
	}
}

// Candidates returns the ordered conversion targets for ext.
// Unknown extensions yield an empty list; callers treat that as "unsupported".
func Candidates(ext Extension) []Extension {
	switch FamilyOf(ext) {
	case Tabular:
		return tabularTargets(ext)
	case Text:
		return textTargets(ext)
	case Image:
		return imageTargets(ext)
	case PDFSource:
		return []Extension{PNG, JPG, WEBP, BMP}
	default:
		return nil
	}
}

func tabularTargets(ext Extension) []Extension {
	switch ext {
	case CSV:
		return []Extension{JSON, XLSX, TSV}
	case TSV:
		return []Extension{CSV, JSON, XLSX}
	case JSON:
		return []Extension{CSV, TSV, XLSX}
	default:
		return []Extension{CSV, TSV, JSON}
	}
}

func textTargets(ext Extension) []Extension {
	if ext == TXT {
		return []Extension{MD}
	}
	return []Extension{TXT}
}

func imageTargets(ext Extension) []Extension {
	switch ext {
	case PNG:
		return []Extension{JPG, WEBP, BMP}
	case WEBP:
		return []Extension{PNG, JPG, BMP}
	case BMP:
		return []Extension{PNG, JPG, WEBP}
	default:
		return []Extension{PNG, WEBP, BMP}
	}
}

// Allowed reports whether target is a candidate for source
func Allowed(source, target Extension) bool {
	for _, c := range Candidates(source) {
		if c == target {
			return true
		}
	}
	return false
}

// Known returns every supported source extension in sorted order
func Known() []Extension {
	exts := []Extension{CSV, TSV, JSON, XLSX, TXT, MD, PNG, JPG, JPEG, WEBP, BMP, PDF}
	sort.Slice(exts, func(i, j int) bool { return exts[i] < exts[j] })
	return exts
}

// MIMEType returns the MIME type produced for a target extension
func MIMEType(ext Extension) string {
	switch ext {
	case CSV:
		return "text/csv"
	case TSV:
		return "text/tab-separated-values"
	case JSON:
		return "application/json"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case TXT:
		return "text/plain"
	case MD:
		return "text/markdown"
	case PNG:
		return "image/png"
	case JPG, JPEG:
		return "image/jpeg"
	case WEBP:
		return "image/webp"
	case BMP:
		return "image/bmp"
	case PDF:
		return "application/pdf"
	case ZIP:
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// OutputName substitutes target into the stem of filename ("report.csv" -> "report.json")
func OutputName(filename string, target Extension) string {
	return stem(filename) + "." + string(target)
}

// BatchOutputName names the archive produced for a multi-page render
func BatchOutputName(filename string) string {
	return stem(filename) + "_all_pages.zip"
}

func stem(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if ext := Detect(base); ext != "" {
		return base[:len(base)-len(ext)-1]
	}
	return base
}
