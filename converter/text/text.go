// Package text re-tags plain text as markdown and back.
package text

import (
	"unicode/utf8"

	"fileconvert/converter/failure"
	"fileconvert/converter/format"
)

// Convert returns raw unchanged under the MIME type of dst.
// Only txt -> md and md -> txt are supported.
func Convert(src, dst format.Extension, raw []byte) ([]byte, string, error) {
	if !utf8.Valid(raw) {
		return nil, "", failure.New(failure.InvalidEncoding, "text input is not valid UTF-8")
	}

	switch {
	case src == format.TXT && dst == format.MD,
		src == format.MD && dst == format.TXT:
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, format.MIMEType(dst), nil
	}

	return nil, "", failure.New(failure.UnsupportedFormat, "unsupported text conversion: %s -> %s", src, dst)
}
