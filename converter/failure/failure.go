// Package failure defines the error kinds surfaced by every converter.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a conversion failure
type Kind int

const (
	Unknown Kind = iota
	UndetectableExtension
	UnsupportedSourceFormat
	UnsupportedFormat
	CorruptOrUnsupportedDocument
	EmptyDocument
	PageOutOfRange
	BatchConversionFailed
	InvalidEncoding
	EncodingWriteFailure
	MalformedInput
	InvalidResolution
)

var kindNames = map[Kind]string{
	Unknown:                      "Unknown",
	UndetectableExtension:        "UndetectableExtension",
	UnsupportedSourceFormat:      "UnsupportedSourceFormat",
	UnsupportedFormat:            "UnsupportedFormat",
	CorruptOrUnsupportedDocument: "CorruptOrUnsupportedDocument",
	EmptyDocument:                "EmptyDocument",
	PageOutOfRange:               "PageOutOfRange",
	BatchConversionFailed:        "BatchConversionFailed",
	InvalidEncoding:              "InvalidEncoding",
	EncodingWriteFailure:         "EncodingWriteFailure",
	MalformedInput:               "MalformedInput",
	InvalidResolution:            "InvalidResolution",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a conversion failure carrying a human-readable message.
// The message is what the presentation layer shows verbatim.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel errors, one per kind - use with errors.Is()
var (
	ErrUndetectableExtension        = &Error{Kind: UndetectableExtension, Message: "file extension could not be detected"}
	ErrUnsupportedSourceFormat      = &Error{Kind: UnsupportedSourceFormat, Message: "source format is not supported"}
	ErrUnsupportedFormat            = &Error{Kind: UnsupportedFormat, Message: "conversion between these formats is not supported"}
	ErrCorruptOrUnsupportedDocument = &Error{Kind: CorruptOrUnsupportedDocument, Message: "document is corrupt, encrypted or unsupported"}
	ErrEmptyDocument                = &Error{Kind: EmptyDocument, Message: "document has no pages"}
	ErrPageOutOfRange               = &Error{Kind: PageOutOfRange, Message: "page number is out of range"}
	ErrBatchConversionFailed        = &Error{Kind: BatchConversionFailed, Message: "every page failed to convert"}
	ErrInvalidEncoding              = &Error{Kind: InvalidEncoding, Message: "input is not valid UTF-8"}
	ErrEncodingWriteFailure         = &Error{Kind: EncodingWriteFailure, Message: "serialization produced no output"}
	ErrMalformedInput               = &Error{Kind: MalformedInput, Message: "input could not be parsed"}
	ErrInvalidResolution            = &Error{Kind: InvalidResolution, Message: "resolution is out of range"}
)

// New creates an Error of the given kind
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind with an underlying cause
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
