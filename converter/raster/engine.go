// Package raster renders PDF pages to images, one page at a time or every
// page of a document into a ZIP archive.
package raster

import (
	"bytes"
	"log/slog"
	"math"

	"fileconvert/converter/failure"
	"fileconvert/converter/format"
	"fileconvert/converter/imaging"
)

// PointsPerInch is the PDF user-space unit: a page rendered at 72 dpi maps
// one point to one pixel.
const PointsPerInch = 72.0

// pdfHeaderWindow is how far into the file the %PDF- marker may appear
const pdfHeaderWindow = 1024

// Options configures an Engine
type Options struct {
	// MaxDPI is the highest accepted resolution; zero disables the ceiling
	MaxDPI float64
	Image  imaging.Options
}

// Engine rasterizes PDF pages through a Rasterizer backend
type Engine struct {
	rasterizer Rasterizer
	opts       Options
	logger     *slog.Logger
}

// NewEngine creates a new raster engine
func NewEngine(rasterizer Rasterizer, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		rasterizer: rasterizer,
		opts:       opts,
		logger:     logger,
	}
}

// Scale returns the linear scale factor applied to page coordinates at dpi
func Scale(dpi float64) float64 {
	return dpi / PointsPerInch
}

// PageCount returns the number of pages in raw
func (e *Engine) PageCount(raw []byte) (int, error) {
	doc, err := e.open(raw)
	if err != nil {
		return 0, err
	}
	defer doc.Close()

	return doc.PageCount(), nil
}

// RenderPage rasterizes one 1-based page of raw at dpi and encodes it as target
func (e *Engine) RenderPage(raw []byte, page int, dpi float64, target format.Extension) ([]byte, string, error) {
	if err := e.checkTarget(target); err != nil {
		return nil, "", err
	}
	if err := e.checkDPI(dpi); err != nil {
		return nil, "", err
	}

	doc, err := e.open(raw)
	if err != nil {
		return nil, "", err
	}
	defer doc.Close()

	count := doc.PageCount()
	if count == 0 {
		return nil, "", failure.New(failure.EmptyDocument, "PDF has no pages")
	}
	if page < 1 || page > count {
		return nil, "", failure.New(failure.PageOutOfRange, "page %d is out of range (document has %d pages)", page, count)
	}

	out, err := e.renderPage(doc, page, dpi, target)
	if err != nil {
		return nil, "", err
	}
	return out, format.MIMEType(target), nil
}

// renderPage rasterizes and encodes a single page of an open document
func (e *Engine) renderPage(doc Document, page int, dpi float64, target format.Extension) ([]byte, error) {
	e.logger.Debug("rendering page",
		"backend", e.rasterizer.Name(),
		"page", page,
		"dpi", dpi,
		"scale", Scale(dpi),
	)

	img, err := doc.RenderPage(page, dpi)
	if err != nil {
		return nil, failure.Wrap(failure.CorruptOrUnsupportedDocument, err, "cannot render page %d", page)
	}

	// page renders carry no meaningful alpha; normalize to opaque RGB
	return imaging.Encode(imaging.Flatten(img), target, e.opts.Image)
}

// open validates the PDF header and opens raw through the backend
func (e *Engine) open(raw []byte) (Document, error) {
	head := raw
	if len(head) > pdfHeaderWindow {
		head = head[:pdfHeaderWindow]
	}
	if !bytes.Contains(head, []byte("%PDF-")) {
		return nil, failure.New(failure.CorruptOrUnsupportedDocument, "input is not a PDF document")
	}

	doc, err := e.rasterizer.Open(raw)
	if err != nil {
		return nil, failure.Wrap(failure.CorruptOrUnsupportedDocument, err,
			"cannot open PDF; it may be corrupt, encrypted or unsupported")
	}
	return doc, nil
}

func (e *Engine) checkTarget(target format.Extension) error {
	if format.FamilyOf(target) != format.Image {
		return failure.New(failure.UnsupportedFormat, "PDF pages cannot be rendered as %s", target)
	}
	return nil
}

func (e *Engine) checkDPI(dpi float64) error {
	if math.IsNaN(dpi) || dpi <= 0 {
		return failure.New(failure.InvalidResolution, "resolution must be a positive number of dpi, got %g", dpi)
	}
	if e.opts.MaxDPI > 0 && dpi > e.opts.MaxDPI {
		return failure.New(failure.InvalidResolution, "resolution %g dpi exceeds the maximum of %g dpi", dpi, e.opts.MaxDPI)
	}
	return nil
}
