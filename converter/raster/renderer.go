package raster

import (
	"fmt"
	"image"
)

// Backend names a rasterizer implementation
type Backend string

const (
	// BackendMuPDF renders in-process through MuPDF (go-fitz, requires CGo)
	BackendMuPDF Backend = "mupdf"

	// BackendPoppler shells out to poppler's pdftoppm / pdftocairo
	BackendPoppler Backend = "poppler"
)

// Rasterizer opens PDF documents for page rendering
type Rasterizer interface {
	// Name returns the backend name for logging
	Name() string

	// Open parses raw as a PDF. The caller must Close the returned Document.
	Open(raw []byte) (Document, error)
}

// Document is an open PDF whose pages can be rasterized one at a time
type Document interface {
	PageCount() int

	// RenderPage rasterizes the 1-based page at dpi dots per inch
	RenderPage(page int, dpi float64) (image.Image, error)

	Close() error
}

// NewRasterizer creates the rasterizer for the given backend
func NewRasterizer(backend Backend) (Rasterizer, error) {
	switch backend {
	case BackendMuPDF, "":
		return &mupdfRasterizer{}, nil
	case BackendPoppler:
		return newPopplerRasterizer()
	default:
		return nil, fmt.Errorf("unknown rasterizer backend: %s (must be 'mupdf' or 'poppler')", backend)
	}
}
