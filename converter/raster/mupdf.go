package raster

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

// mupdfRasterizer renders pages in-process with MuPDF
type mupdfRasterizer struct{}

func (m *mupdfRasterizer) Name() string { return string(BackendMuPDF) }

func (m *mupdfRasterizer) Open(raw []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(raw)
	if err != nil {
		return nil, err
	}
	return &mupdfDocument{doc: doc}, nil
}

type mupdfDocument struct {
	doc *fitz.Document
}

func (d *mupdfDocument) PageCount() int {
	return d.doc.NumPage()
}

// RenderPage scales the page by dpi/72 and renders it onto a white background
func (d *mupdfDocument) RenderPage(page int, dpi float64) (image.Image, error) {
	img, err := d.doc.ImageDPI(page-1, dpi)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (d *mupdfDocument) Close() error {
	return d.doc.Close()
}
