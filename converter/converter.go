// Package converter routes a conversion request to the converter owning the
// source format. It holds no conversion logic of its own.
package converter

import (
	"errors"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"fileconvert/converter/failure"
	"fileconvert/converter/format"
	"fileconvert/converter/imaging"
	"fileconvert/converter/raster"
	"fileconvert/converter/tabular"
	"fileconvert/converter/text"
	"fileconvert/internal/config"
)

// Request describes one conversion
type Request struct {
	Source Extension
	Target Extension
	Data   []byte
	Page   *int    // 1-based PDF page; nil selects the first page
	DPI    float64 // PDF render resolution; 0 selects the configured default
}

// Extension is re-exported so callers need only this package for requests
type Extension = format.Extension

// Result is a converted payload and its MIME type
type Result struct {
	Data     []byte
	MIMEType string
}

// BatchResult is an archive of rendered PDF pages
type BatchResult struct {
	Data        []byte
	MIMEType    string
	FailedPages []int
	Converted   int
}

// Converter dispatches requests. It is read-only after New and may be shared.
type Converter struct {
	engine     *raster.Engine
	image      imaging.Options
	defaultDPI float64
	logger     *slog.Logger
}

// New creates a converter that renders PDFs through rasterizer
func New(cfg *config.Config, rasterizer raster.Rasterizer, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	imageOpts := imaging.Options{
		JPEGQuality: cfg.Image.JPEGQuality,
		WebPQuality: cfg.Image.WebPQuality,
	}
	return &Converter{
		engine: raster.NewEngine(rasterizer, raster.Options{
			MaxDPI: cfg.Render.MaxDPI,
			Image:  imageOpts,
		}, logger),
		image:      imageOpts,
		defaultDPI: cfg.Render.DPI,
		logger:     logger,
	}
}

// PageNumber returns the requested PDF page, or 1 when none was set
func (r Request) PageNumber() int {
	if r.Page == nil {
		return 1
	}
	return *r.Page
}

func (r Request) validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Page, validation.Min(1)),
		validation.Field(&r.DPI, validation.Min(0.0)),
	)

	var fields validation.Errors
	if !errors.As(err, &fields) {
		return err
	}
	if fe, ok := fields["DPI"]; ok {
		return failure.Wrap(failure.InvalidResolution, fe, "invalid resolution %g", r.DPI)
	}
	if fe, ok := fields["Page"]; ok {
		return failure.Wrap(failure.PageOutOfRange, fe, "invalid page %d", *r.Page)
	}
	return err
}

// route checks the source/target pair and returns the owning family
func route(source, target Extension) (format.Family, error) {
	if source == "" {
		return format.Unknown, failure.New(failure.UndetectableExtension, "cannot determine the file extension")
	}
	family := format.FamilyOf(source)
	if family == format.Unknown {
		return family, failure.New(failure.UnsupportedSourceFormat, "no conversions available for .%s files", source)
	}
	if !format.Allowed(source, target) {
		return family, failure.New(failure.UnsupportedFormat, "cannot convert %s to %s", source, target)
	}
	return family, nil
}

// Convert performs a single conversion
func (c *Converter) Convert(req Request) (*Result, error) {
	family, err := route(req.Source, req.Target)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	c.logger.Debug("converting",
		"family", family,
		"source", req.Source,
		"target", req.Target,
		"bytes", len(req.Data),
	)

	var (
		out  []byte
		mime string
	)
	switch family {
	case format.Tabular:
		out, mime, err = tabular.Convert(req.Source, req.Target, req.Data)
	case format.Text:
		out, mime, err = text.Convert(req.Source, req.Target, req.Data)
	case format.Image:
		out, mime, err = imaging.Convert(req.Target, req.Data, c.image)
	case format.PDFSource:
		out, mime, err = c.engine.RenderPage(req.Data, req.PageNumber(), c.dpi(req), req.Target)
	default:
		return nil, failure.New(failure.UnsupportedSourceFormat, "no converter for %s", family)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Debug("converted", "target", req.Target, "bytes", len(out))
	return &Result{Data: out, MIMEType: mime}, nil
}

// ConvertAll renders every page of a PDF into an archive. Page is ignored.
func (c *Converter) ConvertAll(req Request) (*BatchResult, error) {
	family, err := route(req.Source, req.Target)
	if err != nil {
		return nil, err
	}
	if family != format.PDFSource {
		return nil, failure.New(failure.UnsupportedFormat, "all-pages conversion is only available for PDF files")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	batch, err := c.engine.RenderAll(req.Data, c.dpi(req), req.Target)
	if err != nil {
		return nil, err
	}
	return &BatchResult{
		Data:        batch.Data,
		MIMEType:    batch.MIMEType,
		FailedPages: batch.FailedPages,
		Converted:   batch.Converted,
	}, nil
}

// PageCount returns the number of pages of a PDF
func (c *Converter) PageCount(raw []byte) (int, error) {
	return c.engine.PageCount(raw)
}

func (c *Converter) dpi(req Request) float64 {
	if req.DPI == 0 {
		return c.defaultDPI
	}
	return req.DPI
}
