// Package imaging decodes raster images by content and re-encodes them into
// the image formats the converter can produce.
package imaging

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/gen2brain/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"fileconvert/converter/failure"
	"fileconvert/converter/format"
)

// Options holds the encoder settings for lossy formats
type Options struct {
	JPEGQuality int
	WebPQuality int
}

// DefaultOptions returns the encoder settings used when none are configured
func DefaultOptions() Options {
	return Options{JPEGQuality: 90, WebPQuality: 90}
}

// Decode sniffs the image format from raw and decodes it.
// The returned name is the detected format ("png", "jpeg", ...).
func Decode(raw []byte) (image.Image, string, error) {
	img, name, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", failure.Wrap(failure.MalformedInput, err, "cannot decode image")
	}
	return img, name, nil
}

// IsOpaque reports whether every pixel of img is fully opaque
func IsOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// Flatten composites img onto an opaque white canvas.
// Images that are already opaque are returned as is.
func Flatten(img image.Image) image.Image {
	if IsOpaque(img) {
		return img
	}
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Over)
	return canvas
}

// Encode writes img in the format named by dst.
// JPEG has no alpha channel, so non-opaque images are flattened first.
func Encode(img image.Image, dst format.Extension, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch dst {
	case format.PNG:
		err = png.Encode(&buf, img)
	case format.JPG, format.JPEG:
		err = jpeg.Encode(&buf, Flatten(img), &jpeg.Options{Quality: opts.JPEGQuality})
	case format.WEBP:
		err = webp.Encode(&buf, img, webp.Options{Quality: opts.WebPQuality})
	case format.BMP:
		err = bmp.Encode(&buf, img)
	default:
		return nil, failure.New(failure.UnsupportedFormat, "unsupported image target: %s", dst)
	}

	if err != nil {
		return nil, failure.Wrap(failure.EncodingWriteFailure, err, "cannot encode %s", dst)
	}
	if buf.Len() == 0 {
		return nil, failure.New(failure.EncodingWriteFailure, "%s encoder produced no output", dst)
	}
	return buf.Bytes(), nil
}

// Convert decodes raw and re-encodes it as dst, returning the payload and its MIME type
func Convert(dst format.Extension, raw []byte, opts Options) ([]byte, string, error) {
	if format.FamilyOf(dst) != format.Image {
		return nil, "", failure.New(failure.UnsupportedFormat, "unsupported image target: %s", dst)
	}

	img, _, err := Decode(raw)
	if err != nil {
		return nil, "", err
	}

	out, err := Encode(img, dst, opts)
	if err != nil {
		return nil, "", err
	}
	return out, format.MIMEType(dst), nil
}
