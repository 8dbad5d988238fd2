package converter

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileconvert/converter/failure"
	"fileconvert/converter/format"
	"fileconvert/converter/imaging"
	"fileconvert/converter/raster"
	"fileconvert/internal/config"
	"fileconvert/internal/pdftest"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubRasterizer renders every page as a small white square except those in fail
type stubRasterizer struct {
	pages    int
	fail     map[int]bool
	dpis     []float64
	rendered []int
}

func (s *stubRasterizer) Name() string { return "stub" }

func (s *stubRasterizer) Open([]byte) (raster.Document, error) { return s, nil }

func (s *stubRasterizer) PageCount() int { return s.pages }

func (s *stubRasterizer) RenderPage(page int, dpi float64) (image.Image, error) {
	s.dpis = append(s.dpis, dpi)
	s.rendered = append(s.rendered, page)
	if s.fail[page] {
		return nil, errors.New("cannot render")
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img, nil
}

func (s *stubRasterizer) Close() error { return nil }

func pageNum(n int) *int { return &n }

func newConverter(t *testing.T, r raster.Rasterizer) *Converter {
	t.Helper()
	cfg := config.Default()
	return New(&cfg, r, discard)
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	img.Set(1, 1, color.NRGBA{R: 255, A: 128})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func sampleInput(t *testing.T, ext format.Extension) []byte {
	t.Helper()
	switch format.FamilyOf(ext) {
	case format.Tabular:
		csvData := []byte("name,qty\nwidget,3\n")
		if ext == format.CSV {
			return csvData
		}
		res, err := newConverter(t, &stubRasterizer{}).Convert(Request{Source: format.CSV, Target: ext, Data: csvData})
		require.NoError(t, err)
		return res.Data
	case format.Text:
		return []byte("# notes\nplain text\n")
	case format.Image:
		img, _, err := imaging.Decode(samplePNG(t))
		require.NoError(t, err)
		out, err := imaging.Encode(img, ext, imaging.DefaultOptions())
		require.NoError(t, err)
		return out
	case format.PDFSource:
		return pdftest.Document(2, pdftest.Letter)
	}
	t.Fatalf("no sample for %s", ext)
	return nil
}

func TestEveryCandidateIsAccepted(t *testing.T) {
	for _, src := range format.Known() {
		for _, dst := range format.Candidates(src) {
			t.Run(string(src)+"_to_"+string(dst), func(t *testing.T) {
				conv := newConverter(t, &stubRasterizer{pages: 2})
				res, err := conv.Convert(Request{Source: src, Target: dst, Data: sampleInput(t, src), DPI: 72})
				require.NoError(t, err)
				assert.NotEmpty(t, res.Data)
				assert.Equal(t, format.MIMEType(dst), res.MIMEType)
			})
		}
	}
}

func TestReportCSVToJSON(t *testing.T) {
	conv := newConverter(t, &stubRasterizer{})

	src := format.Detect("report.CSV")
	require.Equal(t, format.CSV, src)
	require.Equal(t, []format.Extension{format.JSON, format.XLSX, format.TSV}, format.Candidates(src))

	res, err := conv.Convert(Request{Source: src, Target: format.JSON, Data: []byte("a,b\n1,x\n2,y\n")})
	require.NoError(t, err)
	assert.Equal(t, "application/json", res.MIMEType)
	assert.JSONEq(t, `[{"a":1,"b":"x"},{"a":2,"b":"y"}]`, string(res.Data))
	assert.Equal(t, "report.json", format.OutputName("report.CSV", format.JSON))
}

func TestRoutingErrors(t *testing.T) {
	conv := newConverter(t, &stubRasterizer{pages: 1})

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"no extension", Request{Target: format.PNG}, failure.ErrUndetectableExtension},
		{"unknown source", Request{Source: "docx", Target: format.PDF}, failure.ErrUnsupportedSourceFormat},
		{"target not a candidate", Request{Source: format.CSV, Target: format.PNG}, failure.ErrUnsupportedFormat},
		{"same format", Request{Source: format.PNG, Target: format.PNG}, failure.ErrUnsupportedFormat},
		{"negative page", Request{Source: format.PDF, Target: format.PNG, Page: pageNum(-1)}, failure.ErrPageOutOfRange},
		{"explicit page zero", Request{Source: format.PDF, Target: format.PNG, Data: []byte("%PDF-1.4"), Page: pageNum(0)}, failure.ErrPageOutOfRange},
		{"negative dpi", Request{Source: format.PDF, Target: format.PNG, DPI: -10}, failure.ErrInvalidResolution},
		{"dpi above ceiling", Request{Source: format.PDF, Target: format.PNG, Data: []byte("%PDF-1.4"), DPI: 601}, failure.ErrInvalidResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := conv.Convert(tt.req)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPDFDefaults(t *testing.T) {
	stub := &stubRasterizer{pages: 3}
	conv := newConverter(t, stub)

	_, err := conv.Convert(Request{Source: format.PDF, Target: format.PNG, Data: []byte("%PDF-1.4")})
	require.NoError(t, err)
	assert.Equal(t, []float64{200}, stub.dpis)

	_, err = conv.Convert(Request{Source: format.PDF, Target: format.PNG, Data: []byte("%PDF-1.4"), Page: pageNum(3)})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, stub.rendered)

	_, err = conv.Convert(Request{Source: format.PDF, Target: format.PNG, Data: []byte("%PDF-1.4"), Page: pageNum(4)})
	assert.ErrorIs(t, err, failure.ErrPageOutOfRange)
}

func TestConvertAllReportsFailedPages(t *testing.T) {
	conv := newConverter(t, &stubRasterizer{pages: 5, fail: map[int]bool{2: true, 5: true}})

	res, err := conv.ConvertAll(Request{Source: format.PDF, Target: format.JPG, Data: []byte("%PDF-1.4"), DPI: 150})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Converted)
	assert.Equal(t, []int{2, 5}, res.FailedPages)
	assert.Equal(t, "application/zip", res.MIMEType)
}

func TestConvertAllIsPDFOnly(t *testing.T) {
	conv := newConverter(t, &stubRasterizer{})

	_, err := conv.ConvertAll(Request{Source: format.PNG, Target: format.JPG, Data: samplePNG(t)})
	assert.ErrorIs(t, err, failure.ErrUnsupportedFormat)
}

func TestScanPDFBatchScenario(t *testing.T) {
	mupdf, err := raster.NewRasterizer(raster.BackendMuPDF)
	require.NoError(t, err)
	conv := newConverter(t, mupdf)

	raw := pdftest.Document(3, pdftest.Letter)
	count, err := conv.PageCount(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	res, err := conv.ConvertAll(Request{Source: format.Detect("scan.pdf"), Target: format.PNG, Data: raw, DPI: 150})
	require.NoError(t, err)
	assert.Equal(t, "application/zip", res.MIMEType)
	assert.Equal(t, 3, res.Converted)
	assert.Empty(t, res.FailedPages)

	zr, err := zip.NewReader(bytes.NewReader(res.Data), int64(len(res.Data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Deflate, f.Method)
	}
	assert.Equal(t, []string{"page_1.png", "page_2.png", "page_3.png"}, names)
	assert.Equal(t, "scan_all_pages.zip", format.BatchOutputName("scan.pdf"))
}
