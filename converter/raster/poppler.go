package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// popplerRasterizer renders pages with poppler's command line tools.
// pdfcpu reads the document structure; poppler only rasterizes.
type popplerRasterizer struct {
	tool string // pdftoppm, or pdftocairo when pdftoppm is missing
}

func newPopplerRasterizer() (*popplerRasterizer, error) {
	// keep pdfcpu from creating a config directory under $HOME
	api.DisableConfigDir()

	for _, tool := range []string{"pdftoppm", "pdftocairo"} {
		if _, err := exec.LookPath(tool); err == nil {
			return &popplerRasterizer{tool: tool}, nil
		}
	}
	return nil, fmt.Errorf("no PDF renderer available. Please install poppler-utils:\n  macOS: brew install poppler\n  Ubuntu: sudo apt install poppler-utils\n  Windows: download from https://github.com/oschwartz10612/poppler-windows")
}

func (p *popplerRasterizer) Name() string { return string(BackendPoppler) }

// Open parses raw with pdfcpu and stages it in a temp directory for poppler
func (p *popplerRasterizer) Open(raw []byte) (Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(raw), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to determine page count: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "fileconvert-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	path := filepath.Join(tempDir, "input.pdf")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to stage PDF: %w", err)
	}

	return &popplerDocument{tool: p.tool, dir: tempDir, path: path, pages: ctx.PageCount}, nil
}

type popplerDocument struct {
	tool  string
	dir   string
	path  string
	pages int
}

func (d *popplerDocument) PageCount() int {
	return d.pages
}

// RenderPage runs the poppler tool for a single page at the requested resolution
func (d *popplerDocument) RenderPage(page int, dpi float64) (image.Image, error) {
	n := strconv.Itoa(page)
	outputPrefix := filepath.Join(d.dir, "page-"+n)

	cmd := exec.Command(d.tool,
		"-png",
		"-r", strconv.FormatFloat(dpi, 'f', -1, 64),
		"-f", n,
		"-l", n,
		"-singlefile",
		d.path,
		outputPrefix,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed: %w\nOutput: %s", d.tool, err, string(output))
	}

	path := outputPrefix + ".png"
	defer os.Remove(path)
	return loadPNG(path)
}

func (d *popplerDocument) Close() error {
	return os.RemoveAll(d.dir)
}

// loadPNG loads a PNG image from a file
func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return png.Decode(f)
}
