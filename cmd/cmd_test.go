package cmd

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileconvert/converter/failure"
	"fileconvert/converter/format"
	"fileconvert/converter/raster"
	"fileconvert/internal/config"
	"fileconvert/internal/pdftest"
)

// run executes the CLI non-interactively and returns its stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runApp(t, newApp(), args...)
}

func runApp(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	a.interactive = func() bool { return false }

	root := newRootCmd(a)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestConvertCSVToJSON(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "report.CSV")
	require.NoError(t, os.WriteFile(input, []byte("a,b\n1,x\n"), 0o644))

	out, err := run(t, input, "--to", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully created")

	got, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"a":1,"b":"x"}]`, string(got))
}

func TestConvertExplicitOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "notes.txt")
	output := filepath.Join(dir, "out.md")
	require.NoError(t, os.WriteFile(input, []byte("hello\n"), 0o644))

	_, err := run(t, input, "--to", ".MD", "-o", output)
	require.NoError(t, err)

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(got))
}

func TestConvertRequiresTargetWhenNotInteractive(t *testing.T) {
	input := filepath.Join(t.TempDir(), "data.tsv")
	require.NoError(t, os.WriteFile(input, []byte("a\tb\n"), 0o644))

	_, err := run(t, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv, json, xlsx")
}

func TestConvertRefusals(t *testing.T) {
	dir := t.TempDir()
	noExt := filepath.Join(dir, "Makefile")
	unknown := filepath.Join(dir, "letter.docx")
	csvFile := filepath.Join(dir, "table.csv")
	for _, p := range []string{noExt, unknown, csvFile} {
		require.NoError(t, os.WriteFile(p, []byte("x\n"), 0o644))
	}

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no extension", []string{noExt, "--to", "txt"}, failure.ErrUndetectableExtension},
		{"unknown extension", []string{unknown, "--to", "pdf"}, failure.ErrUnsupportedSourceFormat},
		{"target not offered", []string{csvFile, "--to", "png"}, failure.ErrUnsupportedFormat},
		{"all on non-pdf", []string{csvFile, "--to", "json", "--all"}, failure.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := run(t, filepath.Join(dir, "missing.csv"), "--to", "json")
	assert.ErrorContains(t, err, "does not exist")
}

// brokenPages renders through the configured backend but fails the listed pages
type brokenPages struct {
	raster.Rasterizer
	fail map[int]bool
}

func (b brokenPages) Open(raw []byte) (raster.Document, error) {
	doc, err := b.Rasterizer.Open(raw)
	if err != nil {
		return nil, err
	}
	return brokenDocument{Document: doc, fail: b.fail}, nil
}

type brokenDocument struct {
	raster.Document
	fail map[int]bool
}

func (d brokenDocument) RenderPage(page int, dpi float64) (image.Image, error) {
	if d.fail[page] {
		return nil, errors.New("damaged page")
	}
	return d.Document.RenderPage(page, dpi)
}

func appWithBrokenPages(t *testing.T, pages ...int) *app {
	t.Helper()
	fail := make(map[int]bool)
	for _, p := range pages {
		fail[p] = true
	}
	a := newApp()
	a.newRasterizer = func(backend raster.Backend) (raster.Rasterizer, error) {
		assert.Equal(t, raster.BackendMuPDF, backend)
		r, err := raster.NewRasterizer(backend)
		if err != nil {
			return nil, err
		}
		return brokenPages{Rasterizer: r, fail: fail}, nil
	}
	return a
}

func writePDF(t *testing.T, name string, pages int) string {
	t.Helper()
	input := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(input, pdftest.Document(pages, pdftest.Page{Width: 72, Height: 72}), 0o644))
	return input
}

func TestConvertPDFPage(t *testing.T) {
	input := writePDF(t, "scan.pdf", 3)

	out, err := run(t, input, "--to", "png", "--page", "2", "--dpi", "72")
	require.NoError(t, err)
	assert.Contains(t, out, "Page 2 of 3")
	assert.Contains(t, out, "Successfully created")

	got, err := os.ReadFile(filepath.Join(filepath.Dir(input), "scan.png"))
	require.NoError(t, err)
	cfg, kind, err := image.DecodeConfig(bytes.NewReader(got))
	require.NoError(t, err)
	assert.Equal(t, "png", kind)
	assert.Equal(t, 72, cfg.Width)
}

func TestConvertPDFDefaultsToFirstPage(t *testing.T) {
	input := writePDF(t, "scan.pdf", 2)

	out, err := run(t, input, "--to", "jpg", "--dpi", "72")
	require.NoError(t, err)
	assert.Contains(t, out, "Page 1 of 2")

	_, err = run(t, input, "--to", "jpg", "--page", "0")
	assert.ErrorIs(t, err, failure.ErrPageOutOfRange)
}

func TestConvertAllPDFPages(t *testing.T) {
	input := writePDF(t, "scan.pdf", 3)

	out, err := runApp(t, appWithBrokenPages(t, 2), input, "--to", "png", "--all", "--dpi", "72")
	require.NoError(t, err)

	archive := filepath.Join(filepath.Dir(input), "scan_all_pages.zip")
	assert.Contains(t, out, "Converted 2 pages into "+archive)
	assert.Contains(t, out, "Some pages failed to convert: 2")

	zr, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"page_1.png", "page_3.png"}, names)
}

func TestConvertAllPDFPagesWithoutFailures(t *testing.T) {
	input := writePDF(t, "report.pdf", 2)

	out, err := runApp(t, appWithBrokenPages(t), input, "--to", "webp", "--all", "--dpi", "72")
	require.NoError(t, err)
	assert.Contains(t, out, "Converted 2 pages")
	assert.NotContains(t, out, "failed")
}

func TestFormatsCommand(t *testing.T) {
	out, err := run(t, "formats")
	require.NoError(t, err)
	for _, ext := range format.Known() {
		assert.Contains(t, out, string(ext))
	}

	out, err = run(t, "formats", "photo.webp")
	require.NoError(t, err)
	assert.Contains(t, out, "png, jpg, bmp")

	_, err = run(t, "formats", "README")
	assert.ErrorIs(t, err, failure.ErrUndetectableExtension)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fileconvert.yaml")

	_, err := run(t, "config", "init", path)
	require.NoError(t, err)

	loaded, _, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *loaded)

	out, err := run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_dpi: 600")
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "today", "abc123")
	t.Cleanup(func() { SetVersionInfo("dev", "unknown", "unknown") })

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "fileconvert 1.2.3 (commit: abc123, built: today)\n", out)
}

func TestPickerSelectsWithArrowKeys(t *testing.T) {
	var m tea.Model = newPicker(format.CSV, format.Candidates(format.CSV))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown}) // stays on the last choice
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Contains(t, m.View(), "> xlsx")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	p := m.(picker)
	assert.Equal(t, format.XLSX, p.chosen)
	assert.True(t, p.done)
}

func TestPickerCancel(t *testing.T) {
	var m tea.Model = newPicker(format.PNG, format.Candidates(format.PNG))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	p := m.(picker)
	assert.Empty(t, p.chosen)
	assert.Equal(t, 1, p.cursor)
}
