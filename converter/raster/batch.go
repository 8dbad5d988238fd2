package raster

import (
	"archive/zip"
	"bytes"
	"fmt"

	"fileconvert/converter/failure"
	"fileconvert/converter/format"
)

// Batch is the outcome of rendering every page of a document
type Batch struct {
	Data        []byte // ZIP archive, one page_<N>.<ext> entry per rendered page
	MIMEType    string
	FailedPages []int // ascending
	Converted   int
}

// pageOutcome is the per-page result inside a batch. A failed page is
// recorded here and never escapes RenderAll as an error.
type pageOutcome struct {
	page int
	data []byte
	err  error
}

// EntryName returns the archive entry name for a rendered page
func EntryName(page int, target format.Extension) string {
	return fmt.Sprintf("page_%d.%s", page, target)
}

// RenderAll renders every page of raw at dpi into a ZIP archive.
// Pages are processed in order; a page that fails is recorded in
// FailedPages and the batch moves on. The call only fails as a whole when
// the document cannot be opened, has no pages, or no page succeeded.
func (e *Engine) RenderAll(raw []byte, dpi float64, target format.Extension) (*Batch, error) {
	if err := e.checkTarget(target); err != nil {
		return nil, err
	}
	if err := e.checkDPI(dpi); err != nil {
		return nil, err
	}

	doc, err := e.open(raw)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	count := doc.PageCount()
	if count == 0 {
		return nil, failure.New(failure.EmptyDocument, "PDF has no pages")
	}

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	batch := &Batch{MIMEType: format.MIMEType(format.ZIP), FailedPages: []int{}}

	for page := 1; page <= count; page++ {
		outcome := e.tryPage(doc, page, dpi, target)
		if outcome.err != nil {
			e.logger.Warn("page failed to convert",
				"page", outcome.page,
				"error", outcome.err,
			)
			batch.FailedPages = append(batch.FailedPages, outcome.page)
			continue
		}

		w, err := zw.Create(EntryName(outcome.page, target))
		if err != nil {
			return nil, failure.Wrap(failure.EncodingWriteFailure, err, "cannot add page %d to archive", outcome.page)
		}
		if _, err := w.Write(outcome.data); err != nil {
			return nil, failure.Wrap(failure.EncodingWriteFailure, err, "cannot add page %d to archive", outcome.page)
		}
		batch.Converted++
	}

	if err := zw.Close(); err != nil {
		return nil, failure.Wrap(failure.EncodingWriteFailure, err, "cannot finish archive")
	}

	if batch.Converted == 0 {
		return nil, failure.New(failure.BatchConversionFailed,
			"all %d pages failed to convert; check the PDF contents and settings", count)
	}

	e.logger.Info("batch conversion complete",
		"pages", count,
		"converted", batch.Converted,
		"failed", len(batch.FailedPages),
	)

	batch.Data = archive.Bytes()
	return batch, nil
}

// tryPage renders one page, turning errors and panics into a failed outcome
func (e *Engine) tryPage(doc Document, page int, dpi float64, target format.Extension) (outcome pageOutcome) {
	outcome.page = page
	defer func() {
		if r := recover(); r != nil {
			outcome.data = nil
			outcome.err = fmt.Errorf("panic while rendering page %d: %v", page, r)
		}
	}()

	outcome.data, outcome.err = e.renderPage(doc, page, dpi, target)
	return outcome
}
