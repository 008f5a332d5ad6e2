// Package assemble turns retrieved bulk job results into the final on-disk
// artifacts: one concatenated CSV for exports, raw and portable report pairs
// for ingests.
package assemble

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ExportWriter folds result pages into one CSV stream. With header
// de-duplication enabled (the default) only the first page keeps its leading
// line; later pages are appended from just past their first line terminator.
type ExportWriter struct {
	w             io.Writer
	dedupeHeader  bool
	headerWritten bool
	pages         int
	rows          int
}

func NewExportWriter(w io.Writer, dedupeHeader bool) *ExportWriter {
	return &ExportWriter{w: w, dedupeHeader: dedupeHeader}
}

// WritePage appends one result page. A page with no line terminator counts as
// empty and contributes nothing.
func (e *ExportWriter) WritePage(payload []byte) error {
	e.pages++

	if !e.dedupeHeader || !e.headerWritten {
		if _, err := e.w.Write(payload); err != nil {
			return fmt.Errorf("write page %d: %w", e.pages, err)
		}
		if e.dedupeHeader {
			e.headerWritten = true
		}
		e.rows += estimateRows(payload)
		return nil
	}

	firstNewline := bytes.IndexByte(payload, '\n')
	if firstNewline == -1 {
		// No terminator at all: treated as an empty page.
		return nil
	}
	if _, err := e.w.Write(payload[firstNewline+1:]); err != nil {
		return fmt.Errorf("write page %d: %w", e.pages, err)
	}
	e.rows += estimateRows(payload)
	return nil
}

// Summary returns the page count and the approximate row count. The row count
// is newline arithmetic, not CSV parsing: a quoted field containing a newline
// inflates it. Good enough for the run report, not for reconciliation.
func (e *ExportWriter) Summary() (pages, rows int) {
	return e.pages, e.rows
}

func estimateRows(payload []byte) int {
	n := bytes.Count(payload, []byte{'\n'}) - 1
	if n < 0 {
		return 0
	}
	return n
}

// AssembleExportFile drains the page source into a file at path, creating
// parent directories. The page source is any func yielding (page, ok, err),
// which is the shape of bulk.PageIterator.Next.
func AssembleExportFile(path string, dedupeHeader bool, next func() ([]byte, bool, error)) (pages, rows int, err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, 0, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}()

	w := NewExportWriter(f, dedupeHeader)
	for {
		payload, ok, err := next()
		if err != nil {
			return 0, 0, err
		}
		if !ok {
			break
		}
		if err := w.WritePage(payload); err != nil {
			return 0, 0, err
		}
	}
	pages, rows = w.Summary()
	return pages, rows, nil
}
