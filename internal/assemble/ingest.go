package assemble

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// utf8BOM is prepended to portable report variants so spreadsheet tools pick
// the right encoding when double-clicked.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ResultDecodeError means a success/error report was not valid UTF-8. These
// reports carry data-quality information, so silently substituting characters
// is worse than failing the run.
type ResultDecodeError struct {
	Kind string
}

func (e *ResultDecodeError) Error() string {
	return fmt.Sprintf("%s report is not valid UTF-8", e.Kind)
}

// ReportPaths names the four files one ingest run produces.
type ReportPaths struct {
	Success    string
	SuccessRaw string
	Error      string
	ErrorRaw   string
}

// WriteIngestReports persists both job reports in two variants each: a raw
// form (original bytes, no BOM) for automation and a portable form (BOM,
// CRLF) for spreadsheet tooling. All four files are written even when a
// report is empty; downstream automation keys on file presence.
func WriteIngestReports(dir, jobID, datasetKey string, successful, failed []byte) (ReportPaths, error) {
	if !utf8.Valid(successful) {
		return ReportPaths{}, &ResultDecodeError{Kind: "success"}
	}
	if !utf8.Valid(failed) {
		return ReportPaths{}, &ResultDecodeError{Kind: "error"}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ReportPaths{}, fmt.Errorf("create report dir: %w", err)
	}

	base := jobID + "_" + datasetKey
	paths := ReportPaths{
		Success:    filepath.Join(dir, base+"_success.csv"),
		SuccessRaw: filepath.Join(dir, base+"_success_raw.csv"),
		Error:      filepath.Join(dir, base+"_error.csv"),
		ErrorRaw:   filepath.Join(dir, base+"_error_raw.csv"),
	}

	writes := []struct {
		path string
		data []byte
	}{
		{paths.SuccessRaw, successful},
		{paths.Success, portable(successful)},
		{paths.ErrorRaw, failed},
		{paths.Error, portable(failed)},
	}
	for _, w := range writes {
		if err := os.WriteFile(w.path, w.data, 0o644); err != nil {
			return ReportPaths{}, fmt.Errorf("write report %s: %w", w.path, err)
		}
	}
	return paths, nil
}

// portable converts a report to the BOM + CRLF variant. An empty report stays
// empty; a BOM on nothing confuses more tools than it helps.
func portable(report []byte) []byte {
	if len(report) == 0 {
		return []byte{}
	}
	normalized := bytes.ReplaceAll(report, []byte("\r\n"), []byte("\n"))
	normalized = bytes.ReplaceAll(normalized, []byte("\n"), []byte("\r\n"))
	out := make([]byte, 0, len(utf8BOM)+len(normalized))
	out = append(out, utf8BOM...)
	return append(out, normalized...)
}
