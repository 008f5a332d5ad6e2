package transform

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// MappingResolutionError means a column selector did not resolve against the
// parsed source. The message names the selector and what would have been
// valid; no output is written when this is returned.
type MappingResolutionError struct {
	Selector string
	Detail   string
}

func (e *MappingResolutionError) Error() string {
	return fmt.Sprintf("column selector %s did not resolve: %s", e.Selector, e.Detail)
}

// Transform reads the source file, applies the mapping spec and writes the
// normalized UTF-8 CSV to outputPath, creating parent directories as needed.
// Every value passes through as opaque text; leading zeros and formatting
// carry business meaning in MD files.
func Transform(inputPath string, spec *MappingSpec, outputPath string) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}

	decoded, codec, err := decodeSource(spec, raw)
	if err != nil {
		return "", err
	}

	r := csv.NewReader(bytes.NewReader(decoded))
	r.Comma = spec.delimiterRune()
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse input as delimited text: %w", err)
	}

	var header []string
	if spec.HasHeader {
		if len(rows) == 0 {
			return "", fmt.Errorf("input declares a header but is empty")
		}
		header = rows[0]
		rows = rows[1:]
	}

	// Resolve every selector up front so a bad mapping fails before any
	// output exists.
	indices, err := resolveSelectors(spec, header, columnCount(rows))
	if err != nil {
		return "", err
	}

	constants := spec.constantColumns()

	out := make([][]string, 0, len(rows)+1)
	outHeader := make([]string, 0, len(spec.Mapping)+len(constants))
	for _, m := range spec.Mapping {
		outHeader = append(outHeader, m.Field)
	}
	for _, c := range constants {
		outHeader = append(outHeader, c.Field)
	}
	out = append(out, outHeader)

	for _, row := range rows {
		projected := make([]string, 0, len(outHeader))
		for _, idx := range indices {
			if idx < len(row) {
				projected = append(projected, row[idx])
			} else {
				// Ragged short row: the column exists in the layout but this
				// record ends early. Emit empty rather than failing the file.
				projected = append(projected, "")
			}
		}
		for _, c := range constants {
			projected = append(projected, c.Value)
		}
		out = append(out, projected)
	}

	if err := writeCSV(outputPath, out, spec.lineEnding()); err != nil {
		return "", err
	}

	log.Info().
		Str("input", inputPath).
		Str("output", outputPath).
		Str("encoding", codec).
		Int("rows", len(rows)).
		Msg("transform complete")
	return outputPath, nil
}

// resolveSelectors maps every spec entry to a source column index.
func resolveSelectors(spec *MappingSpec, header []string, columns int) ([]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[h] = i
	}

	indices := make([]int, 0, len(spec.Mapping))
	for _, m := range spec.Mapping {
		if m.Index != nil {
			idx := *m.Index
			if idx < 0 || idx >= columns {
				return nil, &MappingResolutionError{
					Selector: fmt.Sprintf("index %d (-> %s)", idx, m.Field),
					Detail:   fmt.Sprintf("valid range is [0, %d)", columns),
				}
			}
			indices = append(indices, idx)
			continue
		}
		idx, ok := byName[m.Name]
		if !ok {
			return nil, &MappingResolutionError{
				Selector: fmt.Sprintf("name %q (-> %s)", m.Name, m.Field),
				Detail:   "known columns: " + strings.Join(header, ", "),
			}
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// columnCount returns the widest row, which defines the valid index range for
// positional selectors over ragged input.
func columnCount(rows [][]string) int {
	max := 0
	for _, row := range rows {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

func writeCSV(path string, rows [][]string, lineEnding string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = lineEnding == "\r\n"
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
