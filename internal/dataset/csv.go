package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Row maps a normalized column name to the cell value.
type Row map[string]string

// LoadCSV reads a scenario table from path. Files ending in .gz are
// decompressed on the fly.
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("csv: open %s: %w", path, err)
		}
		defer zr.Close() //nolint:errcheck
		r = zr
	}
	return ReadCSV(r, path)
}

// ReadCSV parses a header row followed by data rows; name only appears in
// errors. Headers are trimmed, lowercased and must be unique. Lines starting
// with # and rows with every cell blank are skipped.
func ReadCSV(r io.Reader, name string) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", name)
	}
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", name, err)
	}
	headers, err := normalizeHeaders(header)
	if err != nil {
		return nil, fmt.Errorf("csv: %s: %w", name, err)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: parse %s: %w", name, err)
		}
		if blank(record) {
			continue
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func normalizeHeaders(header []string) ([]string, error) {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			return nil, fmt.Errorf("column %d has no header", i+1)
		}
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true
		out[i] = h
	}
	return out, nil
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
