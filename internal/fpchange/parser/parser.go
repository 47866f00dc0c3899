// Package parser reads FP change uploads into a header and numbered rows.
//
// Parsing is lenient: malformed or missing cells become "" and never fail the
// parse. Deciding whether a row is acceptable belongs to the validator.
package parser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"accai/internal/fpchange/models"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Result is the fully materialized parse output.
type Result struct {
	Header []string
	Rows   []models.NumberedRow
}

// Parse reads a comma-delimited stream. The first non-blank line is the
// header; every later non-blank line becomes a row numbered index+2.
// Seekable streams are rewound to the start before reading.
func Parse(ctx context.Context, r io.Reader) (*Result, error) {
	if seeker, ok := r.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind csv stream: %w", err)
		}
	}

	reader := bufio.NewReader(r)
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = ','
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true
	csvReader.ReuseRecord = false

	result := &Result{Header: []string{}, Rows: []models.NumberedRow{}}
	var positions map[string]int

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// A malformed line still counts as a row; every cell reads as empty.
			if positions != nil {
				result.Rows = append(result.Rows, numbered(len(result.Rows), models.Row{}))
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		record = trimAll(record)
		if isBlank(record) {
			continue
		}

		if positions == nil {
			result.Header = record
			positions = headerPositions(record)
			continue
		}

		result.Rows = append(result.Rows, numbered(len(result.Rows), models.RowFromRecord(positions, record)))
	}

	return result, nil
}

func numbered(index int, row models.Row) models.NumberedRow {
	// header is line 1, first data row is line 2
	return models.NumberedRow{Line: index + 2, Row: row}
}

func headerPositions(header []string) map[string]int {
	positions := make(map[string]int, len(header))
	for idx, name := range header {
		if _, seen := positions[name]; !seen {
			positions[name] = idx
		}
	}
	return positions
}

func trimAll(record []string) []string {
	out := make([]string, len(record))
	for i, cell := range record {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if cell != "" {
			return false
		}
	}
	return true
}
