// Package decode turns uploaded schedule spreadsheets into raw rows.
//
// CSVDecoder reads comma, semicolon, tab and pipe separated files in UTF-8,
// UTF-16 or Windows-1252. The header row may sit below a few title lines; it
// is found by matching column names against a table of common aliases.
package decode

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/eventimport/internal/core"
)

var (
	ErrNoHeader     = errors.New("no header row with room, title and date columns")
	ErrTooManyRows  = errors.New("too many rows")
	ErrFileTooLarge = core.ErrFileTooLarge
)

// Defaults for a zero CSVDecoder.
const (
	DefaultHeaderScanRows = 10
	DefaultMaxRows        = 5000
	DefaultMaxBytes       = 10 << 20
)

// CSVDecoder implements core.Decoder for delimited text files.
type CSVDecoder struct {
	HeaderScanRows int   // rows searched for the header
	MaxRows        int   // data rows allowed
	MaxBytes       int64 // file size allowed
}

// Decode reads r and returns one raw row per non-empty data line.
// Cells holding RFC 3339 timestamps are converted to timezoneHint and passed
// on as time.Time values.
func (d CSVDecoder) Decode(ctx context.Context, r io.Reader, timezoneHint string) ([]core.RawRow, error) {
	maxBytes := d.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxBytes)
	}

	text, _, err := toUTF8(data)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, nil
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	loc := time.UTC
	if timezoneHint != "" {
		if l, err := time.LoadLocation(timezoneHint); err == nil {
			loc = l
		}
	}

	scan := d.HeaderScanRows
	if scan <= 0 {
		scan = DefaultHeaderScanRows
	}
	maxRows := d.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	var (
		cols    map[int]string
		rows    []core.RawRow
		scanned int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if isEmptyRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)

		if cols == nil {
			scanned++
			if c := columnMap(record); isHeader(c) {
				cols = c
			} else if scanned >= scan {
				return nil, ErrNoHeader
			}
			continue
		}

		if len(rows) >= maxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, maxRows)
		}
		if len(rows)%500 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rows = append(rows, buildRow(record, cols, line, loc))
	}

	if cols == nil {
		return nil, ErrNoHeader
	}
	return rows, nil
}

// buildRow maps one record onto canonical keys. Repeated presenter columns
// are joined with commas; for any other repeated key the first non-empty
// value wins.
func buildRow(record []string, cols map[int]string, line int, loc *time.Location) core.RawRow {
	row := core.RawRow{core.ColLine: line}
	var presenters []string
	for i, cell := range record {
		key, ok := cols[i]
		if !ok {
			continue
		}
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if key == core.ColPresenter {
			presenters = append(presenters, cell)
			continue
		}
		if _, taken := row[key]; taken {
			continue
		}
		row[key] = cellValue(key, cell, loc)
	}
	if len(presenters) > 0 {
		row[core.ColPresenter] = strings.Join(presenters, ", ")
	}

	// A start timestamp with no date column supplies the date.
	if _, ok := row[core.ColDate]; !ok {
		if ts, ok := row[core.ColStartTime].(time.Time); ok {
			row[core.ColDate] = ts
		}
	}
	return row
}

// cellValue converts timestamp cells in date and time columns.
func cellValue(key, cell string, loc *time.Location) any {
	switch key {
	case core.ColDate, core.ColStartTime, core.ColEndTime:
		if ts, err := time.Parse(time.RFC3339, cell); err == nil {
			return ts.In(loc)
		}
	}
	return cell
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// sniffDelimiter picks the separator that occurs most often, outside quotes,
// in the first few lines.
func sniffDelimiter(text []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	counts := make(map[rune]int, len(candidates))

	lines := 0
	inQuotes := false
	for _, r := range string(text) {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == '\n' && !inQuotes:
			lines++
		case !inQuotes:
			counts[r]++
		}
		if lines >= 5 {
			break
		}
	}

	best := ','
	for _, c := range candidates {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
