package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// Delimiters are tried in order for text uploads.
var Delimiters = []rune{';', ',', '\t', '|'}

func newCSVReader(text string, delim rune) *csv.Reader {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r
}

func readDelimited(data []byte) (*Document, error) {
	text, enc, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("delimited: %w", err)
	}

	var reasons []string
	for _, delim := range Delimiters {
		headerIdx, headerLine, cols, ok := delimitedHeader(text, delim)
		if !ok {
			reasons = append(reasons, fmt.Sprintf("delimiter %q: no instrument column", delim))
			continue
		}

		seq := delimitedRecords(text, delim, headerIdx, cols)
		if !hasUsableRecord(seq) {
			reasons = append(reasons, fmt.Sprintf("delimiter %q: no usable rows", delim))
			continue
		}

		return &Document{
			Layout: Layout{
				Format:     FormatDelimited,
				Encoding:   enc,
				Delimiter:  string(delim),
				HeaderLine: headerLine,
				Columns:    cols,
			},
			records: seq,
		}, nil
	}
	return nil, errors.New(strings.Join(reasons, ", "))
}

// delimitedHeader reads up to headerScanLimit records and locates the header.
func delimitedHeader(text string, delim rune) (idx, line int, cols ColumnMap, ok bool) {
	r := newCSVReader(text, delim)
	var rows [][]string
	var lines []int
	for len(rows) < headerScanLimit {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			break
		}
		l, _ := r.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, l)
	}

	idx, cols, ok = findHeader(rows)
	if !ok {
		return -1, 0, cols, false
	}
	return idx, lines[idx], cols, true
}

// delimitedRecords yields the rows after the header record. headerIdx counts
// successfully parsed records, matching delimitedHeader.
func delimitedRecords(text string, delim rune, headerIdx int, cols ColumnMap) iter.Seq[RowResult] {
	return func(yield func(RowResult) bool) {
		r := newCSVReader(text, delim)
		seen := 0
		for {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var perr *csv.ParseError
				if !errors.As(err, &perr) {
					return
				}
				if seen <= headerIdx {
					continue
				}
				if !yield(RowResult{Line: perr.Line, Err: &PartialRowError{Line: perr.Line, Reason: perr.Err.Error(), Err: err}}) {
					return
				}
				continue
			}

			seen++
			if seen <= headerIdx+1 {
				continue
			}

			line, _ := r.FieldPos(0)
			res, ok := buildRecord(line, rec, cols)
			if !ok {
				continue
			}
			if !yield(res) {
				return
			}
		}
	}
}
