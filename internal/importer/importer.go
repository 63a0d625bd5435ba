// Package importer turns broker export files into a lazy stream of raw
// holding records.
//
// The caller hands over raw bytes plus an optional filename. Detect works out
// the container (xlsx or delimited text), the text encoding, the delimiter and
// which columns carry the instrument, quantity, price, date and name, then
// returns a Document whose Records sequence yields one RowResult per data row.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
)

// ErrNoDataRecognized is the sentinel wrapped by FormatError.
var ErrNoDataRecognized = errors.New("no data recognized")

// SupportedFormatsHint is shown to users when nothing could be recognized.
const SupportedFormatsHint = "expected a header with an instrument column (ticker, ativo, codigo, produto, papel) " +
	"and a quantity column (quantidade, qtd, quantity); price (preco medio, price) and date (data, date) are optional. " +
	"Supported formats: .xlsx spreadsheets and .csv/.txt files separated by ';', ',', tab or '|'"

// FormatError reports that every layout strategy produced zero usable records.
type FormatError struct {
	Attempts []string
}

func (e *FormatError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrNoDataRecognized.Error()
	}
	return fmt.Sprintf("%s (%s)", ErrNoDataRecognized, strings.Join(e.Attempts, "; "))
}

func (e *FormatError) Unwrap() error { return ErrNoDataRecognized }

// PartialRowError describes a single row that could not be read.
type PartialRowError struct {
	Line   int
	Reason string
	Err    error
}

func (e *PartialRowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *PartialRowError) Unwrap() error { return e.Err }

// RawRecord is one data row in its source locale format.
type RawRecord struct {
	Line       int
	Instrument string
	Quantity   string
	Price      string
	Date       string
	Name       string
}

// RowResult carries either a record or the reason its row was unreadable.
type RowResult struct {
	Line   int
	Record RawRecord
	Err    error
}

// Format identifies the container of an upload.
type Format string

const (
	FormatXLSX      Format = "xlsx"
	FormatDelimited Format = "delimited"
)

// Layout describes what Detect inferred about a file.
type Layout struct {
	Format     Format    `json:"format"`
	Encoding   string    `json:"encoding,omitempty"`
	Delimiter  string    `json:"delimiter,omitempty"`
	HeaderLine int       `json:"header_line"`
	Columns    ColumnMap `json:"columns"`
}

// Document is a recognized upload. Records may be ranged over any number of
// times; each pass re-reads the underlying data.
type Document struct {
	Layout  Layout
	records iter.Seq[RowResult]
}

// Records returns the lazy sequence of data rows following the header.
func (d *Document) Records() iter.Seq[RowResult] { return d.records }

// strategy is one way of reading an upload. It returns a Document only when
// at least one usable record exists.
type strategy func(data []byte) (*Document, error)

// Detect infers the layout of data and returns a Document over its rows.
// The filename is only a hint; content sniffing wins when they disagree.
func Detect(data []byte, filename string) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &FormatError{Attempts: []string{"empty file"}}
	}

	var strategies []strategy
	if looksLikeSpreadsheet(data, filename) {
		strategies = append(strategies, readSpreadsheet)
	}
	strategies = append(strategies, readDelimited)

	ferr := &FormatError{}
	for _, try := range strategies {
		doc, err := try(data)
		if err == nil {
			return doc, nil
		}
		ferr.Attempts = append(ferr.Attempts, err.Error())
	}
	return nil, ferr
}

var zipMagic = []byte("PK\x03\x04")

func looksLikeSpreadsheet(data []byte, filename string) bool {
	if bytes.HasPrefix(data, zipMagic) {
		return true
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// hasUsableRecord reports whether seq yields at least one record without error.
func hasUsableRecord(seq iter.Seq[RowResult]) bool {
	for r := range seq {
		if r.Err == nil {
			return true
		}
	}
	return false
}

// buildRecord maps a row of cells onto a RawRecord using cols. It returns
// ok=false for rows that should be skipped silently.
func buildRecord(line int, cells []string, cols ColumnMap) (RowResult, bool) {
	if isBlank(cells) {
		return RowResult{}, false
	}

	need := cols.required()
	if len(cells) <= need {
		return RowResult{
			Line: line,
			Err: &PartialRowError{
				Line:   line,
				Reason: fmt.Sprintf("short row: expected at least %d columns, got %d", need+1, len(cells)),
			},
		}, true
	}

	rec := RawRecord{
		Line:       line,
		Instrument: cols.cell(cells, FieldInstrument),
		Quantity:   cols.cell(cells, FieldQuantity),
		Price:      cols.cell(cells, FieldPrice),
		Date:       cols.cell(cells, FieldDate),
		Name:       cols.cell(cells, FieldName),
	}
	if rec.Instrument == "" {
		return RowResult{}, false
	}
	return RowResult{Line: line, Record: rec}, true
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
