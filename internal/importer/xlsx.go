package importer

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"stockfolio/internal/date"
)

var rawCells = excelize.Options{RawCellValue: true}

func readSpreadsheet(data []byte) (*Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx: workbook has no sheets")
	}
	sheet := sheets[0]

	head, err := leadingRows(f, sheet, headerScanLimit)
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	idx, cols, ok := findHeader(head)
	if !ok {
		return nil, fmt.Errorf("xlsx: no header row in the first %d rows of %q", headerScanLimit, sheet)
	}

	seq := spreadsheetRecords(f, sheet, idx, cols)
	if !hasUsableRecord(seq) {
		return nil, errors.New("xlsx: no usable rows")
	}
	return &Document{
		Layout: Layout{
			Format:     FormatXLSX,
			HeaderLine: idx + 1,
			Columns:    cols,
		},
		records: seq,
	}, nil
}

func leadingRows(f *excelize.File, sheet string, n int) ([][]string, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for len(out) < n && rows.Next() {
		cells, err := rows.Columns(rawCells)
		if err != nil {
			return nil, err
		}
		out = append(out, cells)
	}
	return out, rows.Error()
}

func spreadsheetRecords(f *excelize.File, sheet string, headerIdx int, cols ColumnMap) iter.Seq[RowResult] {
	return func(yield func(RowResult) bool) {
		rows, err := f.Rows(sheet)
		if err != nil {
			yield(RowResult{Err: &PartialRowError{Reason: "cannot read sheet", Err: err}})
			return
		}
		defer rows.Close()

		for i := 0; rows.Next(); i++ {
			line := i + 1
			cells, err := rows.Columns(rawCells)
			if i <= headerIdx {
				continue
			}
			if err != nil {
				if !yield(RowResult{Line: line, Err: &PartialRowError{Line: line, Reason: "unreadable row", Err: err}}) {
					return
				}
				continue
			}

			res, ok := buildRecord(line, cells, cols)
			if !ok {
				continue
			}
			res.Record.Date = serialToISO(res.Record.Date)
			if !yield(res) {
				return
			}
		}
	}
}

// serialToISO converts an Excel serial day number into YYYY-MM-DD and leaves
// any other text untouched.
func serialToISO(s string) string {
	if s == "" || strings.ContainsAny(s, "/-") {
		return s
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial <= 0 {
		return s
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return s
	}
	return date.FromTime(t).String()
}
