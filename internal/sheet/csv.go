package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CSVDecoder converts the first worksheet to CSV text using the displayed
// (formatted) cell values, then reads it back with per-column type inference:
// a column whose non-missing cells are all numbers becomes float64, all
// TRUE/FALSE becomes bool, anything else stays string.
//
// Streaming rows into a CSV buffer avoids building the workbook's full cell
// model, which makes it the faster strategy for large uploads.
type CSVDecoder struct{}

func (CSVDecoder) Name() string { return "xlsx-to-csv" }

func (CSVDecoder) Decode(ctx context.Context, r io.Reader) (*Table, error) {
	var buf bytes.Buffer
	if err := WriteCSV(ctx, r, &buf); err != nil {
		return nil, err
	}
	return ReadCSV(ctx, &buf)
}

// WriteCSV streams the first worksheet of the workbook in r to w as CSV.
func WriteCSV(ctx context.Context, r io.Reader, w io.Writer) error {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return invalidWorkbook(err)
	}
	defer closeQuietly(f, "workbook")

	sheetName, err := firstSheet(f)
	if err != nil {
		return err
	}

	rows, err := f.Rows(sheetName)
	if err != nil {
		return invalidWorkbook(err)
	}
	defer closeQuietly(rows, "rows")

	cw := csv.NewWriter(w)
	n := 0
	for rows.Next() {
		n++
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		cols, err := rows.Columns()
		if err != nil {
			return invalidWorkbook(err)
		}
		if err := cw.Write(cols); err != nil {
			return err
		}
	}
	if err := rows.Error(); err != nil {
		return invalidWorkbook(err)
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses CSV text into a Table. The first non-blank record is the header.
func ReadCSV(ctx context.Context, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		header  []string
		records [][]string
		n       int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, invalidWorkbook(err)
		}

		n++
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if header == nil {
			if isBlank(rec) {
				continue
			}
			header = rec
			continue
		}
		records = append(records, rec)
	}

	return NewTable(header, inferColumns(records)), nil
}

// numberPattern matches plain decimal numbers the way a CSV reader would
// accept them: no thousands separators, optional exponent.
var numberPattern = regexp.MustCompile(`^\s*[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?\s*$`)

// missingMarkers are cell texts read as "no value".
var missingMarkers = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true,
	"None": true, "n/a": true, "nan": true, "null": true,
}

type columnKind int

const (
	kindEmpty columnKind = iota
	kindNumber
	kindBool
	kindText
)

// inferColumns converts string records into typed rows, deciding each
// column's type from all of its cells.
func inferColumns(records [][]string) [][]any {
	width := 0
	for _, rec := range records {
		width = max(width, len(rec))
	}

	kinds := make([]columnKind, width)
	for c := 0; c < width; c++ {
		kinds[c] = inferKind(records, c)
	}

	rows := make([][]any, len(records))
	for r, rec := range records {
		row := make([]any, len(rec))
		for c, s := range rec {
			row[c] = convertCell(s, kinds[c])
		}
		rows[r] = row
	}
	return rows
}

func inferKind(records [][]string, col int) columnKind {
	kind := kindEmpty
	for _, rec := range records {
		if col >= len(rec) || missingMarkers[rec[col]] {
			continue
		}
		s := rec[col]
		var k columnKind
		switch {
		case numberPattern.MatchString(s):
			k = kindNumber
		case isBoolText(s):
			k = kindBool
		default:
			return kindText
		}
		if kind != kindEmpty && kind != k {
			return kindText
		}
		kind = k
	}
	return kind
}

func convertCell(s string, kind columnKind) any {
	if missingMarkers[s] {
		return nil
	}
	switch kind {
	case kindNumber:
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n
		}
	case kindBool:
		return s == "True" || s == "TRUE" || s == "true"
	}
	return s
}

func isBoolText(s string) bool {
	switch s {
	case "True", "TRUE", "true", "False", "FALSE", "false":
		return true
	}
	return false
}
