package sheet

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelDecoder reads the first worksheet directly, keeping each cell's
// stored type: numbers become float64, booleans bool, date-formatted numbers
// time.Time, text string and empty cells nil.
type ExcelDecoder struct{}

func (ExcelDecoder) Name() string { return "excelize-direct" }

func (ExcelDecoder) Decode(ctx context.Context, r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, invalidWorkbook(err)
	}
	defer closeQuietly(f, "workbook")

	sheetName, err := firstSheet(f)
	if err != nil {
		return nil, err
	}

	rows, err := f.Rows(sheetName)
	if err != nil {
		return nil, invalidWorkbook(err)
	}
	defer closeQuietly(rows, "rows")

	tc := newTypedCells(f, sheetName)

	var (
		header []string
		data   [][]any
		rowNum int
	)
	for rows.Next() {
		rowNum++
		if rowNum%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		raw, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, invalidWorkbook(err)
		}

		if header == nil {
			if isBlank(raw) {
				continue
			}
			header = raw
			continue
		}

		cells := make([]any, len(raw))
		for i, v := range raw {
			cells[i] = tc.value(i+1, rowNum, v)
		}
		data = append(data, cells)
	}
	if err := rows.Error(); err != nil {
		return nil, invalidWorkbook(err)
	}

	return NewTable(header, data), nil
}

// typedCells resolves raw cell strings into typed values using the cell's
// stored type and number format.
type typedCells struct {
	f         *excelize.File
	sheet     string
	date1904  bool
	dateStyle map[int]bool
}

func newTypedCells(f *excelize.File, sheet string) *typedCells {
	tc := &typedCells{f: f, sheet: sheet, dateStyle: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		tc.date1904 = *props.Date1904
	}
	return tc
}

func (tc *typedCells) value(col, row int, raw string) any {
	if raw == "" {
		return nil
	}

	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}
	typ, err := tc.f.GetCellType(tc.sheet, cell)
	if err != nil {
		return raw
	}

	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw
		}
		if tc.isDate(cell) {
			if t, err := excelize.ExcelDateToTime(n, tc.date1904); err == nil {
				return t
			}
		}
		return n
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
			return t
		}
		return raw
	default:
		return raw
	}
}

func (tc *typedCells) isDate(cell string) bool {
	styleID, err := tc.f.GetCellStyle(tc.sheet, cell)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := tc.dateStyle[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := tc.f.GetStyle(styleID); err == nil {
		isDate = isDateFormat(style.NumFmt, style.CustomNumFmt)
	}
	tc.dateStyle[styleID] = isDate
	return isDate
}

// isDateFormat reports whether a number format renders dates or times.
// Built-in ids follow ECMA-376 18.8.30, including the CJK date formats.
func isDateFormat(numFmt int, custom *string) bool {
	if custom != nil && *custom != "" {
		return isDatePattern(*custom)
	}
	switch {
	case numFmt >= 14 && numFmt <= 22:
		return true
	case numFmt >= 27 && numFmt <= 36:
		return true
	case numFmt >= 45 && numFmt <= 47:
		return true
	case numFmt >= 50 && numFmt <= 58:
		return true
	default:
		return false
	}
}

// isDatePattern looks for date/time tokens outside quoted literals and
// bracketed sections such as [Red] or [$-409].
func isDatePattern(format string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(format) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	return strings.ContainsAny(b.String(), "ydhs")
}

func firstSheet(f *excelize.File) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", invalidWorkbook(errors.New("workbook has no sheets"))
	}
	return sheets[0], nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
