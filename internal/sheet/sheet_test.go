package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook builds an in-memory xlsx with rows written from A1.
func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			if v == nil {
				continue
			}
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestNewTable_HeaderNames(t *testing.T) {
	tbl := NewTable([]string{"a", "", "a", "a.1", "a"}, [][]any{{1.0, 2.0, 3.0, 4.0, 5.0, 6.0}})

	assert.Equal(t, []string{"a", "Unnamed: 1", "a.1", "a.1.1", "a.2", "Unnamed: 5"}, tbl.ColumnNames())
	assert.Equal(t, 1, tbl.Len())
}

func TestNewTable_PadsAndDropsEmptyRows(t *testing.T) {
	tbl := NewTable([]string{"a", "b"}, [][]any{
		{"x"},
		{nil, ""},
		{"y", 2.0},
	})

	require.Equal(t, 2, tbl.Len())
	b, ok := tbl.Column("b")
	require.True(t, ok)
	assert.Equal(t, []any{nil, 2.0}, b)
}

func TestTable_SetColumn(t *testing.T) {
	tbl := NewTable([]string{"a"}, [][]any{{"1"}, {"2"}})

	require.NoError(t, tbl.SetColumn("a", []any{1.0, 2.0}))
	got, _ := tbl.Column("a")
	assert.Equal(t, []any{1.0, 2.0}, got)

	assert.Error(t, tbl.SetColumn("a", []any{1.0}))
	assert.Error(t, tbl.SetColumn("missing", []any{1.0, 2.0}))
}

func TestTable_CloneSharesNoStorage(t *testing.T) {
	tbl := NewTable([]string{"a"}, [][]any{{"1"}})
	clone := tbl.Clone()

	vals, _ := clone.Column("a")
	vals[0] = "changed"

	orig, _ := tbl.Column("a")
	assert.Equal(t, "1", orig[0])
}

func TestRecord_MarshalJSONKeepsOrder(t *testing.T) {
	when := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	tbl := NewTable([]string{"zeta", "alpha", "when"}, [][]any{{"z", 1.5, when}})

	data, err := json.Marshal(tbl.Records())
	require.NoError(t, err)
	assert.Equal(t, `[{"zeta":"z","alpha":1.5,"when":"2024-01-15T00:00:00Z"}]`, string(data))
}

func TestCheckExtension(t *testing.T) {
	assert.NoError(t, CheckExtension("taxes.xlsx"))
	assert.NoError(t, CheckExtension("TAXES.XLS"))
	assert.ErrorIs(t, CheckExtension("taxes.csv"), ErrUnsupportedFile)
	assert.ErrorIs(t, CheckExtension("noext"), ErrUnsupportedFile)
}

func TestNewDecoder(t *testing.T) {
	d, err := NewDecoder("")
	require.NoError(t, err)
	assert.IsType(t, CSVDecoder{}, d)

	d, err = NewDecoder("direct")
	require.NoError(t, err)
	assert.IsType(t, ExcelDecoder{}, d)

	_, err = NewDecoder("pandas")
	assert.Error(t, err)
}

func TestExcelDecoder_TypedCells(t *testing.T) {
	when := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	buf := workbook(t, [][]any{
		{"code", "rate", "active", "since", "note"},
		{"VAT10", 10, true, when, nil},
		{"VAT5", 5.5, false, when, "x"},
	})

	tbl, err := ExcelDecoder{}.Decode(context.Background(), buf)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"code", "rate", "active", "since", "note"}, tbl.ColumnNames())

	code, _ := tbl.Column("code")
	assert.Equal(t, []any{"VAT10", "VAT5"}, code)

	rate, _ := tbl.Column("rate")
	assert.Equal(t, []any{10.0, 5.5}, rate)

	active, _ := tbl.Column("active")
	assert.Equal(t, []any{true, false}, active)

	since, _ := tbl.Column("since")
	require.IsType(t, time.Time{}, since[0])
	assert.True(t, when.Equal(since[0].(time.Time)))

	note, _ := tbl.Column("note")
	assert.Equal(t, []any{nil, "x"}, note)
}

func TestCSVDecoder_ColumnInference(t *testing.T) {
	buf := workbook(t, [][]any{
		{"code", "rate", "mixed", "flag"},
		{"VAT10", 10, 1, true},
		{"VAT5", 5.5, "abc", false},
	})

	tbl, err := CSVDecoder{}.Decode(context.Background(), buf)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	rate, _ := tbl.Column("rate")
	assert.Equal(t, []any{10.0, 5.5}, rate)

	// One text cell keeps the whole column as text.
	mixed, _ := tbl.Column("mixed")
	assert.Equal(t, []any{"1", "abc"}, mixed)

	flag, _ := tbl.Column("flag")
	assert.Equal(t, []any{true, false}, flag)
}

func TestReadCSV_MissingMarkersAndBlankLines(t *testing.T) {
	in := "\n\na,b\n1,NaN\n,\nN/A,x\n"

	tbl, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	a, _ := tbl.Column("a")
	assert.Equal(t, []any{1.0, nil}, a)

	b, _ := tbl.Column("b")
	assert.Equal(t, []any{nil, "x"}, b)
}

func TestDecoders_SkipBlankRowsAlike(t *testing.T) {
	rows := [][]any{
		{"code", "rate"},
		{"VAT10", 10},
		{nil, nil},
		{nil, nil},
		{"VAT5", 5},
	}

	for _, d := range []Decoder{CSVDecoder{}, ExcelDecoder{}} {
		t.Run(d.Name(), func(t *testing.T) {
			tbl, err := d.Decode(context.Background(), workbook(t, rows))
			require.NoError(t, err)

			// row indices count non-blank data rows only
			require.Equal(t, 2, tbl.Len())
			codes, _ := tbl.Column("code")
			assert.Equal(t, []any{"VAT10", "VAT5"}, codes)
		})
	}
}

func TestDecoders_InvalidWorkbook(t *testing.T) {
	for _, d := range []Decoder{ExcelDecoder{}, CSVDecoder{}} {
		t.Run(d.Name(), func(t *testing.T) {
			_, err := d.Decode(context.Background(), strings.NewReader("not a workbook"))
			assert.ErrorIs(t, err, ErrInvalidWorkbook)
		})
	}
}

func TestReader_RejectsExtension(t *testing.T) {
	rd := NewReader(nil)
	assert.Equal(t, "xlsx-to-csv", rd.Strategy())

	_, err := rd.Read(context.Background(), "data.txt", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestIsDateFormat(t *testing.T) {
	custom := func(s string) *string { return &s }

	assert.True(t, isDateFormat(14, nil))
	assert.True(t, isDateFormat(22, nil))
	assert.False(t, isDateFormat(0, nil))
	assert.False(t, isDateFormat(4, nil))
	assert.True(t, isDateFormat(164, custom("yyyy-mm-dd")))
	assert.False(t, isDateFormat(164, custom(`[Red]#,##0.00;"days"`)))
}
