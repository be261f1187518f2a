package tax

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	proc string
	args []any
}

// fakeCaller records procedure calls and fails items whose first argument
// is listed in failOn.
type fakeCaller struct {
	calls  []call
	rows   []map[string]any
	err    error
	failOn map[any]error
}

func (f *fakeCaller) CallScalar(ctx context.Context, proc string, args ...any) (any, error) {
	f.calls = append(f.calls, call{proc, args})
	if err, ok := f.failOn[args[0]]; ok {
		return nil, err
	}
	return "ok", f.err
}

func (f *fakeCaller) CallTable(ctx context.Context, proc string, args ...any) ([]map[string]any, error) {
	f.calls = append(f.calls, call{proc, args})
	return f.rows, f.err
}

func validCreate(code string) CreateRequest {
	return CreateRequest{
		TaxCodeRcd:          code,
		TaxRuleRcd:          "VAT",
		TaxCodeRefNameE:     "Value added tax",
		TaxCodeRefNameL:     "Thuế giá trị gia tăng",
		SeqNum:              3,
		MustNotChangeFlag:   true,
		UserDefinedRateFlag: false,
		CreatedByUserID:     "u-1",
		TaxRate:             10,
	}
}

func validUpdate(code string) UpdateRequest {
	return UpdateRequest{
		TaxCodeRcd:          code,
		TaxRuleRcd:          "VAT",
		TaxCodeRefNameE:     "Value added tax",
		TaxCodeRefNameL:     "Thuế GTGT",
		SeqNum:              1,
		MustNotChangeFlag:   false,
		UserDefinedRateFlag: true,
		LuUserID:            "u-2",
		TaxRate:             8,
		Status:              1,
	}
}

func newService() (*Service, *fakeCaller) {
	fc := &fakeCaller{}
	return NewService(NewProcRepository(fc)), fc
}

func TestCreateRequest_ArgsOrder(t *testing.T) {
	assert.Equal(t, []any{
		"VAT10", "VAT", "Value added tax", "Thuế giá trị gia tăng", 3, true, false, "u-1", 10.0,
	}, validCreate("VAT10").Args())
}

func TestUpdateRequest_ArgsOrder(t *testing.T) {
	assert.Equal(t, []any{
		"VAT8", "VAT", "Value added tax", "Thuế GTGT", 1, false, true, "u-2", 8.0, 1,
	}, validUpdate("VAT8").Args())
}

func TestSearchRequest_ArgsOrder(t *testing.T) {
	req := SearchRequest{PageIndex: 2, PageSize: 20, Lang: "vi", TaxRuleRcd: "VAT"}
	assert.Equal(t, []any{2, 20, "vi", "", "VAT", ""}, req.Args())
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr string
	}{
		{"create ok", validCreate("A").Validate(), ""},
		{"create missing code", func() error { r := validCreate(""); return r.Validate() }(), "tax_code_rcd is required"},
		{"create negative rate", func() error { r := validCreate("A"); r.TaxRate = -1; return r.Validate() }(), "tax_rate"},
		{"update missing user", func() error { r := validUpdate("A"); r.LuUserID = " "; return r.Validate() }(), "lu_user_id is required"},
		{"delete ok", DeleteRequest{JSONListID: `["A","B"]`, UpdatedBy: "u"}.Validate(), ""},
		{"delete not json", DeleteRequest{JSONListID: "A,B", UpdatedBy: "u"}.Validate(), "JSON array"},
		{"delete empty list", DeleteRequest{JSONListID: "[]", UpdatedBy: "u"}.Validate(), "must not be empty"},
		{"delete missing user", DeleteRequest{JSONListID: `["A"]`}.Validate(), "updated_by is required"},
		{"search ok", SearchRequest{PageIndex: 1, PageSize: 10, Lang: "en"}.Validate(), ""},
		{"search bad page", SearchRequest{PageIndex: 0, PageSize: 10, Lang: "en"}.Validate(), "page_index"},
		{"search big page", SearchRequest{PageIndex: 1, PageSize: MaxPageSize + 1, Lang: "en"}.Validate(), "page_size"},
		{"search no lang", SearchRequest{PageIndex: 1, PageSize: 10}.Validate(), "lang is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr == "" {
				assert.NoError(t, tt.err)
				return
			}
			require.Error(t, tt.err)
			assert.Contains(t, tt.err.Error(), tt.wantErr)

			var ve *ValidationError
			assert.True(t, errors.As(tt.err, &ve))
		})
	}
}

func TestService_CreateBatch(t *testing.T) {
	svc, fc := newService()

	res, err := svc.CreateBatch(context.Background(), []CreateRequest{validCreate("A"), validCreate("B")})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, 2, res.Total)

	require.Len(t, fc.calls, 2)
	assert.Equal(t, ProcCreate, fc.calls[0].proc)
	assert.Equal(t, validCreate("A").Args(), fc.calls[0].args)
	assert.Equal(t, "B", fc.calls[1].args[0])
}

func TestService_CreateBatchCollectsItemFailures(t *testing.T) {
	svc, fc := newService()
	fc.failOn = map[any]error{
		"B": &pgconn.PgError{Code: "P0001", Message: "tax code already exists"},
		"C": errors.New("connection reset by peer"),
	}

	res, err := svc.CreateBatch(context.Background(), []CreateRequest{
		validCreate("A"), validCreate("B"), validCreate("C"), validCreate("D"),
	})
	require.NoError(t, err)

	assert.Len(t, fc.calls, 4, "every item is attempted")
	assert.Equal(t, []ItemError{
		{Index: 1, TaxCodeRcd: "B", Error: "tax code already exists"},
		{Index: 2, TaxCodeRcd: "C", Error: "internal error"},
	}, res.Failed)
}

func TestService_CreateBatchRejectsInvalidBeforeCalling(t *testing.T) {
	svc, fc := newService()
	bad := validCreate("B")
	bad.TaxRuleRcd = ""

	_, err := svc.CreateBatch(context.Background(), []CreateRequest{validCreate("A"), bad})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 1, ve.Index)
	assert.Equal(t, "tax_rule_rcd", ve.Field)
	assert.Contains(t, err.Error(), "item 1: tax_rule_rcd is required")
	assert.Empty(t, fc.calls)
}

func TestService_EmptyBatch(t *testing.T) {
	svc, _ := newService()

	_, err := svc.UpdateBatch(context.Background(), nil)
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestService_UpdateBatch(t *testing.T) {
	svc, fc := newService()

	res, err := svc.UpdateBatch(context.Background(), []UpdateRequest{validUpdate("A")})
	require.NoError(t, err)
	assert.True(t, res.OK())
	require.Len(t, fc.calls, 1)
	assert.Equal(t, ProcUpdate, fc.calls[0].proc)
	assert.Len(t, fc.calls[0].args, 10)
}

func TestService_DeleteMany(t *testing.T) {
	svc, fc := newService()
	fc.rows = []map[string]any{{"tax_code_rcd": "A", "deleted": true}}

	rows, err := svc.DeleteMany(context.Background(), DeleteRequest{JSONListID: `["A"]`, UpdatedBy: "u-9"})
	require.NoError(t, err)
	assert.Equal(t, fc.rows, rows)
	assert.Equal(t, call{ProcDeleteMany, []any{`["A"]`, "u-9"}}, fc.calls[0])
}

func TestService_GetByID(t *testing.T) {
	svc, fc := newService()

	_, err := svc.GetByID(context.Background(), "MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, call{ProcGetByID, []any{"MISSING"}}, fc.calls[0])

	fc.rows = []map[string]any{{"tax_code_rcd": "A"}}
	rows, err := svc.GetByID(context.Background(), "A")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = svc.GetByID(context.Background(), "")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestService_DropdownAndSearch(t *testing.T) {
	svc, fc := newService()
	fc.rows = []map[string]any{{"value": "A", "label": "VAT"}}

	rows, err := svc.Dropdown(context.Background(), "vi")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, call{ProcDropdown, []any{"vi"}}, fc.calls[0])

	_, err = svc.Search(context.Background(), SearchRequest{PageIndex: 1, PageSize: 10, Lang: "en", TaxCodeRefName: "VAT"})
	require.NoError(t, err)
	assert.Equal(t, call{ProcSearch, []any{1, 10, "en", "", "", "VAT"}}, fc.calls[1])

	_, err = svc.Search(context.Background(), SearchRequest{})
	assert.Error(t, err)
	assert.Len(t, fc.calls, 2)
}

func TestService_PropagatesRepositoryErrors(t *testing.T) {
	svc, fc := newService()
	fc.err = errors.New("boom")

	_, err := svc.Dropdown(context.Background(), "vi")
	assert.EqualError(t, err, "boom")
}
