// Package tax manages tax code reference records through stored procedures.
//
// Each operation has an explicit request struct whose Args method fixes the
// positional parameter order of its procedure, so a renamed or missing field
// fails to compile instead of shifting parameters.
package tax

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Procedure names.
const (
	ProcCreate     = "sp_tax_code_ref_create"
	ProcUpdate     = "sp_tax_code_ref_update"
	ProcDeleteMany = "sp_tax_code_ref_delete_multi"
	ProcGetByID    = "sp_tax_code_ref_get_by_id"
	ProcDropdown   = "sp_tax_code_ref_get_list_dropdown"
	ProcSearch     = "sp_tax_code_ref_search"
)

// MaxPageSize caps search page sizes.
const MaxPageSize = 1000

// ErrNotFound is returned when a tax code reference does not exist.
var ErrNotFound = errors.New("tax code reference not found")

// ValidationError reports an invalid request field.
type ValidationError struct {
	Index int // position in a batch, -1 for single requests
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("item %d: %s %s", e.Index, e.Field, e.Msg)
	}
	return e.Field + " " + e.Msg
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Index: -1, Field: field, Msg: "is required"}
	}
	return nil
}

// CreateRequest is one tax code reference to create.
type CreateRequest struct {
	TaxCodeRcd          string  `json:"tax_code_rcd"`
	TaxRuleRcd          string  `json:"tax_rule_rcd"`
	TaxCodeRefNameE     string  `json:"tax_code_ref_name_e"`
	TaxCodeRefNameL     string  `json:"tax_code_ref_name_l"`
	SeqNum              int     `json:"seq_num"`
	MustNotChangeFlag   bool    `json:"must_not_change_flag"`
	UserDefinedRateFlag bool    `json:"user_defined_rate_flag"`
	CreatedByUserID     string  `json:"created_by_user_id"`
	TaxRate             float64 `json:"tax_rate"`
}

// Args returns the sp_tax_code_ref_create parameters in order.
func (r CreateRequest) Args() []any {
	return []any{
		r.TaxCodeRcd,
		r.TaxRuleRcd,
		r.TaxCodeRefNameE,
		r.TaxCodeRefNameL,
		r.SeqNum,
		r.MustNotChangeFlag,
		r.UserDefinedRateFlag,
		r.CreatedByUserID,
		r.TaxRate,
	}
}

func (r CreateRequest) Validate() error {
	return errors.Join(
		required("tax_code_rcd", r.TaxCodeRcd),
		required("tax_rule_rcd", r.TaxRuleRcd),
		required("tax_code_ref_name_e", r.TaxCodeRefNameE),
		required("tax_code_ref_name_l", r.TaxCodeRefNameL),
		required("created_by_user_id", r.CreatedByUserID),
		validRate(r.TaxRate),
	)
}

// UpdateRequest replaces a tax code reference.
type UpdateRequest struct {
	TaxCodeRcd          string  `json:"tax_code_rcd"`
	TaxRuleRcd          string  `json:"tax_rule_rcd"`
	TaxCodeRefNameE     string  `json:"tax_code_ref_name_e"`
	TaxCodeRefNameL     string  `json:"tax_code_ref_name_l"`
	SeqNum              int     `json:"seq_num"`
	MustNotChangeFlag   bool    `json:"must_not_change_flag"`
	UserDefinedRateFlag bool    `json:"user_defined_rate_flag"`
	LuUserID            string  `json:"lu_user_id"`
	TaxRate             float64 `json:"tax_rate"`
	Status              int     `json:"status"`
}

// Args returns the sp_tax_code_ref_update parameters in order.
func (r UpdateRequest) Args() []any {
	return []any{
		r.TaxCodeRcd,
		r.TaxRuleRcd,
		r.TaxCodeRefNameE,
		r.TaxCodeRefNameL,
		r.SeqNum,
		r.MustNotChangeFlag,
		r.UserDefinedRateFlag,
		r.LuUserID,
		r.TaxRate,
		r.Status,
	}
}

func (r UpdateRequest) Validate() error {
	return errors.Join(
		required("tax_code_rcd", r.TaxCodeRcd),
		required("tax_rule_rcd", r.TaxRuleRcd),
		required("tax_code_ref_name_e", r.TaxCodeRefNameE),
		required("tax_code_ref_name_l", r.TaxCodeRefNameL),
		required("lu_user_id", r.LuUserID),
		validRate(r.TaxRate),
	)
}

func validRate(rate float64) error {
	if rate < 0 {
		return &ValidationError{Index: -1, Field: "tax_rate", Msg: "must not be negative"}
	}
	return nil
}

// DeleteRequest soft-deletes several records. JSONListID is a JSON array of
// tax_code_rcd values, passed through to the procedure as text.
type DeleteRequest struct {
	JSONListID string `json:"json_list_id"`
	UpdatedBy  string `json:"updated_by"`
}

// Args returns the sp_tax_code_ref_delete_multi parameters in order.
func (r DeleteRequest) Args() []any {
	return []any{r.JSONListID, r.UpdatedBy}
}

func (r DeleteRequest) Validate() error {
	if err := errors.Join(
		required("json_list_id", r.JSONListID),
		required("updated_by", r.UpdatedBy),
	); err != nil {
		return err
	}

	var ids []any
	if err := json.Unmarshal([]byte(r.JSONListID), &ids); err != nil {
		return &ValidationError{Index: -1, Field: "json_list_id", Msg: "must be a JSON array"}
	}
	if len(ids) == 0 {
		return &ValidationError{Index: -1, Field: "json_list_id", Msg: "must not be empty"}
	}
	return nil
}

// SearchRequest filters tax code references page by page. Empty filters
// match everything.
type SearchRequest struct {
	PageIndex      int    `json:"page_index"`
	PageSize       int    `json:"page_size"`
	Lang           string `json:"lang"`
	TaxCodeRcd     string `json:"tax_code_rcd"`
	TaxRuleRcd     string `json:"tax_rule_rcd"`
	TaxCodeRefName string `json:"tax_code_ref_name"`
}

// Args returns the sp_tax_code_ref_search parameters in order.
func (r SearchRequest) Args() []any {
	return []any{
		r.PageIndex,
		r.PageSize,
		r.Lang,
		r.TaxCodeRcd,
		r.TaxRuleRcd,
		r.TaxCodeRefName,
	}
}

func (r SearchRequest) Validate() error {
	var errs []error
	if r.PageIndex < 1 {
		errs = append(errs, &ValidationError{Index: -1, Field: "page_index", Msg: "must be a positive integer"})
	}
	if r.PageSize < 1 || r.PageSize > MaxPageSize {
		errs = append(errs, &ValidationError{Index: -1, Field: "page_size", Msg: fmt.Sprintf("must be between 1 and %d", MaxPageSize)})
	}
	errs = append(errs, required("lang", r.Lang))
	return errors.Join(errs...)
}
