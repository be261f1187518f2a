package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/taxref/internal/tax"
)

// maxJSONBody caps tax request bodies.
const maxJSONBody = 1 << 20

// messageResponse is the body of create, update and delete responses.
type messageResponse struct {
	Message string `json:"message"`
	Result  any    `json:"result,omitempty"`
}

// dataResponse wraps rows returned by a table procedure.
type dataResponse struct {
	Data []tax.Row `json:"data"`
}

// handleTaxCreate creates a batch of tax code references.
// POST /tax/create
func (s *Server) handleTaxCreate(w http.ResponseWriter, r *http.Request) {
	var items []tax.CreateRequest
	if err := decodeJSON(w, r, &items); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.tax.CreateBatch(r.Context(), items)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeBatch(w, http.StatusCreated, "Created successfully", res)
}

// handleTaxUpdate updates a batch of tax code references.
// PUT /tax/update
func (s *Server) handleTaxUpdate(w http.ResponseWriter, r *http.Request) {
	var items []tax.UpdateRequest
	if err := decodeJSON(w, r, &items); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.tax.UpdateBatch(r.Context(), items)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeBatch(w, http.StatusOK, "Updated successfully", res)
}

// handleTaxDelete soft-deletes the tax codes listed in json_list_id.
// DELETE /tax/delete
func (s *Server) handleTaxDelete(w http.ResponseWriter, r *http.Request) {
	var req tax.DeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	rows, err := s.tax.DeleteMany(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Deleted successfully", Result: nonNil(rows)})
}

// handleTaxGet returns one tax code reference.
// GET /tax/tax_code_rcd?tax_code_rcd=
func (s *Server) handleTaxGet(w http.ResponseWriter, r *http.Request) {
	rows, err := s.tax.GetByID(r.Context(), r.URL.Query().Get("tax_code_rcd"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: rows})
}

// handleTaxDropdown returns value/label pairs for a language.
// GET /tax/dropdown?lang=
func (s *Server) handleTaxDropdown(w http.ResponseWriter, r *http.Request) {
	rows, err := s.tax.Dropdown(r.Context(), r.URL.Query().Get("lang"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: nonNil(rows)})
}

// handleTaxSearch pages through tax code references.
// GET /tax/search?page_index=&page_size=&lang=&tax_code_rcd=&tax_rule_rcd=&tax_code_ref_name=
//
// Every parameter is also accepted with a p_ prefix.
func (s *Server) handleTaxSearch(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearch(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}

	rows, err := s.tax.Search(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: nonNil(rows)})
}

func parseSearch(q url.Values) (tax.SearchRequest, error) {
	req := tax.SearchRequest{
		Lang:           param(q, "lang"),
		TaxCodeRcd:     param(q, "tax_code_rcd"),
		TaxRuleRcd:     param(q, "tax_rule_rcd"),
		TaxCodeRefName: param(q, "tax_code_ref_name"),
	}

	var err error
	if req.PageIndex, err = intParam(q, "page_index"); err != nil {
		return req, err
	}
	if req.PageSize, err = intParam(q, "page_size"); err != nil {
		return req, err
	}
	return req, nil
}

// param reads name, falling back to p_name.
func param(q url.Values, name string) string {
	if q.Has(name) {
		return q.Get(name)
	}
	return q.Get("p_" + name)
}

// intParam parses an integer parameter. A missing parameter reads as zero
// and is rejected by request validation.
func intParam(q url.Values, name string) (int, error) {
	v := param(q, name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errMalformedRequest, name)
	}
	return n, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if isTooLarge(err) {
			return err
		}
		return fmt.Errorf("%w: %v", errMalformedRequest, err)
	}
	return nil
}

func writeBatch(w http.ResponseWriter, status int, okMessage string, res tax.BatchResult) {
	if res.OK() {
		writeJSON(w, status, messageResponse{Message: okMessage})
		return
	}
	writeJSON(w, status, messageResponse{Message: "error", Result: res.Failed})
}

func nonNil(rows []tax.Row) []tax.Row {
	if rows == nil {
		return []tax.Row{}
	}
	return rows
}
