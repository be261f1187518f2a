package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/taxref/internal/rules"
	"github.com/JonMunkholm/taxref/internal/validation"
)

type rulesResponse struct {
	Rules []*rules.RuleSet `json:"rules"`
}

// handleListRules lists every loaded rule set with its ordered columns.
// GET /api/v1/rules
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rulesResponse{Rules: s.engine.Registry().All()})
}

// handleGetRule shows one rule set.
// GET /api/v1/rules/{rule_id}
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "rule_id")

	rs, ok := s.engine.Registry().Lookup(ruleID)
	if !ok {
		respondError(w, r, &validation.UnknownRuleError{RuleID: ruleID})
		return
	}
	writeJSON(w, http.StatusOK, rs)
}
