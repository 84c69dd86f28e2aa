package api

import (
	"encoding/json"
	"net/http"

	"github.com/harborview/crmsync/e"
	recordmodel "github.com/harborview/crmsync/record/model"
	rulesmodel "github.com/harborview/crmsync/rules/model"
	rulessql "github.com/harborview/crmsync/rules/sqlmodel"
	"github.com/rs/zerolog/log"
)

// handleRuleList lists rules in engine precedence order
func (s *Server) handleRuleList(w http.ResponseWriter, r *http.Request) {
	limit := queryUint(r, "limit", defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := queryUint(r, "offset", 0)

	ruleList, count, err := rulessql.RuleGet(s.db, &rulessql.RuleGetParam{
		Limit:     &limit,
		Offset:    &offset,
		FlagCount: true,
	})
	if err != nil {
		log.Error().Err(err).Msg("list rules")
		respondError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}
	if ruleList == nil {
		ruleList = []*rulesmodel.Rule{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  ruleList,
		"total":  count,
		"limit":  limit,
		"offset": offset,
	})
}

type ruleRequest struct {
	Name            string  `json:"name"`
	EntityType      string  `json:"entity_type"`
	FieldName       *string `json:"field_name"`
	PreferredSource string  `json:"preferred_source"`
	IsEnabled       bool    `json:"is_enabled"`
	Priority        int     `json:"priority"`
	CreatedBy       string  `json:"created_by"`
}

// toModel validates the request and converts it to a rule
func (req *ruleRequest) toModel() (r *rulesmodel.Rule, errMsg string) {
	if req.Name == "" {
		return nil, "name is required"
	}
	if req.EntityType != rulesmodel.EntityTypeWildcard &&
		!recordmodel.EntityType(req.EntityType).Valid() {
		return nil, "invalid entity_type"
	}
	ps := rulesmodel.PreferredSource(req.PreferredSource)
	if !ps.Valid() {
		return nil, "invalid preferred_source"
	}
	if req.FieldName != nil && *req.FieldName == "" {
		req.FieldName = nil
	}

	return &rulesmodel.Rule{
		Name:            req.Name,
		EntityType:      req.EntityType,
		FieldName:       req.FieldName,
		PreferredSource: ps,
		IsEnabled:       req.IsEnabled,
		Priority:        req.Priority,
		CreatedBy:       req.CreatedBy,
	}, ""
}

// handleRuleCreate creates an auto resolution rule
func (s *Server) handleRuleCreate(w http.ResponseWriter, r *http.Request) {
	req := &ruleRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, errMsg := req.toModel()
	if errMsg != "" {
		respondError(w, http.StatusBadRequest, errMsg)
		return
	}

	id, err := rulessql.RuleInsert(s.db, rule)
	if err != nil {
		log.Error().Err(err).Msg("create rule")
		respondError(w, http.StatusInternalServerError, "failed to create rule")
		return
	}

	created, err := rulessql.RuleGetByID(s.db, id)
	if err != nil {
		log.Error().Err(err).Msgf("get created rule %d", id)
		respondError(w, http.StatusInternalServerError, "failed to create rule")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// handleRuleUpdate replaces a rule's definition
func (s *Server) handleRuleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	req := &ruleRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, errMsg := req.toModel()
	if errMsg != "" {
		respondError(w, http.StatusBadRequest, errMsg)
		return
	}
	rule.ID = id

	if err := rulessql.RuleUpdate(s.db, rule); err != nil {
		if e.ContainsError(err, e.MsgRuleDoesNotExist) {
			respondError(w, http.StatusNotFound, e.MsgRuleDoesNotExist)
			return
		}
		log.Error().Err(err).Msgf("update rule %d", id)
		respondError(w, http.StatusInternalServerError, "failed to update rule")
		return
	}

	updated, err := rulessql.RuleGetByID(s.db, id)
	if err != nil {
		log.Error().Err(err).Msgf("get updated rule %d", id)
		respondError(w, http.StatusInternalServerError, "failed to update rule")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// handleRuleDelete removes a rule
func (s *Server) handleRuleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	if err := rulessql.RuleDelete(s.db, id); err != nil {
		log.Error().Err(err).Msgf("delete rule %d", id)
		respondError(w, http.StatusInternalServerError, "failed to delete rule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	OrderedIDs []int `json:"ordered_ids"`
}

// handleRuleReorder rewrites all rule priorities from the passed ordering
// in a single transaction
func (s *Server) handleRuleReorder(w http.ResponseWriter, r *http.Request) {
	req := &reorderRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.OrderedIDs) == 0 {
		respondError(w, http.StatusBadRequest, "ordered_ids is required")
		return
	}

	if err := rulessql.RuleReorder(s.db, req.OrderedIDs); err != nil {
		if e.ContainsError(err, e.MsgRuleDoesNotExist) {
			respondError(w, http.StatusNotFound, e.MsgRuleDoesNotExist)
			return
		}
		log.Error().Err(err).Msg("reorder rules")
		respondError(w, http.StatusInternalServerError, "failed to reorder rules")
		return
	}

	ruleList, _, err := rulessql.RuleGet(s.db, &rulessql.RuleGetParam{})
	if err != nil {
		log.Error().Err(err).Msg("list reordered rules")
		respondError(w, http.StatusInternalServerError, "failed to reorder rules")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"rules": ruleList})
}
