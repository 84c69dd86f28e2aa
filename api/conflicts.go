package api

import (
	"encoding/json"
	"net/http"

	"github.com/harborview/crmsync/conflict"
	conflictmodel "github.com/harborview/crmsync/conflict/model"
	conflictsql "github.com/harborview/crmsync/conflict/sqlmodel"
	"github.com/harborview/crmsync/e"
	"github.com/harborview/crmsync/kafka"
	recordmodel "github.com/harborview/crmsync/record/model"
	"github.com/rs/zerolog/log"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// resolveConflict is stubbed in tests
var resolveConflict = conflict.Resolve

// handleConflictList lists conflicts, unresolved only unless
// include_resolved=true, filterable by entity_type and paged
func (s *Server) handleConflictList(w http.ResponseWriter, r *http.Request) {
	limit := queryUint(r, "limit", defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := queryUint(r, "offset", 0)

	p := &conflictsql.ConflictGetParam{
		Limit:      &limit,
		Offset:     &offset,
		Unresolved: r.URL.Query().Get("include_resolved") != "true",
		FlagCount:  true,
	}

	if et := r.URL.Query().Get("entity_type"); et != "" {
		if !recordmodel.EntityType(et).Valid() {
			respondError(w, http.StatusBadRequest, "invalid entity_type")
			return
		}
		p.EntityType = &et
	}

	conflictList, count, err := conflictsql.ConflictGet(s.db, p)
	if err != nil {
		log.Error().Err(err).Msg("list conflicts")
		respondError(w, http.StatusInternalServerError, "failed to list conflicts")
		return
	}
	if conflictList == nil {
		conflictList = []*conflictmodel.Conflict{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"conflicts": conflictList,
		"total":     count,
		"limit":     limit,
		"offset":    offset,
	})
}

// handleConflictGet returns a single conflict with its full snapshots
func (s *Server) handleConflictGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid conflict id")
		return
	}

	c, err := conflictsql.ConflictGetByID(s.db, id)
	if err != nil {
		if e.ContainsError(err, e.MsgConflictDoesNotExist) {
			respondError(w, http.StatusNotFound, e.MsgConflictDoesNotExist)
			return
		}
		log.Error().Err(err).Msgf("get conflict %d", id)
		respondError(w, http.StatusInternalServerError, "failed to get conflict")
		return
	}

	respondJSON(w, http.StatusOK, c)
}

type resolveRequest struct {
	ResolutionType  string            `json:"resolution_type"`
	ResolvedBy      string            `json:"resolved_by"`
	MergeSelections map[string]string `json:"merge_selections"`
}

// handleConflictResolve applies a manual resolution to a conflict
func (s *Server) handleConflictResolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid conflict id")
		return
	}

	req := &resolveRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rt := conflictmodel.ResolutionType(req.ResolutionType)
	if !rt.Valid() {
		respondError(w, http.StatusBadRequest, e.MsgUnknownResolutionType)
		return
	}

	var resolvedBy *string
	if req.ResolvedBy != "" {
		resolvedBy = &req.ResolvedBy
	}

	c, err := resolveConflict(s.db, id, rt, resolvedBy, req.MergeSelections)
	if err != nil {
		switch {
		case e.ContainsError(err, e.MsgConflictDoesNotExist):
			respondError(w, http.StatusNotFound, e.MsgConflictDoesNotExist)
		case e.ContainsError(err, e.MsgMergeSelectionsRequired):
			respondError(w, http.StatusBadRequest, e.MsgMergeSelectionsRequired)
		case e.ContainsError(err, "merge selection"):
			respondError(w, http.StatusBadRequest, "invalid merge selections")
		default:
			log.Error().Err(err).Msgf("resolve conflict %d", id)
			respondError(w, http.StatusInternalServerError,
				"failed to resolve conflict")
		}
		return
	}

	s.notifyResolved(c)

	respondJSON(w, http.StatusOK, c)
}

// notifyResolved publishes the resolution event and refreshes the conflict's
// search object, fire and forget
func (s *Server) notifyResolved(c *conflictmodel.Conflict) {
	if s.publisher != nil {
		if err := s.publisher.PublishConflict(c,
			kafka.EventConflictResolved); err != nil {
			log.Error().Err(err).Msgf("publish resolution for conflict %d", c.ID)
		}
	}
	if s.indexer != nil {
		if err := s.indexer.IndexConflict(c); err != nil {
			log.Error().Err(err).Msgf("reindex conflict %d", c.ID)
		}
	}
}
