package api

import (
	"net/http"

	"github.com/harborview/crmsync/syncqueue/sqlmodel"
	"github.com/rs/zerolog/log"
)

// handleQueueStats returns queue entry counts by status and entity type
func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := sqlmodel.StatsGet(s.db)
	if err != nil {
		log.Error().Err(err).Msg("queue stats")
		respondError(w, http.StatusInternalServerError, "failed to get queue stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
