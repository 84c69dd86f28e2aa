package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// handleTrigger runs one drain pass. The route is guarded by a static
// bearer token compared in constant time.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sum, err := s.drainer.Drain(s.db)
	if err != nil {
		log.Error().Err(err).Msg("drain run failed")
		respondError(w, http.StatusInternalServerError, "drain run failed")
		return
	}

	respondJSON(w, http.StatusOK, sum)
}

// authorized checks the Authorization header against the trigger token
func (s *Server) authorized(r *http.Request) bool {
	const prefix = "Bearer "

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) {
		return false
	}

	token := strings.TrimPrefix(auth, prefix)
	return subtle.ConstantTimeCompare([]byte(token),
		[]byte(s.triggerToken)) == 1
}
