package api

import (
	"fmt"
	"net/http"
	"strconv"
)

func (s *Server) handleVault(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.VaultState(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleVaultBalances(w http.ResponseWriter, r *http.Request) {
	amounts, err := s.svc.VaultBalances(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, amounts)
}

func (s *Server) handleVaultTotalAmounts(w http.ResponseWriter, r *http.Request) {
	amounts, err := s.svc.VaultTotalAmounts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, amounts)
}

// handleVaultPositions requires both tickLower and tickUpper.
func (s *Server) handleVaultPositions(w http.ResponseWriter, r *http.Request) {
	lower, err := requiredInt(r, "tickLower")
	if err != nil {
		s.writeError(w, err)
		return
	}
	upper, err := requiredInt(r, "tickUpper")
	if err != nil {
		s.writeError(w, err)
		return
	}
	amounts, err := s.svc.VaultPositionAmounts(r.Context(), lower, upper)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, amounts)
}

func requiredInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", errBadRequest, key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", errBadRequest, key, err)
	}
	return v, nil
}
